package audioio

import (
	"encoding/binary"
	"math"
)

// BytesToSamples decodes little-endian PCM16. An odd trailing byte is
// ignored.
func BytesToSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return out
}

// SamplesToBytes encodes samples as little-endian PCM16.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

// StereoToMono averages each left/right pair of interleaved samples.
func StereoToMono(samples []int16) []int16 {
	out := make([]int16, len(samples)/2)
	for i := range out {
		l, r := int32(samples[2*i]), int32(samples[2*i+1])
		out[i] = int16((l + r) / 2)
	}
	return out
}

// Resample converts between rates by linear interpolation, which is
// adequate for speech on its way to a recognizer. Equal rates return the
// input slice itself.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	step := float64(fromRate) / float64(toRate)
	last := len(samples) - 1
	out := make([]int16, int(float64(len(samples))/step))
	for i := range out {
		x := float64(i) * step
		j := int(x)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		a, b := float64(samples[j]), float64(samples[j+1])
		out[i] = int16(a + (x-float64(j))*(b-a))
	}
	return out
}

// RMS is the root mean square of samples, 0 to 32768.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sq float64
	for _, s := range samples {
		sq += float64(s) * float64(s)
	}
	return math.Sqrt(sq / float64(len(samples)))
}
