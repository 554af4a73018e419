package audioio

import (
	"context"
	"io"
	"math"
	"time"
)

// Source delivers microphone audio. Read blocks until a chunk arrives and
// returns io.EOF once the source has stopped; Close may be called twice.
type Source interface {
	io.Closer
	Start(ctx context.Context) error
	Read(ctx context.Context) (AudioChunk, error)
	Config() Config
	Name() string
}

// AudioChunk is interleaved PCM16 audio.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Bytes encodes the chunk as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte { return SamplesToBytes(c.Samples) }

// FromBytes replaces the chunk's contents with decoded little-endian PCM16.
func (c *AudioChunk) FromBytes(data []byte, sampleRate, channels int) {
	*c = AudioChunk{Samples: BytesToSamples(data), SampleRate: sampleRate, Channels: channels}
}

// Duration is how long the chunk plays for; zero for a chunk with no format.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := time.Duration(len(c.Samples) / c.Channels)
	return frames * time.Second / time.Duration(c.SampleRate)
}

// RMS is the chunk's loudness in raw sample units.
func (c *AudioChunk) RMS() float64 { return RMS(c.Samples) }

// Silence is a mono chunk of d worth of zeros.
func Silence(d time.Duration, sampleRate int) AudioChunk {
	return AudioChunk{Samples: make([]int16, frames(d, sampleRate)), SampleRate: sampleRate, Channels: 1}
}

// Tone is a mono sine wave at frequency Hz. amplitude runs 0 to 1.
func Tone(d time.Duration, sampleRate int, frequency, amplitude float64) AudioChunk {
	c := Silence(d, sampleRate)
	step := 2 * math.Pi * frequency / float64(sampleRate)
	for i := range c.Samples {
		c.Samples[i] = int16(amplitude * math.MaxInt16 * math.Sin(step*float64(i)))
	}
	return c
}

func frames(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}
