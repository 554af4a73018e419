package audioio

import (
	"context"
	"errors"
	"io"
	"time"
)

// EndpointConfig tunes utterance segmentation.
type EndpointConfig struct {
	// Threshold is the RMS level (raw sample units) that counts as speech.
	Threshold float64
	// EndSilence is how much trailing quiet ends an utterance.
	EndSilence time.Duration
	// MaxUtterance caps the utterance length.
	MaxUtterance time.Duration
	// StartTimeout bounds the wait for speech to begin. Zero waits forever.
	StartTimeout time.Duration
}

// DefaultEndpointConfig returns settings that work for a theater stage mic.
func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		Threshold:    500,
		EndSilence:   800 * time.Millisecond,
		MaxUtterance: 15 * time.Second,
		StartTimeout: 8 * time.Second,
	}
}

// Endpointer cuts a continuous Source into utterances with an energy gate.
type Endpointer struct {
	src Source
	cfg EndpointConfig
}

// NewEndpointer wraps src.
func NewEndpointer(src Source, cfg EndpointConfig) *Endpointer {
	return &Endpointer{src: src, cfg: cfg}
}

// Next blocks until one utterance has been captured. If nobody speaks
// before StartTimeout it returns an empty chunk and no error.
func (e *Endpointer) Next(ctx context.Context) (AudioChunk, error) {
	rate := e.src.Config().SampleRate
	utt := AudioChunk{SampleRate: rate, Channels: 1}

	var waited, length, quiet time.Duration
	started := false

	for {
		c, err := e.src.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) && started {
				return utt, nil
			}
			return AudioChunk{}, err
		}
		d := c.Duration()
		loud := c.RMS() >= e.cfg.Threshold

		if !started {
			if !loud {
				waited += d
				if e.cfg.StartTimeout > 0 && waited >= e.cfg.StartTimeout {
					return utt, nil
				}
				continue
			}
			started = true
		}

		utt.Samples = append(utt.Samples, c.Samples...)
		length += d
		if loud {
			quiet = 0
		} else {
			quiet += d
		}

		if quiet >= e.cfg.EndSilence {
			return utt, nil
		}
		if e.cfg.MaxUtterance > 0 && length >= e.cfg.MaxUtterance {
			return utt, nil
		}
	}
}
