// Package audioio captures microphone audio for intent detection and cuts
// it into utterances.
package audioio

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	tlog "github.com/teslashibe/go-theater/internal/log"
)

// Backend names a capture implementation.
type Backend string

const (
	BackendWebSocket Backend = "websocket" // PCM16 frames pushed by the robot bridge
	BackendMock      Backend = "mock"      // scripted chunks
)

// Config describes where audio comes from and the format Read delivers.
// Chunks are always mono PCM16 at SampleRate; the recognizer wants 16 kHz.
type Config struct {
	Backend    Backend `yaml:"backend" json:"backend"`
	SampleRate int     `yaml:"sample_rate" json:"sample_rate"`

	// InputRate and Channels describe what the bridge sends. A zero
	// InputRate means the bridge already sends SampleRate.
	InputRate int `yaml:"input_rate" json:"input_rate"`
	Channels  int `yaml:"channels" json:"channels"`

	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration"`
	URL            string        `yaml:"url" json:"url"`
}

// DefaultConfig listens to the bridge at 16 kHz in 20ms frames. URL must
// still be set.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendWebSocket,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if c.InputRate < 0 {
		errs = append(errs, fmt.Errorf("input_rate must not be negative, got %d", c.InputRate))
	}
	if c.Channels < 1 || c.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", c.Channels))
	}
	if c.BufferDuration <= 0 {
		errs = append(errs, fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration))
	}
	if c.Backend == BackendWebSocket && c.URL == "" {
		errs = append(errs, errors.New("url is required for the websocket backend"))
	}
	return errors.Join(errs...)
}

func (c *Config) inputRate() int {
	if c.InputRate > 0 {
		return c.InputRate
	}
	return c.SampleRate
}

// NewSource validates cfg and builds the source its Backend names.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("audio config: %w", err)
	}
	if logger == nil {
		logger = tlog.Or(nil, "audio")
	}

	var src Source
	switch cfg.Backend {
	case BackendWebSocket:
		src = NewWebSocketSource(cfg, logger)
	case BackendMock:
		src = NewMockSource(cfg, logger)
	default:
		return nil, fmt.Errorf("audio: unknown backend %q", cfg.Backend)
	}
	logger.Info("audio source ready",
		"backend", cfg.Backend,
		"rate", cfg.SampleRate,
		"input_rate", cfg.inputRate(),
		"frame", cfg.BufferDuration,
	)
	return src, nil
}
