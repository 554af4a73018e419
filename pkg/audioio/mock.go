package audioio

import (
	"context"
	"io"
	"log/slog"
	"sync"

	tlog "github.com/teslashibe/go-theater/internal/log"
)

// MockSource plays back scripted chunks and then reports io.EOF. Without a
// script it produces silence until closed.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	script   []AudioChunk
	scripted bool
	started  bool
	closed   bool
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithChunks appends chunks to the script.
func WithChunks(chunks ...AudioChunk) MockSourceOption {
	return func(m *MockSource) {
		m.script = append(m.script, chunks...)
		m.scripted = true
	}
}

// NewMockSource returns a mock that reads in cfg's format.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = tlog.Or(nil, "audio")
	}
	m := &MockSource{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockSource) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.started = true
	return nil
}

func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	if err := ctx.Err(); err != nil {
		return AudioChunk{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case !m.started:
		return AudioChunk{}, io.EOF
	case !m.scripted:
		return Silence(m.cfg.BufferDuration, m.cfg.SampleRate), nil
	case len(m.script) == 0:
		m.logger.Debug("mock audio script finished")
		return AudioChunk{}, io.EOF
	}
	next := m.script[0]
	m.script = m.script[1:]
	return next, nil
}

func (m *MockSource) Config() Config { return m.cfg }
func (m *MockSource) Name() string   { return string(BackendMock) }

func (m *MockSource) Close() error {
	m.mu.Lock()
	m.started, m.closed = false, true
	m.mu.Unlock()
	return nil
}

var _ Source = (*MockSource)(nil)
