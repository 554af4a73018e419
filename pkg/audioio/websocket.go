package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	tlog "github.com/teslashibe/go-theater/internal/log"
)

// WebSocketSource reads microphone PCM16 from the robot bridge. Each binary
// message is one chunk; text messages are ignored.
type WebSocketSource struct {
	cfg    Config
	logger *slog.Logger
	dialer websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
	closed  bool
	chunks  chan AudioChunk
	done    chan struct{}
	readErr error

	chunksRead atomic.Int64
	overruns   atomic.Int64
}

// NewWebSocketSource creates a source for cfg.URL. Call Start to connect.
func NewWebSocketSource(cfg Config, logger *slog.Logger) *WebSocketSource {
	if logger == nil {
		logger = tlog.Or(nil, "audio")
	}
	return &WebSocketSource{
		cfg:    cfg,
		logger: logger,
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Start dials the bridge and begins reading frames.
func (s *WebSocketSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	s.conn = conn
	s.running = true
	s.readErr = nil
	s.chunks = make(chan AudioChunk, 64)
	s.done = make(chan struct{})

	go s.readLoop(conn, s.chunks, s.done)

	s.logger.Info("microphone stream connected", "url", s.cfg.URL, "sample_rate", s.cfg.SampleRate)
	return nil
}

func (s *WebSocketSource) readLoop(conn *websocket.Conn, out chan<- AudioChunk, done chan struct{}) {
	defer close(done)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("microphone stream read error", "error", err)
			}
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		chunk := s.decode(data)
		select {
		case out <- chunk:
			s.chunksRead.Add(1)
		default:
			s.overruns.Add(1)
			s.logger.Debug("microphone buffer full, dropping chunk")
		}
	}
}

func (s *WebSocketSource) decode(data []byte) AudioChunk {
	samples := BytesToSamples(data)
	if s.cfg.Channels == 2 {
		samples = StereoToMono(samples)
	}
	samples = Resample(samples, s.cfg.inputRate(), s.cfg.SampleRate)
	return AudioChunk{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: 1}
}

// Read returns the next chunk. After the connection drops, buffered chunks
// are drained and then io.EOF is returned.
func (s *WebSocketSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	chunks, done := s.chunks, s.done
	s.mu.Unlock()
	if chunks == nil {
		return AudioChunk{}, errors.New("audio source not started")
	}

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case c := <-chunks:
		return c, nil
	case <-done:
		select {
		case c := <-chunks:
			return c, nil
		default:
			return AudioChunk{}, io.EOF
		}
	}
}

// Config returns the delivered audio format.
func (s *WebSocketSource) Config() Config {
	c := s.cfg
	c.Channels = 1
	return c
}

// Name returns "websocket".
func (s *WebSocketSource) Name() string { return string(BackendWebSocket) }

// Overruns returns how many chunks were dropped because nobody was reading.
func (s *WebSocketSource) Overruns() int64 { return s.overruns.Load() }

// Close sends a close frame and waits for the reader to exit.
func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn, done := s.conn, s.done
	s.running = false
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := conn.Close()
	<-done
	return err
}

var _ Source = (*WebSocketSource)(nil)
