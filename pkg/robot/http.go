package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/teslashibe/go-theater/internal/httpc"
	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/motion"
)

// Breaker defaults for the bridge link.
const (
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 10 * time.Second
)

// HTTPBridge implements Bridge using the bridge daemon's HTTP API.
// Every call goes through a circuit breaker; once it opens, calls fail fast
// with ErrUnreachable.
type HTTPBridge struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger

	failures uint32
	cooldown time.Duration
}

// HTTPOption configures an HTTPBridge.
type HTTPOption func(*HTTPBridge)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTPBridge) { b.client = c }
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open before a probe request is let through.
func WithBreaker(failures uint32, cooldown time.Duration) HTTPOption {
	return func(b *HTTPBridge) {
		if failures > 0 {
			b.failures = failures
		}
		if cooldown > 0 {
			b.cooldown = cooldown
		}
	}
}

// WithBridgeLogger sets the logger.
func WithBridgeLogger(l *slog.Logger) HTTPOption {
	return func(b *HTTPBridge) { b.logger = l }
}

// NewHTTPBridge creates a bridge client for baseURL, e.g. http://10.0.0.239:8000.
func NewHTTPBridge(baseURL string, opts ...HTTPOption) *HTTPBridge {
	b := &HTTPBridge{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   httpc.Client,
		failures: DefaultBreakerFailures,
		cooldown: DefaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = tlog.Or(b.logger, "robot.bridge")

	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "robot-bridge",
		MaxRequests: 1,
		Timeout:     b.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.failures
		},
		// A refused command or a cancelled call still proves the robot is there.
		IsSuccessful: func(err error) bool {
			var cmdErr *CommandError
			if errors.As(err, &cmdErr) && cmdErr.Rejected() {
				return true
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("robot link state changed", "from", from.String(), "to", to.String())
		},
	})
	return b
}

// BaseURL returns the bridge base URL.
func (b *HTTPBridge) BaseURL() string { return b.baseURL }

// Say speaks text through the robot's TTS.
func (b *HTTPBridge) Say(ctx context.Context, text string) error {
	return b.post(ctx, "/api/tts/say", map[string]any{"text": text})
}

// PlayAnimation starts a built-in animation.
func (b *HTTPBridge) PlayAnimation(ctx context.Context, name string) error {
	return b.post(ctx, "/api/animation/play", map[string]any{"name": name})
}

// ReplayMotion sends a recorded motion for playback.
func (b *HTTPBridge) ReplayMotion(ctx context.Context, rec *motion.Recording) error {
	return b.post(ctx, "/api/motion/replay", map[string]any{
		"name":        rec.Name,
		"description": rec.Description,
		"joints":      rec.Joints,
		"time":        rec.Timestamps,
		"frames":      rec.Frames,
	})
}

// GoToPosture moves to a named posture.
func (b *HTTPBridge) GoToPosture(ctx context.Context, name string, speed float64) error {
	return b.post(ctx, "/api/posture/goto", map[string]any{"posture": name, "speed": speed})
}

// Rest relaxes every joint into the resting position.
func (b *HTTPBridge) Rest(ctx context.Context) error {
	return b.post(ctx, "/api/motion/rest", map[string]any{})
}

// Status returns the bridge daemon state.
func (b *HTTPBridge) Status(ctx context.Context) (string, error) {
	var status struct {
		State string `json:"state"`
	}
	err := b.do(ctx, http.MethodGet, "/api/daemon/status", nil, &status)
	if err != nil {
		return "", err
	}
	return status.State, nil
}

// BreakerState returns the current breaker state, e.g. "closed".
func (b *HTTPBridge) BreakerState() string { return b.breaker.State().String() }

func (b *HTTPBridge) post(ctx context.Context, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}
	return b.do(ctx, http.MethodPost, path, data, nil)
}

func (b *HTTPBridge) do(ctx context.Context, method, path string, body []byte, out any) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.roundTrip(ctx, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, path, err)
	}
	return err
}

func (b *HTTPBridge) roundTrip(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("robot %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &CommandError{Path: path, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
