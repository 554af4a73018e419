// Package fallback answers unscripted utterances with a language model,
// keeping a short rolling memory of the exchange.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/inference"
)

const (
	// DefaultSystemPrompt sets the robot's voice for unscripted lines.
	DefaultSystemPrompt = "You are NAO the robot in a theatre show. Respond with short dry humor."

	// DefaultRobotName is how the prompt addresses the robot.
	DefaultRobotName = "NAO"

	// contextLines is how much history goes into a single prompt.
	contextLines = 2
)

// Config configures a Responder.
type Config struct {
	SystemPrompt string
	RobotName    string
	Model        string
	MaxTokens    int
	Temperature  *float64
	HistorySize  int
	Logger       *slog.Logger
}

// Responder generates fallback replies.
type Responder struct {
	provider inference.Provider
	cfg      Config
	history  *History
	logger   *slog.Logger
}

// New creates a responder over provider. Zero config fields take defaults;
// model, tokens and temperature left unset defer to the provider.
func New(provider inference.Provider, cfg Config) (*Responder, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.RobotName == "" {
		cfg.RobotName = DefaultRobotName
	}
	return &Responder{
		provider: provider,
		cfg:      cfg,
		history:  NewHistory(cfg.HistorySize),
		logger:   tlog.Or(cfg.Logger, "fallback"),
	}, nil
}

// History exposes the responder's memory for inspection.
func (r *Responder) History() *History { return r.history }

// Prompt builds the user message for utterance in state.
func (r *Responder) Prompt(state, utterance string) string {
	return fmt.Sprintf("State: %s\nContext: %s\nHuman: \"%s\"\nRespond as %s:",
		state,
		render(r.history.Last(contextLines), r.cfg.RobotName),
		utterance,
		r.cfg.RobotName,
	)
}

// Generate asks the model for a reply to utterance. On success the exchange
// is remembered. On failure the history is left as it was.
func (r *Responder) Generate(ctx context.Context, state, utterance string) (string, error) {
	req := &inference.ChatRequest{
		Messages: []inference.Message{
			inference.NewSystemMessage(r.cfg.SystemPrompt),
			inference.NewUserMessage(r.Prompt(state, utterance)),
		},
		Model:       r.cfg.Model,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}

	start := time.Now()
	resp, err := r.provider.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate fallback: %w", err)
	}
	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}

	r.history.Append(
		Line{Speaker: SpeakerHuman, Text: utterance},
		Line{Speaker: SpeakerRobot, Text: reply},
	)
	r.logger.Debug("fallback reply",
		"state", state,
		"provider", r.provider.Name(),
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens", resp.Usage.TotalTokens,
	)
	return reply, nil
}
