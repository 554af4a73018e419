package inference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/teslashibe/go-theater/internal/httpc"
)

const providerGemini = "gemini"

// Gemini implements Provider with the Google Gen AI SDK.
type Gemini struct {
	client *genai.Client
	config *Config
	logger *slog.Logger
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.Model = "gemini-2.0-flash"
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerGemini, ErrNoAPIKey)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = httpc.Client
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, WrapError(providerGemini, err)
	}

	return &Gemini{
		client: client,
		config: cfg,
		logger: cfg.Logger.With("component", "inference.gemini"),
	}, nil
}

// Name returns "gemini".
func (g *Gemini) Name() string { return providerGemini }

// Chat generates a response with generateContent. System messages become
// the system instruction.
func (g *Gemini) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	system, rest := splitSystem(req.Messages)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	gcfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.config.temperature(req))),
		MaxOutputTokens: int32(g.config.maxTokens(req)),
	}
	if system != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	model := g.config.model(req)
	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, gcfg)
	if err != nil {
		return nil, fromSDK(providerGemini, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, WrapError(providerGemini, ErrEmptyResponse)
	}

	out := &ChatResponse{
		Message:   NewAssistantMessage(text),
		Model:     model,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	g.logger.Debug("chat response", "model", model, "latency_ms", out.LatencyMs)
	return out, nil
}

// Health sends a one-token request.
func (g *Gemini) Health(ctx context.Context) error {
	_, err := g.Chat(ctx, &ChatRequest{
		Messages:  []Message{NewUserMessage("ping")},
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources of its own.
func (g *Gemini) Close() error { return nil }

var _ Provider = (*Gemini)(nil)
