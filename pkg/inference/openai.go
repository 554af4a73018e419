package inference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-theater/internal/httpc"
)

const providerOpenAI = "openai"

// OpenAI talks to OpenAI or any OpenAI-compatible endpoint (Ollama, vLLM)
// through go-openai.
type OpenAI struct {
	client *openai.Client
	config *Config
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI provider. An API key is required unless a
// custom base URL points at a local server.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, WrapError(providerOpenAI, ErrNoAPIKey)
	}
	if cfg.Model == "" {
		return nil, WrapError(providerOpenAI, ErrNoModel)
	}

	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	cc.HTTPClient = cfg.HTTPClient
	if cc.HTTPClient == nil {
		cc.HTTPClient = httpc.Client
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cc),
		config: cfg,
		logger: cfg.Logger.With("component", "inference.openai"),
	}, nil
}

// Name returns "openai".
func (o *OpenAI) Name() string { return providerOpenAI }

// Chat generates a chat completion, retrying rate limits and server errors.
func (o *OpenAI) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	creq := openai.ChatCompletionRequest{
		Model:       o.config.model(req),
		MaxTokens:   o.config.maxTokens(req),
		Temperature: float32(o.config.temperature(req)),
		Messages:    toOpenAIMessages(req.Messages),
	}

	start := time.Now()
	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = o.client.CreateChatCompletion(ctx, creq)
		err = fromSDK(providerOpenAI, err)
		if err == nil || attempt >= o.config.MaxRetries || !IsRetryable(err) {
			break
		}
		delay := o.config.RetryDelay * time.Duration(1<<attempt)
		o.logger.Warn("chat request failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, WrapError(providerOpenAI, ctx.Err())
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, WrapError(providerOpenAI, ErrEmptyResponse)
	}

	latency := time.Since(start)
	choice := resp.Choices[0]
	o.logger.Debug("chat response",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"latency_ms", latency.Milliseconds(),
	)

	return &ChatResponse{
		Message:      NewAssistantMessage(strings.TrimSpace(choice.Message.Content)),
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model:     resp.Model,
		LatencyMs: latency.Milliseconds(),
	}, nil
}

// Health lists models to check connectivity and the API key.
func (o *OpenAI) Health(ctx context.Context) error {
	if _, err := o.client.ListModels(ctx); err != nil {
		return fmt.Errorf("health: %w", fromSDK(providerOpenAI, err))
	}
	return nil
}

// Close is a no-op; the HTTP client is shared.
func (o *OpenAI) Close() error { return nil }

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

var _ Provider = (*OpenAI)(nil)
