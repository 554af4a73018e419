package show

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-theater/internal/config"
	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/gesture"
	"github.com/teslashibe/go-theater/pkg/inference"
)

// NewProvider builds the fallback model named by c.Provider.
func NewProvider(ctx context.Context, c config.LLMConfig, logger *slog.Logger) (inference.Provider, error) {
	logger = tlog.Or(logger, "inference")
	common := []inference.Option{
		inference.WithMaxTokens(c.MaxTokens),
		inference.WithTemperature(c.Temperature),
		inference.WithLogger(logger),
	}

	newOpenAI := func() (inference.Provider, error) {
		opts := append([]inference.Option{
			inference.WithAPIKey(c.OpenAIKey),
			inference.WithBaseURL(c.BaseURL),
		}, common...)
		if c.Model != "" {
			opts = append(opts, inference.WithModel(c.Model))
		}
		return inference.NewOpenAI(opts...)
	}
	newGemini := func() (inference.Provider, error) {
		opts := append([]inference.Option{inference.WithAPIKey(c.GeminiKey)}, common...)
		if c.GeminiModel != "" {
			opts = append(opts, inference.WithModel(c.GeminiModel))
		}
		return inference.NewGemini(ctx, opts...)
	}

	switch c.Provider {
	case "openai", "":
		return newOpenAI()
	case "gemini":
		return newGemini()
	case "chain":
		primary, err := newOpenAI()
		if err != nil {
			return nil, err
		}
		secondary, err := newGemini()
		if err != nil {
			return nil, err
		}
		return inference.NewChainWithLogger(logger, primary, secondary)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", c.Provider)
	}
}

// LoadCatalog reads the script at path, or the built-in script when path is
// empty.
func LoadCatalog(path string) (*gesture.Catalog, error) {
	if path == "" {
		return gesture.Default(), nil
	}
	c, err := gesture.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
