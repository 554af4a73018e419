package inference

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	tlog "github.com/teslashibe/go-theater/internal/log"
)

// Chain asks its providers in order and returns the first answer.
type Chain struct {
	providers []Provider
	logger    *slog.Logger

	mu     sync.Mutex
	served string
}

// NewChain chains providers. At least one is required.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(nil, providers...)
}

// NewChainWithLogger is NewChain with an explicit logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	return &Chain{
		providers: append([]Provider(nil), providers...),
		logger:    tlog.Or(logger, "inference.chain"),
	}, nil
}

// Name lists the chained providers, e.g. "chain(openai,gemini)".
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Chat returns the first successful response. Cancellation stops the walk
// immediately; every other failure moves on to the next provider.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	failed := &ChainError{}
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := p.Chat(ctx, req)
		if err != nil {
			failed.Errors = append(failed.Errors, err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("provider failed", "provider", p.Name(), "position", i, "error", err)
			continue
		}

		c.mu.Lock()
		c.served = p.Name()
		c.mu.Unlock()
		if i > 0 {
			c.logger.Info("answered by backup provider", "provider", p.Name(), "position", i)
		}
		return resp, nil
	}
	return nil, failed
}

// Served names the provider that produced the last successful answer.
func (c *Chain) Served() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.served
}

// Health succeeds when any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return WrapError("chain", errors.Join(errs...))
}

// Close closes every provider and joins their errors.
func (c *Chain) Close() error {
	errs := make([]error, 0, len(c.providers))
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Providers returns a copy of the chained providers.
func (c *Chain) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}

var _ Provider = (*Chain)(nil)
