package inference

import (
	"cmp"
	"log/slog"
	"net/http"
	"time"
)

// Config is shared by every provider. Fields on a ChatRequest take
// precedence over the defaults here.
type Config struct {
	BaseURL    string // empty for the vendor endpoint
	APIKey     string
	HTTPClient *http.Client

	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration // one Chat call, retries included

	// 429 and 5xx answers are retried MaxRetries times, RetryDelay apart.
	MaxRetries int
	RetryDelay time.Duration

	Logger *slog.Logger
}

// Option adjusts a Config.
type Option func(*Config)

// WithBaseURL points the provider at another endpoint, such as a local
// OpenAI-compatible server or an httptest.Server.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the vendor API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithHTTPClient replaces the shared httpc client, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithMaxTokens caps reply length for requests that set no limit.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTemperature sets sampling temperature for requests that set none.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithTimeout bounds one Chat call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry sets how often and how far apart 429/5xx answers are retried.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the defaults used for the show's fallback lines:
// short, slightly playful answers.
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   80,
		Temperature: 0.8,
		Timeout:     20 * time.Second,
		MaxRetries:  2,
		RetryDelay:  200 * time.Millisecond,
		Logger:      slog.Default(),
	}
}

// Apply runs opts against c in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

func (c *Config) maxTokens(req *ChatRequest) int {
	return cmp.Or(req.MaxTokens, c.MaxTokens)
}

func (c *Config) temperature(req *ChatRequest) float64 {
	if t := req.Temperature; t != nil {
		return *t
	}
	return c.Temperature
}

func (c *Config) model(req *ChatRequest) string {
	return cmp.Or(req.Model, c.Model)
}
