package inference

import (
	"context"
	"sync"
	"time"
)

// Mock is a scriptable Provider for tests and dry runs. Every call is
// recorded; chat requests are deep-copied so later mutation by the caller
// does not change what the mock saw.
type Mock struct {
	ChatFunc   func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	HealthFunc func(ctx context.Context) error
	CloseFunc  func() error

	// NameValue overrides Name.
	NameValue string

	mu       sync.Mutex
	calls    []MockCall
	requests []ChatRequest
}

// MockCall is one recorded method call.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock answers every chat with reply.
func NewMock(reply string) *Mock {
	return &Mock{ChatFunc: Reply(reply)}
}

// WithError returns a mock whose chats and health checks all fail with err.
func WithError(err error) *Mock {
	return &Mock{
		ChatFunc:   func(context.Context, *ChatRequest) (*ChatResponse, error) { return nil, err },
		HealthFunc: func(context.Context) error { return err },
	}
}

// Reply builds a ChatFunc that always answers text.
func Reply(text string) func(context.Context, *ChatRequest) (*ChatResponse, error) {
	return func(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
		model := req.Model
		if model == "" {
			model = "mock"
		}
		return &ChatResponse{
			Message:      NewAssistantMessage(text),
			FinishReason: "stop",
			Model:        model,
			Usage:        Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
}

// Name returns NameValue, or "mock".
func (m *Mock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Chat records req and delegates to ChatFunc.
func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	cp := *req
	cp.Messages = append([]Message(nil), req.Messages...)

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "Chat", Time: time.Now()})
	m.requests = append(m.requests, cp)
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, WrapError(m.Name(), ErrProviderUnavailable)
	}
	return fn(ctx, req)
}

// Health delegates to HealthFunc; nil means healthy.
func (m *Mock) Health(ctx context.Context) error {
	m.note("Health")
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

// Close delegates to CloseFunc.
func (m *Mock) Close() error {
	m.note("Close")
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}

func (m *Mock) note(method string) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
	m.mu.Unlock()
}

// Calls returns every recorded call in order.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount counts recorded calls to method.
func (m *Mock) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Requests returns the chat requests received so far.
func (m *Mock) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

// Reset forgets every recorded call and request.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls, m.requests = nil, nil
	m.mu.Unlock()
}

var _ Provider = (*Mock)(nil)
