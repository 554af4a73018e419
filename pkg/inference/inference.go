// Package inference puts chat-capable language models behind one Provider
// interface so the fallback responder can switch between OpenAI, Gemini or a
// chain of both without caring which one answers.
//
// Example usage:
//
//	p, _ := inference.NewOpenAI(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithModel("gpt-4o-mini"),
//	)
//	defer p.Close()
//
//	resp, _ := p.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        inference.NewSystemMessage("You are NAO the robot in a theatre show."),
//	        inference.NewUserMessage("Can robots dance?"),
//	    },
//	})
package inference

import "context"

// Provider answers chat requests. Implementations are safe for concurrent use.
type Provider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// Health makes a cheap authenticated call to confirm the key works.
	Health(ctx context.Context) error
	Name() string
	Close() error
}

// ChatRequest is one completion call. Zero fields fall back to the
// provider Config.
type ChatRequest struct {
	Messages    []Message // system message first
	Model       string
	MaxTokens   int
	Temperature *float64 // nil keeps the provider default; see Float
}

// ChatResponse is the model's answer.
type ChatResponse struct {
	Message      Message
	FinishReason string
	Usage        Usage
	Model        string
	LatencyMs    int64
}

// Usage counts tokens as reported by the vendor.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Float returns a pointer to v, for ChatRequest.Temperature.
func Float(v float64) *float64 { return &v }
