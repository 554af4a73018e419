package fallback

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/inference"
)

func newResponder(t *testing.T, p inference.Provider) *Responder {
	t.Helper()
	r, err := New(p, Config{Logger: tlog.Nop()})
	require.NoError(t, err)
	return r
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(nil, Config{})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestGenerateFirstPrompt(t *testing.T) {
	mock := inference.NewMock("Purple. It matches my error LEDs.")
	r := newResponder(t, mock)

	reply, err := r.Generate(context.Background(), "INTRODUCTION", "what's your favorite color")
	require.NoError(t, err)
	assert.Equal(t, "Purple. It matches my error LEDs.", reply)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	msgs := reqs[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, inference.RoleSystem, msgs[0].Role)
	assert.Equal(t, DefaultSystemPrompt, msgs[0].Content)
	assert.Equal(t, inference.RoleUser, msgs[1].Role)
	assert.Equal(t,
		"State: INTRODUCTION\nContext: None\nHuman: \"what's your favorite color\"\nRespond as NAO:",
		msgs[1].Content)
}

func TestPromptCarriesLastTwoLines(t *testing.T) {
	mock := inference.NewMock("ok")
	r := newResponder(t, mock)
	ctx := context.Background()

	_, err := r.Generate(ctx, "DENIAL", "first")
	require.NoError(t, err)
	_, err = r.Generate(ctx, "DENIAL", "second")
	require.NoError(t, err)

	prompt := r.Prompt("DOUBT", "third")
	assert.Equal(t,
		"State: DOUBT\nContext: Human: second | NAO: ok\nHuman: \"third\"\nRespond as NAO:",
		prompt)
	assert.NotContains(t, prompt, "first")
}

func TestPromptKeepsUtteranceVerbatim(t *testing.T) {
	r := newResponder(t, inference.NewMock("ok"))
	utterance := "she said \"dance\"\tnow\nplease"

	prompt := r.Prompt("INTRODUCTION", utterance)
	assert.Contains(t, prompt, "Human: \""+utterance+"\"\n")
	assert.NotContains(t, prompt, `\"`)
}

func TestHistoryKeepsNewestFour(t *testing.T) {
	replies := 0
	mock := &inference.Mock{ChatFunc: func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		replies++
		return &inference.ChatResponse{Message: inference.NewAssistantMessage(fmt.Sprintf("reply %d", replies))}, nil
	}}
	r := newResponder(t, mock)

	for i := 1; i <= 5; i++ {
		_, err := r.Generate(context.Background(), "LEARNING", fmt.Sprintf("line %d", i))
		require.NoError(t, err)
		assert.LessOrEqual(t, r.History().Len(), 4)
	}

	assert.Equal(t, []Line{
		{Speaker: SpeakerHuman, Text: "line 4"},
		{Speaker: SpeakerRobot, Text: "reply 4"},
		{Speaker: SpeakerHuman, Text: "line 5"},
		{Speaker: SpeakerRobot, Text: "reply 5"},
	}, r.History().Lines())
}

func TestGenerateErrorLeavesHistory(t *testing.T) {
	boom := errors.New("model offline")
	mock := inference.WithError(boom)
	r := newResponder(t, mock)
	r.History().Append(Line{Speaker: SpeakerHuman, Text: "earlier"})

	_, err := r.Generate(context.Background(), "DOUBT", "hello?")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []Line{{Speaker: SpeakerHuman, Text: "earlier"}}, r.History().Lines())
	assert.Equal(t, 1, mock.CallCount("Chat"), "no retry at this layer")
}

func TestGenerateEmptyReply(t *testing.T) {
	r := newResponder(t, inference.NewMock("   \n"))

	_, err := r.Generate(context.Background(), "DOUBT", "hello?")
	require.ErrorIs(t, err, ErrEmptyReply)
	assert.Zero(t, r.History().Len())
}

func TestGeneratePassesModelSettings(t *testing.T) {
	mock := inference.NewMock("fine")
	r, err := New(mock, Config{
		Model:        "gpt-4o",
		MaxTokens:    40,
		Temperature:  inference.Float(0.3),
		SystemPrompt: "Be brief.",
		RobotName:    "Cody",
		Logger:       tlog.Nop(),
	})
	require.NoError(t, err)

	_, err = r.Generate(context.Background(), "ACCEPTANCE", "bye")
	require.NoError(t, err)

	req := mock.Requests()[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 40, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.3, *req.Temperature, 1e-9)
	assert.Equal(t, "Be brief.", req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "Respond as Cody:")
}

func TestHistoryLastAndReset(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, DefaultHistorySize, h.Cap())
	assert.Nil(t, h.Last(2))

	h.Append(Line{SpeakerHuman, "a"}, Line{SpeakerRobot, "b"}, Line{SpeakerHuman, "c"})
	assert.Equal(t, []Line{{SpeakerRobot, "b"}, {SpeakerHuman, "c"}}, h.Last(2))
	assert.Len(t, h.Last(10), 3)

	h.Reset()
	assert.Zero(t, h.Len())
}
