package intent

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/teslashibe/go-theater/pkg/audioio"
)

func TestParseIntentName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"projects/p/locations/europe-west4/agents/a/intents/welcome_intent", "welcome_intent", false},
		{"welcome_intent", "welcome_intent", false},
		{"  final_ending ", "final_ending", false},
		{"a/b", "b", false},
		{"", "", true},
		{"   ", "", true},
		{"projects/p/intents/", "", true},
		{"/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIntentName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedIntentName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSessionIDRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		require.GreaterOrEqual(t, id, 0)
		require.Less(t, id, 10000)
	}
}

func TestRecordHeard(t *testing.T) {
	assert.False(t, Record{}.Heard())
	assert.False(t, Record{Transcript: "  "}.Heard())
	assert.True(t, Record{Transcript: "hello"}.Heard())
}

func TestScripted(t *testing.T) {
	boom := errors.New("boom")
	s := NewScripted(Record{Name: "a"}, Record{Name: "b"}).FailAt(1, boom)
	ctx := context.Background()

	r, err := s.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", r.Name)

	_, err = s.Detect(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Remaining())

	r, err = s.Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", r.Name)

	_, err = s.Detect(ctx)
	assert.ErrorIs(t, err, ErrScriptExhausted)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Detect(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsoleListener(t *testing.T) {
	var out strings.Builder
	l := NewConsoleListener(strings.NewReader("hello robot\n\n  can you dance?  \n"), &out, "> ")
	ctx := context.Background()

	u, err := l.Listen(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello robot", u.Text)

	u, err = l.Listen(ctx)
	require.NoError(t, err)
	assert.True(t, u.Empty())

	u, err = l.Listen(ctx)
	require.NoError(t, err)
	assert.Equal(t, "can you dance?", u.Text)

	_, err = l.Listen(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > > ", out.String())
}

func TestConsoleListenerLongLine(t *testing.T) {
	long := strings.Repeat("la ", 30_000)
	l := NewConsoleListener(strings.NewReader(long+"\n"), nil, "")

	u, err := l.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(long), u.Text)
}

func TestConsoleListenerReadErrorClosesInput(t *testing.T) {
	broken := errors.New("stdin gone")
	l := NewConsoleListener(iotest.ErrReader(broken), nil, "")

	for range 2 {
		_, err := l.Listen(context.Background())
		assert.ErrorIs(t, err, io.EOF)
		assert.ErrorIs(t, err, broken)
	}

	huge := NewConsoleListener(strings.NewReader(strings.Repeat("x", maxConsoleLine+1)), nil, "")
	_, err := huge.Listen(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestConsoleListenerCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	l := NewConsoleListener(pr, nil, "")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Listen(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type agent struct {
	t        *testing.T
	mu       sync.Mutex
	requests []detectIntentRequest
	paths    []string
	status   int
	body     string
}

func (a *agent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req detectIntentRequest
	require.NoError(a.t, json.NewDecoder(r.Body).Decode(&req))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	a.paths = append(a.paths, r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	if a.status != 0 {
		w.WriteHeader(a.status)
	}
	_, _ = io.WriteString(w, a.body)
}

type fixedListener []Utterance

func (f *fixedListener) Listen(ctx context.Context) (Utterance, error) {
	if len(*f) == 0 {
		return Utterance{}, io.EOF
	}
	u := (*f)[0]
	*f = (*f)[1:]
	return u, nil
}

func newTestSource(t *testing.T, a *agent, l Listener) *Dialogflow {
	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)

	d, err := NewDialogflow(DialogflowConfig{
		ProjectID: "theater",
		AgentID:   "agent-1",
		Location:  "europe-west4",
		Endpoint:  srv.URL,
		SessionID: 4242,
	}, srv.Client(), l)
	require.NoError(t, err)
	return d
}

func TestDialogflowDetectText(t *testing.T) {
	a := &agent{t: t, body: `{
		"responseId": "r1",
		"queryResult": {
			"text": "hi there",
			"languageCode": "en",
			"parameters": {"mood": "happy"},
			"intent": {
				"name": "projects/theater/locations/europe-west4/agents/agent-1/intents/0b2f",
				"displayName": "welcome_intent"
			},
			"intentDetectionConfidence": 0.93,
			"responseMessages": [
				{"text": {"text": ["Hi there!"]}},
				{"payload": {}},
				{"text": {"text": ["Welcome to the show."]}}
			]
		}
	}`}
	l := &fixedListener{{Text: "hi there"}}
	d := newTestSource(t, a, l)

	rec, err := d.Detect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "welcome_intent", rec.Name)
	assert.InDelta(t, 0.93, rec.Confidence, 1e-9)
	assert.Equal(t, "hi there", rec.Transcript)
	assert.Equal(t, "Hi there! Welcome to the show.", rec.FulfillmentText)
	assert.Equal(t, "happy", rec.Parameters["mood"])

	require.Len(t, a.requests, 1)
	assert.Equal(t, "/v3/projects/theater/locations/europe-west4/agents/agent-1/sessions/4242:detectIntent", a.paths[0])
	require.NotNil(t, a.requests[0].QueryInput.Text)
	assert.Equal(t, "hi there", a.requests[0].QueryInput.Text.Text)
	assert.Equal(t, "en", a.requests[0].QueryInput.LanguageCode)
	assert.Nil(t, a.requests[0].QueryInput.Audio)
}

func TestDialogflowDetectAudio(t *testing.T) {
	a := &agent{t: t, body: `{
		"queryResult": {
			"transcript": "can you dance",
			"match": {
				"intent": {"name": "projects/theater/locations/europe-west4/agents/agent-1/intents/feel_game"},
				"confidence": 0.5
			}
		}
	}`}
	pcm := []byte{1, 0, 2, 0}
	d := newTestSource(t, a, &fixedListener{{Audio: pcm, SampleRate: 16000}})

	rec, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "feel_game", rec.Name)
	assert.Equal(t, "can you dance", rec.Transcript)
	assert.InDelta(t, 0.5, rec.Confidence, 1e-9)
	assert.Empty(t, rec.FulfillmentText)

	audio := a.requests[0].QueryInput.Audio
	require.NotNil(t, audio)
	assert.Equal(t, "AUDIO_ENCODING_LINEAR_16", audio.Config.AudioEncoding)
	assert.Equal(t, 16000, audio.Config.SampleRateHertz)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pcm), audio.Audio)
}

func TestDialogflowNoMatch(t *testing.T) {
	a := &agent{t: t, body: `{"queryResult": {"text": "order a pizza", "match": {"matchType": "NO_MATCH"}}}`}
	d := newTestSource(t, a, &fixedListener{{Text: "order a pizza"}})

	rec, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.Name)
	assert.Equal(t, "order a pizza", rec.Transcript)
}

func TestDialogflowSilenceSkipsAPI(t *testing.T) {
	a := &agent{t: t}
	d := newTestSource(t, a, &fixedListener{{SampleRate: 16000}})

	rec, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.False(t, rec.Heard())
	assert.Empty(t, a.requests)
}

func TestDialogflowAPIError(t *testing.T) {
	a := &agent{t: t, status: http.StatusForbidden, body: `{"error": {"code": 403, "message": "permission denied", "status": "PERMISSION_DENIED"}}`}
	d := newTestSource(t, a, &fixedListener{{Text: "hello"}})

	_, err := d.Detect(context.Background())
	require.Error(t, err)

	var gerr *googleapi.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, http.StatusForbidden, gerr.Code)
	assert.Contains(t, gerr.Message, "permission denied")
}

func TestDialogflowListenerError(t *testing.T) {
	d := newTestSource(t, &agent{t: t}, &fixedListener{})
	_, err := d.Detect(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewDialogflowValidation(t *testing.T) {
	_, err := NewDialogflow(DialogflowConfig{AgentID: "a", Location: "l"}, http.DefaultClient, &fixedListener{})
	assert.Error(t, err)

	_, err = NewDialogflow(DialogflowConfig{ProjectID: "p", AgentID: "a", Location: "l"}, http.DefaultClient, nil)
	assert.Error(t, err)

	d, err := NewDialogflow(DialogflowConfig{ProjectID: "p", AgentID: "a", Location: "europe-west4"}, http.DefaultClient, &fixedListener{})
	require.NoError(t, err)
	assert.Equal(t, "https://europe-west4-dialogflow.googleapis.com", d.cfg.Endpoint)
	assert.Equal(t, "en", d.cfg.Language)
}

func TestNewDialogflowBadCredentials(t *testing.T) {
	_, err := NewDialogflowFromJSON(context.Background(), DialogflowConfig{AgentID: "a", Location: "l"}, []byte("not json"), &fixedListener{})
	assert.ErrorIs(t, err, ErrCredentials)

	_, err = NewDialogflowFromKeyFile(context.Background(), DialogflowConfig{}, "/does/not/exist.json", &fixedListener{})
	assert.ErrorIs(t, err, ErrCredentials)
}

func TestAudioListener(t *testing.T) {
	cfg := audioio.DefaultConfig()
	cfg.Backend = audioio.BackendMock
	loud := audioio.Tone(100*time.Millisecond, 16000, 300, 0.5)
	quiet := audioio.Silence(100*time.Millisecond, 16000)
	src := audioio.NewMockSource(cfg, nil, audioio.WithChunks(loud, loud, quiet, quiet, quiet, quiet))
	require.NoError(t, src.Start(context.Background()))

	l := NewAudioListener(src, audioio.EndpointConfig{Threshold: 500, EndSilence: 200 * time.Millisecond})
	u, err := l.Listen(context.Background())
	require.NoError(t, err)
	assert.False(t, u.Empty())
	assert.Equal(t, 16000, u.SampleRate)
	assert.Len(t, u.Audio, 4*1600*2)
}
