package intent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"

	"github.com/teslashibe/go-theater/internal/httpc"
	tlog "github.com/teslashibe/go-theater/internal/log"
)

// cloudPlatformScope is the OAuth scope Dialogflow CX accepts.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// DialogflowConfig addresses a Dialogflow CX agent.
type DialogflowConfig struct {
	ProjectID string
	AgentID   string
	Location  string
	Language  string
	// Endpoint overrides the regional API host, e.g. for tests.
	Endpoint string
	// SessionID is the conversation session number. Zero draws a fresh one.
	SessionID int
}

// Dialogflow detects intents with the Dialogflow CX REST API.
type Dialogflow struct {
	cfg      DialogflowConfig
	client   *http.Client
	listener Listener
	logger   *slog.Logger
	session  string
}

// DialogflowOption configures a Dialogflow source.
type DialogflowOption func(*Dialogflow)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DialogflowOption {
	return func(d *Dialogflow) { d.logger = l }
}

// NewDialogflowFromKeyFile reads a service account key and builds a source.
func NewDialogflowFromKeyFile(ctx context.Context, cfg DialogflowConfig, keyFile string, l Listener, opts ...DialogflowOption) (*Dialogflow, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read key file: %v", ErrCredentials, err)
	}
	return NewDialogflowFromJSON(ctx, cfg, data, l, opts...)
}

// NewDialogflowFromJSON builds a source authenticated with a service
// account key. The project ID defaults to the key's project.
func NewDialogflowFromJSON(ctx context.Context, cfg DialogflowConfig, keyJSON []byte, l Listener, opts ...DialogflowOption) (*Dialogflow, error) {
	creds, err := google.CredentialsFromJSON(ctx, keyJSON, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = creds.ProjectID
	}
	// Token refreshes go through the shared client so they time out too.
	base := context.WithValue(context.Background(), oauth2.HTTPClient, httpc.Client)
	return NewDialogflow(cfg, oauth2.NewClient(base, creds.TokenSource), l, opts...)
}

// NewDialogflow builds a source over an already authenticated client.
func NewDialogflow(cfg DialogflowConfig, client *http.Client, l Listener, opts ...DialogflowOption) (*Dialogflow, error) {
	if cfg.ProjectID == "" || cfg.AgentID == "" || cfg.Location == "" {
		return nil, errors.New("dialogflow: project, agent and location are required")
	}
	if l == nil {
		return nil, errors.New("dialogflow: listener is required")
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.SessionID == 0 {
		cfg.SessionID = NewSessionID()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf("https://%s-dialogflow.googleapis.com", cfg.Location)
	}

	d := &Dialogflow{
		cfg:      cfg,
		client:   client,
		listener: l,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = tlog.Or(d.logger, "intent")
	d.session = fmt.Sprintf("projects/%s/locations/%s/agents/%s/sessions/%s",
		cfg.ProjectID, cfg.Location, cfg.AgentID, strconv.Itoa(cfg.SessionID))
	return d, nil
}

// SessionID returns the session number this source reports under.
func (d *Dialogflow) SessionID() int { return d.cfg.SessionID }

// Detect listens for one utterance and classifies it. Silence yields an
// empty record without calling the API.
func (d *Dialogflow) Detect(ctx context.Context) (Record, error) {
	u, err := d.listener.Listen(ctx)
	if err != nil {
		return Record{}, err
	}
	if u.Empty() {
		return Record{}, nil
	}
	return d.DetectUtterance(ctx, u)
}

// DetectUtterance classifies u.
func (d *Dialogflow) DetectUtterance(ctx context.Context, u Utterance) (Record, error) {
	req := detectIntentRequest{QueryInput: queryInput{LanguageCode: d.cfg.Language}}
	if len(u.Audio) > 0 {
		req.QueryInput.Audio = &audioInput{
			Config: inputAudioConfig{
				AudioEncoding:   "AUDIO_ENCODING_LINEAR_16",
				SampleRateHertz: u.SampleRate,
			},
			Audio: base64.StdEncoding.EncodeToString(u.Audio),
		}
	} else {
		req.QueryInput.Text = &textInput{Text: u.Text}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Record{}, fmt.Errorf("marshal detect request: %w", err)
	}
	url := fmt.Sprintf("%s/v3/%s:detectIntent", strings.TrimRight(d.cfg.Endpoint, "/"), d.session)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Record{}, fmt.Errorf("create detect request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return Record{}, fmt.Errorf("detect intent: %w", err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return Record{}, fmt.Errorf("detect intent: %w", err)
	}

	var out detectIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Record{}, fmt.Errorf("decode detect response: %w", err)
	}

	rec, err := out.QueryResult.record()
	if err != nil {
		return Record{}, err
	}
	if rec.Transcript == "" && u.Text != "" {
		rec.Transcript = u.Text
	}

	d.logger.Debug("intent detected",
		"session", d.cfg.SessionID,
		"intent", rec.Name,
		"confidence", rec.Confidence,
		"transcript", rec.Transcript,
	)
	return rec, nil
}

var _ Source = (*Dialogflow)(nil)

// Wire types for the subset of the v3 detectIntent API in use.

type detectIntentRequest struct {
	QueryInput queryInput `json:"queryInput"`
}

type queryInput struct {
	Text         *textInput  `json:"text,omitempty"`
	Audio        *audioInput `json:"audio,omitempty"`
	LanguageCode string      `json:"languageCode"`
}

type textInput struct {
	Text string `json:"text"`
}

type audioInput struct {
	Config inputAudioConfig `json:"config"`
	Audio  string           `json:"audio"`
}

type inputAudioConfig struct {
	AudioEncoding   string `json:"audioEncoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
}

type detectIntentResponse struct {
	ResponseID  string      `json:"responseId"`
	QueryResult queryResult `json:"queryResult"`
}

type queryResult struct {
	Text                      string            `json:"text"`
	Transcript                string            `json:"transcript"`
	LanguageCode              string            `json:"languageCode"`
	Parameters                map[string]any    `json:"parameters"`
	ResponseMessages          []responseMessage `json:"responseMessages"`
	Intent                    *intentRef        `json:"intent"`
	IntentDetectionConfidence float64           `json:"intentDetectionConfidence"`
	Match                     *match            `json:"match"`
}

type intentRef struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type match struct {
	Intent     *intentRef `json:"intent"`
	MatchType  string     `json:"matchType"`
	Confidence float64    `json:"confidence"`
}

type responseMessage struct {
	Text *struct {
		Text []string `json:"text"`
	} `json:"text"`
}

func (q queryResult) record() (Record, error) {
	rec := Record{
		Confidence: q.IntentDetectionConfidence,
		Transcript: q.Transcript,
		Parameters: q.Parameters,
	}
	if rec.Transcript == "" {
		rec.Transcript = q.Text
	}

	ref := q.Intent
	if ref == nil && q.Match != nil {
		ref = q.Match.Intent
		if rec.Confidence == 0 {
			rec.Confidence = q.Match.Confidence
		}
	}
	if ref != nil {
		raw := ref.DisplayName
		if raw == "" {
			raw = ref.Name
		}
		if raw != "" {
			name, err := ParseIntentName(raw)
			if err != nil {
				return Record{}, err
			}
			rec.Name = name
		}
	}

	var lines []string
	for _, m := range q.ResponseMessages {
		if m.Text == nil {
			continue
		}
		for _, t := range m.Text.Text {
			if t = strings.TrimSpace(t); t != "" {
				lines = append(lines, t)
			}
		}
	}
	rec.FulfillmentText = strings.Join(lines, " ")
	return rec, nil
}
