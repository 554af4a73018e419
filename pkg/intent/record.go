// Package intent turns audience utterances into intent records by asking a
// Dialogflow CX agent.
package intent

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Record is the outcome of one intent detection. An empty Transcript means
// nothing was heard; an empty Name means no intent matched.
type Record struct {
	Name            string         `json:"name"`
	Confidence      float64        `json:"confidence"`
	Transcript      string         `json:"transcript"`
	FulfillmentText string         `json:"fulfillment_text"`
	Parameters      map[string]any `json:"parameters,omitempty"`
}

// Heard reports whether the record carries any speech.
func (r Record) Heard() bool { return strings.TrimSpace(r.Transcript) != "" }

// ParseIntentName returns the short name of an intent resource. Both
// "projects/p/locations/l/agents/a/intents/welcome_intent" and a bare
// "welcome_intent" yield "welcome_intent".
func ParseIntentName(resource string) (string, error) {
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return "", fmt.Errorf("%w: empty", ErrMalformedIntentName)
	}
	i := strings.LastIndexByte(resource, '/')
	name := resource[i+1:]
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedIntentName, resource)
	}
	return name, nil
}

// NewSessionID draws a session number in [0, 10000).
func NewSessionID() int {
	return rand.IntN(10000)
}
