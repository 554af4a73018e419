package performance

import "time"

// Phase is where the controller is in its loop.
type Phase int

const (
	// PhaseIdle means Start has not run yet.
	PhaseIdle Phase = iota
	// PhaseAwaitingInput means the controller is waiting for an utterance.
	PhaseAwaitingInput
	// PhaseDispatching means the controller is acting on an intent.
	PhaseDispatching
	// PhaseFinished means the terminal intent ended the show.
	PhaseFinished
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseAwaitingInput:
		return "AWAITING_INPUT"
	case PhaseDispatching:
		return "DISPATCHING"
	case PhaseFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Route says how a turn was handled.
type Route string

const (
	RouteSilence  Route = "silence"
	RouteScripted Route = "scripted"
	RouteFallback Route = "fallback"
	RouteError    Route = "error"
)

// Turn is the observable outcome of one loop iteration.
type Turn struct {
	RunID      string         `json:"run_id"`
	Session    int            `json:"session"`
	Seq        int            `json:"seq"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration"`
	Intent     string         `json:"intent,omitempty"`
	Confidence float64        `json:"confidence"`
	Transcript string         `json:"transcript,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Route      Route          `json:"route"`
	State      string         `json:"state"`

	// Gestures lists the gestures attempted, FailedGestures the subset that
	// could not be performed.
	Gestures       []string `json:"gestures,omitempty"`
	FailedGestures []string `json:"failed_gestures,omitempty"`

	// Reply is what the robot said, scripted or generated.
	Reply           string        `json:"reply,omitempty"`
	FallbackLatency time.Duration `json:"fallback_latency,omitempty"`
	Error           string        `json:"error,omitempty"`
	Terminal        bool          `json:"terminal,omitempty"`
}

// Status is a point-in-time view of the controller.
type Status struct {
	RunID    string `json:"run_id"`
	Session  int    `json:"session"`
	Phase    Phase  `json:"phase"`
	State    string `json:"state"`
	Turns    int    `json:"turns"`
	Finished bool   `json:"finished"`
	Stopped  bool   `json:"stopped"`
	LastTurn *Turn  `json:"last_turn,omitempty"`
}
