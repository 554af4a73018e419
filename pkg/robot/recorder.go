package robot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Call is one recorded actuator command.
type Call struct {
	Op  string // "speak", "gesture", "posture" or "rest"
	Arg string
}

// String renders the call as op(arg), quoting spoken text.
func (c Call) String() string {
	switch c.Op {
	case "speak":
		return c.Op + "(" + strconv.Quote(c.Arg) + ")"
	case "rest":
		return "rest()"
	default:
		return fmt.Sprintf("%s(%s)", c.Op, c.Arg)
	}
}

// Recorder is an Actuator that records every command in order.
// Fail, when set, decides the error returned for a call; the call is
// recorded either way.
type Recorder struct {
	Fail func(c Call) error

	mu    sync.Mutex
	calls []Call
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	fail := r.Fail
	r.mu.Unlock()
	if fail != nil {
		return fail(c)
	}
	return nil
}

// Say records speak(text).
func (r *Recorder) Say(ctx context.Context, text string) error {
	return r.record(Call{Op: "speak", Arg: text})
}

// PerformGesture records gesture(id).
func (r *Recorder) PerformGesture(ctx context.Context, id string) error {
	return r.record(Call{Op: "gesture", Arg: id})
}

// SetPosture records posture(name).
func (r *Recorder) SetPosture(ctx context.Context, name string, speed float64) error {
	return r.record(Call{Op: "posture", Arg: name})
}

// Rest records rest().
func (r *Recorder) Rest(ctx context.Context) error {
	return r.record(Call{Op: "rest"})
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Trace returns the recorded calls rendered with Call.String.
func (r *Recorder) Trace() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset clears the recording.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
