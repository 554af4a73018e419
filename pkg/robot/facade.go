package robot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tlog "github.com/teslashibe/go-theater/internal/log"
)

// DefaultAnimationPrefix marks gesture identifiers that name a built-in
// animation of the robot.
const DefaultAnimationPrefix = "animations/"

// Facade routes performance commands to the bridge.
type Facade struct {
	bridge  Bridge
	motions MotionStore
	prefix  string
	logger  *slog.Logger
}

// FacadeOption configures a Facade.
type FacadeOption func(*Facade)

// WithAnimationPrefix overrides the built-in animation prefix.
func WithAnimationPrefix(prefix string) FacadeOption {
	return func(f *Facade) {
		if prefix != "" {
			f.prefix = prefix
		}
	}
}

// WithFacadeLogger sets the logger.
func WithFacadeLogger(l *slog.Logger) FacadeOption {
	return func(f *Facade) { f.logger = l }
}

// NewFacade creates a facade over bridge. motions may be nil, in which case
// only built-in animations can be performed.
func NewFacade(bridge Bridge, motions MotionStore, opts ...FacadeOption) *Facade {
	f := &Facade{
		bridge:  bridge,
		motions: motions,
		prefix:  DefaultAnimationPrefix,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = tlog.Or(f.logger, "robot")
	return f
}

// Say speaks text.
func (f *Facade) Say(ctx context.Context, text string) error {
	f.logger.Debug("say", "text", text)
	return f.bridge.Say(ctx, text)
}

// PerformGesture plays a built-in animation or replays a recorded motion.
// The bridge queues the gesture and returns without waiting for it to end.
func (f *Facade) PerformGesture(ctx context.Context, id string) error {
	if f.isAnimation(id) {
		f.logger.Debug("play animation", "gesture", id)
		return f.bridge.PlayAnimation(ctx, id)
	}
	if f.motions == nil || !f.motions.Has(id) {
		return fmt.Errorf("%w: %s", ErrUnknownGesture, id)
	}
	rec, err := f.motions.Load(id)
	if err != nil {
		return fmt.Errorf("load motion %s: %w", id, err)
	}
	f.logger.Debug("replay motion", "gesture", id, "frames", len(rec.Frames), "duration", rec.Duration)
	return f.bridge.ReplayMotion(ctx, rec)
}

// SetPosture moves to a named posture.
func (f *Facade) SetPosture(ctx context.Context, name string, speed float64) error {
	if speed <= 0 || speed > 1 {
		return fmt.Errorf("posture speed %.2f out of range (0, 1]", speed)
	}
	f.logger.Debug("posture", "name", name, "speed", speed)
	return f.bridge.GoToPosture(ctx, name, speed)
}

// Rest relaxes the robot into its resting position.
func (f *Facade) Rest(ctx context.Context) error {
	f.logger.Debug("rest")
	return f.bridge.Rest(ctx)
}

// Status returns the bridge daemon state.
func (f *Facade) Status(ctx context.Context) (string, error) {
	return f.bridge.Status(ctx)
}

// CanPerform reports whether id resolves to an animation or a motion file.
func (f *Facade) CanPerform(id string) bool {
	if f.isAnimation(id) {
		return true
	}
	return f.motions != nil && f.motions.Has(id)
}

func (f *Facade) isAnimation(id string) bool {
	return strings.HasPrefix(id, f.prefix) && len(id) > len(f.prefix)
}
