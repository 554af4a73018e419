// Package robot drives the performer through the robot bridge.
//
// This package follows the Interface Segregation Principle (ISP) by defining
// small, focused interfaces that can be composed as needed. Consumers should
// depend only on the interfaces they actually use.
package robot

import (
	"context"

	"github.com/teslashibe/go-theater/pkg/motion"
)

// Speaker says a line out loud.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Gesturer performs a gesture identifier: a built-in animation or a
// pre-recorded motion.
type Gesturer interface {
	PerformGesture(ctx context.Context, id string) error
}

// PostureController moves the robot into a named posture.
// Speed is a fraction of maximum joint speed in (0, 1].
type PostureController interface {
	SetPosture(ctx context.Context, name string, speed float64) error
}

// Rester puts the robot into its safe resting position.
type Rester interface {
	Rest(ctx context.Context) error
}

// Actuator is the composite interface the performance drives.
type Actuator interface {
	Speaker
	Gesturer
	PostureController
	Rester
}

// StatusReporter reports the bridge daemon state.
type StatusReporter interface {
	Status(ctx context.Context) (string, error)
}

// Bridge is the low-level command set of the robot bridge daemon.
type Bridge interface {
	Say(ctx context.Context, text string) error
	PlayAnimation(ctx context.Context, name string) error
	ReplayMotion(ctx context.Context, rec *motion.Recording) error
	GoToPosture(ctx context.Context, name string, speed float64) error
	Rest(ctx context.Context) error
	Status(ctx context.Context) (string, error)
}

// MotionStore resolves recorded motions by name.
type MotionStore interface {
	Has(name string) bool
	Load(name string) (*motion.Recording, error)
}

// Ensure implementations satisfy their interfaces.
var (
	_ Actuator       = (*Facade)(nil)
	_ StatusReporter = (*Facade)(nil)
	_ Actuator       = (*Recorder)(nil)
	_ Bridge         = (*HTTPBridge)(nil)
	_ Bridge         = (*LogBridge)(nil)
	_ MotionStore    = (*motion.Store)(nil)
)
