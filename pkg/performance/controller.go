// Package performance runs the show: it waits for the audience, plays the
// scripted reaction to every recognised intent and improvises the rest.
package performance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/gesture"
	"github.com/teslashibe/go-theater/pkg/intent"
	"github.com/teslashibe/go-theater/pkg/robot"
)

// Show defaults.
const (
	DefaultOpeningLine    = "Hello, I am Cody, nice to meet you!"
	DefaultOpeningPosture = "Stand"
	DefaultPostureSpeed   = 0.5
	DefaultInitialState   = "INTRODUCTION"

	DefaultMaxDetectFailures = 5
)

// Responder improvises a reply for an unscripted utterance.
type Responder interface {
	Generate(ctx context.Context, state, utterance string) (string, error)
}

// Config configures a Controller.
type Config struct {
	OpeningLine    string
	OpeningPosture string
	PostureSpeed   float64
	InitialState   string

	// MaxDetectFailures consecutive detection errors end the run.
	MaxDetectFailures int

	// RunID and Session label every published turn.
	RunID   string
	Session int

	// OnTurn is called synchronously after every turn.
	OnTurn func(Turn)

	Logger *slog.Logger
}

// Controller is the interaction loop.
type Controller struct {
	source   intent.Source
	catalog  *gesture.Catalog
	actuator robot.Actuator
	fallback Responder
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	phase    Phase
	state    string
	seq      int
	started  bool
	finished bool
	rested   bool
	last     *Turn

	detectFailures int

	stop         chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a controller. Every collaborator is required.
func New(source intent.Source, catalog *gesture.Catalog, actuator robot.Actuator, fallback Responder, cfg Config) (*Controller, error) {
	switch {
	case source == nil:
		return nil, errors.New("performance: intent source is required")
	case catalog == nil:
		return nil, errors.New("performance: gesture catalog is required")
	case actuator == nil:
		return nil, errors.New("performance: actuator is required")
	case fallback == nil:
		return nil, errors.New("performance: fallback responder is required")
	}
	if cfg.OpeningLine == "" {
		cfg.OpeningLine = DefaultOpeningLine
	}
	if cfg.OpeningPosture == "" {
		cfg.OpeningPosture = DefaultOpeningPosture
	}
	if cfg.PostureSpeed <= 0 {
		cfg.PostureSpeed = DefaultPostureSpeed
	}
	if cfg.InitialState == "" {
		cfg.InitialState = DefaultInitialState
	}
	if cfg.MaxDetectFailures <= 0 {
		cfg.MaxDetectFailures = DefaultMaxDetectFailures
	}

	logger := tlog.Or(cfg.Logger, "performance")
	if cfg.RunID != "" {
		logger = logger.With("run", cfg.RunID)
	}
	return &Controller{
		source:   source,
		catalog:  catalog,
		actuator: actuator,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
		state:    cfg.InitialState,
		stop:     make(chan struct{}),
	}, nil
}

// Start plays the opening: the robot stands up and greets the audience.
// An error here means the show cannot go on.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.actuator.SetPosture(ctx, c.cfg.OpeningPosture, c.cfg.PostureSpeed); err != nil {
		return fmt.Errorf("opening posture: %w", err)
	}
	if err := c.actuator.Say(ctx, c.cfg.OpeningLine); err != nil {
		return fmt.Errorf("opening line: %w", err)
	}

	c.mu.Lock()
	c.started = true
	c.phase = PhaseAwaitingInput
	c.mu.Unlock()

	c.logger.Info("performance started", "session", c.cfg.Session, "state", c.cfg.InitialState)
	return nil
}

// Run loops until the terminal intent, Stop, ctx cancellation, the end of
// the input, or a fatal robot error. Start must have succeeded.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil || c.Stopped() || c.Finished() {
			return nil
		}
		_, err := c.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrFinished), errors.Is(err, context.Canceled), ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF), errors.Is(err, intent.ErrScriptExhausted):
			c.logger.Info("input closed, ending performance", "reason", err)
			return nil
		default:
			return err
		}
	}
}

// Step runs one iteration: detect, then dispatch. Detection and per-call
// actuator failures are logged and reported in the turn. Returned errors are
// an unreachable robot, ctx cancellation, closed input, or
// ErrDetectionFailing after MaxDetectFailures detection errors in a row.
func (c *Controller) Step(ctx context.Context) (Turn, error) {
	c.mu.Lock()
	switch {
	case !c.started:
		c.mu.Unlock()
		return Turn{}, ErrNotStarted
	case c.finished:
		c.mu.Unlock()
		return Turn{}, ErrFinished
	}
	turn := Turn{
		RunID:     c.cfg.RunID,
		Session:   c.cfg.Session,
		Seq:       c.seq + 1,
		StartedAt: time.Now(),
		State:     c.state,
	}
	c.phase = PhaseAwaitingInput
	c.mu.Unlock()

	rec, err := c.source.Detect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return turn, ctx.Err()
		}
		if errors.Is(err, io.EOF) || errors.Is(err, intent.ErrScriptExhausted) {
			return turn, err
		}
		c.mu.Lock()
		c.detectFailures++
		failures := c.detectFailures
		c.mu.Unlock()

		c.logger.Error("intent detection failed", "error", err, "consecutive", failures)
		turn.Route = RouteError
		turn.Error = err.Error()
		c.publish(&turn)
		if failures >= c.cfg.MaxDetectFailures {
			return turn, fmt.Errorf("%w (%d in a row): %w", ErrDetectionFailing, failures, err)
		}
		return turn, nil
	}
	c.mu.Lock()
	c.detectFailures = 0
	c.mu.Unlock()

	turn.Intent = rec.Name
	turn.Confidence = rec.Confidence
	turn.Transcript = rec.Transcript
	turn.Parameters = rec.Parameters

	if !rec.Heard() {
		c.logger.Info("no speech detected")
		turn.Route = RouteSilence
		c.publish(&turn)
		return turn, nil
	}

	c.logger.Info("heard",
		"transcript", rec.Transcript,
		"intent", rec.Name,
		"confidence", rec.Confidence,
		"fulfillment", rec.FulfillmentText,
		"parameters", rec.Parameters,
	)

	c.setPhase(PhaseDispatching)
	if rec.Name != "" && c.catalog.Contains(rec.Name) {
		err = c.playScripted(ctx, rec, &turn)
	} else {
		err = c.improvise(ctx, rec, &turn)
	}

	c.mu.Lock()
	if !c.finished {
		c.phase = PhaseAwaitingInput
	}
	c.mu.Unlock()

	c.publish(&turn)
	return turn, err
}

// playScripted performs the catalog gestures in order, says the scripted
// line and, for the terminal intent, rests the robot and ends the show.
func (c *Controller) playScripted(ctx context.Context, rec intent.Record, turn *Turn) error {
	turn.Route = RouteScripted
	for _, g := range c.catalog.Lookup(rec.Name) {
		turn.Gestures = append(turn.Gestures, g)
		if err := c.actuator.PerformGesture(ctx, g); err != nil {
			if fatal := c.checkFatal(err, turn); fatal != nil {
				return fatal
			}
			c.logger.Warn("gesture failed, skipping", "intent", rec.Name, "gesture", g, "error", err)
			turn.FailedGestures = append(turn.FailedGestures, g)
		}
	}

	if rec.FulfillmentText != "" {
		turn.Reply = rec.FulfillmentText
		if err := c.actuator.Say(ctx, rec.FulfillmentText); err != nil {
			if fatal := c.checkFatal(err, turn); fatal != nil {
				return fatal
			}
			c.logger.Warn("say failed", "intent", rec.Name, "error", err)
			turn.Error = err.Error()
		}
	}

	if act, ok := c.catalog.Act(rec.Name); ok && act != "" {
		c.mu.Lock()
		c.state = act
		c.mu.Unlock()
		turn.State = act
	}

	if c.catalog.IsTerminal(rec.Name) {
		turn.Terminal = true
		c.mu.Lock()
		c.finished = true
		c.phase = PhaseFinished
		c.mu.Unlock()

		err := c.actuator.Rest(ctx)
		if err != nil {
			c.logger.Error("rest failed", "error", err)
			turn.Error = err.Error()
		} else {
			c.mu.Lock()
			c.rested = true
			c.mu.Unlock()
		}
		c.logger.Info("performance finished")
	}
	return nil
}

// improvise asks the fallback responder and says its reply.
func (c *Controller) improvise(ctx context.Context, rec intent.Record, turn *Turn) error {
	turn.Route = RouteFallback

	start := time.Now()
	reply, err := c.fallback.Generate(ctx, turn.State, rec.Transcript)
	turn.FallbackLatency = time.Since(start)
	if err != nil {
		c.logger.Error("fallback failed, staying silent", "error", err)
		turn.Error = err.Error()
		return nil
	}

	turn.Reply = reply
	if err := c.actuator.Say(ctx, reply); err != nil {
		if fatal := c.checkFatal(err, turn); fatal != nil {
			return fatal
		}
		c.logger.Warn("say failed", "error", err)
		turn.Error = err.Error()
	}
	return nil
}

// checkFatal returns a wrapped error if err means the robot is gone.
func (c *Controller) checkFatal(err error, turn *Turn) error {
	if !errors.Is(err, robot.ErrUnreachable) {
		return nil
	}
	turn.Error = err.Error()
	c.logger.Error("robot unreachable, ending performance", "error", err)
	return fmt.Errorf("performance: %w", err)
}

// Stop asks the loop to exit before its next iteration.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Stopped reports whether Stop was called.
func (c *Controller) Stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// Finished reports whether the terminal intent ended the show.
func (c *Controller) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Phase returns the current loop phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// State returns the current act label handed to the fallback responder.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot for monitoring.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		RunID:    c.cfg.RunID,
		Session:  c.cfg.Session,
		Phase:    c.phase,
		State:    c.state,
		Turns:    c.seq,
		Finished: c.finished,
		Stopped:  c.Stopped(),
	}
	if c.last != nil {
		t := *c.last
		s.LastTurn = &t
	}
	return s
}

// Shutdown rests the robot unless the terminal intent already did. It is
// safe to call more than once; later calls return the first result.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.Stop()
		c.mu.Lock()
		rested := c.rested
		c.mu.Unlock()

		if !rested {
			if err := c.actuator.Rest(ctx); err != nil {
				c.shutdownErr = fmt.Errorf("rest on shutdown: %w", err)
			} else {
				c.mu.Lock()
				c.rested = true
				c.mu.Unlock()
			}
		}
		c.logger.Info("performance shutdown complete", "turns", c.Status().Turns)
	})
	return c.shutdownErr
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

func (c *Controller) publish(turn *Turn) {
	turn.Duration = time.Since(turn.StartedAt)
	c.mu.Lock()
	c.seq = turn.Seq
	t := *turn
	c.last = &t
	c.mu.Unlock()
	if c.cfg.OnTurn != nil {
		c.cfg.OnTurn(*turn)
	}
}
