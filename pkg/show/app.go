// Package show assembles a performance from configuration: the catalog, the
// robot link, intent detection, the fallback model and the optional journal
// and stage monitor.
package show

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-theater/internal/config"
	"github.com/teslashibe/go-theater/internal/httpc"
	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/audioio"
	"github.com/teslashibe/go-theater/pkg/fallback"
	"github.com/teslashibe/go-theater/pkg/gesture"
	"github.com/teslashibe/go-theater/pkg/inference"
	"github.com/teslashibe/go-theater/pkg/intent"
	"github.com/teslashibe/go-theater/pkg/journal"
	"github.com/teslashibe/go-theater/pkg/metrics"
	"github.com/teslashibe/go-theater/pkg/motion"
	"github.com/teslashibe/go-theater/pkg/performance"
	"github.com/teslashibe/go-theater/pkg/robot"
	"github.com/teslashibe/go-theater/pkg/web"
)

// Mode selects how the show talks to the world.
type Mode string

const (
	// ModeLive drives the robot and listens on its microphone.
	ModeLive Mode = "live"
	// ModeRehearsal reads lines from the console and only logs robot commands.
	ModeRehearsal Mode = "rehearsal"
)

// consolePrompt is printed before each rehearsal line.
const consolePrompt = "human> "

// Options adjusts how New assembles the show. Zero values mean "build it
// from config".
type Options struct {
	Mode Mode

	// In and Out are the rehearsal console. They default to stdin/stdout.
	In  io.Reader
	Out io.Writer

	Source   intent.Source
	Provider inference.Provider
	Bridge   robot.Bridge

	Logger *slog.Logger
}

// App owns every component of one performance run.
type App struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	runID  string

	catalog    *gesture.Catalog
	facade     *robot.Facade
	audio      audioio.Source
	source     intent.Source
	session    int
	provider   inference.Provider
	responder  *fallback.Responder
	controller *performance.Controller

	journal *journal.Journal
	metrics *metrics.Exporter
	web     *web.Server
}

// New validates cfg and prepares an App. Call Init before Run.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("show: config is required")
	}
	if opts.Mode == "" {
		opts.Mode = ModeLive
	}
	if opts.Mode != ModeLive && opts.Mode != ModeRehearsal {
		return nil, fmt.Errorf("show: unknown mode %q", opts.Mode)
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	runID := uuid.NewString()
	return &App{
		cfg:    cfg,
		opts:   opts,
		runID:  runID,
		logger: tlog.Or(opts.Logger, "show").With("run", runID, "mode", string(opts.Mode)),
	}, nil
}

// RunID identifies this run in the journal and on the monitor.
func (a *App) RunID() string { return a.runID }

// Controller returns the interaction loop once Init has succeeded.
func (a *App) Controller() *performance.Controller { return a.controller }

// Metrics returns the exporter once Init has succeeded.
func (a *App) Metrics() *metrics.Exporter { return a.metrics }

// Init builds every component. On error, Shutdown releases whatever was
// already built.
func (a *App) Init(ctx context.Context) error {
	var err error
	if a.catalog, err = LoadCatalog(a.cfg.Catalog.File); err != nil {
		return err
	}
	a.logger.Info("catalog loaded", "intents", a.catalog.Len(), "terminal", a.catalog.Terminal())

	a.facade = robot.NewFacade(a.bridge(), motion.NewStore(a.cfg.Motion.Dir),
		robot.WithAnimationPrefix(a.cfg.Robot.AnimationPrefix),
		robot.WithFacadeLogger(a.opts.Logger),
	)
	for _, u := range a.catalog.Validate(a.facade) {
		a.logger.Warn("gesture cannot be resolved", "intent", u.Intent, "gesture", u.Gesture)
	}
	if a.opts.Mode == ModeLive {
		state, err := a.facade.Status(ctx)
		if err != nil {
			return fmt.Errorf("robot bridge: %w", err)
		}
		a.logger.Info("robot bridge ready", "url", a.cfg.Robot.BaseURL(), "state", state)
	}

	if err := a.initSource(ctx); err != nil {
		return err
	}

	if a.provider = a.opts.Provider; a.provider == nil {
		if a.provider, err = NewProvider(ctx, a.cfg.LLM, a.opts.Logger); err != nil {
			return fmt.Errorf("fallback provider: %w", err)
		}
	}
	a.responder, err = fallback.New(a.provider, fallback.Config{
		SystemPrompt: a.cfg.LLM.SystemPrompt,
		RobotName:    a.cfg.Performance.RobotName,
		Logger:       a.opts.Logger,
	})
	if err != nil {
		return err
	}

	if path := a.cfg.Journal.Path; path != "" {
		if j, err := journal.Open(ctx, path); err != nil {
			a.logger.Warn("journal disabled", "path", path, "error", err)
		} else {
			a.journal = j
			a.logger.Info("journal open", "path", path)
		}
	}
	a.metrics = metrics.New(metrics.DefaultConfig())

	a.controller, err = performance.New(a.source, a.catalog, a.facade, a.responder, performance.Config{
		OpeningLine:    a.cfg.Performance.OpeningLine,
		OpeningPosture: a.cfg.Performance.OpeningPosture,
		InitialState:   a.cfg.Performance.InitialState,
		RunID:          a.runID,
		Session:        a.session,
		OnTurn:         a.onTurn,
		Logger:         a.opts.Logger,
	})
	if err != nil {
		return err
	}

	if port := a.cfg.Web.Port; port != 0 {
		wcfg := web.Config{
			Port:    port,
			Status:  a.controller.Status,
			Stop:    a.controller.Stop,
			Metrics: a.metrics.Handler(),
			Logger:  a.opts.Logger,
		}
		if a.journal != nil {
			wcfg.Turns = a.journal
		}
		if a.web, err = web.NewServer(wcfg); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) bridge() robot.Bridge {
	if a.opts.Bridge != nil {
		return a.opts.Bridge
	}
	if a.opts.Mode == ModeRehearsal {
		return robot.NewLogBridge(a.opts.Logger)
	}
	client := httpc.NewClient(a.cfg.Robot.Timeout)
	return robot.NewHTTPBridge(a.cfg.Robot.BaseURL(),
		robot.WithHTTPClient(client),
		robot.WithBreaker(a.cfg.Robot.BreakerFailures, a.cfg.Robot.BreakerCooldown),
		robot.WithBridgeLogger(a.opts.Logger),
	)
}

// initSource wires the listener for the mode into a Dialogflow agent.
func (a *App) initSource(ctx context.Context) error {
	if a.opts.Source != nil {
		a.source = a.opts.Source
		a.session = intent.NewSessionID()
		if s, ok := a.source.(interface{ SessionID() int }); ok {
			a.session = s.SessionID()
		}
		return nil
	}

	var listener intent.Listener
	if a.opts.Mode == ModeRehearsal {
		listener = intent.NewConsoleListener(a.opts.In, a.opts.Out, consolePrompt)
	} else {
		acfg := audioio.DefaultConfig()
		acfg.SampleRate = a.cfg.Audio.SampleRate
		acfg.URL = a.cfg.Robot.AudioURL()
		src, err := audioio.NewSource(acfg, tlog.Or(a.opts.Logger, "audio"))
		if err != nil {
			return fmt.Errorf("microphone: %w", err)
		}
		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("microphone: %w", err)
		}
		a.audio = src
		listener = intent.NewAudioListener(src, audioio.EndpointConfig{
			Threshold:    a.cfg.Audio.SilenceThreshold,
			EndSilence:   a.cfg.Audio.EndSilence,
			MaxUtterance: a.cfg.Audio.MaxUtterance,
			StartTimeout: a.cfg.Audio.StartTimeout,
		})
	}

	df := a.cfg.Dialogflow
	source, err := intent.NewDialogflowFromKeyFile(ctx, intent.DialogflowConfig{
		ProjectID: df.ProjectID,
		AgentID:   df.AgentID,
		Location:  df.Location,
		Language:  df.Language,
		Endpoint:  df.Endpoint,
	}, df.KeyFile, listener, intent.WithLogger(a.opts.Logger))
	if err != nil {
		return fmt.Errorf("intent source: %w", err)
	}
	a.source = source
	a.session = source.SessionID()
	a.logger.Info("intent source ready", "agent", df.AgentID, "session", a.session)
	return nil
}

// onTurn fans a finished turn out to the journal, metrics, monitor and, in
// rehearsal, the console.
func (a *App) onTurn(t performance.Turn) {
	if a.journal != nil {
		if err := a.journal.Record(context.Background(), t); err != nil {
			a.logger.Warn("journal write failed", "seq", t.Seq, "error", err)
		}
	}
	a.metrics.Observe(t)
	if a.web != nil {
		a.web.Publish(t)
	}
	if a.opts.Mode == ModeRehearsal {
		printTurn(a.opts.Out, t)
	}
}

// Run plays the opening and the interaction loop, serving the monitor
// alongside when enabled. It returns when the show ends or ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.controller == nil {
		return errors.New("show: Init has not been called")
	}

	g, gctx := errgroup.WithContext(ctx)
	monitorCtx, stopMonitor := context.WithCancel(gctx)
	defer stopMonitor()

	if a.web != nil {
		g.Go(func() error { return a.web.ListenAndServe(monitorCtx) })
	}
	g.Go(func() error {
		defer stopMonitor()
		if err := a.controller.Start(gctx); err != nil {
			return err
		}
		return a.controller.Run(gctx)
	})

	err := g.Wait()
	status := a.controller.Status()
	a.logger.Info("show ended",
		"turns", status.Turns,
		"finished", status.Finished,
		"stopped", status.Stopped,
	)
	return err
}

// Shutdown rests the robot and releases every resource. It is safe to call
// after a failed Init.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.controller != nil {
		errs = append(errs, a.controller.Shutdown(ctx))
	}
	if a.audio != nil {
		errs = append(errs, a.audio.Close())
	}
	if a.provider != nil && a.opts.Provider == nil {
		errs = append(errs, a.provider.Close())
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	return errors.Join(errs...)
}

func printTurn(w io.Writer, t performance.Turn) {
	switch t.Route {
	case performance.RouteSilence:
		fmt.Fprintf(w, "[%d] (silence)\n", t.Seq)
		return
	case performance.RouteError:
		fmt.Fprintf(w, "[%d] error: %s\n", t.Seq, t.Error)
		return
	}
	fmt.Fprintf(w, "[%d] transcript: %s\n", t.Seq, t.Transcript)
	fmt.Fprintf(w, "    intent: %s (%.2f) route: %s state: %s\n", t.Intent, t.Confidence, t.Route, t.State)
	if len(t.Parameters) > 0 {
		fmt.Fprintf(w, "    parameters: %v\n", t.Parameters)
	}
	if len(t.Gestures) > 0 {
		fmt.Fprintf(w, "    gestures: %v\n", t.Gestures)
	}
	if t.Reply != "" {
		fmt.Fprintf(w, "    robot: %s\n", t.Reply)
	}
	if t.Error != "" {
		fmt.Fprintf(w, "    error: %s\n", t.Error)
	}
}
