// Package web serves the stage monitor: the current state of the show, the
// turn log, a live turn feed and an emergency stop.
package web

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/hub"
	"github.com/teslashibe/go-theater/pkg/performance"
)

//go:embed index.html
var indexHTML []byte

// maxTurns is how many turns the monitor keeps in memory.
const maxTurns = 100

// TurnLog serves past turns, e.g. from the journal.
type TurnLog interface {
	Recent(ctx context.Context, n int) ([]performance.Turn, error)
}

// Config wires the monitor to the show.
type Config struct {
	Port int

	// Status returns a snapshot of the controller. Required.
	Status func() performance.Status

	// Stop asks the show to end. Nil disables POST /api/stop.
	Stop func()

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	// Turns is consulted for /api/turns when set; otherwise the in-memory
	// log is used.
	Turns TurnLog

	Logger *slog.Logger
}

// Server is the stage monitor server
type Server struct {
	app    *fiber.App
	cfg    Config
	hub    *hub.Hub
	logger *slog.Logger

	turnsMu sync.RWMutex
	turns   []performance.Turn
}

// NewServer creates a new stage monitor server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Status == nil {
		return nil, errors.New("web: status source is required")
	}
	s := &Server{
		cfg:    cfg,
		logger: tlog.Or(cfg.Logger, "web"),
		turns:  make([]performance.Turn, 0, maxTurns),
	}
	s.hub = hub.New("turns", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "Theater Monitor",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html")
		return c.Send(indexHTML)
	})

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/turns", s.handleTurns)
	api.Post("/stop", s.handleStop)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/turns", websocket.New(s.handleTurnsWS))

	s.app = app
	return s, nil
}

// App exposes the fiber app, e.g. for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Publish records a turn and pushes it to live clients. It is meant to be
// used as (part of) the controller's turn observer.
func (s *Server) Publish(t performance.Turn) {
	s.turnsMu.Lock()
	s.turns = append(s.turns, t)
	if len(s.turns) > maxTurns {
		s.turns = append(s.turns[:0], s.turns[len(s.turns)-maxTurns:]...)
	}
	s.turnsMu.Unlock()

	if err := s.hub.BroadcastJSON("turn", t); err != nil {
		s.logger.Warn("encode turn", "error", err)
	}
}

// Serve runs the hub and serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()
	s.logger.Info("stage monitor listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	stopHub()
	<-s.hub.Done()
	if err := s.app.Shutdown(); err != nil {
		return fmt.Errorf("shutdown monitor: %w", err)
	}
	return <-errc
}

// ListenAndServe listens on the configured port and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) recent(ctx context.Context, n int) ([]performance.Turn, error) {
	if s.cfg.Turns != nil {
		return s.cfg.Turns.Recent(ctx, n)
	}
	s.turnsMu.RLock()
	defer s.turnsMu.RUnlock()
	if n > len(s.turns) {
		n = len(s.turns)
	}
	return append([]performance.Turn(nil), s.turns[len(s.turns)-n:]...), nil
}
