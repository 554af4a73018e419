package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-theater/pkg/hub"
	"github.com/teslashibe/go-theater/pkg/performance"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	performance.Status
	Viewers int `json:"viewers"`
}

// handleStatus returns the controller snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Status:  s.cfg.Status(),
		Viewers: s.hub.ClientCount(),
	})
}

// handleTurns returns recent turns, oldest first
func (s *Server) handleTurns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", maxTurns)
	if limit <= 0 || limit > maxTurns {
		limit = maxTurns
	}
	turns, err := s.recent(c.UserContext(), limit)
	if err != nil {
		s.logger.Error("load turns", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if turns == nil {
		turns = []performance.Turn{}
	}
	return c.JSON(turns)
}

// handleStop asks the show to end after the current turn
func (s *Server) handleStop(c *fiber.Ctx) error {
	if s.cfg.Stop == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "stop not configured",
		})
	}
	s.logger.Warn("stop requested from monitor", "remote", c.IP())
	s.cfg.Stop()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"stopping": true,
	})
}

// handleTurnsWS replays recent turns, then streams new ones
func (s *Server) handleTurnsWS(c *websocket.Conn) {
	turns, err := s.recent(context.Background(), maxTurns)
	if err != nil {
		s.logger.Warn("replay turns", "error", err)
	}
	backlog := make([]hub.Message, 0, len(turns))
	for _, t := range turns {
		if msg, err := hub.Encode("turn", t); err == nil {
			backlog = append(backlog, msg)
		}
	}

	client, ok := hub.NewClient(s.hub, c, backlog...)
	if !ok {
		_ = c.Close()
		return
	}
	client.Run()
}
