package robot

import (
	"context"
	"log/slog"

	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/motion"
)

// LogBridge logs every command instead of sending it. Used for rehearsals
// without a robot on stage.
type LogBridge struct {
	logger *slog.Logger
}

// NewLogBridge creates a logging bridge. A nil logger uses the default.
func NewLogBridge(l *slog.Logger) *LogBridge {
	return &LogBridge{logger: tlog.Or(l, "robot.rehearsal")}
}

func (b *LogBridge) Say(ctx context.Context, text string) error {
	b.logger.Info("say", "text", text)
	return nil
}

func (b *LogBridge) PlayAnimation(ctx context.Context, name string) error {
	b.logger.Info("animation", "name", name)
	return nil
}

func (b *LogBridge) ReplayMotion(ctx context.Context, rec *motion.Recording) error {
	b.logger.Info("motion", "name", rec.Name, "frames", len(rec.Frames), "duration", rec.Duration)
	return nil
}

func (b *LogBridge) GoToPosture(ctx context.Context, name string, speed float64) error {
	b.logger.Info("posture", "name", name, "speed", speed)
	return nil
}

func (b *LogBridge) Rest(ctx context.Context) error {
	b.logger.Info("rest")
	return nil
}

func (b *LogBridge) Status(ctx context.Context) (string, error) {
	return "rehearsal", nil
}
