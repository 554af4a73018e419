package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	tlog "github.com/teslashibe/go-theater/internal/log"
	"github.com/teslashibe/go-theater/pkg/show"
)

// shutdownTimeout bounds the final rest and cleanup after the show ends.
const shutdownTimeout = 10 * time.Second

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform live: robot microphone in, robot gestures and speech out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config:\n%w", err)
			}
			return perform(cmd, c, show.ModeLive)
		},
	}
}

func newRehearseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rehearse",
		Short: "Type the actors' lines; robot commands are logged instead of sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return perform(cmd, c, show.ModeRehearsal)
		},
	}
}

func perform(cmd *cobra.Command, c *cli, mode show.Mode) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := show.New(c.cfg, show.Options{
		Mode: mode,
		In:   cmd.InOrStdin(),
		Out:  cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	// Rest the robot even if the signal context is already gone.
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Shutdown(sctx); err != nil {
			tlog.Error("shutdown", "error", err)
		}
	}()

	if err := app.Init(ctx); err != nil {
		return err
	}
	tlog.Info("curtain up", "run", app.RunID(), "mode", string(mode))
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

