package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-theater/pkg/motion"
	"github.com/teslashibe/go-theater/pkg/robot"
	"github.com/teslashibe/go-theater/pkg/show"
)

func newCatalogCmd(c *cli) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the gesture script and report gestures that cannot be performed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := show.LoadCatalog(c.cfg.Catalog.File)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACT\tINTENT\tGESTURES")
			for _, e := range catalog.Entries() {
				intent := e.Intent
				if catalog.IsTerminal(intent) {
					intent += " (end)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Act, intent, strings.Join(e.Gestures, ", "))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			// Resolution needs no robot: animations are matched by prefix
			// and motions by file.
			facade := robot.NewFacade(robot.NewLogBridge(nil), motion.NewStore(c.cfg.Motion.Dir),
				robot.WithAnimationPrefix(c.cfg.Robot.AnimationPrefix))
			unresolved := catalog.Validate(facade)
			if len(unresolved) == 0 {
				fmt.Fprintf(out, "\n%d intents, every gesture resolves\n", catalog.Len())
				return nil
			}
			fmt.Fprintf(out, "\n%d gestures cannot be resolved (motions dir %q):\n", len(unresolved), c.cfg.Motion.Dir)
			for _, u := range unresolved {
				fmt.Fprintf(out, "  %s: %s\n", u.Intent, u.Gesture)
			}
			if strict {
				return fmt.Errorf("%d unresolved gestures", len(unresolved))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when a gesture cannot be resolved")
	return cmd
}
