// Theater runs a scripted robot performance: scripted intents trigger
// gestures and lines, anything else is improvised by a language model.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-theater/internal/config"
	tlog "github.com/teslashibe/go-theater/internal/log"
)

// cli carries state shared by the subcommands.
type cli struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:           "theater",
		Short:         "Run a scripted robot theater performance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return fmt.Errorf("load .env: %w", err)
			}
			cfg, err := config.Load(c.v, c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			tlog.Init(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "YAML config file")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("robot-ip", config.DefaultRobotIP, "robot bridge IP address")
	flags.String("catalog", "", "gesture script YAML (default: built-in script)")
	flags.String("journal", "", "SQLite turn journal path (default: disabled)")
	flags.Int("web-port", 0, "stage monitor port (default: disabled)")
	flags.String("llm", "openai", "fallback model provider: openai, gemini, chain")

	for key, flag := range map[string]string{
		"log.level":    "log-level",
		"log.format":   "log-format",
		"robot.ip":     "robot-ip",
		"catalog.file": "catalog",
		"journal.path": "journal",
		"web.port":     "web-port",
		"llm.provider": "llm",
	} {
		if err := c.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		newRunCmd(c),
		newRehearseCmd(c),
		newCatalogCmd(c),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "theater:", err)
		os.Exit(1)
	}
}
