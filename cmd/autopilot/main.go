package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"holdem-autopilot/config"
)

var (
	configPath string
	debug      bool

	cfg config.Config
	log zerolog.Logger

	rootCmd = &cobra.Command{
		Use:   "autopilot",
		Short: "Plays heads-up no-limit tables from a precomputed strategy",
		Long: `autopilot reconciles table captures into a position in a betting
abstraction, samples the strategy there and dispatches the command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if debug {
				cfg.Log.Level = "debug"
			}
			log = newLogger(cfg.Log)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the yaml config (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")

	rootCmd.AddCommand(runCmd, simulateCmd, bridgeCmd, journalCmd, treeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(c config.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if c.Console {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(level).With().Timestamp().Logger()
}
