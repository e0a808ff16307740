package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jsphweid/keystream/config"
)

var rootCmd = &cobra.Command{
	Use:   "keystream",
	Short: "Low-latency MIDI keyboard ingestion",
	Long: `keystream reads note events from MIDI keyboards, tracks which keys are held
and groups near-simultaneous presses into chords.

Settings come from KEYSTREAM_* environment variables; flags override them.`,
	SilenceUsage: true,
}

var overrides struct {
	strategy      string
	window        time.Duration
	debounce      time.Duration
	maxBatchSize  int
	maxBatchRate  int
	accessTimeout time.Duration
	source        string
	logLevel      string
	logFormat     string
}

func init() {
	registerOverrides(rootCmd.PersistentFlags())
}

func registerOverrides(fs *pflag.FlagSet) {
	fs.StringVar(&overrides.strategy, "strategy", "", "batching strategy: microbatch or debounce")
	fs.DurationVar(&overrides.window, "window", 0, "micro-batch window")
	fs.DurationVar(&overrides.debounce, "debounce", 0, "debounce window")
	fs.IntVar(&overrides.maxBatchSize, "max-batch-size", 0, "note-ons per chord before an early flush")
	fs.IntVar(&overrides.maxBatchRate, "max-batch-rate", 0, "note-ons accepted per second")
	fs.DurationVar(&overrides.accessTimeout, "access-timeout", 0, "how long to wait for MIDI access")
	fs.StringVar(&overrides.source, "source", "", "preferred input, by id or part of its name")
	fs.StringVar(&overrides.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&overrides.logFormat, "log-format", "", "text or json")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// loadConfig reads the environment and applies any flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	applyOverrides(cmd.Flags(), &cfg)
	return cfg, cfg.Validate()
}

func applyOverrides(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("strategy") {
		cfg.Strategy = config.Strategy(overrides.strategy)
	}
	if fs.Changed("window") {
		cfg.BatchWindow = overrides.window
	}
	if fs.Changed("debounce") {
		cfg.DebounceWindow = overrides.debounce
	}
	if fs.Changed("max-batch-size") {
		cfg.MaxBatchSize = overrides.maxBatchSize
	}
	if fs.Changed("max-batch-rate") {
		cfg.MaxBatchRate = overrides.maxBatchRate
	}
	if fs.Changed("access-timeout") {
		cfg.AccessTimeout = overrides.accessTimeout
	}
	if fs.Changed("source") {
		cfg.Source = overrides.source
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = overrides.logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = overrides.logFormat
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
