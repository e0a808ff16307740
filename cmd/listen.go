package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/jsphweid/keystream/app"
	"github.com/jsphweid/keystream/bus"
	"github.com/jsphweid/keystream/chord"
	"github.com/jsphweid/keystream/config"
	"github.com/jsphweid/keystream/device"
	"github.com/jsphweid/keystream/logging"
	"github.com/jsphweid/keystream/model"
)

func init() {
	rootCmd.AddCommand(listenCmd)
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Prints chords played on connected keyboards",
	Long: `Opens every MIDI input, logs each note as it arrives and prints a line per
chord. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newLiveApp(cfg)
		if err != nil {
			return err
		}
		attachPrinters(a, cmd.OutOrStdout())

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return a.Run(ctx, nil)
	},
}

func newLiveApp(cfg config.Config) (*app.App, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "opening midi driver")
	}
	logger := logging.New(cfg.LogLevel, logging.WithFormat(cfg.LogFormat))
	watcher := device.NewWatcher(drv, device.WithWatcherLogger(logger))
	return app.InitializeApp(cfg, watcher), nil
}

// attachPrinters logs immediate notes and connectivity and prints chords.
func attachPrinters(a *app.App, out io.Writer) {
	svc := a.Service()
	logger := a.Logger()

	svc.SubscribeImmediate(bus.NoteListenerFunc(func(ev model.NoteEvent) {
		logger.Debug("note",
			"kind", ev.Kind.String(),
			"note", chord.NoteName(ev.Note),
			"velocity", ev.Velocity,
			"channel", ev.Channel,
			"source", ev.SourceID,
		)
	}))
	svc.SubscribeConnectivity(bus.SourcesListenerFunc(func(sources []model.Source) {
		for _, s := range sources {
			logger.Info("source", "id", s.ID, "state", s.State.String())
		}
	}))
	svc.SubscribeBatched(bus.ChordListenerFunc(func(c model.Chord) {
		printChord(out, c)
	}))
}

func printChord(out io.Writer, c model.Chord) {
	suffix := ""
	if c.Forced {
		suffix = " (overflow)"
	}
	fmt.Fprintf(out, "%-12s %s%s\n", chord.Key(c.Notes), chord.Names(c.Notes), suffix)
}
