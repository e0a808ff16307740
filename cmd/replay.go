package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jsphweid/keystream/app"
	"github.com/jsphweid/keystream/device"
	"github.com/jsphweid/keystream/latency"
	"github.com/jsphweid/keystream/logging"
)

var replaySpeed float64

func init() {
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "playback speed; 0 sends everything at once")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <file.mid>",
	Short: "Plays a MIDI file through the pipeline",
	Long: `Feeds the notes of a Standard MIDI File through the pipeline on their original
schedule, prints the chords it forms and finishes with latency stats.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := logging.New(cfg.LogLevel, logging.WithFormat(cfg.LogFormat))
		r := device.NewReplay(args[0],
			device.WithSpeed(replaySpeed),
			device.WithReplayLogger(logger),
		)
		a := app.InitializeApp(cfg, r)
		out := cmd.OutOrStdout()
		attachPrinters(a, out)

		ctx, stop := signalContext(cmd.Context())
		defer stop()
		if err := a.Run(ctx, r.Done()); err != nil {
			return err
		}
		printStats(out, a.Service().Latency())
		return nil
	},
}

func printStats(out io.Writer, m *latency.Monitor) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nOPERATION\tCOUNT\tAVG\tMIN\tMAX\tP95")
	for _, name := range m.Names() {
		st := m.Stats(name)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", name, st.Count, st.Avg, st.Min, st.Max, st.P95)
	}
	tw.Flush()
}
