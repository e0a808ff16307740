package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsphweid/keystream/chord"
	"github.com/jsphweid/keystream/midi"
	"github.com/jsphweid/keystream/model"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Inspects a MIDI file",
	Long:  `Prints the note events of a MIDI file the way the pipeline would decode them.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := midi.ReadMidiFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		frames := midi.ChannelFrames(s)
		var notes, ignored int
		for _, f := range frames {
			ev, status := midi.Parse(model.RawFrame{Bytes: f.Bytes})
			if status != midi.FrameNote {
				ignored++
				continue
			}
			notes++
			at := time.Duration(f.AtMicros) * time.Microsecond
			fmt.Fprintf(out, "%10s  %-8s ch %-2d %-4s vel %d\n",
				at.Round(time.Millisecond), ev.Kind, ev.Channel, chord.NoteName(ev.Note), ev.Velocity)
		}
		fmt.Fprintf(out, "%d note events, %d other channel messages\n", notes, ignored)
		return nil
	},
}
