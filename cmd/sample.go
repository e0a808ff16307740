package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsphweid/keystream/chord"
	"github.com/jsphweid/keystream/sample"
)

func init() {
	rootCmd.AddCommand(sampleCmd)
}

var sampleCmd = &cobra.Command{
	Use:   "sample <out.mid> <chord>...",
	Short: "Writes a MIDI file of chords",
	Long: `Writes a file that plays each chord for a quarter note at 120 bpm, for use
with replay. Chords are note numbers joined by dashes, e.g. 60-64-67; "_" is a rest.`,
	Example: "  keystream sample cadence.mid 60-64-67 _ 59-62-67 60-64-67",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chords := make([][]uint8, 0, len(args)-1)
		for _, key := range args[1:] {
			if key == "_" {
				chords = append(chords, nil)
				continue
			}
			notes, err := chord.ParseKey(key)
			if err != nil {
				return err
			}
			chords = append(chords, notes)
		}
		if err := sample.Write(args[0], chords...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d chords to %s\n", len(chords), args[0])
		return nil
	},
}
