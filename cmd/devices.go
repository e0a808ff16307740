package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/jsphweid/keystream/device"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Lists MIDI inputs",
	Long:  `Lists every MIDI input port. Virtual and system ports are marked; they are never opened.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, err := rtmididrv.New()
		if err != nil {
			return errors.Wrap(err, "opening midi driver")
		}
		defer drv.Close()

		names, err := device.Inputs(drv)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "no MIDI inputs found")
			return nil
		}
		for _, name := range names {
			if device.IsExcluded(name) {
				fmt.Fprintf(out, "%s (excluded)\n", name)
			} else {
				fmt.Fprintln(out, name)
			}
		}
		return nil
	},
}
