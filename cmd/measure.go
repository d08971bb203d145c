package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"LoudGate/core/engine"
	"LoudGate/core/loudness"

	"github.com/spf13/cobra"
)

var measurePeakOnly bool

var measureCmd = &cobra.Command{
	Use:   "measure <file>",
	Short: "Measure loudness and true peak of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := initRuntime()

		measurer := loudness.NewMeasurer(engine.ExecRunner{Timeout: cfg.ProcessTimeout}, cfg.FFmpegPath)

		if measurePeakOnly {
			peak, err := measurer.MeasureTruePeak(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%g\n", peak)
			return nil
		}

		metrics, err := measurer.Measure(context.Background(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(metrics)
	},
}

func init() {
	measureCmd.Flags().BoolVar(&measurePeakOnly, "peak-only", false, "print only the true peak in dBTP")
	rootCmd.AddCommand(measureCmd)
}
