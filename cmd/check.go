package cmd

import (
	"context"
	"fmt"
	"os"

	"LoudGate/core/engine"
	"LoudGate/core/gate"
	"LoudGate/core/loudness"
	"LoudGate/core/render"

	"github.com/spf13/cobra"
)

var checkCeiling float64

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check whether a file already meets the true-peak ceiling",
	Long: `Measure the file once and compare its true peak to the ceiling, without
rendering anything. Exits 1 when the file is not compliant.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := initRuntime()

		if !cmd.Flags().Changed("ceiling") {
			checkCeiling = cfg.TruePeakCeiling
		}

		runner := engine.ExecRunner{Timeout: cfg.ProcessTimeout}
		measurer := loudness.NewMeasurer(runner, cfg.FFmpegPath)
		renderer := render.NewRenderer(runner, cfg.FFmpegPath)
		g := gate.New(renderer, measurer)

		result, err := g.CheckReleaseReady(context.Background(), args[0], checkCeiling)
		if err != nil {
			return err
		}

		fmt.Printf("true peak:  %.2f dBTP\n", result.Metrics.TruePeakDb)
		fmt.Printf("integrated: %.2f LUFS\n", result.Metrics.IntegratedLufs)
		fmt.Printf("range:      %.2f LU\n", result.Metrics.RangeLu)
		fmt.Printf("ceiling:    %.2f dBTP\n", checkCeiling)
		fmt.Printf("headroom:   %+.2f dB\n", result.HeadroomDb)

		if result.Passes {
			fmt.Println("release-ready: yes")
			return nil
		}
		fmt.Println("release-ready: no")
		os.Exit(1)
		return nil
	},
}

func init() {
	checkCmd.Flags().Float64Var(&checkCeiling, "ceiling", -1.0, "true-peak ceiling in dBTP")
	rootCmd.AddCommand(checkCmd)
}
