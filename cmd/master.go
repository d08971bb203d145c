package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"LoudGate/core/engine"
	"LoudGate/core/gate"
	"LoudGate/core/loudness"
	"LoudGate/core/render"
	"LoudGate/logger"

	"github.com/spf13/cobra"
)

var (
	masterCeiling    float64
	masterBitDepth   int
	masterSampleRate int
	masterAttempts   int
)

var masterCmd = &cobra.Command{
	Use:   "master <input> [output]",
	Short: "Master a file until it meets the true-peak ceiling",
	Long: `Render the input at successively corrected gains until its measured true
peak sits at or below the ceiling, then deliver the passing candidate at the
requested bit depth. Prints the full attempt trail as JSON.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := initRuntime()

		input := args[0]
		output := ""
		if len(args) == 2 {
			output = args[1]
		} else {
			base := filepath.Base(input)
			output = strings.TrimSuffix(base, filepath.Ext(base)) + "_mastered.wav"
		}

		if !cmd.Flags().Changed("ceiling") {
			masterCeiling = cfg.TruePeakCeiling
		}
		if !cmd.Flags().Changed("sample-rate") {
			masterSampleRate = cfg.SampleRate
		}
		if !cmd.Flags().Changed("attempts") {
			masterAttempts = cfg.MaxAttempts
		}

		runner := engine.ExecRunner{Timeout: cfg.ProcessTimeout}
		measurer := loudness.NewMeasurer(runner, cfg.FFmpegPath)
		renderer := render.NewRenderer(runner, cfg.FFmpegPath)
		g := gate.New(renderer, measurer)

		result, err := g.MakeReleaseReady(context.Background(), gate.Params{
			InputPath:   input,
			OutputPath:  output,
			CeilingDb:   masterCeiling,
			BitDepth:    render.BitDepth(masterBitDepth),
			SampleRate:  masterSampleRate,
			MaxAttempts: masterAttempts,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}

		if !result.Passes {
			logger.Warn("output does not meet the ceiling; best-effort file written",
				logger.String("output", output))
			fmt.Fprintln(os.Stderr, "warning: attempt budget exhausted, output is not compliant")
		}
		return nil
	},
}

func init() {
	masterCmd.Flags().Float64Var(&masterCeiling, "ceiling", -1.0, "true-peak ceiling in dBTP")
	masterCmd.Flags().IntVar(&masterBitDepth, "bit-depth", 24, "output bit depth (16, 24 or 32 for float)")
	masterCmd.Flags().IntVar(&masterSampleRate, "sample-rate", 44100, "output sample rate in Hz")
	masterCmd.Flags().IntVar(&masterAttempts, "attempts", gate.DefaultMaxAttempts, "gain-correction attempt budget")
	rootCmd.AddCommand(masterCmd)
}
