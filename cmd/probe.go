package cmd

import (
	"context"
	"fmt"
	"os"

	"LoudGate/core/engine"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the external signal-processing engine is available",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := initRuntime()

		if engine.Probe(context.Background(), engine.ExecRunner{}, cfg.FFmpegPath) {
			fmt.Printf("✓ ffmpeg available (%s)\n", cfg.FFmpegPath)
			return
		}
		fmt.Printf("✗ ffmpeg not available (%s)\n", cfg.FFmpegPath)
		fmt.Println("Install ffmpeg or set FFMPEG_PATH before using LoudGate.")
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
