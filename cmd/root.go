package cmd

import (
	"fmt"
	"os"

	"LoudGate/config"
	"LoudGate/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loudgate",
	Short: "LoudGate is an automated loudness-compliance mastering service.",
	Long: `LoudGate measures perceptual loudness and true peak of audio files and
iteratively adjusts gain until the output meets a target true-peak ceiling,
then renders the result in the requested format.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initRuntime loads configuration and initializes logging; every subcommand
// calls it first.
func initRuntime() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
	return cfg
}
