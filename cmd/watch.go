package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"LoudGate/core/engine"
	"LoudGate/core/gate"
	"LoudGate/core/loudness"
	"LoudGate/core/render"
	"LoudGate/core/watch"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox directory and master dropped files",
	Long: `Watch the configured inbox directory; every audio file dropped there is
mastered against the configured ceiling and written to the outbox.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := initRuntime()

		runner := engine.ExecRunner{Timeout: cfg.ProcessTimeout}
		measurer := loudness.NewMeasurer(runner, cfg.FFmpegPath)
		renderer := render.NewRenderer(runner, cfg.FFmpegPath)
		g := gate.New(renderer, measurer)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err := watch.New(g, cfg).Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
