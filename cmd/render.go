package cmd

import (
	"context"

	"LoudGate/core/engine"
	"LoudGate/core/render"

	"github.com/spf13/cobra"
)

var (
	renderContainer  string
	renderBitDepth   int
	renderSampleRate int
	renderGain       float64
	renderBitrate    string
)

var renderCmd = &cobra.Command{
	Use:   "render <input> <output>",
	Short: "Render a file with explicit codec parameters",
	Long: `Transcode the input with every codec parameter explicit: container, bit
depth, sample rate and filter chain are always specified, never left to
engine defaults. An optional gain in dB is applied as a volume filter.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := initRuntime()

		if !cmd.Flags().Changed("sample-rate") {
			renderSampleRate = cfg.SampleRate
		}

		renderer := render.NewRenderer(engine.ExecRunner{Timeout: cfg.ProcessTimeout}, cfg.FFmpegPath)
		spec := render.Spec{
			InputPath:  args[0],
			OutputPath: args[1],
			BitDepth:   render.BitDepth(renderBitDepth),
			SampleRate: renderSampleRate,
			Filter:     render.GainFilter(renderGain),
		}

		ctx := context.Background()
		switch render.Container(renderContainer) {
		case render.ContainerMP3:
			if renderBitrate == "" {
				renderBitrate = cfg.MP3Bitrate
			}
			return renderer.RenderMP3(ctx, spec, renderBitrate)
		case render.ContainerAAC:
			if renderBitrate == "" {
				renderBitrate = cfg.AACBitrate
			}
			return renderer.RenderAAC(ctx, spec, renderBitrate)
		default:
			return renderer.RenderWAV(ctx, spec)
		}
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderContainer, "container", "wav", "output container: wav, mp3 or aac")
	renderCmd.Flags().IntVar(&renderBitDepth, "bit-depth", 24, "output bit depth for wav (16, 24 or 32 for float)")
	renderCmd.Flags().IntVar(&renderSampleRate, "sample-rate", 44100, "output sample rate in Hz")
	renderCmd.Flags().Float64Var(&renderGain, "gain", 0, "gain in dB applied as a volume filter")
	renderCmd.Flags().StringVar(&renderBitrate, "bitrate", "", "bitrate for lossy containers (default 320k mp3, 256k aac)")
	rootCmd.AddCommand(renderCmd)
}
