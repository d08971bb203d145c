package render

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"LoudGate/core/engine"
	"LoudGate/logger"
)

// ErrInvalidBitDepth marks a bit depth outside the three supported values.
// Hitting it is a programming error, not a runtime condition to recover from.
var ErrInvalidBitDepth = errors.New("invalid bit depth")

// BitDepth is the target PCM resolution of a render.
type BitDepth int

const (
	Depth16      BitDepth = 16
	Depth24      BitDepth = 24
	Depth32Float BitDepth = 32
)

// Codec maps a bit depth to its explicit PCM codec identifier. The mapping
// is total over the three supported depths; anything else fails.
func (d BitDepth) Codec() (string, error) {
	switch d {
	case Depth16:
		return "pcm_s16le", nil
	case Depth24:
		return "pcm_s24le", nil
	case Depth32Float:
		return "pcm_f32le", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidBitDepth, int(d))
	}
}

// Container identifies the output container/encoding family.
type Container string

const (
	ContainerWAV Container = "wav"
	ContainerMP3 Container = "mp3"
	ContainerAAC Container = "aac"
)

// Default bitrates for lossy renders. Lossy output always gets an explicit
// bitrate; the engine's default would otherwise decide quality silently.
const (
	DefaultMP3Bitrate = "320k"
	DefaultAACBitrate = "256k"
)

// Spec describes one render. Every field the engine could otherwise default
// is explicit: sample rate, bit depth and filter are always set on the
// command line.
type Spec struct {
	InputPath  string
	OutputPath string
	BitDepth   BitDepth
	SampleRate int
	Filter     string // optional audio filter expression; empty means no-op
}

// GainFilter returns a volume filter fragment for the given gain in dB.
// Zero gain returns the empty string: mathematically a no-op, and omitting
// it avoids engine-specific rounding at 0 dB.
func GainFilter(gainDb float64) string {
	if gainDb == 0 {
		return ""
	}
	return "volume=" + strconv.FormatFloat(gainDb, 'f', -1, 64) + "dB"
}

// Renderer invokes the engine in transcode mode. It never lets the engine
// choose codec, bit depth or sample rate implicitly.
type Renderer struct {
	runner     engine.Runner
	ffmpegPath string
}

// NewRenderer creates a Renderer backed by the given process runner.
func NewRenderer(runner engine.Runner, ffmpegPath string) *Renderer {
	return &Renderer{runner: runner, ffmpegPath: ffmpegPath}
}

// RenderWAV renders spec into a PCM WAV at the requested bit depth.
// A triangular dither is appended if and only if the target is 16-bit; the
// higher-resolution targets would only gain noise from dithering.
func (r *Renderer) RenderWAV(ctx context.Context, spec Spec) error {
	codec, err := spec.BitDepth.Codec()
	if err != nil {
		return err
	}

	filter := spec.Filter
	if filter == "" {
		// An explicit no-op filter, never "no filter flag": the absence of
		// -af would leave filtering to engine defaults.
		filter = "anull"
	}
	if spec.BitDepth == Depth16 {
		filter += ",aresample=dither_method=triangular"
	}

	return r.run(ctx, spec, filter, "-c:a", codec)
}

// RenderMP3 renders spec into an MP3 at the given bitrate
// (DefaultMP3Bitrate when empty).
func (r *Renderer) RenderMP3(ctx context.Context, spec Spec, bitrate string) error {
	if bitrate == "" {
		bitrate = DefaultMP3Bitrate
	}
	filter := spec.Filter
	if filter == "" {
		filter = "anull"
	}
	return r.run(ctx, spec, filter, "-c:a", "libmp3lame", "-b:a", bitrate)
}

// RenderAAC renders spec into an AAC/M4A at the given bitrate
// (DefaultAACBitrate when empty). The faststart layout moves the index to
// the front so playback can begin before the download completes.
func (r *Renderer) RenderAAC(ctx context.Context, spec Spec, bitrate string) error {
	if bitrate == "" {
		bitrate = DefaultAACBitrate
	}
	filter := spec.Filter
	if filter == "" {
		filter = "anull"
	}
	return r.run(ctx, spec, filter, "-c:a", "aac", "-b:a", bitrate, "-movflags", "+faststart")
}

// Render dispatches to the container-specific variant with default bitrates.
func (r *Renderer) Render(ctx context.Context, spec Spec, container Container) error {
	switch container {
	case ContainerWAV:
		return r.RenderWAV(ctx, spec)
	case ContainerMP3:
		return r.RenderMP3(ctx, spec, DefaultMP3Bitrate)
	case ContainerAAC:
		return r.RenderAAC(ctx, spec, DefaultAACBitrate)
	default:
		return fmt.Errorf("unsupported container %q", container)
	}
}

func (r *Renderer) run(ctx context.Context, spec Spec, filter string, codecArgs ...string) error {
	args := []string{
		"-y", // overwrite output unconditionally
		"-hide_banner",
		"-i", spec.InputPath,
		"-vn", // no video stream passthrough
		"-ar", strconv.Itoa(spec.SampleRate),
		"-af", filter,
	}
	args = append(args, codecArgs...)
	args = append(args, spec.OutputPath)

	cmd := engine.Command{Name: r.ffmpegPath, Args: args}

	logger.Debug("rendering",
		logger.String("input", spec.InputPath),
		logger.String("output", spec.OutputPath),
		logger.String("filter", filter))

	res, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("render of %s failed: %w", spec.InputPath, err)
	}
	if err := engine.RequireSuccess(res, cmd.Line()); err != nil {
		return fmt.Errorf("render of %s failed: %w", spec.InputPath, err)
	}
	return nil
}
