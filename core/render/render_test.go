package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"LoudGate/core/engine"
)

type captureRunner struct {
	res     *engine.Result
	err     error
	lastCmd engine.Command
}

func (c *captureRunner) Run(_ context.Context, cmd engine.Command) (*engine.Result, error) {
	c.lastCmd = cmd
	if c.err != nil {
		return nil, c.err
	}
	if c.res != nil {
		return c.res, nil
	}
	return &engine.Result{ExitCode: 0}, nil
}

func argString(c *captureRunner) string {
	return strings.Join(c.lastCmd.Args, " ")
}

func TestCodecMappingIsTotal(t *testing.T) {
	cases := []struct {
		depth BitDepth
		codec string
	}{
		{Depth16, "pcm_s16le"},
		{Depth24, "pcm_s24le"},
		{Depth32Float, "pcm_f32le"},
	}
	for _, tc := range cases {
		codec, err := tc.depth.Codec()
		if err != nil {
			t.Errorf("depth %d: unexpected error %v", tc.depth, err)
		}
		if codec != tc.codec {
			t.Errorf("depth %d: expected %s, got %s", tc.depth, tc.codec, codec)
		}
	}

	if _, err := BitDepth(8).Codec(); !errors.Is(err, ErrInvalidBitDepth) {
		t.Errorf("expected ErrInvalidBitDepth for depth 8, got %v", err)
	}
}

func TestRenderWAVExplicitParameters(t *testing.T) {
	runner := &captureRunner{}
	r := NewRenderer(runner, "ffmpeg")

	err := r.RenderWAV(context.Background(), Spec{
		InputPath:  "in.wav",
		OutputPath: "out.wav",
		BitDepth:   Depth24,
		SampleRate: 48000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := argString(runner)
	// Nothing may be left to engine defaults.
	for _, want := range []string{"-y", "-vn", "-ar 48000", "-af anull", "-c:a pcm_s24le"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected args to contain %q, got %q", want, args)
		}
	}
}

func TestRenderWAVDitherOnlyFor16Bit(t *testing.T) {
	runner := &captureRunner{}
	r := NewRenderer(runner, "ffmpeg")

	spec := Spec{InputPath: "in.wav", OutputPath: "out.wav", SampleRate: 44100}

	spec.BitDepth = Depth16
	if err := r.RenderWAV(context.Background(), spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(argString(runner), "-af anull,aresample=dither_method=triangular") {
		t.Errorf("16-bit render must append triangular dither, got %q", argString(runner))
	}

	for _, depth := range []BitDepth{Depth24, Depth32Float} {
		spec.BitDepth = depth
		if err := r.RenderWAV(context.Background(), spec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(argString(runner), "dither") {
			t.Errorf("depth %d must not be dithered, got %q", depth, argString(runner))
		}
	}
}

func TestRenderWAVGainFilter(t *testing.T) {
	runner := &captureRunner{}
	r := NewRenderer(runner, "ffmpeg")

	err := r.RenderWAV(context.Background(), Spec{
		InputPath:  "in.wav",
		OutputPath: "out.wav",
		BitDepth:   Depth32Float,
		SampleRate: 44100,
		Filter:     GainFilter(-1.9),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(argString(runner), "-af volume=-1.9dB") {
		t.Errorf("expected volume filter, got %q", argString(runner))
	}
}

func TestGainFilterZeroIsOmitted(t *testing.T) {
	if GainFilter(0) != "" {
		t.Errorf("zero gain must produce no filter, got %q", GainFilter(0))
	}
	if GainFilter(-0.3) != "volume=-0.3dB" {
		t.Errorf("unexpected filter %q", GainFilter(-0.3))
	}
}

func TestRenderMP3ExplicitBitrate(t *testing.T) {
	runner := &captureRunner{}
	r := NewRenderer(runner, "ffmpeg")

	spec := Spec{InputPath: "in.wav", OutputPath: "out.mp3", SampleRate: 44100}
	if err := r.RenderMP3(context.Background(), spec, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := argString(runner)
	for _, want := range []string{"-c:a libmp3lame", "-b:a 320k", "-af anull"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected args to contain %q, got %q", want, args)
		}
	}
}

func TestRenderAACFaststart(t *testing.T) {
	runner := &captureRunner{}
	r := NewRenderer(runner, "ffmpeg")

	spec := Spec{InputPath: "in.wav", OutputPath: "out.m4a", SampleRate: 44100}
	if err := r.RenderAAC(context.Background(), spec, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args := argString(runner)
	for _, want := range []string{"-c:a aac", "-b:a 256k", "-movflags +faststart"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected args to contain %q, got %q", want, args)
		}
	}
}

func TestRenderFailsOnNonzeroExit(t *testing.T) {
	runner := &captureRunner{res: &engine.Result{ExitCode: 1, Stderr: "Invalid data found"}}
	r := NewRenderer(runner, "ffmpeg")

	err := r.RenderWAV(context.Background(), Spec{
		InputPath:  "in.wav",
		OutputPath: "out.wav",
		BitDepth:   Depth24,
		SampleRate: 44100,
	})
	var cmdErr *engine.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %T: %v", err, err)
	}
}

func TestRenderDispatch(t *testing.T) {
	runner := &captureRunner{}
	r := NewRenderer(runner, "ffmpeg")
	spec := Spec{InputPath: "in.wav", OutputPath: "out", BitDepth: Depth16, SampleRate: 44100}

	if err := r.Render(context.Background(), spec, ContainerMP3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(argString(runner), "libmp3lame") {
		t.Errorf("dispatch to mp3 failed, got %q", argString(runner))
	}

	if err := r.Render(context.Background(), spec, Container("ogg")); err == nil {
		t.Error("expected error for unsupported container")
	}
}
