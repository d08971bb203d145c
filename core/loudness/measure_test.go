package loudness

import (
	"context"
	"errors"
	"strings"
	"testing"

	"LoudGate/core/engine"
)

// stubRunner returns canned engine output without spawning anything.
type stubRunner struct {
	res     *engine.Result
	err     error
	lastCmd engine.Command
	calls   int
}

func (s *stubRunner) Run(_ context.Context, cmd engine.Command) (*engine.Result, error) {
	s.lastCmd = cmd
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

// Trimmed real-world shape of the ebur128 diagnostic stream: per-frame
// readings followed by the summary.
const ebur128Output = `[Parsed_ebur128_0 @ 0x55e1] t: 0.1      TARGET:-23 LUFS    M: -120.7 S: -120.7     I: -70.0 LUFS       LRA:   0.0 LU  FTPK: -12.4 -12.6 dBFS  TPK: -12.4 -12.6 dBFS
[Parsed_ebur128_0 @ 0x55e1] t: 1.5      TARGET:-23 LUFS    M: -15.2 S: -18.1     I: -16.2 LUFS       LRA:   1.9 LU  FTPK: -1.5 -1.6 dBFS  TPK: -0.9 -1.0 dBFS
[Parsed_ebur128_0 @ 0x55e1] t: 2.9      TARGET:-23 LUFS    M: -17.0 S: -16.8     I: -16.9 LUFS       LRA:   2.1 LU  FTPK: -1.1 -1.2 dBFS  TPK: -0.8 -0.9 dBFS
[Parsed_ebur128_0 @ 0x55e1] Summary:

  Integrated loudness:
    I:         -16.8 LUFS
    Threshold: -27.2 LUFS

  Loudness range:
    LRA:         3.4 LU
    Threshold: -37.3 LUFS
    LRA low:   -18.9 LUFS
    LRA high:  -15.5 LUFS

  True peak:
    Peak:       -0.8 dBFS
`

const ebur128QuietOutput = `[Parsed_ebur128_0 @ 0x55e1] Summary:

  Integrated loudness:
    I:         -16.8 LUFS
    Threshold: -27.2 LUFS

  Loudness range:
    LRA:         3.4 LU
    Threshold: -37.3 LUFS
    LRA low:   -18.9 LUFS
    LRA high:  -15.5 LUFS

  True peak:
    Peak:       -0.8 dBFS
`

func TestMeasureParsesSummary(t *testing.T) {
	runner := &stubRunner{res: &engine.Result{ExitCode: 0, Stderr: ebur128Output}}
	m := NewMeasurer(runner, "ffmpeg")

	metrics, err := m.Measure(context.Background(), "in.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if metrics.IntegratedLufs != -16.8 {
		t.Errorf("integrated: expected -16.8, got %g", metrics.IntegratedLufs)
	}
	if metrics.RangeLu != 3.4 {
		t.Errorf("range: expected 3.4, got %g", metrics.RangeLu)
	}
	if metrics.TruePeakDb != -0.8 {
		t.Errorf("true peak: expected -0.8, got %g", metrics.TruePeakDb)
	}
	// Maxima over the per-frame readings, not the last frame.
	if metrics.MomentaryMaxLufs != -15.2 {
		t.Errorf("momentary max: expected -15.2, got %g", metrics.MomentaryMaxLufs)
	}
	if metrics.ShortTermMaxLufs != -16.8 {
		t.Errorf("short-term max: expected -16.8, got %g", metrics.ShortTermMaxLufs)
	}
}

func TestMeasureInvocationShape(t *testing.T) {
	runner := &stubRunner{res: &engine.Result{ExitCode: 0, Stderr: ebur128Output}}
	m := NewMeasurer(runner, "/opt/ffmpeg")

	if _, err := m.Measure(context.Background(), "in.wav"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if runner.lastCmd.Name != "/opt/ffmpeg" {
		t.Errorf("expected configured engine path, got %q", runner.lastCmd.Name)
	}
	args := strings.Join(runner.lastCmd.Args, " ")
	for _, want := range []string{"-af ebur128=peak=true", "-f null -", "-vn", "-nostats"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected args to contain %q, got %q", want, args)
		}
	}
}

func TestMeasureFallsBackToIntegratedWithoutFrames(t *testing.T) {
	runner := &stubRunner{res: &engine.Result{ExitCode: 0, Stderr: ebur128QuietOutput}}
	m := NewMeasurer(runner, "ffmpeg")

	metrics, err := m.Measure(context.Background(), "in.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.ShortTermMaxLufs != metrics.IntegratedLufs {
		t.Errorf("short-term max should fall back to integrated, got %g", metrics.ShortTermMaxLufs)
	}
	if metrics.MomentaryMaxLufs != metrics.IntegratedLufs {
		t.Errorf("momentary max should fall back to integrated, got %g", metrics.MomentaryMaxLufs)
	}
}

func TestMeasureIsDeterministic(t *testing.T) {
	runner := &stubRunner{res: &engine.Result{ExitCode: 0, Stderr: ebur128Output}}
	m := NewMeasurer(runner, "ffmpeg")

	first, err := m.Measure(context.Background(), "in.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.Measure(context.Background(), "in.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *first != *second {
		t.Errorf("measuring the same output twice differed: %+v vs %+v", first, second)
	}
}

func TestMeasureParseFailure(t *testing.T) {
	runner := &stubRunner{res: &engine.Result{ExitCode: 0, Stderr: "no loudness summary here"}}
	m := NewMeasurer(runner, "ffmpeg")

	_, err := m.Measure(context.Background(), "in.wav")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	// Failing loudly beats silently returning zeroed metrics.
	if parseErr.Field == "" {
		t.Error("parse error should name the missing field")
	}
}

func TestMeasureNonzeroExit(t *testing.T) {
	runner := &stubRunner{res: &engine.Result{ExitCode: 1, Stderr: "in.wav: No such file or directory"}}
	m := NewMeasurer(runner, "ffmpeg")

	_, err := m.Measure(context.Background(), "in.wav")
	var cmdErr *engine.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %T: %v", err, err)
	}
}

func TestMeasureSpawnFailurePropagates(t *testing.T) {
	spawn := &engine.SpawnError{CommandLine: "ffmpeg", Err: errors.New("not found")}
	runner := &stubRunner{err: spawn}
	m := NewMeasurer(runner, "ffmpeg")

	_, err := m.Measure(context.Background(), "in.wav")
	var spawnErr *engine.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected SpawnError to propagate, got %T: %v", err, err)
	}
}

func TestMeasureTruePeak(t *testing.T) {
	runner := &stubRunner{res: &engine.Result{ExitCode: 0, Stderr: ebur128QuietOutput}}
	m := NewMeasurer(runner, "ffmpeg")

	peak, err := m.MeasureTruePeak(context.Background(), "in.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak != -0.8 {
		t.Errorf("expected -0.8, got %g", peak)
	}

	args := strings.Join(runner.lastCmd.Args, " ")
	if !strings.Contains(args, "ebur128=framelog=quiet:peak=true") {
		t.Errorf("peak-only variant must suppress per-frame logging, got %q", args)
	}
}

func TestFindFieldPrefersLastOccurrence(t *testing.T) {
	// Frame readings precede the summary; the summary value must win.
	out := "I: -70.0 LUFS junk I: -14.5 LUFS"
	val, err := findField(out, "integrated loudness", integratedPatterns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != -14.5 {
		t.Errorf("expected last occurrence -14.5, got %g", val)
	}
}
