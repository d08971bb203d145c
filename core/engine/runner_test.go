package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("expected stdout %q, got %q", "out", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("expected stderr %q, got %q", "err", res.Stderr)
	}
}

func TestRunNonzeroExitIsNotAnError(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "exit 3"},
	})
	if err != nil {
		t.Fatalf("nonzero exit must not surface as a run error, got: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), Command{
		Name: "/nonexistent/binary/for/sure",
	})
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected SpawnError, got %T: %v", err, err)
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	start := time.Now()
	_, err := ExecRunner{}.Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
	})
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T: %v", err, err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("process was not killed promptly, took %s", elapsed)
	}
	if !strings.Contains(timeoutErr.CommandLine, "sleep 10") {
		t.Errorf("timeout error should carry the command line, got %q", timeoutErr.CommandLine)
	}
}

func TestRequireSuccess(t *testing.T) {
	if err := RequireSuccess(&Result{ExitCode: 0}, "x"); err != nil {
		t.Errorf("exit 0 must pass, got %v", err)
	}

	long := strings.Repeat("a", 3000) + "TAIL"
	err := RequireSuccess(&Result{ExitCode: 1, Stdout: long, Stderr: "boom"}, "x")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %T", err)
	}
	if len(cmdErr.Stdout) != errTailLimit {
		t.Errorf("expected stdout truncated to %d chars, got %d", errTailLimit, len(cmdErr.Stdout))
	}
	if !strings.HasSuffix(cmdErr.Stdout, "TAIL") {
		t.Error("truncation must keep the tail of the stream")
	}
	if cmdErr.Stderr != "boom" {
		t.Errorf("short stream must be kept whole, got %q", cmdErr.Stderr)
	}
}

func TestProbe(t *testing.T) {
	// The probe contract only needs exit status; true/false stand in for a
	// real ffmpeg here.
	if !Probe(context.Background(), ExecRunner{}, "true") {
		t.Error("expected probe of 'true' to succeed")
	}
	if Probe(context.Background(), ExecRunner{}, "false") {
		t.Error("expected probe of 'false' to fail on nonzero exit")
	}
	if Probe(context.Background(), ExecRunner{}, "/nonexistent/ffmpeg") {
		t.Error("expected probe of a missing binary to fail")
	}
}

func TestCommandLine(t *testing.T) {
	c := Command{Name: "ffmpeg", Args: []string{"-i", "in.wav"}}
	if c.Line() != "ffmpeg -i in.wav" {
		t.Errorf("unexpected command line %q", c.Line())
	}
}
