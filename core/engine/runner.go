package engine

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"LoudGate/logger"
)

const (
	// DefaultTimeout is the wall-clock budget for one engine invocation.
	// Measurement and render runs on realistic masters finish well inside it.
	DefaultTimeout = 10 * time.Minute

	// probeTimeout bounds the availability check; a version query that takes
	// longer than this means the engine is unusable anyway.
	probeTimeout = 5 * time.Second
)

// Command describes one invocation of an external process.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration // zero means DefaultTimeout
}

// Line renders the command for diagnostics and error messages.
func (c Command) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the completion record of a process that was successfully
// spawned and ran to completion (possibly with a nonzero exit code).
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner abstracts process execution so callers can substitute a double
// that returns canned output without spawning anything.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands via os/exec. On timeout the child is killed
// immediately; there is no graceful-shutdown signal.
type ExecRunner struct {
	// Timeout applies to commands that carry none of their own; zero means
	// DefaultTimeout.
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = r.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}

	// Both streams are bounded for realistic inputs, so buffering them
	// whole is fine; no streaming interface is offered.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("spawning engine process", logger.String("command", c.Line()))

	err := cmd.Run()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, &TimeoutError{CommandLine: c.Line(), Timeout: timeout}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}, nil
		}
		return nil, &SpawnError{CommandLine: c.Line(), Err: err}
	}

	return &Result{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// RequireSuccess converts a nonzero exit into a CommandError carrying
// truncated output for diagnosis.
func RequireSuccess(res *Result, commandLine string) error {
	if res.ExitCode == 0 {
		return nil
	}
	return &CommandError{
		CommandLine: commandLine,
		ExitCode:    res.ExitCode,
		Stdout:      Tail(res.Stdout, errTailLimit),
		Stderr:      Tail(res.Stderr, errTailLimit),
	}
}

// Probe reports whether the engine binary responds to a version query.
// Any failure, spawn or nonzero exit, means "not available".
func Probe(ctx context.Context, r Runner, ffmpegPath string) bool {
	res, err := r.Run(ctx, Command{
		Name:    ffmpegPath,
		Args:    []string{"-version"},
		Timeout: probeTimeout,
	})
	if err != nil {
		return false
	}
	return res.ExitCode == 0
}
