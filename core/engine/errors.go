package engine

import (
	"fmt"
	"time"
)

// errTailLimit bounds how much captured process output is attached to an
// error. Full streams stay on the Result; errors only carry the tail.
const errTailLimit = 2000

// SpawnError indicates the engine binary could not be started at all
// (missing binary, permission denied). Never conflated with a nonzero exit.
type SpawnError struct {
	CommandLine string
	Err         error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.CommandLine, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TimeoutError indicates the process exceeded its wall-clock budget and was
// killed without a grace period.
type TimeoutError struct {
	CommandLine string
	Timeout     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", e.CommandLine, e.Timeout)
}

// CommandError indicates the process ran to completion but exited nonzero.
// Stdout/Stderr hold the last errTailLimit characters of each stream.
type CommandError struct {
	CommandLine string
	ExitCode    int
	Stdout      string
	Stderr      string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited with code %d\nstdout: %s\nstderr: %s",
		e.CommandLine, e.ExitCode, e.Stdout, e.Stderr)
}

// Tail returns the last n characters of s.
func Tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
