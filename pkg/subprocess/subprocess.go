// Package subprocess runs the two external backends the environment engine
// treats as black boxes: the legacy package-database binary and the builder
// binary. Both are invoked directly by argv (no shell), matching their
// fixed subprocess protocol.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/envkit/core/pkg/verbose"
)

// Result is the outcome of a completed subprocess invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// RunFunc is the function signature used to invoke a backend. It is a
// package-level var so tests can substitute a fake backend without spawning
// real processes.
type RunFunc func(ctx context.Context, dir string, argv ...string) (Result, error)

// Run is the default RunFunc implementation.
var Run RunFunc = run

func run(ctx context.Context, dir string, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("subprocess: empty argv")
	}

	verbose.CommandExec(argv, dir)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if dir != "" {
		cmd.Dir = dir
	}
	setProcGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return result, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		if killErr := killProcGroup(cmd); killErr != nil {
			verbose.Debugf("subprocess: failed to kill process group after timeout: %v", killErr)
		}
		return result, fmt.Errorf("subprocess timed out: %w", runErr)
	}

	return result, runErr
}

// RunWithTimeout is a convenience wrapper that bounds Run with a timeout,
// zero meaning no timeout.
func RunWithTimeout(ctx context.Context, timeout time.Duration, dir string, argv ...string) (Result, error) {
	if timeout <= 0 {
		return Run(ctx, dir, argv...)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Run(ctx, dir, argv...)
}

// StreamFunc is the function signature used to invoke a backend whose
// stdout is piped directly into a caller-provided sink instead of buffered,
// used by the builder facade's container archive stream.
type StreamFunc func(ctx context.Context, dir string, stdout io.Writer, argv ...string) (int, error)

// Stream is the default StreamFunc implementation.
var Stream StreamFunc = stream

func stream(ctx context.Context, dir string, stdout io.Writer, argv ...string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("subprocess: empty argv")
	}

	verbose.CommandExec(argv, dir)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if dir != "" {
		cmd.Dir = dir
	}
	setProcGroup(cmd)

	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return exitCode, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		if killErr := killProcGroup(cmd); killErr != nil {
			verbose.Debugf("subprocess: failed to kill process group after timeout: %v", killErr)
		}
		return exitCode, fmt.Errorf("subprocess timed out: %w", runErr)
	}

	if stderr.Len() > 0 {
		return exitCode, fmt.Errorf("%w: %s", runErr, strings.TrimSpace(stderr.String()))
	}
	return exitCode, runErr
}

// CombinedOutput returns whichever of stdout/stderr is non-empty, preferring
// stderr, for building human-readable error messages.
func (r Result) CombinedOutput() string {
	if msg := strings.TrimSpace(string(r.Stderr)); msg != "" {
		return msg
	}
	return strings.TrimSpace(string(r.Stdout))
}
