// Package subprocess runs one-shot Pharo VM invocations and captures
// their output. Each call spawns a fresh process; nothing is reused.
package subprocess

import (
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/mumez/neobridge/core/logx"
)

// Outcome is the raw result of one process round-trip.
type Outcome struct {
	Stdout    []byte
	Stderr    []byte
	ExitCode  int
	Elapsed   time.Duration
	Truncated bool
	TimedOut  bool
}

// Runner spawns the Pharo VM with per-call arguments.
type Runner struct {
	// Path is the VM executable.
	Path string
	// Dir is the working directory for the child; image files are
	// resolved relative to it.
	Dir string
	// MaxOutput caps each captured stream; excess bytes are dropped and
	// the outcome is flagged truncated.
	MaxOutput int

	// killDelay is how long after SIGTERM the child gets before SIGKILL.
	killDelay time.Duration
}

// NewRunner returns a Runner for the given VM path and working directory.
func NewRunner(path, dir string, maxOutput int) *Runner {
	if maxOutput <= 0 {
		maxOutput = 1 << 20
	}
	return &Runner{Path: path, Dir: dir, MaxOutput: maxOutput, killDelay: 3 * time.Second}
}

// Run executes the VM with args and waits for exit or context expiry.
// A non-nil error means the process could not be run at all; evaluation
// failures are reported through the Outcome instead.
func (r *Runner) Run(ctx context.Context, args ...string) (Outcome, error) {
	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Dir = r.Dir
	stdout := newCapWriter(r.MaxOutput)
	stderr := newCapWriter(r.MaxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Ask politely on cancellation, escalate to SIGKILL after killDelay.
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.killDelay

	start := time.Now()
	err := cmd.Run()
	out := Outcome{
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Elapsed:   time.Since(start),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}
	if ctx.Err() != nil {
		out.TimedOut = true
		logx.Log.Warn().Str("vm", r.Path).Dur("elapsed", out.Elapsed).Msg("process terminated on timeout")
		return out, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		// Spawn failure: VM missing, not executable, fork error.
		return out, err
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}
	return out, nil
}

// capWriter keeps at most limit bytes and drops the rest. It never
// returns a write error so the child is not killed by a full buffer.
type capWriter struct {
	buf       []byte
	limit     int
	truncated bool
}

func newCapWriter(limit int) *capWriter {
	return &capWriter{limit: limit}
}

func (w *capWriter) Write(p []byte) (int, error) {
	if room := w.limit - len(w.buf); room > 0 {
		if len(p) > room {
			w.buf = append(w.buf, p[:room]...)
			w.truncated = true
		} else {
			w.buf = append(w.buf, p...)
		}
	} else if len(p) > 0 {
		w.truncated = true
	}
	return len(p), nil
}

func (w *capWriter) Bytes() []byte   { return w.buf }
func (w *capWriter) Truncated() bool { return w.truncated }
