package subprocess

import (
	"context"
	"strings"
	"testing"
	"time"
)

func shRunner(maxOutput int) *Runner {
	return NewRunner("/bin/sh", "", maxOutput)
}

func TestRunCapturesStdout(t *testing.T) {
	out, err := shRunner(0).Run(context.Background(), "-c", "echo 2")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(string(out.Stdout)); got != "2" {
		t.Fatalf("stdout: %q", got)
	}
	if out.ExitCode != 0 || out.TimedOut || out.Truncated {
		t.Fatalf("outcome: %+v", out)
	}
	if out.Elapsed <= 0 {
		t.Fatalf("elapsed not recorded")
	}
}

func TestRunCapturesStderrAndExitCode(t *testing.T) {
	out, err := shRunner(0).Run(context.Background(), "-c", "echo boom >&2; exit 3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.ExitCode != 3 {
		t.Fatalf("exit code: %d", out.ExitCode)
	}
	if got := strings.TrimSpace(string(out.Stderr)); got != "boom" {
		t.Fatalf("stderr: %q", got)
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	out, err := shRunner(0).Run(ctx, "-c", "sleep 10")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.TimedOut {
		t.Fatalf("outcome not marked timed out: %+v", out)
	}
	// The child must be gone long before its sleep would have ended.
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("process outlived its budget: %v", elapsed)
	}
}

func TestRunTimeoutKeepsPartialOutput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	out, err := shRunner(0).Run(ctx, "-c", "echo partial; sleep 10")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.TimedOut {
		t.Fatalf("outcome not marked timed out")
	}
	if !strings.Contains(string(out.Stdout), "partial") {
		t.Fatalf("partial output lost: %q", out.Stdout)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	r := NewRunner("/nonexistent/pharo", "", 0)
	if _, err := r.Run(context.Background(), "Pharo.image", "-e", "1+1"); err == nil {
		t.Fatalf("expected spawn failure")
	}
}

func TestRunTruncatesOutput(t *testing.T) {
	out, err := shRunner(16).Run(context.Background(), "-c", "echo this line is longer than sixteen bytes")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Truncated {
		t.Fatalf("outcome not marked truncated")
	}
	if len(out.Stdout) != 16 {
		t.Fatalf("captured %d bytes, want 16", len(out.Stdout))
	}
}

func TestCapWriterNeverErrors(t *testing.T) {
	w := newCapWriter(4)
	for i := 0; i < 10; i++ {
		n, err := w.Write([]byte("abcdef"))
		if err != nil || n != 6 {
			t.Fatalf("write %d: n=%d err=%v", i, n, err)
		}
	}
	if string(w.Bytes()) != "abcd" || !w.Truncated() {
		t.Fatalf("cap writer state: %q truncated=%v", w.Bytes(), w.Truncated())
	}
}
