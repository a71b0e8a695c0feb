package runner_test

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"lanekit/pkg/runner"

	"github.com/rs/zerolog"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test shells out to sh")
	}
}

func TestRunCapturesCombinedOutput(t *testing.T) {
	requireUnix(t)

	r := runner.New(zerolog.Nop())
	result := r.Run(context.Background(), runner.Spec{
		Name:    "sh",
		Args:    []string{"-c", "echo to-stdout; echo to-stderr 1>&2"},
		Timeout: 10 * time.Second,
	})

	if !result.Ok() {
		t.Fatalf("expected clean exit, got %+v", result)
	}
	if !strings.Contains(result.Output, "to-stdout") || !strings.Contains(result.Output, "to-stderr") {
		t.Errorf("combined output missing streams: %q", result.Output)
	}
}

func TestRunReportsExitCode(t *testing.T) {
	requireUnix(t)

	r := runner.New(zerolog.Nop())
	result := r.Run(context.Background(), runner.Spec{
		Name:    "sh",
		Args:    []string{"-c", "exit 3"},
		Timeout: 10 * time.Second,
	})

	if result.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", result.ExitCode)
	}
	if result.Ok() {
		t.Error("non-zero exit must not be Ok")
	}
}

func TestRunTimesOutAndKills(t *testing.T) {
	requireUnix(t)

	r := runner.New(zerolog.Nop())
	start := time.Now()
	result := r.Run(context.Background(), runner.Spec{
		Name:    "sh",
		Args:    []string{"-c", "sleep 30"},
		Timeout: 500 * time.Millisecond,
	})

	if !result.TimedOut {
		t.Fatalf("expected timeout, got %+v", result)
	}
	if elapsed := time.Since(start); elapsed > 15*time.Second {
		t.Errorf("child was not terminated promptly, took %s", elapsed)
	}
}

func TestRunStreamsLines(t *testing.T) {
	requireUnix(t)

	var lines []string
	r := runner.New(zerolog.Nop())
	result := r.Run(context.Background(), runner.Spec{
		Name:    "sh",
		Args:    []string{"-c", "echo one; echo two"},
		Timeout: 10 * time.Second,
		OnOutput: func(line string) {
			lines = append(lines, line)
		},
	})

	if !result.Ok() {
		t.Fatalf("unexpected failure: %+v", result)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("unexpected streamed lines: %v", lines)
	}
}

func TestTail(t *testing.T) {
	result := &runner.Result{Output: "a\nb\n\nc\nd\n"}
	if got := result.Tail(2); got != "c\nd" {
		t.Errorf("Tail(2) = %q", got)
	}
	if got := result.Tail(10); got != "a\nb\nc\nd" {
		t.Errorf("Tail(10) = %q", got)
	}
}

func TestRunStreamsCarriageReturnRedraws(t *testing.T) {
	requireUnix(t)

	var lines []string
	r := runner.New(zerolog.Nop())
	result := r.Run(context.Background(), runner.Spec{
		Name:    "sh",
		Args:    []string{"-c", `printf 'step one\rstep two\rstep three\n'`},
		Timeout: 10 * time.Second,
		OnOutput: func(line string) {
			lines = append(lines, line)
		},
	})

	if !result.Ok() {
		t.Fatalf("expected clean exit, got %+v", result)
	}
	want := []string{"step one", "step two", "step three"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %q, want %d", len(lines), lines, len(want))
	}
	for i, line := range lines {
		if line != want[i] {
			t.Errorf("line %d = %q, want %q", i, line, want[i])
		}
	}
}

func TestRunBoundsUnterminatedStreamBuffer(t *testing.T) {
	requireUnix(t)

	const streamSize = 300_000 // larger than the retained-output cap

	var chunks []string
	r := runner.New(zerolog.Nop())
	result := r.Run(context.Background(), runner.Spec{
		Name:    "sh",
		Args:    []string{"-c", "head -c 300000 /dev/zero | tr '\\0' a"},
		Timeout: 30 * time.Second,
		OnOutput: func(line string) {
			chunks = append(chunks, line)
		},
	})

	if !result.Ok() {
		t.Fatalf("expected clean exit, got %+v", result)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the newline-free stream to be emitted in bounded chunks, got %d callback(s)", len(chunks))
	}
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	if total != streamSize {
		t.Errorf("callbacks delivered %d bytes, want %d", total, streamSize)
	}
}
