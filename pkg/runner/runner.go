package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"lanekit/pkg/config"

	"github.com/rs/zerolog"
)

// OutputCallback is called with each line of streaming command output.
type OutputCallback func(line string)

// Spec describes one external command invocation. Every invocation carries a
// hard timeout; on expiry the child process is killed, never orphaned.
type Spec struct {
	Dir      string
	Name     string
	Args     []string
	Env      map[string]string // appended to the inherited environment
	Timeout  time.Duration
	OnOutput OutputCallback
}

// Result is the outcome of one invocation. Output is combined stdout and
// stderr with bounded retention.
type Result struct {
	Output   string
	ExitCode int
	Err      error
	TimedOut bool
}

// Ok reports a clean zero exit.
func (r *Result) Ok() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Tail returns the last n non-empty output lines, for diagnostics.
func (r *Result) Tail(n int) string {
	lines := strings.Split(strings.TrimSpace(r.Output), "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}

// Runner executes external commands. The orchestrator depends on this
// interface so builds and deploys can be faked in tests.
type Runner interface {
	Run(ctx context.Context, spec Spec) *Result
}

// ExecRunner runs commands on the host.
type ExecRunner struct {
	logger zerolog.Logger
}

// New creates an ExecRunner.
func New(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes the command, streaming combined output. A context or timeout
// expiry terminates the child process.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) *Result {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = config.DefaultBuildTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	for key, value := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}
	// give the process a short grace period after kill before Wait returns
	cmd.WaitDelay = 10 * time.Second

	sink := newTailWriter(config.MaxRetainedOutput, spec.OnOutput)
	cmd.Stdout = sink
	cmd.Stderr = sink

	r.logger.Debug().Str("cmd", spec.Name).Strs("args", spec.Args).Msg("running external command")

	err := cmd.Run()
	sink.flush()

	result := &Result{Output: sink.String()}
	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.Err = fmt.Errorf("%s timed out after %s: %w", spec.Name, timeout, ctx.Err())
		result.ExitCode = -1
		return result
	}
	if err != nil {
		result.Err = err
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		return result
	}

	result.ExitCode = cmd.ProcessState.ExitCode()
	return result
}

// tailWriter retains at most max bytes of the newest output and invokes the
// callback per completed line. Both command streams write through it, so it
// locks.
type tailWriter struct {
	mu       sync.Mutex
	buf      []byte
	max      int
	pending  []byte
	onOutput OutputCallback
}

func newTailWriter(max int, onOutput OutputCallback) *tailWriter {
	return &tailWriter{max: max, onOutput: onOutput}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	if len(w.buf) > w.max {
		w.buf = w.buf[len(w.buf)-w.max:]
	}

	if w.onOutput != nil {
		w.pending = append(w.pending, p...)
		// Progress bars redraw with bare carriage returns, so \r terminates
		// a line too.
		for {
			idx := strings.IndexAny(string(w.pending), "\r\n")
			if idx < 0 {
				break
			}
			line := string(w.pending[:idx])
			w.pending = w.pending[idx+1:]
			if strings.TrimSpace(line) != "" {
				w.onOutput(line)
			}
		}
		// A stream that never terminates a line must not accumulate
		// without bound.
		if len(w.pending) > w.max {
			w.onOutput(string(w.pending))
			w.pending = nil
		}
	}

	return len(p), nil
}

func (w *tailWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.onOutput != nil && strings.TrimSpace(string(w.pending)) != "" {
		w.onOutput(strings.TrimRight(string(w.pending), "\r\n"))
		w.pending = nil
	}
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}
