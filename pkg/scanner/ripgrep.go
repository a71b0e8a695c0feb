package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// maxSignals caps how many matches a tier reports; detectors only need a
// handful of evidence lines.
const maxSignals = 50

// ripgrepStrategy shells out to rg, the fastest available mechanism. rg exit
// code 1 means "no match" and is authoritative; a missing binary or any
// other exit code makes the tier unusable.
type ripgrepStrategy struct{}

func (r *ripgrepStrategy) Name() string { return "ripgrep" }

func (r *ripgrepStrategy) Scan(ctx context.Context, root string, q Query) ([]Signal, error) {
	if _, err := exec.LookPath("rg"); err != nil {
		return nil, fmt.Errorf("rg not in PATH: %w", ErrUnavailable)
	}

	args := []string{"--no-heading", "--with-filename", "--line-number", "--max-count", "5"}
	if !q.Regex {
		args = append(args, "--fixed-strings")
	}
	for _, glob := range q.Globs {
		args = append(args, "--glob", glob)
	}
	for _, needle := range q.Needles {
		args = append(args, "-e", needle)
	}
	args = append(args, ".")

	cmd := exec.CommandContext(ctx, "rg", args...)
	cmd.Dir = root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("rg failed (%v): %w", err, ErrUnavailable)
	}

	return parseRipgrepOutput(stdout.String()), nil
}

// parseRipgrepOutput parses "file:line:text" lines.
func parseRipgrepOutput(output string) []Signal {
	var signals []Signal
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		lineNum, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		signals = append(signals, Signal{
			File:        strings.TrimPrefix(parts[0], "./"),
			Line:        lineNum,
			MatchedText: strings.TrimSpace(parts[2]),
		})
		if len(signals) >= maxSignals {
			break
		}
	}
	return signals
}
