package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// gitFilesStrategy enumerates tracked files via git and line-scans them.
// Any git failure (no repo, no binary) makes the tier unusable.
type gitFilesStrategy struct{}

func (g *gitFilesStrategy) Name() string { return "git-files" }

func (g *gitFilesStrategy) Scan(ctx context.Context, root string, q Query) ([]Signal, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("git not in PATH: %w", ErrUnavailable)
	}

	cmd := exec.CommandContext(ctx, "git", "-C", root, "ls-files")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files failed (%v): %w", err, ErrUnavailable)
	}

	var rels []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			rels = append(rels, line)
		}
	}

	return scanFiles(root, rels, q)
}
