package wrangler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"lanekit/pkg/runner"
	"lanekit/pkg/wrangler"

	"github.com/rs/zerolog"
)

// captureRunner records the spec and returns a canned success.
type captureRunner struct {
	spec   runner.Spec
	output string
}

func (c *captureRunner) Run(_ context.Context, spec runner.Spec) *runner.Result {
	c.spec = spec
	return &runner.Result{Output: c.output}
}

func stubNpx(t *testing.T) {
	t.Helper()
	bin := t.TempDir()
	if err := os.WriteFile(filepath.Join(bin, "npx"), []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("stub npx: %v", err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func hasArgPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestDeployWorkersPassesNameAndVars(t *testing.T) {
	stubNpx(t)
	run := &captureRunner{output: "https://myapp.acme.workers.dev\n"}
	client := wrangler.NewClient(run, zerolog.Nop())

	dep, err := client.DeployWorkers(context.Background(), "/proj", "myapp",
		map[string]string{"NODE_ENV": "production"}, nil)
	if err != nil {
		t.Fatalf("DeployWorkers: %v", err)
	}
	if dep.URL != "https://myapp.acme.workers.dev" {
		t.Errorf("URL = %q", dep.URL)
	}

	if !hasArgPair(run.spec.Args, "--name", "myapp") {
		t.Errorf("worker name missing from args: %v", run.spec.Args)
	}
	if !hasArgPair(run.spec.Args, "--var", "NODE_ENV:production") {
		t.Errorf("env var missing from args: %v", run.spec.Args)
	}
}

func TestDeployPagesPassesProjectName(t *testing.T) {
	stubNpx(t)
	run := &captureRunner{output: "https://myapp.pages.dev\n"}
	client := wrangler.NewClient(run, zerolog.Nop())

	if _, err := client.DeployPages(context.Background(), "/proj", "out", "myapp", nil, nil); err != nil {
		t.Fatalf("DeployPages: %v", err)
	}

	if !hasArgPair(run.spec.Args, "--project-name", "myapp") {
		t.Errorf("project name missing from args: %v", run.spec.Args)
	}
	if len(run.spec.Args) < 4 || run.spec.Args[3] != "out" {
		t.Errorf("output dir missing from args: %v", run.spec.Args)
	}
}
