package wrangler

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"lanekit/pkg/config"
	"lanekit/pkg/logging"
	"lanekit/pkg/runner"

	"github.com/rs/zerolog"
)

// ErrNoDeployURL marks a deploy that exited cleanly but whose output carried
// no recognizable deployment URL. Operators need to distinguish "tool broke"
// from "tool succeeded but we couldn't read it".
var ErrNoDeployURL = errors.New("deploy succeeded but no deployment URL was found in output")

// Deployment is the parsed outcome of a deploy invocation.
type Deployment struct {
	URL    string
	Output string
}

// Client wraps wrangler CLI operations.
type Client struct {
	runner runner.Runner
	logger zerolog.Logger
}

// NewClient creates a wrangler client over the given command runner.
func NewClient(r runner.Runner, logger zerolog.Logger) *Client {
	return &Client{runner: r, logger: logging.Component(logger, "wrangler")}
}

// IsInstalled checks if wrangler is reachable (directly or via npx).
func IsInstalled() bool {
	if _, err := exec.LookPath("wrangler"); err == nil {
		return true
	}
	_, err := exec.LookPath("npx")
	return err == nil
}

// InstallInstructions returns platform-specific installation instructions.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin", "linux":
		return "Install wrangler:\n  npm install -g wrangler"
	case "windows":
		return "Install wrangler:\n  npm install -g wrangler"
	default:
		return "Install wrangler: https://developers.cloudflare.com/workers/wrangler/install-and-update/"
	}
}

// EnsureInstalled checks for wrangler and explains how to get it if absent.
func EnsureInstalled() error {
	if IsInstalled() {
		return nil
	}
	return fmt.Errorf("wrangler not found\n\n%s", InstallInstructions())
}

// DeployWorkers deploys the built worker under the given name with the
// (already lane-filtered) environment variables attached.
func (c *Client) DeployWorkers(ctx context.Context, projectDir, name string, env map[string]string, onOutput runner.OutputCallback) (*Deployment, error) {
	if err := EnsureInstalled(); err != nil {
		return nil, err
	}

	args := []string{"wrangler", "deploy"}
	if name != "" {
		args = append(args, "--name", name)
	}
	for key := range env {
		args = append(args, "--var", key+":"+env[key])
	}

	return c.deploy(ctx, projectDir, args, env, onOutput)
}

// DeployPages deploys a static output directory to the named project.
func (c *Client) DeployPages(ctx context.Context, projectDir, outputDir, name string, env map[string]string, onOutput runner.OutputCallback) (*Deployment, error) {
	if err := EnsureInstalled(); err != nil {
		return nil, err
	}

	args := []string{"wrangler", "pages", "deploy", outputDir}
	if name != "" {
		args = append(args, "--project-name", name)
	}
	return c.deploy(ctx, projectDir, args, env, onOutput)
}

func (c *Client) deploy(ctx context.Context, projectDir string, npxArgs []string, env map[string]string, onOutput runner.OutputCallback) (*Deployment, error) {
	result := c.runner.Run(ctx, runner.Spec{
		Dir:      projectDir,
		Name:     "npx",
		Args:     npxArgs,
		Env:      env,
		Timeout:  config.DefaultDeployTimeout,
		OnOutput: onOutput,
	})

	if !result.Ok() {
		return nil, fmt.Errorf("wrangler deploy failed (exit code %d): %w\n%s",
			result.ExitCode, result.Err, result.Tail(config.DiagnosticOutputLines))
	}

	url, ok := ParseDeployURL(result.Output)
	if !ok {
		return nil, fmt.Errorf("%w\n%s", ErrNoDeployURL, result.Tail(config.DiagnosticOutputLines))
	}

	c.logger.Info().Str("url", url).Msg("deployment complete")
	return &Deployment{URL: url, Output: result.Output}, nil
}
