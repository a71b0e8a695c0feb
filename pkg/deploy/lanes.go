package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lanekit/pkg/config"
	"lanekit/pkg/detector"
	"lanekit/pkg/detector/signals"
	"lanekit/pkg/envguard"
	"lanekit/pkg/heal"
	"lanekit/pkg/runner"

	"github.com/rs/zerolog"
)

// prebuiltOutputDirs are checked in order when looking for an existing
// static bundle.
var prebuiltOutputDirs = []string{"out", "dist", "build"}

const nextOnPagesOutputDir = ".vercel/output/static"

func (o *Orchestrator) deployStatic(ctx context.Context, logger zerolog.Logger, vars envguard.Set, missing []string, result *Result) error {
	o.notifyProgress("locate_output", "Locating static output...", 10)

	outputDir := o.findPrebuiltOutput()
	if outputDir == "" {
		probe := signals.NewProbe(o.root, o.scan)
		if !probe.Framework().IsNext {
			return fmt.Errorf("no static output directory found in %s and the project is not buildable; expected one of: %s",
				o.root, strings.Join(prebuiltOutputDirs, ", "))
		}

		o.notifyProgress("build", "Building static export...", 30)
		res := o.run.Run(ctx, runner.Spec{
			Dir:      o.root,
			Name:     "npx",
			Args:     []string{"next", "build"},
			Env:      laneEnv(logger, vars, missing, detector.LaneStatic),
			Timeout:  config.DefaultStaticBuildTimeout,
			OnOutput: o.output,
		})
		if !res.Ok() {
			return fmt.Errorf("static export build failed: %w\n%s", res.Err, res.Tail(config.DiagnosticOutputLines))
		}

		outputDir = o.findPrebuiltOutput()
		if outputDir == "" {
			return fmt.Errorf("build succeeded but produced no static output directory; ensure next.config sets output: \"export\"")
		}
	}

	o.notifyProgress("deploy", "Deploying static bundle...", 70)
	dep, err := o.cf.DeployPages(ctx, o.root, outputDir, o.projectName, laneEnv(logger, vars, missing, detector.LaneStatic), o.output)
	if err != nil {
		return err
	}

	result.URL = dep.URL
	o.notifyProgress("done", "Deployment complete", 100)
	return nil
}

func (o *Orchestrator) deployEdge(ctx context.Context, logger zerolog.Logger, det detector.DetectionResult, vars envguard.Set, missing []string, result *Result) error {
	o.notifyProgress("build", "Building for the edge runtime...", 20)

	res := o.run.Run(ctx, runner.Spec{
		Dir:      o.root,
		Name:     "npx",
		Args:     []string{"@cloudflare/next-on-pages"},
		Env:      laneEnv(logger, vars, missing, detector.LaneEdge),
		Timeout:  config.DefaultBuildTimeout,
		OnOutput: o.output,
	})

	// A Node-incompatibility in the build output means the resolver's edge
	// verdict was too optimistic; salvage the attempt on workers rather
	// than failing it.
	if reason := edgeIncompatReason(res.Output); reason != "" {
		logger.Warn().Str("reason", reason).Msg("edge build hit a runtime incompatibility, switching to workers")
		o.notifyProgress("switch", "Edge build incompatible, switching to workers...", 40)

		result.Lane = detector.LaneWorkers
		result.Switched = true
		result.SwitchReason = reason
		o.recordSwitch(logger, det, reason)

		return o.deployWorkers(ctx, logger.With().Str("lane", string(detector.LaneWorkers)).Logger(), vars, missing, result)
	}
	if !res.Ok() {
		return fmt.Errorf("edge build failed: %w\n%s", res.Err, res.Tail(config.DiagnosticOutputLines))
	}

	o.notifyProgress("deploy", "Deploying edge bundle...", 70)
	dep, err := o.cf.DeployPages(ctx, o.root, nextOnPagesOutputDir, o.projectName, laneEnv(logger, vars, missing, detector.LaneEdge), o.output)
	if err != nil {
		return err
	}

	result.URL = dep.URL
	o.notifyProgress("done", "Deployment complete", 100)
	return nil
}

func (o *Orchestrator) deployWorkers(ctx context.Context, logger zerolog.Logger, vars envguard.Set, missing []string, result *Result) error {
	o.notifyProgress("validate", "Validating route runtime declarations...", 10)

	// Routes still declaring the edge runtime would silently fall back to
	// it inside the workers build, so they are fixed or fatal up front. At
	// most one heal pass runs per attempt.
	if conflicts := o.edgeDeclaredRoutes(ctx); len(conflicts) > 0 {
		logger.Info().Strs("files", conflicts).Msg("healing edge runtime declarations")
		o.notifyProgress("heal", "Rewriting edge runtime declarations...", 20)

		if _, err := heal.Run(o.root, logger); err != nil {
			return fmt.Errorf("heal pass failed: %w", err)
		}
		if conflicts = o.edgeDeclaredRoutes(ctx); len(conflicts) > 0 {
			return fmt.Errorf("routes still declare the edge runtime after healing: %s", strings.Join(conflicts, ", "))
		}
	}

	o.notifyProgress("build", "Building for the workers runtime...", 30)
	res := o.run.Run(ctx, runner.Spec{
		Dir:      o.root,
		Name:     "npx",
		Args:     []string{"opennextjs-cloudflare", "build"},
		Env:      laneEnv(logger, vars, missing, detector.LaneWorkers),
		Timeout:  config.DefaultBuildTimeout,
		OnOutput: o.output,
	})
	if !res.Ok() {
		return fmt.Errorf("workers build failed: %w\n%s", res.Err, res.Tail(config.DiagnosticOutputLines))
	}

	o.notifyProgress("deploy", "Deploying worker...", 70)
	dep, err := o.cf.DeployWorkers(ctx, o.root, o.projectName, laneEnv(logger, vars, missing, detector.LaneWorkers), o.output)
	if err != nil {
		return err
	}

	result.Lane = detector.LaneWorkers
	result.URL = dep.URL
	o.notifyProgress("done", "Deployment complete", 100)
	return nil
}

func (o *Orchestrator) edgeDeclaredRoutes(ctx context.Context) []string {
	probe := signals.NewProbe(o.root, o.scan)

	var conflicts []string
	for _, rel := range probe.APIRouteFiles(ctx) {
		if probe.DeclaresEdgeRuntime(rel) {
			conflicts = append(conflicts, rel)
		}
	}
	return conflicts
}

func (o *Orchestrator) findPrebuiltOutput() string {
	for _, dir := range prebuiltOutputDirs {
		path := filepath.Join(o.root, dir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(path, "index.html")); err == nil {
				return dir
			}
		}
	}
	return ""
}
