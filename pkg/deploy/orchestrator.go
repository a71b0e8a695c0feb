package deploy

import (
	"context"
	"fmt"

	"lanekit/pkg/detector"
	"lanekit/pkg/envguard"
	"lanekit/pkg/manifest"
	"lanekit/pkg/runner"
	"lanekit/pkg/scanner"
	"lanekit/pkg/wrangler"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Step represents one step in the deployment pipeline.
type Step struct {
	Name        string
	Description string
	Progress    int // 0-100
}

// ProgressCallback is called for each pipeline step.
type ProgressCallback func(step Step)

// Result is the outcome of one deploy attempt. Lane is the lane the project
// actually shipped on, which differs from the resolved lane when a mid-build
// switch happened.
type Result struct {
	AttemptID    string
	Lane         detector.Lane
	Switched     bool
	SwitchReason string
	URL          string
}

// Orchestrator drives the lane-specific build and deploy pipeline.
type Orchestrator struct {
	root        string
	projectName string
	run         runner.Runner
	cf          *wrangler.Client
	scan        *scanner.Scanner
	logger      zerolog.Logger
	progress    ProgressCallback
	output      runner.OutputCallback
}

// NewOrchestrator creates a deployment orchestrator for a project root.
func NewOrchestrator(root, projectName string, run runner.Runner, scan *scanner.Scanner, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		root:        root,
		projectName: projectName,
		run:         run,
		cf:          wrangler.NewClient(run, logger),
		scan:        scan,
		logger:      logger,
	}
}

// SetProgressCallback sets the callback for step progress updates.
func (o *Orchestrator) SetProgressCallback(callback ProgressCallback) {
	o.progress = callback
}

// SetOutputCallback sets the callback for streaming build tool output.
func (o *Orchestrator) SetOutputCallback(callback runner.OutputCallback) {
	o.output = callback
}

// Deploy runs the pipeline for the resolved lane. Every attempt gets a
// fresh attempt ID that is threaded through all log events; nothing about
// an attempt is stored in process-global state.
func (o *Orchestrator) Deploy(ctx context.Context, det detector.DetectionResult) (*Result, error) {
	attemptID := uuid.New().String()
	logger := o.logger.With().
		Str("attempt_id", attemptID).
		Str("lane", string(det.Lane)).
		Logger()
	logger.Info().Str("origin", string(det.Origin)).Msg("starting deploy attempt")

	vars, err := envguard.LoadProjectEnv(o.root)
	if err != nil {
		return nil, fmt.Errorf("failed to load project environment: %w", err)
	}

	// Names declared in the env example but never supplied are candidates
	// for preview defaults. Synthesis happens per deployed lane inside
	// laneEnv, so a mid-flight switch re-evaluates them for the new lane.
	var missing []string
	for _, name := range envguard.DeclaredNames(o.root) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}

	result := &Result{AttemptID: attemptID, Lane: det.Lane}

	switch det.Lane {
	case detector.LaneStatic:
		err = o.deployStatic(ctx, logger, vars, missing, result)
	case detector.LaneEdge:
		err = o.deployEdge(ctx, logger, det, vars, missing, result)
	case detector.LaneWorkers:
		err = o.deployWorkers(ctx, logger, vars, missing, result)
	default:
		return nil, fmt.Errorf("unsupported lane: %q", det.Lane)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("final_lane", string(result.Lane)).
		Bool("switched", result.Switched).
		Str("url", result.URL).
		Msg("deploy attempt finished")
	return result, nil
}

// recordSwitch persists the edge-to-workers switch so the next run resolves
// straight to workers instead of rediscovering the incompatibility.
func (o *Orchestrator) recordSwitch(logger zerolog.Logger, det detector.DetectionResult, reason string) {
	det.Lane = detector.LaneWorkers
	det.Switched = true
	det.SwitchReason = reason
	det.Reasons = append(det.Reasons, "edge build incompatibility: "+reason)

	if err := manifest.FromDetection(det).Save(o.root); err != nil {
		logger.Warn().Err(err).Msg("could not persist lane switch to manifest")
	}
}

func (o *Orchestrator) notifyProgress(name, description string, progress int) {
	if o.progress != nil {
		o.progress(Step{Name: name, Description: description, Progress: progress})
	}
}

// laneEnv builds the final variable map for one lane: supplied values plus
// lane-admissible preview defaults for the missing names, filtered through
// the lane's allow-list.
func laneEnv(logger zerolog.Logger, vars envguard.Set, missing []string, lane detector.Lane) map[string]string {
	merged := make(envguard.Set, len(vars)+len(missing))
	for name, v := range vars {
		merged[name] = v
	}
	if len(missing) > 0 {
		defaults, warnings := envguard.SynthesizePreviewDefaults(missing, lane)
		for name, v := range defaults {
			merged[name] = v
		}
		for _, warning := range warnings {
			logger.Warn().Msg(warning)
		}
	}

	filtered := envguard.FilterForLane(logger, merged, lane)
	env := make(map[string]string, len(filtered))
	for name, v := range filtered {
		env[name] = v.Value
	}
	return env
}
