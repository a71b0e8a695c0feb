package detector

import (
	"context"
	"fmt"

	"lanekit/pkg/config"
	"lanekit/pkg/detector/signals"
	"lanekit/pkg/scanner"

	"github.com/rs/zerolog"
)

// Engine resolves the deployment lane for one project root by evaluating an
// ordered, short-circuiting rule chain: the first rule that produces a
// result wins.
type Engine struct {
	root   string
	probe  *signals.Probe
	logger zerolog.Logger
}

// NewEngine creates a resolution engine for the given project root.
func NewEngine(root string, scan *scanner.Scanner, logger zerolog.Logger) *Engine {
	return &Engine{
		root:   root,
		probe:  signals.NewProbe(root, scan),
		logger: logger,
	}
}

// rule is one precedence step. A nil result means "not my call, continue".
type rule struct {
	name string
	eval func(ctx context.Context) (*DetectionResult, error)
}

// Resolve runs the precedence chain. It never fails: if detection itself
// breaks, a defensive fallback picks the maximally-capable lane rather than
// an under-provisioned one.
func (e *Engine) Resolve(ctx context.Context) DetectionResult {
	result, err := e.resolve(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("lane detection failed, applying fallback policy")
		return e.fallback()
	}
	e.logger.Info().Str("lane", string(result.Lane)).Str("origin", string(result.Origin)).Msg("lane resolved")
	return result
}

func (e *Engine) resolve(ctx context.Context) (result DetectionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detection panicked: %v", r)
		}
	}()

	for _, r := range e.rules() {
		out, evalErr := r.eval(ctx)
		if evalErr != nil {
			return DetectionResult{}, fmt.Errorf("rule %s: %w", r.name, evalErr)
		}
		if out != nil {
			e.logger.Debug().Str("rule", r.name).Str("lane", string(out.Lane)).Msg("rule matched")
			return *out, nil
		}
	}

	return DetectionResult{
		Lane:    LaneStatic,
		Reasons: []string{"no lane-determining signals found, defaulting to static"},
		Origin:  OriginDetection,
	}, nil
}

func (e *Engine) rules() []rule {
	return []rule{
		{"manual-override", e.ruleManualOverride},
		{"foreign-build-tool", e.ruleForeignBuildTool},
		{"version-policy-and-ppr", e.ruleVersionPolicyAndPPR},
		{"workers-directives", e.ruleWorkersDirectives},
		{"revalidation", e.ruleRevalidation},
		{"edge-markers", e.ruleEdgeMarkers},
		{"node-builtins", e.ruleNodeBuiltins},
		{"static-export", e.ruleStaticExport},
		{"default-api-routes", e.ruleAPIRoutes},
	}
}

func (e *Engine) ruleManualOverride(ctx context.Context) (*DetectionResult, error) {
	lane, reason, ok := readOverride(e.root)
	if !ok {
		return nil, nil
	}
	return &DetectionResult{
		Lane:    lane,
		Reasons: []string{"manual override: " + reason},
		Origin:  OriginManual,
	}, nil
}

func (e *Engine) ruleForeignBuildTool(ctx context.Context) (*DetectionResult, error) {
	foreign := e.probe.ForeignBuildTool()
	if !foreign.Detected {
		return nil, nil
	}
	return &DetectionResult{
		Lane:    LaneStatic,
		Reasons: foreign.Reasons,
		Origin:  OriginDetection,
	}, nil
}

// Framework-version policy beats every signal below it.
func (e *Engine) ruleVersionPolicyAndPPR(ctx context.Context) (*DetectionResult, error) {
	identity := e.probe.Framework()
	if identity.IsNext && identity.Major >= config.WorkersPinnedNextMajor {
		return &DetectionResult{
			Lane: LaneWorkers,
			Reasons: []string{fmt.Sprintf("Next.js %s is pinned to the workers lane by version policy",
				identity.Version)},
			Origin: OriginDetection,
		}, nil
	}

	ppr := e.probe.PartialPrerendering(ctx)
	if ppr.Detected {
		return &DetectionResult{
			Lane:    LaneWorkers,
			Reasons: append(ppr.Reasons, "partial prerendering requires the workers lane"),
			Notes:   evidenceNotes(ppr.Evidence),
			Origin:  OriginDetection,
		}, nil
	}

	return nil, nil
}

func (e *Engine) ruleWorkersDirectives(ctx context.Context) (*DetectionResult, error) {
	directives := e.probe.WorkersDirectives(ctx)
	if !directives.Detected {
		return nil, nil
	}
	return &DetectionResult{
		Lane:    LaneWorkers,
		Reasons: directives.Reasons,
		Notes:   evidenceNotes(directives.Evidence),
		Origin:  OriginDetection,
	}, nil
}

// ISR is a hard workers blocker even when edge markers are present.
func (e *Engine) ruleRevalidation(ctx context.Context) (*DetectionResult, error) {
	isr := e.probe.Revalidation(ctx)
	if !isr.Detected {
		return nil, nil
	}
	return &DetectionResult{
		Lane:    LaneWorkers,
		Reasons: append(isr.Reasons, "revalidation requires the workers lane"),
		Notes:   evidenceNotes(isr.Evidence),
		Origin:  OriginDetection,
	}, nil
}

func (e *Engine) ruleEdgeMarkers(ctx context.Context) (*DetectionResult, error) {
	edge := e.probe.EdgeMarkers(ctx)
	if !edge.Detected {
		return nil, nil
	}

	node := e.probe.NodeBuiltinImports(ctx)
	if node.Escalated.Detected {
		// conflict resolved in favor of the stricter runtime
		reasons := append(node.Escalated.Reasons, edge.Reasons...)
		return &DetectionResult{
			Lane:    LaneWorkers,
			Reasons: reasons,
			Notes:   evidenceNotes(node.Escalated.Evidence),
			Origin:  OriginDetection,
		}, nil
	}

	result := &DetectionResult{
		Lane:    LaneEdge,
		Reasons: edge.Reasons,
		Notes:   evidenceNotes(edge.Evidence),
		Origin:  OriginDetection,
	}
	if node.Detected {
		// uncorroborated Node evidence rides along as a note, not a blocker
		result.Notes = append(result.Notes, "Node built-in imports found outside edge-bound files:")
		result.Notes = append(result.Notes, evidenceNotes(node.Evidence)...)
	}
	return result, nil
}

func (e *Engine) ruleNodeBuiltins(ctx context.Context) (*DetectionResult, error) {
	node := e.probe.NodeBuiltinImports(ctx)
	if !node.Detected {
		return nil, nil
	}
	return &DetectionResult{
		Lane:    LaneWorkers,
		Reasons: node.Reasons,
		Notes:   evidenceNotes(node.Evidence),
		Origin:  OriginDetection,
	}, nil
}

func (e *Engine) ruleStaticExport(ctx context.Context) (*DetectionResult, error) {
	export := e.probe.StaticExport(ctx)
	if !export.Detected {
		return nil, nil
	}
	if routes := e.probe.APIRouteFiles(ctx); len(routes) > 0 {
		return nil, nil
	}
	return &DetectionResult{
		Lane:    LaneStatic,
		Reasons: export.Reasons,
		Origin:  OriginDetection,
	}, nil
}

func (e *Engine) ruleAPIRoutes(ctx context.Context) (*DetectionResult, error) {
	routes := e.probe.APIRouteFiles(ctx)
	if len(routes) == 0 {
		return nil, nil
	}
	for _, route := range routes {
		if e.probe.DeclaresEdgeRuntime(route) {
			return nil, nil
		}
	}
	return &DetectionResult{
		Lane:    LaneWorkers,
		Reasons: []string{"API routes present without any edge runtime declaration"},
		Notes: []string{fmt.Sprintf("add `export const runtime = 'edge'` to %s to target the edge lane instead",
			routes[0])},
		Origin: OriginDetection,
	}, nil
}

// fallback re-checks only the cheap, robust signals: a manual override or a
// generic static project. Anything else gets the maximally-capable lane; an
// under-provisioned lane fails the deployment outright, an over-provisioned
// one merely wastes capacity.
func (e *Engine) fallback() DetectionResult {
	if lane, reason, ok := readOverride(e.root); ok {
		return DetectionResult{
			Lane:    lane,
			Reasons: []string{"manual override honored during fallback: " + reason},
			Origin:  OriginFallback,
		}
	}

	if foreign := e.probe.ForeignBuildTool(); foreign.Detected {
		return DetectionResult{
			Lane:    LaneStatic,
			Reasons: append(foreign.Reasons, "static signal honored during fallback"),
			Origin:  OriginFallback,
		}
	}

	return DetectionResult{
		Lane:    LaneWorkers,
		Reasons: []string{"detection failed, defaulting to the maximally-capable lane"},
		Origin:  OriginFallback,
	}
}

// evidenceNotes renders match evidence as file:line notes.
func evidenceNotes(evidence []scanner.Signal) []string {
	var notes []string
	for _, sig := range evidence {
		if !sig.Credible() {
			continue
		}
		notes = append(notes, fmt.Sprintf("%s:%d: %s", sig.File, sig.Line, sig.MatchedText))
	}
	return notes
}
