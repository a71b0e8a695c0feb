package envguard

import (
	"fmt"
	"strings"

	"lanekit/pkg/detector"

	"github.com/rs/zerolog"
)

// Provenance records where a variable's value came from.
type Provenance string

const (
	ProvenanceSupplied        Provenance = "supplied"
	ProvenanceDetectedDefault Provenance = "detected-default"
)

// Var is one environment variable value with provenance. Sets live only for
// the duration of one deploy invocation and are never persisted.
type Var struct {
	Value      string
	Provenance Provenance
}

// Set maps variable names to values.
type Set map[string]Var

// Rule is one name-matching rule in a lane allow-list. Exactly one field is
// set; an empty rule matches everything.
type Rule struct {
	Prefix string
	Exact  string
	Any    bool
}

func (r Rule) matches(name string) bool {
	switch {
	case r.Any:
		return true
	case r.Exact != "":
		return name == r.Exact
	case r.Prefix != "":
		return strings.HasPrefix(name, r.Prefix)
	}
	return false
}

// Lane allow-lists. Each lane's list extends the previous one, so the
// static ⊆ edge ⊆ workers privilege ordering holds by construction; this is
// versioned configuration and the sole enforcement point for secret
// isolation, so changes here get reviewed like code.
var (
	staticRules = []Rule{
		{Prefix: "NEXT_PUBLIC_"},
		{Exact: "NODE_ENV"},
	}

	edgeRules = append(staticRules[:len(staticRules):len(staticRules)],
		Rule{Prefix: "NEXT_"},
		Rule{Exact: "TZ"},
	)

	workersRules = append(edgeRules[:len(edgeRules):len(edgeRules)],
		Rule{Any: true},
	)

	laneRules = map[detector.Lane][]Rule{
		detector.LaneStatic:  staticRules,
		detector.LaneEdge:    edgeRules,
		detector.LaneWorkers: workersRules,
	}
)

// ValidateAllowLists checks the subset invariant across the three lanes.
// A violation is a configuration bug, not a runtime condition.
func ValidateAllowLists() error {
	ordered := []detector.Lane{detector.LaneStatic, detector.LaneEdge, detector.LaneWorkers}
	for i := 1; i < len(ordered); i++ {
		narrower := laneRules[ordered[i-1]]
		wider := laneRules[ordered[i]]
		if len(wider) < len(narrower) {
			return fmt.Errorf("allow-list for %s is smaller than %s", ordered[i], ordered[i-1])
		}
		for j, rule := range narrower {
			if wider[j] != rule {
				return fmt.Errorf("allow-list for %s does not extend %s at rule %d", ordered[i], ordered[i-1], j)
			}
		}
	}
	return nil
}

// AllowedInLane reports whether a variable name may reach the given lane.
// Beyond the allow-list, secret-like names never reach the static lane and
// service-role credentials only ever reach workers.
func AllowedInLane(name string, lane detector.Lane) bool {
	if lane != detector.LaneWorkers && IsServiceRole(name) {
		return false
	}
	if lane == detector.LaneStatic && Classify(name) {
		return false
	}
	for _, rule := range laneRules[lane] {
		if rule.matches(name) {
			return true
		}
	}
	return false
}

// FilterForLane removes every variable the lane's allow-list does not
// permit. Removal is logged, never fatal.
func FilterForLane(logger zerolog.Logger, vars Set, lane detector.Lane) Set {
	filtered := make(Set, len(vars))
	for name, v := range vars {
		if !AllowedInLane(name, lane) {
			logger.Info().Str("name", name).Str("lane", string(lane)).Msg("dropping env var not allowed in lane")
			continue
		}
		filtered[name] = v
	}
	return filtered
}

// SynthesizePreviewDefaults supplies a placeholder value for detected but
// unsupplied variable names that are safe to fake. Secret-like and
// integration-managed names are left unset and returned as warnings
// requiring manual configuration.
func SynthesizePreviewDefaults(detectedNames []string, lane detector.Lane) (Set, []string) {
	defaults := make(Set)
	var warnings []string

	for _, name := range detectedNames {
		switch {
		case IsIntegrationManaged(name):
			warnings = append(warnings, name+" is managed by an integration and must be configured there")
		case Classify(name):
			warnings = append(warnings, name+" looks secret-like and must be configured manually")
		case !AllowedInLane(name, lane):
			warnings = append(warnings, name+" is not permitted in the "+string(lane)+" lane")
		default:
			defaults[name] = Var{Value: "preview-placeholder", Provenance: ProvenanceDetectedDefault}
		}
	}

	return defaults, warnings
}
