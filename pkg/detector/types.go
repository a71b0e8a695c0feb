package detector

// Lane is one of the three deployment execution environments.
type Lane string

const (
	LaneStatic  Lane = "static"
	LaneEdge    Lane = "edge"
	LaneWorkers Lane = "workers"
)

// Valid reports whether the lane is one of the closed enum values.
func (l Lane) Valid() bool {
	switch l {
	case LaneStatic, LaneEdge, LaneWorkers:
		return true
	}
	return false
}

// ParseLane parses a lane name, case-insensitively on the common forms.
func ParseLane(s string) (Lane, bool) {
	switch Lane(s) {
	case LaneStatic, LaneEdge, LaneWorkers:
		return Lane(s), true
	}
	return "", false
}

// Origin records the provenance of a resolution decision.
type Origin string

const (
	OriginManual    Origin = "manual"
	OriginDetection Origin = "detection"
	OriginFallback  Origin = "fallback"
)

// DetectionResult is the outcome of one lane resolution pass. Immutable
// after creation except for Switched/SwitchReason, which the orchestrator
// attaches when a build stage overrides the lane.
type DetectionResult struct {
	Lane         Lane     `json:"lane"`
	Reasons      []string `json:"reasons"`
	Notes        []string `json:"notes,omitempty"`
	Origin       Origin   `json:"origin"`
	Switched     bool     `json:"switched,omitempty"`
	SwitchReason string   `json:"switch_reason,omitempty"`
}
