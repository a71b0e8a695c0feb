package config

import "time"

// Timeouts & Durations
const (
	// DefaultScanTimeout bounds a single pattern-scan invocation
	DefaultScanTimeout = 30 * time.Second

	// DefaultBuildTimeout bounds one build tool invocation
	DefaultBuildTimeout = 10 * time.Minute

	// DefaultDeployTimeout bounds one platform deploy invocation
	DefaultDeployTimeout = 10 * time.Minute

	// DefaultStaticBuildTimeout bounds the fallback static export build
	DefaultStaticBuildTimeout = 8 * time.Minute
)

// File Permissions
const (
	// PermDirectory is the file permission for created directories
	PermDirectory = 0755

	// PermManifestFile is the file permission for the deployment manifest
	PermManifestFile = 0644

	// PermSourceFile is the file permission used when rewriting source files
	PermSourceFile = 0644
)

// Path Constants - Project
const (
	// LocalStateDir is the directory inside a project holding lanekit state
	LocalStateDir = ".lanekit"

	// ManifestFile is the filename of the persisted deployment manifest
	ManifestFile = "manifest.json"
)

// ManifestVersion is the schema version written into new manifests.
const ManifestVersion = 2

// OverrideFiles are the manual override documents, checked in order; the
// first file that exists and carries a recognized key wins.
var OverrideFiles = []string{
	"lanekit.json",
	".lanekit.json",
	"deploy-target.json",
}

// OverrideKeys are the historically-supported key names inside an override
// document, checked in order within one file.
var OverrideKeys = []string{
	"lane",
	"deployTarget",
	"target",
}

// EnvOverride is the environment variable consulted after all override files
// are exhausted.
const EnvOverride = "LANEKIT_LANE"

// Output retention for streamed external command output.
const (
	// MaxRetainedOutput caps how much combined tool output is kept in memory
	MaxRetainedOutput = 256 * 1024

	// DiagnosticOutputLines is how many trailing lines are surfaced on failure
	DiagnosticOutputLines = 30
)

// WorkersPinnedNextMajor is the lowest Next.js major version that is pinned to
// the workers lane by policy; the edge build chain does not support it.
const WorkersPinnedNextMajor = 15
