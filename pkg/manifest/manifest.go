package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lanekit/pkg/config"
	"lanekit/pkg/detector"

	"github.com/go-playground/validator/v10"
)

// Manifest is the persisted record of one lane resolution, consumed by the
// build/deploy stage which may run in a different process invocation. A new
// resolution supersedes the file wholesale; manifests are never merged.
type Manifest struct {
	Target       detector.Lane   `json:"target" validate:"required,oneof=static edge workers"`
	Reasons      []string        `json:"reasons" validate:"required,min=1"`
	Notes        []string        `json:"notes,omitempty"`
	Origin       detector.Origin `json:"origin" validate:"required,oneof=manual detection fallback"`
	Timestamp    time.Time       `json:"timestamp" validate:"required"`
	Version      int             `json:"version" validate:"required,min=1"`
	Switched     bool            `json:"switched,omitempty"`
	SwitchReason string          `json:"switch_reason,omitempty"`
}

var validate = validator.New()

// FromDetection builds a manifest from a resolution result.
func FromDetection(result detector.DetectionResult) *Manifest {
	return &Manifest{
		Target:       result.Lane,
		Reasons:      result.Reasons,
		Notes:        result.Notes,
		Origin:       result.Origin,
		Timestamp:    time.Now().UTC(),
		Version:      config.ManifestVersion,
		Switched:     result.Switched,
		SwitchReason: result.SwitchReason,
	}
}

// Detection converts the manifest back into a resolution result.
func (m *Manifest) Detection() detector.DetectionResult {
	return detector.DetectionResult{
		Lane:         m.Target,
		Reasons:      m.Reasons,
		Notes:        m.Notes,
		Origin:       m.Origin,
		Switched:     m.Switched,
		SwitchReason: m.SwitchReason,
	}
}

// Path returns the manifest location for a project root.
func Path(root string) string {
	return filepath.Join(root, config.LocalStateDir, config.ManifestFile)
}

// Save writes the manifest and flushes it to disk. The build stage may run
// in another process, so the write must be durable before it is consumed.
func (m *Manifest) Save(root string) error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("refusing to persist invalid manifest: %w", err)
	}

	dir := filepath.Join(root, config.LocalStateDir)
	if err := os.MkdirAll(dir, config.PermDirectory); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := Path(root)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.PermManifestFile)
	if err != nil {
		return fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush manifest: %w", err)
	}

	return nil
}

// Load reads and validates the manifest for a project root.
func Load(root string) (*Manifest, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("manifest failed validation: %w", err)
	}

	return &m, nil
}
