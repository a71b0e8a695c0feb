package envguard

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// envFileCandidates are checked in priority order; the first file found is
// the one loaded.
var envFileCandidates = []string{
	".env.production",
	".env.prod",
	".env",
	".dev.vars",
}

// FindEnvFile returns the path of the first env file present in the project,
// or an empty string.
func FindEnvFile(root string) string {
	for _, candidate := range envFileCandidates {
		path := filepath.Join(root, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadEnvFile parses a dotenv-style file into a Set with supplied
// provenance.
func LoadEnvFile(path string) (Set, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}

	set := make(Set)
	for _, key := range cfg.Section(ini.DefaultSection).Keys() {
		set[key.Name()] = Var{Value: key.String(), Provenance: ProvenanceSupplied}
	}
	return set, nil
}

// LoadProjectEnv loads the project's env file if one exists; a missing file
// yields an empty set.
func LoadProjectEnv(root string) (Set, error) {
	path := FindEnvFile(root)
	if path == "" {
		return Set{}, nil
	}
	return LoadEnvFile(path)
}

// exampleFileCandidates declare variable names the application expects
// without carrying real values.
var exampleFileCandidates = []string{
	".env.example",
	".env.template",
	".env.sample",
}

// DeclaredNames returns variable names declared in the project's env example
// file. These are the names eligible for preview-default synthesis when no
// real value was supplied.
func DeclaredNames(root string) []string {
	for _, candidate := range exampleFileCandidates {
		path := filepath.Join(root, candidate)
		cfg, err := ini.LoadSources(ini.LoadOptions{
			SkipUnrecognizableLines: true,
		}, path)
		if err != nil {
			continue
		}

		var names []string
		for _, key := range cfg.Section(ini.DefaultSection).Keys() {
			names = append(names, key.Name())
		}
		return names
	}
	return nil
}
