package heal

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"lanekit/pkg/config"

	"github.com/rs/zerolog"
)

// Report lists what the heal pass changed.
type Report struct {
	ChangedFiles []string
}

var (
	// canonical export form: export const runtime = 'edge'
	exportEdgeRe = regexp.MustCompile(`(export\s+const\s+runtime\s*=\s*)["']edge["']`)

	// older configuration-object form: export const config = { runtime: 'edge' }
	configEdgeRe = regexp.MustCompile(`(runtime\s*:\s*)["']edge["']`)

	// static-export flag, with an optional trailing comma
	outputExportRe = regexp.MustCompile(`output\s*:\s*["']export["']\s*,?\s*`)
)

var sourceExts = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
}

// Run rewrites edge-runtime declarations to the privileged runtime and
// makes auxiliary configuration coherent with the workers lane. The pass is
// idempotent and best-effort: individual patch failures are logged, not
// fatal, since the caller re-validates afterwards anyway.
func Run(root string, logger zerolog.Logger) (*Report, error) {
	report := &Report{}

	for _, rel := range sourceFiles(root) {
		changed, err := rewriteRuntime(filepath.Join(root, rel))
		if err != nil {
			logger.Warn().Err(err).Str("file", rel).Msg("could not patch runtime declaration")
			continue
		}
		if changed {
			logger.Info().Str("file", rel).Msg("rewrote edge runtime declaration to nodejs")
			report.ChangedFiles = append(report.ChangedFiles, rel)
		}
	}

	if changed, err := ensureNodeTypes(root); err != nil {
		logger.Warn().Err(err).Msg("could not patch tsconfig types")
	} else if changed {
		report.ChangedFiles = append(report.ChangedFiles, "tsconfig.json")
	}

	if rel, changed, err := stripStaticExport(root); err != nil {
		logger.Warn().Err(err).Msg("could not strip static-export flag")
	} else if changed {
		report.ChangedFiles = append(report.ChangedFiles, rel)
	}

	return report, nil
}

// rewriteRuntime patches both declaration forms in one file.
func rewriteRuntime(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	content := string(data)
	patched := exportEdgeRe.ReplaceAllString(content, `${1}"nodejs"`)
	patched = configEdgeRe.ReplaceAllString(patched, `${1}"nodejs"`)
	if patched == content {
		return false, nil
	}

	if err := os.WriteFile(path, []byte(patched), config.PermSourceFile); err != nil {
		return false, err
	}
	return true, nil
}

// ensureNodeTypes adds the privileged runtime's ambient types to the
// tsconfig types list. A tsconfig that cannot be parsed (comments, trailing
// commas) is left alone.
func ensureNodeTypes(root string) (bool, error) {
	path := filepath.Join(root, "tsconfig.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, nil
	}

	var compilerOptions map[string]json.RawMessage
	if raw, ok := doc["compilerOptions"]; ok {
		if err := json.Unmarshal(raw, &compilerOptions); err != nil {
			return false, nil
		}
	} else {
		compilerOptions = map[string]json.RawMessage{}
	}

	var types []string
	if raw, ok := compilerOptions["types"]; ok {
		if err := json.Unmarshal(raw, &types); err != nil {
			return false, nil
		}
	}
	for _, t := range types {
		if t == "node" {
			return false, nil
		}
	}
	types = append(types, "node")

	typesRaw, err := json.Marshal(types)
	if err != nil {
		return false, err
	}
	compilerOptions["types"] = typesRaw

	optionsRaw, err := json.Marshal(compilerOptions)
	if err != nil {
		return false, err
	}
	doc["compilerOptions"] = optionsRaw

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, out, config.PermSourceFile); err != nil {
		return false, err
	}
	return true, nil
}

// stripStaticExport removes the static-export output mode from the next
// config; it is mutually exclusive with the workers lane.
func stripStaticExport(root string) (string, bool, error) {
	for _, rel := range []string{"next.config.js", "next.config.ts", "next.config.mjs"} {
		path := filepath.Join(root, rel)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		content := string(data)
		patched := outputExportRe.ReplaceAllString(content, "")
		if patched == content {
			return rel, false, nil
		}
		if err := os.WriteFile(path, []byte(patched), config.PermSourceFile); err != nil {
			return rel, false, err
		}
		return rel, true, nil
	}
	return "", false, nil
}

func sourceFiles(root string) []string {
	var rels []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		base := filepath.Base(path)
		if d.IsDir() {
			if path != root && (strings.HasPrefix(base, ".") || base == "node_modules" || base == "dist" || base == "build") {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExts[filepath.Ext(path)] {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			rels = append(rels, filepath.ToSlash(rel))
		}
		return nil
	})
	return rels
}
