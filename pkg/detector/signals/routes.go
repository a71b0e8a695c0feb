package signals

import (
	"bytes"
	"context"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// apiRouteGlobs are the two canonical route-file naming conventions: app
// router route handlers and pages router API files.
var apiRouteGlobs = []string{
	"app/**/route.ts",
	"app/**/route.js",
	"src/app/**/route.ts",
	"src/app/**/route.js",
	"pages/api/**/*.ts",
	"pages/api/**/*.js",
	"src/pages/api/**/*.ts",
	"src/pages/api/**/*.js",
}

// APIRouteFiles enumerates API route files, preferring the tracked-file list
// and falling back to a filesystem walk.
func (p *Probe) APIRouteFiles(ctx context.Context) []string {
	files, ok := p.gitTrackedFiles(ctx)
	if !ok {
		files = p.walkFiles()
	}

	var routes []string
	for _, rel := range files {
		rel = filepath.ToSlash(rel)
		for _, glob := range apiRouteGlobs {
			if ok, err := doublestar.Match(glob, rel); err == nil && ok {
				routes = append(routes, rel)
				break
			}
		}
	}
	return routes
}

func (p *Probe) gitTrackedFiles(ctx context.Context) ([]string, bool) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, false
	}

	cmd := exec.CommandContext(ctx, "git", "-C", p.root, "ls-files")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, false
	}

	var files []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, true
}

func (p *Probe) walkFiles() []string {
	var files []string
	_ = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		base := filepath.Base(path)
		if d.IsDir() {
			if path != p.root && (strings.HasPrefix(base, ".") || base == "node_modules" || base == "dist" || base == "build") {
				return filepath.SkipDir
			}
			return nil
		}
		if rel, relErr := filepath.Rel(p.root, path); relErr == nil {
			files = append(files, rel)
		}
		return nil
	})
	return files
}
