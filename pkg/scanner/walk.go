package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// skipDirs are dependency and build-output directories never worth scanning.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"coverage":     true,
}

// walkStrategy is the last tier: walk the tree directly, skipping hidden and
// dependency directories, and line-scan every remaining file.
type walkStrategy struct{}

func (w *walkStrategy) Name() string { return "fs-walk" }

func (w *walkStrategy) Scan(ctx context.Context, root string, q Query) ([]Signal, error) {
	var rels []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		base := filepath.Base(p)
		if d.IsDir() {
			if p != root && (strings.HasPrefix(base, ".") || skipDirs[base]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return scanFiles(root, rels, q)
}
