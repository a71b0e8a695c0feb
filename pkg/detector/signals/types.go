package signals

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lanekit/pkg/scanner"
)

// Result is the outcome of one signal probe. Absence of files is evidence of
// absence, never an error.
type Result struct {
	Detected bool             `json:"detected"`
	Reasons  []string         `json:"reasons,omitempty"`
	Evidence []scanner.Signal `json:"evidence,omitempty"`
}

// merge folds another result into this one.
func (r *Result) merge(other Result) {
	if other.Detected {
		r.Detected = true
	}
	r.Reasons = append(r.Reasons, other.Reasons...)
	r.Evidence = append(r.Evidence, other.Evidence...)
}

// addEvidence keeps only credible signals; a match the scanning mechanism
// could not localize is not usable as evidence.
func (r *Result) addEvidence(signals []scanner.Signal) {
	for _, sig := range signals {
		if sig.Credible() {
			r.Evidence = append(r.Evidence, sig)
		}
	}
}

// Probe runs signal detection against one project root.
type Probe struct {
	root string
	scan *scanner.Scanner
}

// NewProbe creates a Probe for the given project root.
func NewProbe(root string, scan *scanner.Scanner) *Probe {
	return &Probe{root: root, scan: scan}
}

// has checks if a file exists at the given relative path
func (p *Probe) has(rel string) bool {
	_, err := os.Stat(filepath.Join(p.root, rel))
	return err == nil
}

// dirExists checks if a directory exists at the given relative path
func (p *Probe) dirExists(rel string) bool {
	fi, err := os.Stat(filepath.Join(p.root, rel))
	return err == nil && fi.IsDir()
}

// read reads a file and returns its content as a string
func (p *Probe) read(rel string) string {
	f, err := os.Open(filepath.Join(p.root, rel))
	if err != nil {
		return ""
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, 1<<20))
	if err != nil {
		return ""
	}
	return string(data)
}

// sourceGlobs are the file patterns signal scans are restricted to.
var sourceGlobs = []string{"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx", "**/*.mjs"}

// find runs a fixed-string scan and returns localized matches.
func (p *Probe) find(ctx context.Context, globs, needles []string) []scanner.Signal {
	signals, err := p.scan.Find(ctx, p.root, scanner.Query{Globs: globs, Needles: needles})
	if err != nil {
		return nil
	}
	return signals
}

// findRegex runs a regex scan and returns localized matches.
func (p *Probe) findRegex(ctx context.Context, globs, patterns []string) []scanner.Signal {
	signals, err := p.scan.Find(ctx, p.root, scanner.Query{Globs: globs, Needles: patterns, Regex: true})
	if err != nil {
		return nil
	}
	return signals
}

// quoteVariants renders a template once per quote style, e.g.
// quoteVariants("runtime = %s", "edge") -> runtime = 'edge', runtime = "edge".
func quoteVariants(template, value string) []string {
	return []string{
		strings.ReplaceAll(template, "%s", "'"+value+"'"),
		strings.ReplaceAll(template, "%s", `"`+value+`"`),
	}
}
