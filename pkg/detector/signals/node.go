package signals

import (
	"context"
	"strings"
)

// nodeBuiltins are the OS/process/filesystem/crypto-style modules that only
// exist in the full server runtime.
var nodeBuiltins = []string{
	"fs",
	"path",
	"os",
	"crypto",
	"child_process",
	"net",
	"tls",
	"dns",
	"http",
	"https",
	"stream",
	"zlib",
	"worker_threads",
	"v8",
	"perf_hooks",
}

// nodeImportPattern matches require() and ES import forms of the builtins,
// with or without the node: prefix.
var nodeImportPattern = `(?:require\(|from\s+)["'](?:node:)?(?:` +
	strings.Join(nodeBuiltins, "|") + `)(?:/promises)?["']`

// NodeBuiltins detects imports of Node-only built-in modules anywhere in
// source. Escalated holds the subset of evidence found inside edge-bound
// files (middleware or edge-declaring routes); that combination is an
// unconditional workers requirement.
type NodeBuiltins struct {
	Result
	Escalated Result
}

// NodeBuiltinImports scans for Node-only built-in usage.
func (p *Probe) NodeBuiltinImports(ctx context.Context) NodeBuiltins {
	var out NodeBuiltins

	matches := p.findRegex(ctx, sourceGlobs, []string{nodeImportPattern})
	if len(matches) == 0 {
		return out
	}

	out.Detected = true
	out.Reasons = append(out.Reasons, "Node-only built-in module imports in source")
	out.addEvidence(matches)

	for _, sig := range out.Evidence {
		if p.isEdgeBound(sig.File) {
			out.Escalated.Detected = true
			out.Escalated.Reasons = append(out.Escalated.Reasons,
				"Node-only built-in used inside edge-bound file "+sig.File)
			out.Escalated.Evidence = append(out.Escalated.Evidence, sig)
		}
	}

	return out
}

// isEdgeBound reports whether the file executes inside the edge runtime:
// a middleware entry point or a file that declares the edge runtime itself.
func (p *Probe) isEdgeBound(rel string) bool {
	for _, file := range middlewareFiles {
		if rel == file {
			return true
		}
	}
	return p.DeclaresEdgeRuntime(rel)
}
