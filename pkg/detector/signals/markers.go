package signals

import (
	"context"
	"regexp"
	"strings"
)

// middlewareFiles are the edge-bound entry points checked for existence.
var middlewareFiles = []string{
	"middleware.ts",
	"middleware.js",
	"src/middleware.ts",
	"src/middleware.js",
}

// buildLogFiles are prior build artifacts that can carry edge-runtime tokens.
var buildLogFiles = []string{
	".next/server/middleware-manifest.json",
	".vercel/output/config.json",
}

var (
	edgeRuntimeRe   = regexp.MustCompile(`runtime\s*[:=]\s*["']edge["']`)
	nodejsRuntimeRe = regexp.MustCompile(`runtime\s*[:=]\s*["']nodejs["']`)
)

// EdgeMarkers detects explicit edge-runtime declarations, a middleware entry
// file, or edge tokens left in prior build output.
func (p *Probe) EdgeMarkers(ctx context.Context) Result {
	var result Result

	needles := append(
		quoteVariants("runtime = %s", "edge"),
		quoteVariants("runtime: %s", "edge")...,
	)
	matches := p.find(ctx, sourceGlobs, needles)
	if len(matches) == 0 {
		// formatting variance: fall back to the regex pass
		matches = p.findRegex(ctx, sourceGlobs, []string{edgeRuntimeRe.String()})
	}
	if len(matches) > 0 {
		result.Detected = true
		result.Reasons = append(result.Reasons, "explicit edge runtime declaration in source")
		result.addEvidence(matches)
	}

	for _, file := range middlewareFiles {
		if p.has(file) {
			result.Detected = true
			result.Reasons = append(result.Reasons, "middleware entry file "+file)
			break
		}
	}

	for _, file := range buildLogFiles {
		content := p.read(file)
		if content == "" {
			continue
		}
		if strings.Contains(content, `"edge"`) || strings.Contains(content, "edge-runtime") {
			result.Detected = true
			result.Reasons = append(result.Reasons, "edge tokens in prior build output ("+file+")")
			break
		}
	}

	return result
}

// WorkersDirectives detects explicit declarations that require the full
// server runtime: a non-edge runtime declaration, or force-dynamic/no-store
// directives.
func (p *Probe) WorkersDirectives(ctx context.Context) Result {
	var result Result

	needles := append(
		quoteVariants("runtime = %s", "nodejs"),
		quoteVariants("runtime: %s", "nodejs")...,
	)
	if matches := p.find(ctx, sourceGlobs, needles); len(matches) > 0 {
		result.Detected = true
		result.Reasons = append(result.Reasons, "explicit nodejs runtime declaration in source")
		result.addEvidence(matches)
	}

	directives := append(
		quoteVariants("dynamic = %s", "force-dynamic"),
		quoteVariants("fetchCache = %s", "force-no-store")...,
	)
	if matches := p.find(ctx, sourceGlobs, directives); len(matches) > 0 {
		result.Detected = true
		result.Reasons = append(result.Reasons, "force-dynamic/no-store directive in source")
		result.addEvidence(matches)
	}

	return result
}

// DeclaresEdgeRuntime reports whether the given source file explicitly
// declares the edge runtime.
func (p *Probe) DeclaresEdgeRuntime(rel string) bool {
	return edgeRuntimeRe.MatchString(p.read(rel))
}

// DeclaresNodeRuntime reports whether the given source file explicitly
// declares the nodejs runtime.
func (p *Probe) DeclaresNodeRuntime(rel string) bool {
	return nodejsRuntimeRe.MatchString(p.read(rel))
}

// Revalidation detects incremental static regeneration markers.
func (p *Probe) Revalidation(ctx context.Context) Result {
	var result Result

	needles := []string{
		"export const revalidate",
		"res.revalidate(",
		"revalidatePath(",
		"revalidateTag(",
		"next: { revalidate",
	}
	if matches := p.find(ctx, sourceGlobs, needles); len(matches) > 0 {
		result.Detected = true
		result.Reasons = append(result.Reasons, "incremental static regeneration markers in source")
		result.addEvidence(matches)
	}

	return result
}

// StaticExport detects the static-export output mode in the Next config.
func (p *Probe) StaticExport(ctx context.Context) Result {
	var result Result

	content := p.readNextConfig()
	if content == "" {
		return result
	}

	for _, needle := range append(quoteVariants("output: %s", "export"), quoteVariants("output:%s", "export")...) {
		if strings.Contains(content, needle) {
			result.Detected = true
			result.Reasons = append(result.Reasons, "next config declares output: 'export'")
			return result
		}
	}

	return result
}

// PartialPrerendering detects PPR flags in the Next config or route files.
func (p *Probe) PartialPrerendering(ctx context.Context) Result {
	var result Result

	content := p.readNextConfig()
	if strings.Contains(content, "ppr: true") || strings.Contains(content, "ppr: 'incremental'") ||
		strings.Contains(content, `ppr: "incremental"`) {
		result.Detected = true
		result.Reasons = append(result.Reasons, "partial prerendering enabled in next config")
	}

	if matches := p.find(ctx, sourceGlobs, []string{"export const experimental_ppr"}); len(matches) > 0 {
		result.Detected = true
		result.Reasons = append(result.Reasons, "experimental_ppr flag in route files")
		result.addEvidence(matches)
	}

	return result
}
