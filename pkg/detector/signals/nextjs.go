package signals

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PackageJSON represents the parsed package.json fields detection cares about.
type PackageJSON struct {
	Scripts      map[string]string `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
	DevDeps      map[string]string `json:"devDependencies"`
}

// NextIdentity describes the detected framework.
type NextIdentity struct {
	IsNext  bool
	Major   int    // 0 when the version could not be parsed
	Version string // raw version constraint from package.json
}

// nextConfigFiles are the configuration files checked, first hit wins.
var nextConfigFiles = []string{
	"next.config.js",
	"next.config.ts",
	"next.config.mjs",
}

// ParsePackageJSON reads and parses the project's package.json.
func (p *Probe) ParsePackageJSON() PackageJSON {
	content := p.read("package.json")
	if content == "" {
		return PackageJSON{}
	}

	var pkg PackageJSON
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return PackageJSON{}
	}
	return pkg
}

// Framework identifies whether the project is Next.js and which major
// version it pins.
func (p *Probe) Framework() NextIdentity {
	pkg := p.ParsePackageJSON()

	version := pkg.Dependencies["next"]
	if version == "" {
		version = pkg.DevDeps["next"]
	}
	if version == "" {
		// a config file without the dep still identifies the framework
		for _, configFile := range nextConfigFiles {
			if p.has(configFile) {
				return NextIdentity{IsNext: true}
			}
		}
		return NextIdentity{}
	}

	return NextIdentity{
		IsNext:  true,
		Major:   parseMajor(version),
		Version: version,
	}
}

// parseMajor extracts the major version from a semver constraint like
// "^15.0.2", "~14.1", ">=15", or "15.x".
func parseMajor(constraint string) int {
	v := strings.TrimSpace(constraint)
	v = strings.TrimLeft(v, "^~>=< v")
	if idx := strings.IndexAny(v, ". -"); idx > 0 {
		v = v[:idx]
	}
	major, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return major
}

// readNextConfig returns the contents of the first next.config file found.
func (p *Probe) readNextConfig() string {
	for _, configFile := range nextConfigFiles {
		if content := p.read(configFile); content != "" {
			return content
		}
	}
	return ""
}

// ForeignBuildTool reports a build tool identity other than Next.js: another
// framework's config file, or generic static-site artifacts.
func (p *Probe) ForeignBuildTool() Result {
	var result Result

	if p.Framework().IsNext {
		return result
	}

	foreign := map[string]string{
		"astro.config.mjs": "Astro",
		"astro.config.ts":  "Astro",
		"gatsby-config.js": "Gatsby",
		"gatsby-config.ts": "Gatsby",
		"vite.config.js":   "Vite",
		"vite.config.ts":   "Vite",
		"_config.yml":      "Jekyll",
		"hugo.toml":        "Hugo",
		"svelte.config.js": "SvelteKit",
		"nuxt.config.ts":   "Nuxt",
	}
	for file, tool := range foreign {
		if p.has(file) {
			result.Detected = true
			result.Reasons = append(result.Reasons, tool+" project ("+file+") builds to static assets")
			return result
		}
	}

	if p.has("index.html") {
		result.Detected = true
		result.Reasons = append(result.Reasons, "plain index.html at project root")
		return result
	}
	for _, dir := range []string{"public", "dist"} {
		if p.has(dir + "/index.html") {
			result.Detected = true
			result.Reasons = append(result.Reasons, "prebuilt static output in "+dir+"/")
			return result
		}
	}

	return result
}
