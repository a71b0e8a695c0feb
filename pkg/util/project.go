package util

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidateProjectPath validates and cleans a project path
// Returns the cleaned absolute path or an error
func ValidateProjectPath(projectPath string) (string, error) {
	projectPath = filepath.Clean(projectPath)

	info, err := os.Stat(projectPath)
	if err != nil {
		return "", fmt.Errorf("cannot access path '%s': %w", projectPath, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("path '%s' is not a directory", projectPath)
	}

	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return projectPath, nil // Return cleaned path if we can't get absolute
	}

	return absPath, nil
}

var projectNameRe = regexp.MustCompile(`[^a-z0-9-]+`)

// ProjectNameFromPath derives a deployable project name. The git remote repo
// name wins over the directory basename because checkouts are often renamed
// locally; deployment URLs should match the canonical repo.
func ProjectNameFromPath(projectPath string) string {
	name := filepath.Base(projectPath)
	if repo, err := remoteRepoName(projectPath); err == nil && repo != "" {
		name = repo
	}
	return SanitizeProjectName(name)
}

// SanitizeProjectName lowercases a name and squashes anything outside
// [a-z0-9-] into single dashes, matching platform project-name rules.
func SanitizeProjectName(name string) string {
	name = strings.ToLower(name)
	name = projectNameRe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "app"
	}
	return name
}

// remoteRepoName extracts the repository name from the git remote origin URL.
// Supports both SSH (git@host:org/repo.git) and HTTPS formats.
func remoteRepoName(projectPath string) (string, error) {
	if info, err := os.Stat(filepath.Join(projectPath, ".git")); err != nil || !info.IsDir() {
		return "", fmt.Errorf("not a git repository: %s", projectPath)
	}

	cmd := exec.Command("git", "-C", projectPath, "config", "--get", "remote.origin.url")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git remote URL: %w", err)
	}

	remoteURL := strings.TrimSpace(string(output))
	if remoteURL == "" {
		return "", fmt.Errorf("no remote origin URL configured")
	}

	remoteURL = strings.TrimSuffix(remoteURL, ".git")
	if idx := strings.LastIndexAny(remoteURL, "/:"); idx >= 0 {
		remoteURL = remoteURL[idx+1:]
	}
	return remoteURL, nil
}
