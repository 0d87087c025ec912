package common

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Build metadata, set with -ldflags "-X github.com/bobmcallan/prism/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is the payload served by /api/version
type VersionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

func GetVersion() string   { return Version }
func GetBuild() string     { return Build }
func GetGitCommit() string { return GitCommit }

// GetVersionInfo returns the current build metadata
func GetVersionInfo() VersionInfo {
	return VersionInfo{Version: Version, Build: Build, Commit: GitCommit}
}

// GetFullVersion returns a formatted version string with all build info
func GetFullVersion() string {
	return fmt.Sprintf("prism %s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile reads a .version file next to the executable.
// File values only replace fields still at their defaults.
func LoadVersionFromFile() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	f, err := os.Open(filepath.Join(filepath.Dir(exe), ".version"))
	if err != nil {
		return
	}
	defer f.Close()

	applyVersionFields(parseVersionFile(f))
}

// parseVersionFile reads "key: value" lines, ignoring blanks and # comments.
func parseVersionFile(r io.Reader) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return fields
}

func applyVersionFields(fields map[string]string) {
	if v, ok := fields["version"]; ok && Version == "dev" {
		Version = v
	}
	if v, ok := fields["build"]; ok && Build == "unknown" {
		Build = v
	}
	if v, ok := fields["commit"]; ok && GitCommit == "unknown" {
		GitCommit = v
	}
}
