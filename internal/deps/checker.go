// Package deps checks that the external collaborators (generator and
// formatter) can be found before a run.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentstation/lithic/internal/process"
	"github.com/agentstation/lithic/pkg/errors"
)

// Dependency is one external executable lithic shells out to.
type Dependency struct {
	// Name is the role ("generator", "formatter").
	Name string
	// Command is the configured command line; its first word is looked up.
	Command string
	// MinVersion, when set, is compared with the version the tool reports.
	MinVersion string
}

// Status is the outcome of checking one Dependency.
type Status struct {
	Dependency Dependency
	Available  bool
	Path       string
	Version    string
	Err        error
}

// Check looks up dep on PATH and, when MinVersion is set, checks its version.
func Check(ctx context.Context, dep Dependency) Status {
	status := Status{Dependency: dep}

	words, err := process.Split(dep.Command)
	if err != nil {
		status.Err = err
		return status
	}
	if len(words) == 0 {
		status.Err = errors.NewValidationError(dep.Name, dep.Command, "command is empty")
		return status
	}

	path, err := exec.LookPath(words[0])
	if err != nil {
		status.Err = errors.NewNotFoundError("executable", words[0])
		return status
	}
	status.Available = true
	status.Path = path

	if dep.MinVersion == "" {
		return status
	}
	version, err := getVersion(ctx, path)
	if err != nil {
		status.Err = fmt.Errorf("found %s but could not detect version: %w", words[0], err)
		return status
	}
	status.Version = version
	if !meetsMinVersion(version, dep.MinVersion) {
		status.Err = fmt.Errorf("found %s version %s but requires %s or later", words[0], version, dep.MinVersion)
	}
	return status
}

// CheckAll checks every dependency in order.
func CheckAll(ctx context.Context, deps ...Dependency) []Status {
	out := make([]Status, 0, len(deps))
	for _, dep := range deps {
		out = append(out, Check(ctx, dep))
	}
	return out
}

// Missing returns the statuses that are unavailable or failed their check.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available || s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// getVersion runs the tool's --version and extracts a semantic version.
func getVersion(ctx context.Context, path string) (string, error) {
	//nolint:gosec // path comes from operator configuration
	output, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", err
	}
	if version := extractVersion(string(output)); version != "" {
		return version, nil
	}
	return "", fmt.Errorf("could not determine version from %q", strings.TrimSpace(string(output)))
}

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// extractVersion finds the first version number such as 1.2.3 or v0.4.
func extractVersion(output string) string {
	if m := versionPattern.FindStringSubmatch(output); len(m) > 1 {
		return m[1]
	}
	return ""
}

// meetsMinVersion compares dotted numeric versions part by part.
func meetsMinVersion(detected, required string) bool {
	d := strings.Split(strings.TrimPrefix(detected, "v"), ".")
	r := strings.Split(strings.TrimPrefix(required, "v"), ".")
	for i := range r {
		var dn int
		if i < len(d) {
			dn, _ = strconv.Atoi(d[i])
		}
		rn, _ := strconv.Atoi(r[i])
		if dn != rn {
			return dn > rn
		}
	}
	return true
}
