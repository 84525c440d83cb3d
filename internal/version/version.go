// Package version reports the dsx2talend binary's build metadata together
// with the Talend product line its generated projects target. Version,
// GitCommit, and BuildDate are injected at compile time via -ldflags.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/hupe1980/dsx2talend/internal/project"
)

// Build-time values injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary plus the generation target.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`

	// TalendProduct is the product line stamped into generated projects.
	// Imports fail in Studio versions older than TalendMigrationFloor.
	TalendProduct        string `json:"talendProduct"`
	TalendMigrationFloor string `json:"talendMigrationFloor"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return Info{
		Version:              version,
		GitCommit:            shortCommit(gitCommit),
		BuildDate:            buildDate,
		GoVersion:            runtime.Version(),
		Platform:             fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		TalendProduct:        project.ProductFullname + " " + project.ProductVersion,
		TalendMigrationFloor: project.MigrationBreaks,
	}
}

// String renders a two-line human-readable report: the build identity and
// the Talend target.
func (i Info) String() string {
	return fmt.Sprintf("dsx2talend %s (commit %s, built %s) %s %s\ntargets %s (migration floor %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform,
		i.TalendProduct, i.TalendMigrationFloor)
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

// shortCommit truncates a commit SHA to 7 characters.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
