// Package version holds build information for the nextpatch CLI.
// The variables can be overridden at build time via -ldflags.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Pretty returns Version with its major, minor and patch numbers colored.
// A Version that is not valid semver is returned unchanged.
func Pretty() string {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return Version
	}
	out := majorColor.Sprint(v.Major()) + "." + minorColor.Sprint(v.Minor()) + "." + patchColor.Sprint(v.Patch())
	if pre := v.Prerelease(); pre != "" {
		out += "-" + pre
	}
	if meta := v.Metadata(); meta != "" {
		out += "+" + meta
	}
	return out
}

// Info is the machine-readable build description.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Current returns the build description.
func Current() Info {
	return Info{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
}

// String renders the one-line human form, e.g. "nextpatch 0.1.0 (abc123, 2024-01-15)".
func (i Info) String() string {
	switch {
	case i.GitCommit != "" && i.BuildDate != "":
		return fmt.Sprintf("nextpatch %s (%s, %s)", i.Version, i.GitCommit, i.BuildDate)
	case i.GitCommit != "":
		return fmt.Sprintf("nextpatch %s (%s)", i.Version, i.GitCommit)
	default:
		return "nextpatch " + i.Version
	}
}
