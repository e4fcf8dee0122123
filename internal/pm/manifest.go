package pm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/chainguard-dev/clog"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fromManifest reads the package manager declared in package.json. Only the
// fields whose strategies are listed are consulted, packageManager first.
// A missing or unparsable package.json declares nothing.
func fromManifest(ctx context.Context, path string, strategies []Strategy) (Result, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, false, nil
		}
		return Result{}, false, fmt.Errorf("failed to read %q: %w", path, err)
	}
	var manifest map[string]any
	if err := json.Unmarshal(data, &manifest); err != nil {
		clog.FromContext(ctx).Debug("ignoring unparsable package.json", "path", path, "error", err)
		return Result{}, false, nil
	}

	if slices.Contains(strategies, StrategyPackageManagerField) {
		if spec, ok := manifest["packageManager"].(string); ok {
			name, version, _ := strings.Cut(strings.TrimPrefix(spec, "^"), "@")
			return agentFor(name, version)
		}
	}
	if slices.Contains(strategies, StrategyDevEnginesField) {
		if engines, ok := manifest["devEngines"].(map[string]any); ok {
			if decl, ok := engines["packageManager"].(map[string]any); ok {
				if name, ok := decl["name"].(string); ok {
					version, _ := decl["version"].(string)
					return agentFor(name, version)
				}
			}
		}
	}
	return Result{}, false, nil
}

// agentFor maps a declared name and version to an agent. Unknown managers
// produce no result.
func agentFor(name, version string) (Result, bool, error) {
	major, hasMajor := majorVersion(version)
	res := Result{Name: name, Version: version}
	switch {
	case name == "yarn" && hasMajor && major > 1:
		res.Agent = AgentYarnBerry
		res.Version = "berry"
	case name == "pnpm" && hasMajor && major < 7:
		res.Agent = AgentPnpm6
	default:
		agent, ok := knownNames[name]
		if !ok {
			return Result{}, false, nil
		}
		res.Agent = agent
	}
	return res, true, nil
}

// majorVersion accepts full versions ("4.1.0+sha512.abc") and ranges or
// prefixes ("^9", "8.x") by falling back to the leading number.
func majorVersion(version string) (uint64, bool) {
	version = strings.TrimSpace(version)
	if version == "" {
		return 0, false
	}
	if v, err := semver.NewVersion(version); err == nil {
		return v.Major(), true
	}
	trimmed := strings.TrimLeft(version, "^~=v ")
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	major, err := strconv.ParseUint(trimmed[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return major, true
}
