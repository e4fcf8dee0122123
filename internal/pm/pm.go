// Package pm detects which Node package manager owns a project directory.
//
// Detection inspects, in a configurable order, the install metadata left in
// node_modules, lockfiles, and the packageManager and devEngines fields of
// package.json. The first strategy that produces a result wins; directories
// are searched from the starting directory up to the filesystem root.
package pm

import (
	"fmt"
	"strings"
)

// Strategy names one way of recognising a package manager.
type Strategy string

const (
	// StrategyInstallMetadata looks at files the manager leaves after install.
	StrategyInstallMetadata Strategy = "install-metadata"
	// StrategyLockfile looks for lockfiles.
	StrategyLockfile Strategy = "lockfile"
	// StrategyPackageManagerField reads package.json "packageManager".
	StrategyPackageManagerField Strategy = "packageManager-field"
	// StrategyDevEnginesField reads package.json "devEngines.packageManager".
	StrategyDevEnginesField Strategy = "devEngines-field"
)

// DefaultStrategies is the order used when none is configured.
var DefaultStrategies = []Strategy{
	StrategyInstallMetadata,
	StrategyLockfile,
	StrategyPackageManagerField,
	StrategyDevEnginesField,
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.TrimSpace(s)) {
	case StrategyInstallMetadata:
		return StrategyInstallMetadata, nil
	case StrategyLockfile:
		return StrategyLockfile, nil
	case StrategyPackageManagerField:
		return StrategyPackageManagerField, nil
	case StrategyDevEnginesField:
		return StrategyDevEnginesField, nil
	default:
		return "", fmt.Errorf("invalid detection strategy %q (expected install-metadata|lockfile|packageManager-field|devEngines-field)", s)
	}
}

// Agent identifies a package manager flavour. Yarn 2+ and pnpm before 7
// get their own agents because their patch commands differ.
type Agent string

const (
	AgentNpm       Agent = "npm"
	AgentYarn      Agent = "yarn"
	AgentYarnBerry Agent = "yarn@berry"
	AgentPnpm      Agent = "pnpm"
	AgentPnpm6     Agent = "pnpm@6"
	AgentBun       Agent = "bun"
	AgentDeno      Agent = "deno"
)

var knownNames = map[string]Agent{
	"npm":  AgentNpm,
	"yarn": AgentYarn,
	"pnpm": AgentPnpm,
	"bun":  AgentBun,
	"deno": AgentDeno,
}

// Result is a successful detection.
type Result struct {
	// Name is the manager binary name (npm, yarn, pnpm, bun, deno).
	Name  string
	Agent Agent
	// Version is the declared version, when a manifest field supplied one.
	Version string
	// Dir is the directory where the evidence was found.
	Dir      string
	Strategy Strategy
}

// Options configures Detect.
type Options struct {
	// Cwd is where the upward search starts. Empty means ".".
	Cwd string
	// StopDir ends the search after this directory has been inspected.
	StopDir    string
	Strategies []Strategy
}
