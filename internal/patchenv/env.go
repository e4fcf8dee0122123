// Package patchenv prepares an editable copy of an installed package, lets a
// callback edit it, and hands the result back to the package manager.
//
// Three environments exist: pnpm (pnpm patch --edit-dir), yarn berry
// (yarn patch --json) and in-place (node_modules edited directly). Select
// picks one for a detected agent.
package patchenv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"nextpatch/internal/pm"
	"nextpatch/internal/report"
	"nextpatch/internal/shell"
)

// ErrStrategyOutput is wrapped when a package manager's patch command
// produced output that does not identify a staging directory.
var ErrStrategyOutput = errors.New("unusable patch command output")

// OutputError describes why a patch command's output was rejected. Reason is
// shown to the user as is. It matches ErrStrategyOutput.
type OutputError struct {
	Reason string
	Err    error
}

func (e *OutputError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *OutputError) Unwrap() error { return e.Err }

func (e *OutputError) Is(target error) bool { return target == ErrStrategyOutput }

// Callback edits files under dir.
type Callback func(ctx context.Context, dir string) error

// Environment is one package manager's patch workflow.
type Environment interface {
	Name() string
	// Prepare materialises an editable copy of pkg and returns its path.
	Prepare(ctx context.Context, pkg string) (string, error)
	// Commit records the edits made under dir.
	Commit(ctx context.Context, dir string) error
	// Discard throws away dir after a failed edit or commit.
	Discard(ctx context.Context, dir string) error
	// CleanupOnFailure reports whether Run calls Discard on failure. When
	// false the staging directory is left for inspection.
	CleanupOnFailure() bool
}

// Config carries what environments need from the caller.
type Config struct {
	Runner shell.Runner
	// Cwd is the project directory commands run in.
	Cwd string
}

var environments = map[pm.Agent]func(Config) Environment{
	pm.AgentPnpm:      func(c Config) Environment { return NewPnpm(c) },
	pm.AgentYarnBerry: func(c Config) Environment { return NewYarn(c) },
}

// Select returns the environment for agent. Agents without a supported
// patch workflow get the in-place environment.
func Select(agent pm.Agent, cfg Config) Environment {
	if newEnv, ok := environments[agent]; ok {
		return newEnv(cfg)
	}
	return NewInPlace(cfg)
}

// Run prepares pkg in env, calls fn with the staging directory and commits
// only when fn succeeds. It never exits the process; failures are returned.
func Run(ctx context.Context, env Environment, pkg string, fn Callback) error {
	rep := report.FromContext(ctx)
	log := clog.FromContext(ctx).With("env", env.Name(), "package", pkg)

	rep.Pending("Starting to patch package: %s ...", pkg)

	start := time.Now()
	rep.Emit(report.Event{Stage: report.StagePrepare, Status: report.StatusWorking})
	dir, err := env.Prepare(ctx, pkg)
	if err != nil {
		rep.Emit(report.Event{Stage: report.StagePrepare, Status: report.StatusError, Err: err})
		return fmt.Errorf("prepare %s: %w", pkg, err)
	}
	rep.Emit(report.Event{Stage: report.StagePrepare, Status: report.StatusDone, Elapsed: time.Since(start)})
	log.Debug("staging directory ready", "dir", dir)

	start = time.Now()
	rep.Emit(report.Event{Stage: report.StagePatch, Status: report.StatusWorking})
	if err := fn(ctx, dir); err != nil {
		rep.Emit(report.Event{Stage: report.StagePatch, Status: report.StatusError, Err: err})
		discard(ctx, env, dir)
		return fmt.Errorf("patch %s: %w", pkg, err)
	}
	rep.Emit(report.Event{Stage: report.StagePatch, Status: report.StatusDone, Elapsed: time.Since(start)})

	start = time.Now()
	rep.Emit(report.Event{Stage: report.StageCommit, Status: report.StatusWorking})
	if err := env.Commit(ctx, dir); err != nil {
		rep.Emit(report.Event{Stage: report.StageCommit, Status: report.StatusError, Err: err})
		discard(ctx, env, dir)
		return fmt.Errorf("commit %s: %w", pkg, err)
	}
	rep.Emit(report.Event{Stage: report.StageCommit, Status: report.StatusDone, Elapsed: time.Since(start)})

	rep.Success("Successfully patched files")
	return nil
}

func discard(ctx context.Context, env Environment, dir string) {
	log := clog.FromContext(ctx)
	if !env.CleanupOnFailure() {
		log.Debug("leaving staging directory for inspection", "dir", dir)
		return
	}
	if err := env.Discard(ctx, dir); err != nil {
		log.Warn("failed to remove staging directory", "dir", dir, "error", err)
	}
}
