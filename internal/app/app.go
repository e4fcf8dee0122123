// Package app runs one patch of the target package: it detects the package
// manager, picks the matching patch environment, applies the file patches
// inside it and records the outcome.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chainguard-dev/clog"

	"nextpatch/internal/config"
	"nextpatch/internal/journal"
	"nextpatch/internal/observ"
	"nextpatch/internal/patch"
	"nextpatch/internal/patchenv"
	"nextpatch/internal/pm"
	"nextpatch/internal/report"
	"nextpatch/internal/shell"
)

// Options configures Run.
type Options struct {
	// Dir is the project directory. Empty means the current directory.
	Dir string
	// Config is used as is when set; otherwise Run loads it from Dir.
	Config *config.Config
	// DryRun patches node_modules in check mode: nothing is written and the
	// package manager is not asked to stage or commit anything.
	DryRun bool
	// StopDir bounds the upward package manager search.
	StopDir string

	Runner  shell.Runner
	Journal *journal.Store
	Timer   *observ.Timer
}

// LoadConfig loads configuration for dir, or from path when given.
func LoadConfig(ctx context.Context, dir, path string) (*config.Config, error) {
	cfg, err := config.Load(ctx, config.Options{Dir: dir, Path: path})
	if err != nil {
		return nil, &Failure{Kind: KindConfig, Message: "Invalid configuration", Err: err}
	}
	return cfg, nil
}

// Run patches the configured package. Any error it returns is a *Failure.
func Run(ctx context.Context, opts Options) (err error) {
	started := time.Now()
	log := clog.FromContext(ctx)
	rep := report.FromContext(ctx)

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return &Failure{Kind: KindConfig, Message: "Invalid working directory", Err: err}
	}

	cfg := opts.Config
	if cfg == nil {
		if cfg, err = LoadConfig(ctx, dir, ""); err != nil {
			return err
		}
	}
	strategies, err := cfg.Strategies()
	if err != nil {
		return &Failure{Kind: KindConfig, Message: "Invalid configuration", Err: err}
	}
	pkg := cfg.Patch.Package

	entry := &journal.Entry{Root: dir, Package: pkg, DryRun: opts.DryRun, StartedAt: started}
	defer func() {
		record(ctx, opts.Journal, cfg, entry, err, started)
	}()

	doneDetect := opts.Timer.Track("detect")
	rep.Emit(report.Event{Stage: report.StageDetect, Status: report.StatusWorking})
	detected, ok, err := pm.Detect(ctx, pm.Options{Cwd: dir, StopDir: opts.StopDir, Strategies: strategies})
	if err != nil || !ok {
		doneDetect("")
		rep.Emit(report.Event{Stage: report.StageDetect, Status: report.StatusError, Err: err})
		return &Failure{Kind: KindDetection, Message: "No package manager found", Err: err}
	}
	doneDetect(string(detected.Agent))
	rep.Emit(report.Event{Stage: report.StageDetect, Status: report.StatusDone})
	log.Info("detected package manager", "agent", detected.Agent, "strategy", detected.Strategy, "dir", detected.Dir)

	runner := opts.Runner
	if runner == nil {
		runner = shell.Exec{}
	}
	envCfg := patchenv.Config{Runner: runner, Cwd: dir}
	var env patchenv.Environment
	if opts.DryRun {
		env = patchenv.NewInPlace(envCfg)
	} else {
		env = patchenv.Select(detected.Agent, envCfg)
	}
	entry.Agent = string(detected.Agent)
	entry.Env = env.Name()

	descs := patch.NextDescriptors()
	err = patchenv.Run(ctx, timed(env, opts.Timer), pkg, func(ctx context.Context, staging string) error {
		entry.Staging = staging
		done := opts.Timer.Track("patch")
		result, err := patch.Apply(ctx, staging, pkg, descs, patch.Options{DryRun: opts.DryRun})
		if result != nil {
			for _, f := range result.Files {
				entry.Files = append(entry.Files, journal.FileOutcome{Path: f.Path, Status: string(f.Status)})
			}
		}
		done(fmt.Sprintf("%d/%d files", len(entry.Files), len(descs)))
		return err
	})
	if err != nil {
		return Classify(err)
	}
	return nil
}

// Files lists the paths Run reports progress for, in order.
func Files() []string {
	descs := patch.NextDescriptors()
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Path
	}
	return out
}

func record(ctx context.Context, store *journal.Store, cfg *config.Config, entry *journal.Entry, err error, started time.Time) {
	if store == nil || cfg.NoJournal {
		return
	}
	entry.SetDuration(time.Since(started))
	if failure := Classify(err); failure != nil {
		entry.FailureKind = string(failure.Kind)
		entry.FailureMessage = failure.Error()
	}
	if err := store.Put(entry); err != nil {
		clog.FromContext(ctx).Warn("failed to record run", "error", err)
	}
}

// timedEnv records prepare and commit phases on a Timer.
type timedEnv struct {
	patchenv.Environment
	timer *observ.Timer
}

func timed(env patchenv.Environment, timer *observ.Timer) patchenv.Environment {
	if timer == nil {
		return env
	}
	return timedEnv{Environment: env, timer: timer}
}

func (e timedEnv) Prepare(ctx context.Context, pkg string) (string, error) {
	done := e.timer.Track("prepare")
	dir, err := e.Environment.Prepare(ctx, pkg)
	done(e.Name())
	return dir, err
}

func (e timedEnv) Commit(ctx context.Context, dir string) error {
	done := e.timer.Track("commit")
	err := e.Environment.Commit(ctx, dir)
	done(e.Name())
	return err
}
