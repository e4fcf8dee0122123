package main

import (
	"context"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"nextpatch/internal/app"
	"nextpatch/internal/journal"
	"nextpatch/internal/observ"
	"nextpatch/internal/report"
)

const appName = "nextpatch"

func init() {
	rootCmd.Flags().String("ui", "", "progress UI (auto|on|off, default from config or auto)")
	rootCmd.Flags().Bool("dry-run", false, "show the edits for node_modules without writing or committing")
	rootCmd.Flags().String("config", "", "path to nextpatch.toml (default: search upwards)")
	rootCmd.Flags().Bool("timings", false, "print per-phase timings")
}

func runPatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dir, err := cmd.Root().PersistentFlags().GetString("dir")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}

	cfg, err := app.LoadConfig(ctx, dir, configPath)
	if err != nil {
		return err
	}
	useUI, err := progressUI(cmd, cfg, quiet, dryRun)
	if err != nil {
		return err
	}

	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
	}
	opts := app.Options{
		Dir:     dir,
		Config:  cfg,
		DryRun:  dryRun,
		Journal: openJournal(ctx, cfg.NoJournal),
		Timer:   timer,
	}

	if useUI {
		err = runPatchWithUI(ctx, "Patching "+cfg.Patch.Package, opts)
	} else {
		rep := report.New(report.Options{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Quiet: quiet})
		err = app.Run(report.WithReporter(ctx, rep), opts)
	}

	if werr := timer.WriteSummary(cmd.ErrOrStderr()); werr != nil {
		clog.FromContext(ctx).Warn("failed to print timings", "error", werr)
	}
	return err
}

// openJournal returns nil when the journal is disabled or unavailable; runs
// never fail because of it.
func openJournal(ctx context.Context, disabled bool) *journal.Store {
	if disabled {
		return nil
	}
	store, err := journal.Open(appName)
	if err != nil {
		clog.FromContext(ctx).Warn("run journal unavailable", "error", err)
		return nil
	}
	return store
}
