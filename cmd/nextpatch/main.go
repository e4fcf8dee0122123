package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nextpatch/internal/app"
	"nextpatch/internal/report"
	"nextpatch/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "nextpatch",
	Short: "Stop Next.js from rewriting tsconfig.json",
	Long: `nextpatch comments out the tsconfig.json write in next's writeConfigurationDefaults.js
and records the change through the project's package manager (pnpm patch, yarn patch)
or, without one, edits node_modules/next in place.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupOutput,
	RunE:              runPatch,
}

// main registers subcommands and flags and executes the root command.
// It is the only place that exits with a non-zero status.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("verbose", false, "log debug details to stderr")
	rootCmd.PersistentFlags().String("dir", "", "project directory (default: current directory)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError(os.Stdout, os.Stderr, err)
		os.Exit(1)
	}
}

// setupOutput applies --color and attaches a logger for --verbose.
func setupOutput(cmd *cobra.Command, _ []string) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}

	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
	return nil
}

// printError shows a run failure the way every status line is shown; other
// errors (bad flags, unreadable journal) are printed plainly.
func printError(out, errOut io.Writer, err error) {
	var failure *app.Failure
	if errors.As(err, &failure) {
		report.New(report.Options{Out: out, Err: errOut}).Failure(failure.Err, "%s", failure.Message)
		return
	}
	fmt.Fprintf(errOut, "error: %v\n", err)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
