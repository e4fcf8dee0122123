package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nextpatch/internal/journal"
)

var statusFormat string

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "pretty", "output format (pretty|json)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last patch run for the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := cmd.Root().PersistentFlags().GetString("dir")
		if err != nil {
			return err
		}
		if dir == "" {
			dir = "."
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve project directory: %w", err)
		}
		format := strings.ToLower(statusFormat)
		if format != "pretty" && format != "json" {
			return fmt.Errorf("unsupported format %q (must be pretty or json)", statusFormat)
		}

		store, err := journal.Open(appName)
		if err != nil {
			return fmt.Errorf("failed to open run journal: %w", err)
		}
		entry, ok, err := store.Get(root)
		if err != nil {
			return fmt.Errorf("failed to read run journal: %w", err)
		}
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "no recorded run for %s\n", root)
			return nil
		}
		if format == "json" {
			return renderStatusJSON(cmd.OutOrStdout(), entry)
		}
		renderStatusPretty(cmd.OutOrStdout(), entry)
		return nil
	},
}

var (
	statusOK   = color.New(color.FgGreen, color.Bold)
	statusFail = color.New(color.FgRed, color.Bold)
	statusDim  = color.New(color.Faint)
)

func renderStatusPretty(out io.Writer, e *journal.Entry) {
	outcome := statusOK.Sprint("succeeded")
	if !e.Succeeded() {
		outcome = statusFail.Sprintf("failed (%s)", e.FailureKind)
	}
	mode := ""
	if e.DryRun {
		mode = " [dry run]"
	}
	fmt.Fprintf(out, "last run %s%s\n", outcome, mode)
	fmt.Fprintf(out, "  project:  %s\n", e.Root)
	fmt.Fprintf(out, "  package:  %s\n", e.Package)
	if e.Agent != "" {
		fmt.Fprintf(out, "  manager:  %s (%s)\n", e.Agent, e.Env)
	}
	if e.Staging != "" {
		fmt.Fprintf(out, "  staging:  %s\n", e.Staging)
	}
	fmt.Fprintf(out, "  started:  %s %s\n", e.StartedAt.Local().Format(time.DateTime), statusDim.Sprintf("(%s)", e.Duration()))
	for _, f := range e.Files {
		fmt.Fprintf(out, "  %-16s %s\n", f.Status, f.Path)
	}
	if !e.Succeeded() {
		fmt.Fprintf(out, "  error:    %s\n", e.FailureMessage)
	}
}

type statusPayload struct {
	Root       string                `json:"root"`
	Package    string                `json:"package"`
	Agent      string                `json:"agent,omitempty"`
	Env        string                `json:"env,omitempty"`
	Staging    string                `json:"staging,omitempty"`
	DryRun     bool                  `json:"dry_run"`
	Files      []journal.FileOutcome `json:"files"`
	Failure    string                `json:"failure_kind,omitempty"`
	Message    string                `json:"failure_message,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	DurationMS uint32                `json:"duration_ms"`
}

func renderStatusJSON(out io.Writer, e *journal.Entry) error {
	files := e.Files
	if files == nil {
		files = []journal.FileOutcome{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(statusPayload{
		Root:       e.Root,
		Package:    e.Package,
		Agent:      e.Agent,
		Env:        e.Env,
		Staging:    e.Staging,
		DryRun:     e.DryRun,
		Files:      files,
		Failure:    e.FailureKind,
		Message:    e.FailureMessage,
		StartedAt:  e.StartedAt,
		DurationMS: e.DurationMS,
	})
}
