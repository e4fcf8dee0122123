// Package patch applies ordered text transformations to files of an
// installed package.
//
// Every transformation is idempotent: running it on an already patched file
// returns the content unchanged. The first failing file aborts the batch.
package patch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/chainguard-dev/clog"

	"nextpatch/internal/report"
)

// ErrFileMissing is wrapped by FileError when a target file does not exist
// or is empty.
var ErrFileMissing = errors.New("file does not exist or is empty")

// FileError names the package-relative file that could not be patched.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%v: %s", e.Err, e.Path) }

func (e *FileError) Unwrap() error { return e.Err }

// Status is the per-file outcome.
type Status string

const (
	StatusPatched        Status = "patched"
	StatusAlreadyPatched Status = "already-patched"
)

// Transform rewrites file content.
type Transform interface {
	Apply(content string) (string, Status, error)
}

// Descriptor pairs a slash-separated path, relative to the package root,
// with its transformation.
type Descriptor struct {
	Path      string
	Transform Transform
}

// Options configures Apply.
type Options struct {
	// DryRun computes diffs without writing files.
	DryRun bool
}

// FileResult records what happened to one file.
type FileResult struct {
	Path   string
	Status Status
	// Diff is set in dry-run mode when the file would change.
	Diff string
}

// Result aggregates file results in descriptor order.
type Result struct {
	Files []FileResult
}

// Apply runs descs in order against files under baseDir. pkg only prefixes
// paths in messages. On error, Result holds the files processed before the
// failing one.
func Apply(ctx context.Context, baseDir, pkg string, descs []Descriptor, opts Options) (*Result, error) {
	rep := report.FromContext(ctx)
	log := clog.FromContext(ctx)
	result := &Result{Files: make([]FileResult, 0, len(descs))}

	for _, d := range descs {
		target := filepath.Join(baseDir, filepath.FromSlash(d.Path))
		relative := path.Join(pkg, d.Path)

		data, err := os.ReadFile(target)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return result, fmt.Errorf("failed to read %s: %w", relative, err)
		}
		if len(data) == 0 {
			rep.Emit(report.Event{File: d.Path, Stage: report.StagePatch, Status: report.StatusError, Err: ErrFileMissing})
			return result, &FileError{Path: relative, Err: ErrFileMissing}
		}

		rep.Pending("Patching file: %s ...", relative)
		rep.Emit(report.Event{File: d.Path, Stage: report.StagePatch, Status: report.StatusWorking})

		content := string(data)
		patched, status, err := d.Transform.Apply(content)
		if err != nil {
			rep.Failure(nil, "Failed to patch file")
			rep.Emit(report.Event{File: d.Path, Stage: report.StagePatch, Status: report.StatusError, Err: err})
			return result, fmt.Errorf("%s: %w", relative, err)
		}

		fr := FileResult{Path: relative, Status: status}
		switch {
		case status == StatusAlreadyPatched:
			rep.Success("File already patched, skipping ...")
		case opts.DryRun:
			fr.Diff = Diff(relative, content, patched)
			rep.Print(fr.Diff)
		default:
			if err := writeFile(target, patched); err != nil {
				rep.Emit(report.Event{File: d.Path, Stage: report.StagePatch, Status: report.StatusError, Err: err})
				return result, fmt.Errorf("failed to write %s: %w", relative, err)
			}
		}
		log.Debug("file processed", "file", relative, "status", status, "dry_run", opts.DryRun)

		evtStatus := report.StatusDone
		if status == StatusAlreadyPatched {
			evtStatus = report.StatusSkipped
		}
		rep.Emit(report.Event{File: d.Path, Stage: report.StagePatch, Status: evtStatus})
		result.Files = append(result.Files, fr)
	}
	return result, nil
}

// writeFile overwrites path and keeps its permission bits.
func writeFile(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, []byte(content), mode)
}
