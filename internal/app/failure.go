package app

import (
	"errors"

	"nextpatch/internal/patch"
	"nextpatch/internal/patchenv"
	"nextpatch/internal/shell"
)

// Kind classifies why a run failed.
type Kind string

const (
	KindConfig          Kind = "config"
	KindDetection       Kind = "detection"
	KindStrategyOutput  Kind = "strategy-output"
	KindTargetMissing   Kind = "target-missing"
	KindPatternMismatch Kind = "pattern-mismatch"
	KindProcess         Kind = "process"
	KindPatch           Kind = "patch"
)

// Failure is the only error Run returns. Message is the one-line text shown
// next to the failure marker; Err carries the details.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Classify wraps err in a Failure. A Failure anywhere in the chain is
// returned as is; nil stays nil.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	var outErr *patchenv.OutputError
	var shellErr *shell.Error
	switch {
	case errors.As(err, &outErr):
		return &Failure{Kind: KindStrategyOutput, Message: outErr.Reason, Err: err}
	case errors.Is(err, patchenv.ErrStrategyOutput):
		return &Failure{Kind: KindStrategyOutput, Message: "Failed to read patch command output", Err: err}
	case errors.Is(err, patch.ErrFileMissing):
		return &Failure{Kind: KindTargetMissing, Message: "Failed to patch files", Err: err}
	case errors.Is(err, patch.ErrSearchNotFound):
		return &Failure{Kind: KindPatternMismatch, Message: "Failed to patch files", Err: err}
	case errors.As(err, &shellErr):
		return &Failure{Kind: KindProcess, Message: "Package manager command failed", Err: err}
	default:
		return &Failure{Kind: KindPatch, Message: "Failed to patch files", Err: err}
	}
}
