package patchenv

import (
	"context"
	"path/filepath"
)

// InPlace edits the installed package under node_modules directly. There is
// no isolation and nothing to commit; edits are lost on reinstall.
type InPlace struct {
	cfg Config
}

// NewInPlace returns the in-place environment.
func NewInPlace(cfg Config) *InPlace { return &InPlace{cfg: cfg} }

func (e *InPlace) Name() string { return "node_modules" }

func (e *InPlace) Prepare(_ context.Context, pkg string) (string, error) {
	return filepath.Join(e.cfg.Cwd, "node_modules", filepath.FromSlash(pkg)), nil
}

func (e *InPlace) Commit(context.Context, string) error { return nil }

func (e *InPlace) Discard(context.Context, string) error { return nil }

func (e *InPlace) CleanupOnFailure() bool { return false }
