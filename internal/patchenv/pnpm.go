package patchenv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
)

// Pnpm stages the package with `pnpm patch --edit-dir` in a fixed directory
// under node_modules/.temp and always removes it afterwards.
type Pnpm struct {
	cfg Config
}

// NewPnpm returns the pnpm environment.
func NewPnpm(cfg Config) *Pnpm { return &Pnpm{cfg: cfg} }

func (p *Pnpm) Name() string { return "pnpm" }

// StagingDir is where pkg is staged.
func (p *Pnpm) StagingDir(pkg string) string {
	return filepath.Join(p.cfg.Cwd, "node_modules", ".temp", filepath.FromSlash(pkg))
}

func (p *Pnpm) Prepare(ctx context.Context, pkg string) (string, error) {
	dir := p.StagingDir(pkg)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to remove %q: %w", dir, err)
	}
	if _, err := p.cfg.Runner.Run(ctx, p.cfg.Cwd, "pnpm", "patch", pkg, "--edit-dir", dir); err != nil {
		// pnpm may have populated dir before failing.
		if rmErr := p.Discard(ctx, dir); rmErr != nil {
			clog.FromContext(ctx).Warn("failed to remove staging directory", "dir", dir, "error", rmErr)
		}
		return "", err
	}
	return dir, nil
}

func (p *Pnpm) Commit(ctx context.Context, dir string) error {
	if _, err := p.cfg.Runner.Run(ctx, p.cfg.Cwd, "pnpm", "patch-commit", dir); err != nil {
		return err
	}
	return p.Discard(ctx, dir)
}

func (p *Pnpm) Discard(_ context.Context, dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %q: %w", dir, err)
	}
	return nil
}

func (p *Pnpm) CleanupOnFailure() bool { return true }
