package pm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
)

type marker struct {
	path  string
	name  string
	agent Agent
}

// A trailing slash marks a directory.
var installMetadata = []marker{
	{"node_modules/.deno/", "deno", AgentDeno},
	{"node_modules/.pnpm/", "pnpm", AgentPnpm},
	{"node_modules/.yarn-state.yml", "yarn", AgentYarnBerry},
	{"node_modules/.yarn_integrity", "yarn", AgentYarn},
	{"node_modules/.package-lock.json", "npm", AgentNpm},
	{".pnp.cjs", "yarn", AgentYarnBerry},
	{".pnp.js", "yarn", AgentYarnBerry},
	{"bun.lock", "bun", AgentBun},
	{"bun.lockb", "bun", AgentBun},
}

var lockfiles = []marker{
	{"bun.lock", "bun", AgentBun},
	{"bun.lockb", "bun", AgentBun},
	{"deno.lock", "deno", AgentDeno},
	{"pnpm-lock.yaml", "pnpm", AgentPnpm},
	{"pnpm-workspace.yaml", "pnpm", AgentPnpm},
	{"yarn.lock", "yarn", AgentYarn},
	{"package-lock.json", "npm", AgentNpm},
	{"npm-shrinkwrap.json", "npm", AgentNpm},
}

// Detect walks from opts.Cwd towards the root and returns the first match.
// ok is false when no directory yields a result.
func Detect(ctx context.Context, opts Options) (Result, bool, error) {
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	start := opts.Cwd
	if start == "" {
		start = "."
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return Result{}, false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	stop := ""
	if opts.StopDir != "" {
		if stop, err = filepath.Abs(opts.StopDir); err != nil {
			return Result{}, false, fmt.Errorf("failed to resolve stop directory: %w", err)
		}
	}

	log := clog.FromContext(ctx)
	for {
		for _, strategy := range strategies {
			res, ok, err := detectIn(ctx, dir, strategy, strategies)
			if err != nil {
				return Result{}, false, err
			}
			if ok {
				res.Dir = dir
				res.Strategy = strategy
				log.Debug("package manager detected", "agent", res.Agent, "strategy", strategy, "dir", dir)
				return res, true, nil
			}
		}
		if dir == stop {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	log.Debug("no package manager detected", "cwd", start)
	return Result{}, false, nil
}

func detectIn(ctx context.Context, dir string, strategy Strategy, strategies []Strategy) (Result, bool, error) {
	switch strategy {
	case StrategyInstallMetadata:
		for _, m := range installMetadata {
			ok, err := exists(filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(m.path, "/"))), strings.HasSuffix(m.path, "/"))
			if err != nil {
				return Result{}, false, err
			}
			if ok {
				return Result{Name: m.name, Agent: m.agent}, true, nil
			}
		}
	case StrategyLockfile:
		for _, m := range lockfiles {
			ok, err := exists(filepath.Join(dir, m.path), false)
			if err != nil {
				return Result{}, false, err
			}
			if !ok {
				continue
			}
			declared, found, err := fromManifest(ctx, filepath.Join(dir, "package.json"), strategies)
			if err != nil {
				return Result{}, false, err
			}
			if found {
				return declared, true, nil
			}
			return Result{Name: m.name, Agent: m.agent}, true, nil
		}
	case StrategyPackageManagerField, StrategyDevEnginesField:
		return fromManifest(ctx, filepath.Join(dir, "package.json"), []Strategy{strategy})
	default:
		return Result{}, false, fmt.Errorf("unsupported detection strategy %q", strategy)
	}
	return Result{}, false, nil
}

func exists(path string, wantDir bool) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	if wantDir {
		return info.IsDir(), nil
	}
	return info.Mode().IsRegular(), nil
}
