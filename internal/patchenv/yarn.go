package patchenv

import (
	"context"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Yarn stages the package with `yarn patch --json`, which picks the
// directory itself and reports it. Committing consumes the directory; on
// failure it is left behind.
type Yarn struct {
	cfg Config
}

// NewYarn returns the yarn berry environment.
func NewYarn(cfg Config) *Yarn { return &Yarn{cfg: cfg} }

func (y *Yarn) Name() string { return "yarn" }

type yarnPatchOutput struct {
	Path    string `json:"path"`
	Locator string `json:"locator"`
}

func (y *Yarn) Prepare(ctx context.Context, pkg string) (string, error) {
	res, err := y.cfg.Runner.Run(ctx, y.cfg.Cwd, "yarn", "patch", "--json", pkg)
	if err != nil {
		return "", err
	}
	return parseYarnPatchOutput(res.Stdout)
}

func parseYarnPatchOutput(stdout string) (string, error) {
	var out yarnPatchOutput
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &out); err != nil {
		return "", &OutputError{Reason: "Failed to parse yarn patch output", Err: err}
	}
	if strings.TrimSpace(out.Path) == "" {
		return "", &OutputError{Reason: "Failed to get yarn patch temp path"}
	}
	return out.Path, nil
}

func (y *Yarn) Commit(ctx context.Context, dir string) error {
	_, err := y.cfg.Runner.Run(ctx, y.cfg.Cwd, "yarn", "patch-commit", "-s", dir)
	return err
}

func (y *Yarn) Discard(context.Context, string) error { return nil }

func (y *Yarn) CleanupOnFailure() bool { return false }
