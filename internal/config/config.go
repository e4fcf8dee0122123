// Package config loads nextpatch settings from an optional nextpatch.toml and
// NEXTPATCH_* environment variables. Environment values win over the file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"

	"nextpatch/internal/patch"
	"nextpatch/internal/pm"
)

// FileName is the configuration file searched for.
const FileName = "nextpatch.toml"

// DefaultPackage is the package patched when nothing else is configured.
const DefaultPackage = patch.NextPackage

// Config is the merged configuration.
type Config struct {
	// Path is the file the configuration was read from, empty if none.
	Path string `toml:"-"`

	Patch  PatchConfig  `toml:"patch"`
	Output OutputConfig `toml:"output"`

	NoJournal bool `toml:"-" env:"NEXTPATCH_NO_JOURNAL,overwrite"`
}

type PatchConfig struct {
	Package    string   `toml:"package" env:"NEXTPATCH_PACKAGE,overwrite"`
	Strategies []string `toml:"strategies" env:"NEXTPATCH_STRATEGIES,overwrite"`
}

type OutputConfig struct {
	UI string `toml:"ui" env:"NEXTPATCH_UI,overwrite"`
}

// Options controls Load.
type Options struct {
	// Dir is where the search for FileName starts.
	Dir string
	// Path, when set, names the file explicitly; it must exist.
	Path string
	// Lookuper overrides the process environment, mostly for tests.
	Lookuper envconfig.Lookuper
}

// Find walks up from startDir to locate FileName.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads the configuration file (if any), applies environment overrides
// and fills defaults.
func Load(ctx context.Context, opts Options) (*Config, error) {
	cfg := &Config{}

	path := opts.Path
	if path == "" {
		found, ok, err := Find(opts.Dir)
		if err != nil {
			return nil, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.Path = path
	}

	lookuper := opts.Lookuper
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		if cfg.Path != "" {
			return nil, fmt.Errorf("%s: %w", cfg.Path, err)
		}
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Patch.Package = strings.TrimSpace(c.Patch.Package)
	if c.Patch.Package == "" {
		c.Patch.Package = DefaultPackage
	}
	if len(c.Patch.Strategies) == 0 {
		for _, s := range pm.DefaultStrategies {
			c.Patch.Strategies = append(c.Patch.Strategies, string(s))
		}
	}
	c.Output.UI = strings.ToLower(strings.TrimSpace(c.Output.UI))
	if c.Output.UI == "" {
		c.Output.UI = "auto"
	}
}

func (c *Config) validate() error {
	switch c.Output.UI {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("invalid [output].ui %q (expected auto|on|off)", c.Output.UI)
	}
	if _, err := c.Strategies(); err != nil {
		return fmt.Errorf("[patch].strategies: %w", err)
	}
	return nil
}

// Strategies returns the configured detection order.
func (c *Config) Strategies() ([]pm.Strategy, error) {
	out := make([]pm.Strategy, 0, len(c.Patch.Strategies))
	for _, raw := range c.Patch.Strategies {
		s, err := pm.ParseStrategy(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
