// Package config loads sizetree settings from defaults, a YAML file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/kyaoi/sizetree/internal/logging"
	"github.com/kyaoi/sizetree/internal/tree"
)

const (
	envPrefix       = "SIZETREE_"
	legacyEnvKey    = "SCAN_CONCURRENCY"
	appName         = "sizetree"
)

// Config holds every runtime setting.
type Config struct {
	Root         string        `koanf:"root"`
	Concurrency  int           `koanf:"concurrency"`
	PhysicalSize bool          `koanf:"physical_size"`
	Exclude      []string      `koanf:"exclude"`
	Sort         string        `koanf:"sort"`
	Watch        bool          `koanf:"watch"`
	Debounce     time.Duration `koanf:"debounce"`
	TreeWidth    int           `koanf:"tree_width"`
	LogFile      string        `koanf:"log_file"`
	LogLevel     string        `koanf:"log_level"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"root":          ".",
		"concurrency":   0,
		"physical_size": false,
		"exclude":       []string{},
		"sort":          "size",
		"watch":         true,
		"debounce":      "500ms",
		"tree_width":    48,
		"log_file":      "",
		"log_level":     "info",
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return filepath.Join(".config", appName, "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default: "+DefaultPath()+")")
	fs.IntP("concurrency", "j", 0, "directories read in parallel (0: half the CPUs)")
	fs.Bool("physical", false, "report allocated disk space instead of file length")
	fs.StringSliceP("exclude", "x", nil, "skip entries whose name matches the glob (repeatable)")
	fs.StringP("sort", "s", "", "sibling order: size or name")
	fs.Bool("watch", true, "rescan expanded folders when they change")
	fs.Duration("debounce", 0, "delay before a changed folder is rescanned")
	fs.Int("tree-width", 0, "preferred width of the tree pane")
	fs.String("log-file", "", "write logs to this file")
	fs.String("log-level", "", "debug, info, warn or error")
}

// Load merges, lowest precedence first: defaults, the config file, SCAN_CONCURRENCY,
// SIZETREE_* variables and flags that were set explicitly.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := ""
	if flags != nil && flags.Lookup("config") != nil {
		explicit, _ = flags.GetString("config")
	}
	cfgFile, err := findConfigFile(explicit)
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	if n, ok := legacyConcurrency(); ok {
		if err := k.Load(confmap.Provider(map[string]interface{}{"concurrency": n}, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", legacyEnvKey, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "physical" {
				key = "physical_size"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = cfgFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// legacyConcurrency reads SCAN_CONCURRENCY. Anything but a positive integer
// is ignored.
func legacyConcurrency() (int, bool) {
	raw, ok := os.LookupEnv(legacyEnvKey)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %w", err)
		}
		return explicit, nil
	}
	candidate := DefaultPath()
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	if _, err := tree.ParseSortMode(c.Sort); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.TreeWidth < 0 {
		errs = append(errs, fmt.Errorf("tree_width must not be negative, got %d", c.TreeWidth))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce must not be negative, got %s", c.Debounce))
	}
	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("bad exclude pattern %q: %w", pattern, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SortMode returns the parsed sort setting.
func (c *Config) SortMode() tree.SortMode {
	mode, _ := tree.ParseSortMode(c.Sort)
	return mode
}
