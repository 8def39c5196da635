package app

import (
	"os"
	"path/filepath"

	"github.com/kyaoi/sizetree/internal/config"
	"github.com/kyaoi/sizetree/internal/scan"
	"github.com/kyaoi/sizetree/internal/ui"
)

// LoadInitialState resolves the scan root and prepares the UI state.
func LoadInitialState(cfg *config.Config) (ui.State, error) {
	target := cfg.Root
	if target == "" {
		target = "."
	}
	absTarget, err := filepath.Abs(filepath.Clean(target))
	if err != nil {
		return ui.State{}, err
	}
	if _, err := os.Stat(absTarget); err != nil {
		return ui.State{}, err
	}

	displayRoot := filepath.Base(absTarget)
	if displayRoot == string(filepath.Separator) || displayRoot == "." {
		displayRoot = absTarget
	}

	return ui.State{
		RootPath:           absTarget,
		DisplayRoot:        displayRoot,
		Sort:               cfg.SortMode(),
		TreePreferredWidth: cfg.TreeWidth,
		Scan: scan.Options{
			Concurrency:  cfg.Concurrency,
			PhysicalSize: cfg.PhysicalSize,
			Exclude:      cfg.Exclude,
		},
	}, nil
}
