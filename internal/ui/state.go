package ui

import (
	"context"
	"log/slog"

	"github.com/kyaoi/sizetree/internal/scan"
	"github.com/kyaoi/sizetree/internal/store"
	"github.com/kyaoi/sizetree/internal/tree"
)

// State contains the data required to bootstrap the Bubble Tea model.
type State struct {
	RootPath           string
	DisplayRoot        string
	Sort               tree.SortMode
	TreePreferredWidth int
	Scan               scan.Options
}

// Deps are the collaborators shared with the rest of the program.
type Deps struct {
	Ctx    context.Context
	Store  *store.Store
	Logger *slog.Logger
	// Changes delivers folders that need a rescan. May be nil.
	Changes <-chan string
	// Open hands a path to the OS. May be nil.
	Open func(path string) error
}
