package app

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kyaoi/sizetree/internal/config"
	"github.com/kyaoi/sizetree/internal/opener"
	"github.com/kyaoi/sizetree/internal/store"
	"github.com/kyaoi/sizetree/internal/ui"
	"github.com/kyaoi/sizetree/internal/watch"
)

// Run executes the Bubble Tea program for the storage browser.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	state, err := LoadInitialState(cfg)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st := store.New()
	deps := ui.Deps{
		Ctx:    ctx,
		Store:  st,
		Logger: logger,
		Open:   opener.Open,
	}

	if cfg.Watch {
		w, err := watch.New(logger, cfg.Debounce)
		if err != nil {
			logger.Warn("file watching disabled", "err", err)
		} else {
			defer w.Close()
			unfollow := w.Follow(st.Expanded)
			defer unfollow()
			deps.Changes = w.Events()
		}
	}

	return runProgram(ctx, state, deps)
}

func runProgram(ctx context.Context, state ui.State, deps ui.Deps) error {
	model := ui.NewModel(state, deps)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
