package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kyaoi/sizetree/internal/app"
	"github.com/kyaoi/sizetree/internal/config"
	"github.com/kyaoi/sizetree/internal/logging"
)

// Version is set at build time.
var Version = "dev"

type runFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(app.Run).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(run runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sizetree [path]",
		Short: "Browse disk usage as a collapsible tree",
		Long: `sizetree scans a folder, totals the size of everything below it and
shows the result as a tree sorted by size. Expanded folders are watched and
rescanned when their contents change.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Root = args[0]
			}

			logger, closeLog, err := logging.Open(cfg.LogFile, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer closeLog()
			if cfg.FileUsed != "" {
				logger.Debug("config file loaded", "path", cfg.FileUsed)
			}

			err = run(cmd.Context(), cfg, logger)
			if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
	config.RegisterFlags(cmd.Flags())

	_ = cmd.RegisterFlagCompletionFunc("sort", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"size", "name"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
