package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cur8/internal/session"
	"github.com/desertthunder/cur8/internal/shared"
	"github.com/desertthunder/cur8/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive review screen.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Client.LogPath())
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	store := session.NewStore(r.config.Client.SessionPath())
	holder := session.NewHolder(r.api, store, r.config.Client.CallbackAddr(), fileLogger)

	model := ui.NewModel(ctx, holder, r.api, fileLogger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
