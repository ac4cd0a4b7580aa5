package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/restora-app/restora/internal/history"
	"github.com/restora-app/restora/internal/pipeline"
	"github.com/restora-app/restora/internal/shared"
	"github.com/restora-app/restora/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/restora-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	pipe := pipeline.New(r.blobs, r.client, fileLogger)
	pager := history.NewPager(r.client, fileLogger)

	model := ui.NewModel(ctx, r.guard, pipe, pager, fileLogger)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
