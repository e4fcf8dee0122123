package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"nextpatch/internal/app"
	"nextpatch/internal/report"
	"nextpatch/internal/ui"
)

// runPatchWithUI runs the patch while a Bubble Tea program renders its
// events. Status lines are replaced by the UI; the run error wins over a UI
// error.
func runPatchWithUI(ctx context.Context, title string, opts app.Options) error {
	events := make(chan report.Event, 256)
	rep := report.New(report.Options{Sink: report.ChannelSink{Ch: events}})

	var runErr error
	var g errgroup.Group
	g.Go(func() error {
		defer close(events)
		runErr = app.Run(report.WithReporter(ctx, rep), opts)
		return nil
	})

	model := ui.NewProgressModel(title, app.Files(), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	g.Go(func() error {
		_, err := program.Run()
		return err
	})

	uiErr := g.Wait()
	if runErr != nil {
		return runErr
	}
	return uiErr
}
