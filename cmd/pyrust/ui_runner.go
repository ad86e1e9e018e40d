package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pyrust/internal/driver"
	"pyrust/internal/pipeline"
	"pyrust/internal/ui"
)

type dirOutcome struct {
	report *driver.DirReport
	err    error
}

// runDirWithUI runs TranspileDir while a progress view consumes its events.
func runDirWithUI(ctx context.Context, title, dir string, files []string, opts driver.DirOptions) (*driver.DirReport, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan dirOutcome, 1)

	go func() {
		o := opts
		o.Sink = pipeline.ChannelSink{Ch: events}
		report, err := driver.TranspileDir(ctx, dir, o)
		outcomeCh <- dirOutcome{report: report, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
