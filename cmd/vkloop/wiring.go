package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sourcegraph/conc"

	"github.com/Stoneeu/vibe-kanban/internal/logging"
	"github.com/Stoneeu/vibe-kanban/internal/loop"
	"github.com/Stoneeu/vibe-kanban/internal/store"
	"github.com/Stoneeu/vibe-kanban/internal/tui"
)

// runPlain runs the loop without TUI. Events are persisted to rec and
// printed to w; agent text is recorded but not printed.
func runPlain(ctx context.Context, lp *loop.Loop, req loop.Request, rec store.Writer, w io.Writer) (loop.Result, error) {
	events := make(chan loop.LogEntry, 128)
	lp.Events = events

	var wg conc.WaitGroup
	wg.Go(func() {
		for entry := range events {
			record(rec, entry)
			if entry.Kind != loop.LogText {
				fmt.Fprintln(w, loop.FormatLine(entry))
			}
		}
	})

	res, err := lp.Run(ctx, req)
	close(events)
	wg.Wait()
	return res, err
}

// runWithTUI runs the loop behind the bubbletea TUI. Loop events are
// persisted first and then forwarded to the TUI. Quitting the TUI cancels
// the loop.
func runWithTUI(ctx context.Context, lp *loop.Loop, req loop.Request, rec store.Writer, accent string) (loop.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopEvents := make(chan loop.LogEntry, 128)
	tuiEvents := make(chan loop.LogEntry, 128)
	tuiDone := make(chan struct{})
	lp.Events = loopEvents

	model := tui.New(tuiEvents, tui.Options{AccentColor: accent, RequestStop: cancel})
	program := tea.NewProgram(model, tea.WithAltScreen())

	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(tuiEvents)
		for entry := range loopEvents {
			record(rec, entry)
			select {
			case tuiEvents <- entry:
			case <-tuiDone:
			}
		}
	})

	var (
		res    loop.Result
		runErr error
	)
	wg.Go(func() {
		res, runErr = lp.Run(ctx, req)
		close(loopEvents)
	})

	_, tuiErr := program.Run()
	close(tuiDone)
	cancel()
	wg.Wait()

	if tuiErr != nil {
		return res, fmt.Errorf("tui: %w", tuiErr)
	}
	return res, runErr
}

// record appends entry to rec. Store failures are logged and never stop
// the loop.
func record(rec store.Writer, entry loop.LogEntry) {
	if err := rec.Append(entry); err != nil {
		logging.Default().Warn("run log append failed", "error", err)
	}
}
