package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Stoneeu/vibe-kanban/internal/loop"
)

// Options configures a Model.
type Options struct {
	AccentColor string
	// RequestStop, if set, is called once when the user presses 's'.
	RequestStop func()
}

// Model is the bubbletea model for the loop TUI.
type Model struct {
	events <-chan loop.LogEntry
	theme  Theme
	log    logView
	width  int
	height int

	// Loop state, tracked from entry metadata.
	workspace string
	profile   string
	run       int
	iteration uint32
	maxIter   uint32
	sessionID string
	totalCost float64
	outcome   string
	startedAt time.Time

	requestStop   func()
	stopRequested bool
	done          bool
}

// logEntryMsg wraps a LogEntry as a bubbletea message.
type logEntryMsg loop.LogEntry

// loopDoneMsg signals the event channel has closed.
type loopDoneMsg struct{}

// New creates a Model that consumes events until the channel is closed.
func New(events <-chan loop.LogEntry, opts Options) Model {
	m := Model{
		events:      events,
		theme:       NewTheme(opts.AccentColor),
		width:       80,
		height:      24,
		requestStop: opts.RequestStop,
		startedAt:   time.Now(),
	}
	m.log = newLogView(m.width, m.logHeight())
	return m
}

// Init returns the initial command: start listening for events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// Outcome returns the loop outcome once a terminal entry has been seen.
func (m Model) Outcome() string {
	return m.outcome
}

// logHeight is the number of rows between the header and the footer.
func (m Model) logHeight() int {
	return max(m.height-2, 1)
}

// waitForEvent returns a command that blocks on the event channel.
func waitForEvent(ch <-chan loop.LogEntry) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return loopDoneMsg{}
		}
		return logEntryMsg(entry)
	}
}
