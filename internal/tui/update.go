package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Stoneeu/vibe-kanban/internal/loop"
)

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.log, cmd = m.log.update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.log = m.log.setSize(m.width, m.logHeight())
		return m, nil

	case logEntryMsg:
		return m.handleLogEntry(loop.LogEntry(msg))

	case loopDoneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case isKey(msg, keyQuit):
		return m, tea.Quit
	case isKey(msg, keyFollow):
		m.log = m.log.toggleFollow()
		return m, nil
	case isKey(msg, keyStop):
		if !m.stopRequested && m.requestStop != nil {
			m.stopRequested = true
			m.requestStop()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.log, cmd = m.log.update(msg)
	return m, cmd
}

func (m Model) handleLogEntry(entry loop.LogEntry) (tea.Model, tea.Cmd) {
	if entry.WorkspaceID != "" {
		m.workspace = entry.WorkspaceID
	}
	if entry.Profile != "" {
		m.profile = entry.Profile
	}
	if entry.Run > 0 {
		m.run = entry.Run
	}
	if entry.MaxIter > 0 {
		m.maxIter = entry.MaxIter
	}
	if entry.Kind == loop.LogIterStart || entry.Outcome != "" {
		m.iteration = entry.Iteration
	}
	if entry.SessionID != "" {
		m.sessionID = entry.SessionID
	}
	if entry.TotalCost > 0 {
		m.totalCost = entry.TotalCost
	}
	if entry.Outcome != "" {
		m.outcome = entry.Outcome
	}

	m.log = m.log.appendLine(m.theme.RenderLogLine(entry, m.width))
	return m, waitForEvent(m.events)
}
