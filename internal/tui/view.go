package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the TUI: header bar, scrollable log, footer bar.
func (m Model) View() string {
	return m.renderHeader() + "\n" + m.log.view() + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	parts := []string{
		"🔁 vkloop",
		"ws: " + orDash(shortID(m.workspace)),
		"agent: " + orDash(m.profile),
		fmt.Sprintf("iter: %d/%d", m.iteration, m.maxIter),
		fmt.Sprintf("run: %d", m.run),
		"session: " + orDash(shortID(m.sessionID)),
		fmt.Sprintf("cost: $%.2f", m.totalCost),
	}
	return m.theme.header.Width(m.width).MaxHeight(1).Render(strings.Join(parts, "  │  "))
}

func (m Model) renderFooter() string {
	status := "running"
	switch {
	case m.outcome != "":
		status = m.outcome
	case m.stopRequested:
		status = "stopping…"
	}
	left := fmt.Sprintf("status: %s  elapsed: %s", status, time.Since(m.startedAt).Round(time.Second))
	if !m.log.follow {
		if m.log.unseen > 0 {
			left += fmt.Sprintf("  [paused, %d new]", m.log.unseen)
		} else {
			left += "  [paused]"
		}
	}
	right := "f follow  s stop  q quit"

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 2)
	return footerStyle.Width(m.width).MaxHeight(1).Render(left + strings.Repeat(" ", gap) + right)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// shortID keeps the first 8 characters of an identifier.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
