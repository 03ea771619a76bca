// Package tui provides a bubbletea + lipgloss terminal UI that follows one
// workspace loop as it runs.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// defaultAccentColor is the default accent color (indigo).
const defaultAccentColor = "#7D56F4"

var (
	colorWhite  = lipgloss.Color("#FAFAFA")
	colorGray   = lipgloss.Color("#888888")
	colorBlue   = lipgloss.Color("#5B9BD5")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
	colorOrange = lipgloss.Color("#FFA54F")
)

// Styles that do not depend on the accent color. Accent-dependent styles
// live on Theme.
var (
	footerStyle    = lipgloss.NewStyle().Foreground(colorGray)
	timestampStyle = lipgloss.NewStyle().Foreground(colorGray)
	readStyle      = lipgloss.NewStyle().Foreground(colorBlue)
	writeStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	bashStyle      = lipgloss.NewStyle().Foreground(colorYellow)
	textStyle      = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	promiseStyle   = lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	infoStyle      = lipgloss.NewStyle().Foreground(colorWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	exhaustedStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)
)

// toolIcon returns the icon for a given tool name.
func toolIcon(toolName string) string {
	switch toolName {
	case "Read", "read_file", "view", "Glob", "Grep":
		return "📖"
	case "Write", "write_file", "Edit", "edit", "create", "NotebookEdit":
		return "✏️ "
	case "Bash", "bash", "shell":
		return "🔧"
	case "WebFetch", "WebSearch", "web_fetch":
		return "🌐"
	case "Task":
		return "🔀"
	default:
		return "⚡"
	}
}

// toolStyle returns the lipgloss style for a given tool name.
func toolStyle(toolName string) lipgloss.Style {
	switch toolName {
	case "Read", "read_file", "view", "Glob", "Grep":
		return readStyle
	case "Write", "write_file", "Edit", "edit", "create", "NotebookEdit":
		return writeStyle
	case "Bash", "bash", "shell":
		return bashStyle
	default:
		return infoStyle
	}
}

// singleLine collapses newlines so an entry never spans rows.
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
