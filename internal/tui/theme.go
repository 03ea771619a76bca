package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/Stoneeu/vibe-kanban/internal/loop"
)

// Theme holds accent-color-derived styles.
type Theme struct {
	header lipgloss.Style
	accent lipgloss.Style
}

// NewTheme creates a Theme from a hex accent color string (e.g. "#7D56F4").
// If accentColor is empty, the default accent color is used.
func NewTheme(accentColor string) Theme {
	color := defaultAccentColor
	if accentColor != "" {
		color = accentColor
	}
	c := lipgloss.Color(color)
	return Theme{
		header: lipgloss.NewStyle().
			Background(c).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true),
		accent: lipgloss.NewStyle().Foreground(c).Bold(true),
	}
}

// RenderLogLine renders a loop.LogEntry as a single terminal line no wider
// than width (tool input and agent text are truncated to fit).
func (t Theme) RenderLogLine(entry loop.LogEntry, width int) string {
	ts := timestampStyle.Render(fmt.Sprintf("[%s]", entry.Timestamp.Format("15:04:05")))
	msg := singleLine(entry.Message)

	switch entry.Kind {
	case loop.LogToolUse:
		name := toolStyle(entry.ToolName).Render(fmt.Sprintf("%-14s", truncate(entry.ToolName, 14)))
		input := truncate(singleLine(entry.ToolInput), max(width-32, 20))
		return fmt.Sprintf("%s  %s %s %s", ts, toolIcon(entry.ToolName), name, input)

	case loop.LogText:
		return fmt.Sprintf("%s  %s", ts, textStyle.Render("💭 "+truncate(msg, max(width-17, 20))))

	case loop.LogIterStart:
		label := fmt.Sprintf("── run %d ── iteration %d/%d", entry.Run, entry.Iteration, entry.MaxIter)
		return fmt.Sprintf("%s  %s", ts, t.accent.Render(label))

	case loop.LogIterComplete:
		line := fmt.Sprintf("✓ run %d complete  $%.2f  %.1fs", entry.Run, entry.CostUSD, entry.Duration)
		if entry.Subtype != "" {
			line += "  " + singleLine(entry.Subtype)
		}
		return fmt.Sprintf("%s  %s", ts, resultStyle.Render(line))

	case loop.LogError:
		return fmt.Sprintf("%s  %s", ts, errorStyle.Render("❌ "+msg))

	case loop.LogPromise:
		return fmt.Sprintf("%s  %s", ts, promiseStyle.Render("🎯 "+msg))

	case loop.LogDone:
		return fmt.Sprintf("%s  %s", ts, resultStyle.Render("✅ "+msg))

	case loop.LogExhausted:
		return fmt.Sprintf("%s  %s", ts, exhaustedStyle.Render("⌛ "+msg))

	case loop.LogStopped:
		return fmt.Sprintf("%s  %s", ts, errorStyle.Render("⏹ "+msg))

	default:
		return fmt.Sprintf("%s  %s", ts, infoStyle.Render(msg))
	}
}
