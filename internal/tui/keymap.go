package tui

import tea "github.com/charmbracelet/bubbletea"

// Key bindings handled by the model before scroll keys reach the viewport.
var (
	keyQuit   = []string{"q", "ctrl+c"}
	keyFollow = []string{"f"}
	keyStop   = []string{"s"}
)

func isKey(msg tea.KeyMsg, keys []string) bool {
	k := msg.String()
	for _, want := range keys {
		if k == want {
			return true
		}
	}
	return false
}
