package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxLogLines bounds the retained history. Long loops emit a line per tool
// call, so older lines are dropped from the top.
const maxLogLines = 5000

// logView is the scrollable loop log. In follow mode new lines scroll to the
// bottom. Scrolling up leaves follow mode; lines arriving while paused are
// counted in unseen and the view stays on the same content even when old
// lines are trimmed.
type logView struct {
	vp       viewport.Model
	lines    []string // pre-styled lines, oldest first
	maxLines int
	unseen   int
	follow   bool
}

func newLogView(w, h int) logView {
	return logView{vp: viewport.New(w, h), maxLines: maxLogLines, follow: true}
}

func (v logView) appendLine(rendered string) logView {
	v.lines = append(v.lines, rendered)
	dropped := 0
	if v.maxLines > 0 && len(v.lines) > v.maxLines {
		dropped = len(v.lines) - v.maxLines
		v.lines = append([]string(nil), v.lines[dropped:]...)
	}

	offset := v.vp.YOffset
	v.vp.SetContent(strings.Join(v.lines, "\n"))
	if v.follow {
		v.vp.GotoBottom()
		return v
	}
	v.unseen++
	v.vp.SetYOffset(max(offset-dropped, 0))
	return v
}

func (v logView) toggleFollow() logView {
	v.follow = !v.follow
	if v.follow {
		v.unseen = 0
		v.vp.GotoBottom()
	}
	return v
}

func (v logView) setSize(w, h int) logView {
	v.vp.Width = w
	v.vp.Height = h
	if v.follow {
		v.vp.GotoBottom()
	}
	return v
}

func (v logView) update(msg tea.Msg) (logView, tea.Cmd) {
	var cmd tea.Cmd
	v.vp, cmd = v.vp.Update(msg)
	if v.follow && !v.vp.AtBottom() {
		switch msg.(type) {
		case tea.KeyMsg, tea.MouseMsg:
			v.follow = false
		}
	}
	return v, cmd
}

func (v logView) view() string {
	return v.vp.View()
}
