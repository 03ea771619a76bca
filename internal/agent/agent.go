package agent

import (
	"context"
	"strings"

	"github.com/Stoneeu/vibe-kanban/internal/executor"
)

// RunOptions configures one agent invocation.
type RunOptions struct {
	Profile executor.ProfileID
	// SessionID resumes an existing agent session when set.
	SessionID  string
	Model      string
	WorkingDir string
	ExtraArgs  []string
}

// Agent starts a coding agent run and streams its events back. The channel
// is closed when the agent exits.
type Agent interface {
	Run(ctx context.Context, prompt string, opts RunOptions) (<-chan Event, error)
}

// Output is the drained result of one agent run.
type Output struct {
	Text      string
	SessionID string
	CostUSD   float64
	Duration  float64
	Subtype   string
	Errors    []string
}

// CollectOutput drains events into an Output. Text blocks are joined with
// newlines. The last session id seen wins. If fn is non-nil it is called
// with every event before it is folded in.
func CollectOutput(events <-chan Event, fn func(Event)) Output {
	var out Output
	var text []string
	for ev := range events {
		if fn != nil {
			fn(ev)
		}
		switch ev.Type {
		case EventSession:
			out.SessionID = ev.SessionID
		case EventText:
			text = append(text, ev.Text)
		case EventResult:
			out.CostUSD += ev.CostUSD
			out.Duration += ev.Duration
			out.Subtype = ev.Subtype
		case EventError:
			out.Errors = append(out.Errors, ev.Error)
		}
	}
	out.Text = strings.Join(text, "\n")
	return out
}
