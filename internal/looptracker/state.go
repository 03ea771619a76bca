// Package looptracker records the progress of automated agent loops, one per
// workspace. A loop re-prompts the agent with a follow-up request until a
// completion marker shows up in its output or the iteration budget runs out.
//
// The tracker only records state. Deciding when to run the agent, and when to
// drop a loop, belongs to the caller (see internal/loop).
package looptracker

import "github.com/Stoneeu/vibe-kanban/internal/executor"

// ContinueToken is appended to the original prompt to ask the agent to keep
// going on the same task.
const ContinueToken = "繼續"

// State is the tracked progress of a single workspace loop.
type State struct {
	// Iteration counts completed follow-up decisions, starting at 0.
	Iteration uint32
	// MaxIterations is fixed at registration.
	MaxIterations uint32
	// CompletionPromise, when set, ends the loop once it appears in output.
	CompletionPromise *string
	OriginalPrompt    string
	// SessionID is replaced whenever a follow-up runs under a new agent session.
	SessionID         string
	ExecutorProfileID executor.ProfileID
	WorkingDir        *string
}

// CanContinue reports whether another iteration fits in the budget.
func (s State) CanContinue() bool {
	return s.Iteration < s.MaxIterations
}

// BuildFollowUpPrompt returns the original prompt followed by a blank line
// and ContinueToken.
func (s State) BuildFollowUpPrompt() string {
	return s.OriginalPrompt + "\n\n" + ContinueToken
}

// clone returns a copy of s whose optional fields point at fresh memory.
func (s State) clone() State {
	s.CompletionPromise = cloneString(s.CompletionPromise)
	s.WorkingDir = cloneString(s.WorkingDir)
	s.ExecutorProfileID = s.ExecutorProfileID.Clone()
	return s
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
