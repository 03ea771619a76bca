package loop

import "time"

// LogKind identifies the type of a loop log event.
type LogKind int

const (
	LogInfo         LogKind = iota // General informational message
	LogIterStart                   // Agent run starting
	LogToolUse                     // Agent tool use event
	LogText                        // Agent text output
	LogIterComplete                // Agent run finished
	LogError                       // Error from the agent or the loop
	LogPromise                     // Completion promise found in output
	LogDone                        // Loop finished because the promise was found
	LogExhausted                   // Loop finished because the budget ran out
	LogStopped                     // Loop stopped (context cancelled)
)

// String returns a short lowercase name for the kind.
func (k LogKind) String() string {
	switch k {
	case LogInfo:
		return "info"
	case LogIterStart:
		return "iter_start"
	case LogToolUse:
		return "tool_use"
	case LogText:
		return "text"
	case LogIterComplete:
		return "iter_complete"
	case LogError:
		return "error"
	case LogPromise:
		return "promise"
	case LogDone:
		return "done"
	case LogExhausted:
		return "exhausted"
	case LogStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// LogEntry is a structured event emitted by the loop during execution.
// When Loop.Events is set, entries are sent there for the TUI and the run
// log. Otherwise they fall back to Loop.Log as plain lines.
type LogEntry struct {
	Kind      LogKind
	Timestamp time.Time
	Message   string

	WorkspaceID string
	SessionID   string
	Profile     string

	// ToolUse fields
	ToolName  string
	ToolInput string

	// Cost/timing fields
	CostUSD   float64
	Duration  float64
	TotalCost float64
	Subtype   string

	// Iteration state. Run is 1-based: run 1 is the original prompt.
	Run       int
	Iteration uint32
	MaxIter   uint32

	Outcome string
}
