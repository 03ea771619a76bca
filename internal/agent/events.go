// Package agent runs a coding agent CLI and parses its stream-JSON output
// into events the loop orchestrator understands.
package agent

import "time"

// EventType identifies the kind of stream-JSON event.
type EventType string

const (
	EventSession EventType = "session"
	EventToolUse EventType = "tool_use"
	EventText    EventType = "text"
	EventResult  EventType = "result"
	EventError   EventType = "error"
)

// Event is a parsed stream-JSON event from agent output.
type Event struct {
	Type      EventType
	Timestamp time.Time

	// Session fields
	SessionID string

	// ToolUse fields
	ToolName  string
	ToolInput map[string]any

	// Text fields
	Text string

	// Result fields
	CostUSD  float64
	Duration float64 // seconds
	Subtype  string  // "success", "error_max_turns", ...

	// Error fields
	Error string
}

// SessionEvent creates a session event announcing the agent's session id.
func SessionEvent(sessionID string) Event {
	return Event{
		Type:      EventSession,
		Timestamp: time.Now(),
		SessionID: sessionID,
	}
}

// ToolUseEvent creates a tool_use event.
func ToolUseEvent(name string, input map[string]any) Event {
	return Event{
		Type:      EventToolUse,
		Timestamp: time.Now(),
		ToolName:  name,
		ToolInput: input,
	}
}

// TextEvent creates a text event.
func TextEvent(text string) Event {
	return Event{
		Type:      EventText,
		Timestamp: time.Now(),
		Text:      text,
	}
}

// ResultEvent creates a result event with cost, duration and exit subtype.
func ResultEvent(costUSD, duration float64, subtype string) Event {
	return Event{
		Type:      EventResult,
		Timestamp: time.Now(),
		CostUSD:   costUSD,
		Duration:  duration,
		Subtype:   subtype,
	}
}

// ErrorEvent creates an error event.
func ErrorEvent(msg string) Event {
	return Event{
		Type:      EventError,
		Timestamp: time.Now(),
		Error:     msg,
	}
}
