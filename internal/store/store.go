// Package store persists loop events to a JSONL run log and provides
// indexed read-back of past agent runs. One log file is written per
// Loop.Run invocation. The log is an audit trail only; the loop tracker
// never restores state from it.
package store

import (
	"time"

	"github.com/Stoneeu/vibe-kanban/internal/loop"
)

// Writer persists loop events to durable storage.
type Writer interface {
	Append(entry loop.LogEntry) error
	Close() error
}

// Reader retrieves past run data from storage.
type Reader interface {
	Iterations() ([]IterationSummary, error)
	IterationLog(run int) ([]loop.LogEntry, error)
	RunSummary() (RunSummary, error)
}

// Store combines Writer and Reader into a single run-scoped handle.
type Store interface {
	Writer
	Reader
}

// IterationSummary summarises one completed agent run within a loop.
// Run 1 is the original prompt; later runs are follow-ups.
type IterationSummary struct {
	Run       int
	Iteration uint32 // tracker iteration when the run started
	SessionID string
	CostUSD   float64
	Duration  float64
	Subtype   string // "success", "error_max_turns", etc.
	StartAt   time.Time
	EndAt     time.Time
}

// RunSummary summarises one loop invocation.
type RunSummary struct {
	LogID         string // base name of the log file without extension
	WorkspaceID   string
	Profile       string
	StartedAt     time.Time
	TotalCost     float64
	Runs          int
	Iterations    uint32 // final tracker iteration, from the terminal entry
	MaxIterations uint32
	SessionID     string
	Outcome       string // empty while the loop is still running
}
