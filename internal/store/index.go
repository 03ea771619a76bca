package store

import "github.com/Stoneeu/vibe-kanban/internal/loop"

// runRange is the [start, end) byte range of one agent run in the JSONL file.
// start is the offset of the LogIterStart line; end is the offset of the first
// byte after the LogIterComplete line.
type runRange struct {
	start int64
	end   int64
}

// fileIndex keeps in-memory byte-offset bookmarks per completed run and the
// loop-level facts needed for RunSummary.
type fileIndex struct {
	summaries []IterationSummary // ordered by completion time
	ranges    map[int]runRange   // run number → byte range
	pending   *pendingRun        // open run being built (nil if none)
	run       RunSummary
}

type pendingRun struct {
	startOffset int64
	summary     IterationSummary
}

func newFileIndex() *fileIndex {
	return &fileIndex{ranges: make(map[int]runRange)}
}

// onAppend updates the index when a LogEntry line has been appended.
// lineOffset is the byte offset of the first byte of the written line;
// lineLen is the total bytes written (including the trailing newline).
func (idx *fileIndex) onAppend(entry loop.LogEntry, lineOffset, lineLen int64) {
	if idx.run.WorkspaceID == "" {
		idx.run.WorkspaceID = entry.WorkspaceID
	}
	if idx.run.StartedAt.IsZero() {
		idx.run.StartedAt = entry.Timestamp
	}
	if entry.Profile != "" {
		idx.run.Profile = entry.Profile
	}
	if entry.MaxIter > idx.run.MaxIterations {
		idx.run.MaxIterations = entry.MaxIter
	}
	if entry.SessionID != "" {
		idx.run.SessionID = entry.SessionID
	}

	switch entry.Kind {
	case loop.LogIterStart:
		idx.pending = &pendingRun{
			startOffset: lineOffset,
			summary: IterationSummary{
				Run:       entry.Run,
				Iteration: entry.Iteration,
				SessionID: entry.SessionID,
				StartAt:   entry.Timestamp,
			},
		}
	case loop.LogIterComplete:
		if idx.pending == nil {
			return
		}
		s := idx.pending.summary
		s.CostUSD = entry.CostUSD
		s.Duration = entry.Duration
		s.Subtype = entry.Subtype
		s.EndAt = entry.Timestamp
		if entry.SessionID != "" {
			s.SessionID = entry.SessionID
		}
		idx.ranges[s.Run] = runRange{
			start: idx.pending.startOffset,
			end:   lineOffset + lineLen,
		}
		idx.summaries = append(idx.summaries, s)
		idx.run.Runs = len(idx.summaries)
		idx.run.TotalCost += s.CostUSD
		idx.pending = nil
	}

	if entry.Outcome != "" {
		idx.run.Outcome = entry.Outcome
		idx.run.Iterations = entry.Iteration
	}
}
