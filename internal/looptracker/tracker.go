package looptracker

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Stoneeu/vibe-kanban/internal/executor"
	"github.com/Stoneeu/vibe-kanban/internal/logging"
)

// Registration holds the parameters of a new loop.
type Registration struct {
	MaxIterations     uint32
	CompletionPromise *string
	OriginalPrompt    string
	SessionID         string
	ExecutorProfileID executor.ProfileID
	WorkingDir        *string
}

// Tracker maps workspace ids to loop state. A single RWMutex guards the
// whole map; the expected population is a handful of workspaces.
//
// Every method is total: an unknown workspace yields false, an absent value
// or a no-op, never an error. The zero value is not usable; call New.
type Tracker struct {
	mu     sync.RWMutex
	states map[uuid.UUID]*State
	log    *logging.Logger
}

// New creates an empty tracker. A nil logger discards output.
func New(logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Tracker{
		states: make(map[uuid.UUID]*State),
		log:    logger,
	}
}

// Register starts tracking a loop with Iteration 0, replacing any state the
// workspace already had.
func (t *Tracker) Register(workspaceID uuid.UUID, reg Registration) {
	st := State{
		MaxIterations:     reg.MaxIterations,
		CompletionPromise: cloneString(reg.CompletionPromise),
		OriginalPrompt:    reg.OriginalPrompt,
		SessionID:         reg.SessionID,
		ExecutorProfileID: reg.ExecutorProfileID.Clone(),
		WorkingDir:        cloneString(reg.WorkingDir),
	}

	t.mu.Lock()
	t.states[workspaceID] = &st
	t.mu.Unlock()

	t.log.WithWorkspace(workspaceID).Info("registered loop state",
		"max_iterations", reg.MaxIterations,
		"executor_profile", reg.ExecutorProfileID.String(),
	)
}

// Get returns a snapshot of the workspace's state.
func (t *Tracker) Get(workspaceID uuid.UUID) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[workspaceID]
	if !ok {
		return State{}, false
	}
	return st.clone(), true
}

// UpdateSessionID records the agent session the loop now runs under.
// Unknown workspaces are ignored.
func (t *Tracker) UpdateSessionID(workspaceID uuid.UUID, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[workspaceID]; ok {
		st.SessionID = sessionID
	}
}

// IncrementAndCheck advances the iteration counter and reports whether the
// loop may continue. It returns false without side effects for an unknown
// workspace.
//
// The counter is not clamped: calling again after a false result keeps
// counting past MaxIterations, and keeps returning false.
func (t *Tracker) IncrementAndCheck(workspaceID uuid.UUID) bool {
	t.mu.Lock()
	st, ok := t.states[workspaceID]
	if !ok {
		t.mu.Unlock()
		return false
	}
	st.Iteration++
	iteration, maxIter := st.Iteration, st.MaxIterations
	canContinue := st.CanContinue()
	t.mu.Unlock()

	t.log.WithWorkspace(workspaceID).Info("loop iteration",
		"iteration", iteration,
		"max_iterations", maxIter,
		"can_continue", canContinue,
	)
	return canContinue
}

// Remove stops tracking the workspace. Removing an unknown workspace is a
// silent no-op.
func (t *Tracker) Remove(workspaceID uuid.UUID) {
	t.mu.Lock()
	_, ok := t.states[workspaceID]
	delete(t.states, workspaceID)
	t.mu.Unlock()

	if ok {
		t.log.WithWorkspace(workspaceID).Info("removed loop state")
	}
}

// HasActiveLoop reports whether the workspace has registered state.
func (t *Tracker) HasActiveLoop(workspaceID uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.states[workspaceID]
	return ok
}

// CompletionPromise returns the workspace's completion marker. ok is false
// when there is no loop or the loop has no marker.
func (t *Tracker) CompletionPromise(workspaceID uuid.UUID) (promise string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, found := t.states[workspaceID]
	if !found || st.CompletionPromise == nil {
		return "", false
	}
	return *st.CompletionPromise, true
}

// Len returns the number of active loops.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}
