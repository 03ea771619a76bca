// Package loop drives an automated agent loop for one workspace: run the
// agent, look for the completion promise, and keep re-prompting with a
// follow-up until the promise shows up or the iteration budget is spent.
// Progress is recorded in a looptracker.Tracker shared by all workspaces.
package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Stoneeu/vibe-kanban/internal/agent"
	"github.com/Stoneeu/vibe-kanban/internal/executor"
	"github.com/Stoneeu/vibe-kanban/internal/logging"
	"github.com/Stoneeu/vibe-kanban/internal/looptracker"
)

// Outcome describes why a loop ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

var (
	// ErrLoopActive is returned when the workspace already has a loop running.
	ErrLoopActive = errors.New("loop: workspace already has an active loop")
	// ErrLoopRemoved is returned when the tracker entry disappears mid-run.
	ErrLoopRemoved = errors.New("loop: loop state removed while running")
	// ErrAgentFailed is returned when an agent run reports errors.
	ErrAgentFailed = errors.New("loop: agent run failed")
)

// Request describes a loop to start.
type Request struct {
	WorkspaceID       uuid.UUID
	Prompt            string
	MaxIterations     uint32
	CompletionPromise *string
	Profile           executor.ProfileID
	WorkingDir        *string
	Model             string
	ExtraArgs         []string
}

// Result summarises a finished loop.
type Result struct {
	Outcome    Outcome
	Runs       int
	Iterations uint32
	SessionID  string
	TotalCost  float64
}

// Loop orchestrates the agent -> promise check -> follow-up cycle.
type Loop struct {
	Tracker *looptracker.Tracker
	Agent   agent.Agent
	Logger  *logging.Logger

	// Events, when set, receives every LogEntry. The loop blocks on send, so
	// the consumer must drain it until Run returns.
	Events chan<- LogEntry
	// Log is the plain-text fallback when Events is nil; defaults to os.Stdout.
	Log io.Writer
	// NotificationHook, if set, is called with every LogEntry.
	NotificationHook func(LogEntry)
}

// Run executes the loop described by req. The tracker entry for the
// workspace is registered on entry and always removed on return.
func (l *Loop) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{Outcome: OutcomeFailed}, errors.New("loop: empty prompt")
	}
	id := req.WorkspaceID
	if l.Tracker.HasActiveLoop(id) {
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("%w: %s", ErrLoopActive, id)
	}

	l.Tracker.Register(id, looptracker.Registration{
		MaxIterations:     req.MaxIterations,
		CompletionPromise: req.CompletionPromise,
		OriginalPrompt:    req.Prompt,
		ExecutorProfileID: req.Profile,
		WorkingDir:        req.WorkingDir,
	})
	defer l.Tracker.Remove(id)

	r := &run{loop: l, req: req, log: l.logger().WithWorkspace(id)}
	return r.execute(ctx)
}

// run holds the per-invocation state of Loop.Run.
type run struct {
	loop   *Loop
	req    Request
	log    *logging.Logger
	result Result
}

func (r *run) execute(ctx context.Context) (Result, error) {
	tracker := r.loop.Tracker
	id := r.req.WorkspaceID

	r.emit(LogEntry{
		Kind:    LogInfo,
		Message: fmt.Sprintf("Starting loop with %s (max: %d, promise: %s)", r.req.Profile, r.req.MaxIterations, promiseLabel(r.req.CompletionPromise)),
		MaxIter: r.req.MaxIterations,
		Profile: r.req.Profile.String(),
	})

	prompt := r.req.Prompt
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return r.stop(err)
		}

		st, ok := tracker.Get(id)
		if !ok {
			r.log.Warn("loop state disappeared before run", "run", n)
			return r.finish(OutcomeCancelled, ErrLoopRemoved)
		}

		out, err := r.runAgent(ctx, n, prompt, st)
		if err != nil {
			r.emit(LogEntry{Kind: LogError, Message: err.Error(), Run: n})
			return r.finish(OutcomeFailed, fmt.Errorf("loop: run %d: %w", n, err))
		}
		r.result.Runs = n
		r.result.TotalCost += out.CostUSD

		if out.SessionID != "" && out.SessionID != st.SessionID {
			tracker.UpdateSessionID(id, out.SessionID)
			r.result.SessionID = out.SessionID
			r.log.Debug("session updated", "session_id", out.SessionID)
		}

		if err := ctx.Err(); err != nil {
			return r.stop(err)
		}
		if len(out.Errors) > 0 {
			return r.finish(OutcomeFailed, fmt.Errorf("%w: run %d: %s", ErrAgentFailed, n, strings.Join(out.Errors, "; ")))
		}

		if promise, ok := tracker.CompletionPromise(id); ok && looptracker.CheckCompletionPromise(out.Text, promise) {
			r.emit(LogEntry{Kind: LogPromise, Message: fmt.Sprintf("Completion promise %q found", promise), Run: n})
			return r.finish(OutcomeCompleted, nil)
		}

		if !tracker.IncrementAndCheck(id) {
			if !tracker.HasActiveLoop(id) {
				return r.finish(OutcomeCancelled, ErrLoopRemoved)
			}
			return r.finish(OutcomeExhausted, nil)
		}

		st, ok = tracker.Get(id)
		if !ok {
			return r.finish(OutcomeCancelled, ErrLoopRemoved)
		}
		prompt = st.BuildFollowUpPrompt()
	}
}

// runAgent performs one agent invocation and forwards its events.
func (r *run) runAgent(ctx context.Context, n int, prompt string, st looptracker.State) (agent.Output, error) {
	r.emit(LogEntry{
		Kind:      LogIterStart,
		Message:   fmt.Sprintf("── run %d ──", n),
		Run:       n,
		Iteration: st.Iteration,
		MaxIter:   st.MaxIterations,
		SessionID: st.SessionID,
	})

	opts := agent.RunOptions{
		Profile:   st.ExecutorProfileID,
		SessionID: st.SessionID,
		Model:     r.req.Model,
		ExtraArgs: r.req.ExtraArgs,
	}
	if st.WorkingDir != nil {
		opts.WorkingDir = *st.WorkingDir
	}

	events, err := r.loop.Agent.Run(ctx, prompt, opts)
	if err != nil {
		return agent.Output{}, fmt.Errorf("start agent: %w", err)
	}

	out := agent.CollectOutput(events, func(ev agent.Event) {
		switch ev.Type {
		case agent.EventToolUse:
			r.emit(LogEntry{Kind: LogToolUse, ToolName: ev.ToolName, ToolInput: summarizeInput(ev.ToolInput), Run: n})
		case agent.EventText:
			r.emit(LogEntry{Kind: LogText, Message: ev.Text, Run: n})
		case agent.EventError:
			r.emit(LogEntry{Kind: LogError, Message: ev.Error, Run: n})
		}
	})

	r.emit(LogEntry{
		Kind:      LogIterComplete,
		Message:   fmt.Sprintf("Run %d complete: $%.2f, %.1fs", n, out.CostUSD, out.Duration),
		Run:       n,
		Iteration: st.Iteration,
		MaxIter:   st.MaxIterations,
		SessionID: out.SessionID,
		CostUSD:   out.CostUSD,
		Duration:  out.Duration,
		TotalCost: r.result.TotalCost + out.CostUSD,
		Subtype:   out.Subtype,
	})
	return out, nil
}

func (r *run) stop(err error) (Result, error) {
	return r.finish(OutcomeCancelled, err)
}

// finish records the outcome, emits the final event and snapshots the
// iteration count before Run's deferred Remove drops the state.
func (r *run) finish(outcome Outcome, err error) (Result, error) {
	r.result.Outcome = outcome
	st, ok := r.loop.Tracker.Get(r.req.WorkspaceID)
	if ok {
		r.result.Iterations = st.Iteration
		if st.SessionID != "" {
			r.result.SessionID = st.SessionID
		}
	}

	entry := LogEntry{
		Run:       r.result.Runs,
		Iteration: r.result.Iterations,
		MaxIter:   r.req.MaxIterations,
		TotalCost: r.result.TotalCost,
		SessionID: r.result.SessionID,
		Outcome:   string(outcome),
	}
	switch outcome {
	case OutcomeCompleted:
		entry.Kind = LogDone
		entry.Message = fmt.Sprintf("Loop complete after %d run(s), total cost: $%.2f", r.result.Runs, r.result.TotalCost)
	case OutcomeExhausted:
		entry.Kind = LogExhausted
		entry.Message = fmt.Sprintf("Iteration budget exhausted (%d/%d), total cost: $%.2f", r.result.Iterations, r.req.MaxIterations, r.result.TotalCost)
	case OutcomeCancelled:
		entry.Kind = LogStopped
		entry.Message = fmt.Sprintf("Loop stopped: %v", err)
	default:
		entry.Kind = LogError
		entry.Message = fmt.Sprintf("Loop failed: %v", err)
	}
	r.emit(entry)

	r.log.Info("loop finished",
		"outcome", string(outcome),
		"runs", r.result.Runs,
		"iterations", r.result.Iterations,
	)
	return r.result, err
}

func (r *run) emit(entry LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.WorkspaceID = r.req.WorkspaceID.String()
	r.loop.emit(entry)
}

func (l *Loop) emit(entry LogEntry) {
	if l.NotificationHook != nil {
		l.NotificationHook(entry)
	}
	if l.Events != nil {
		l.Events <- entry
		return
	}
	if entry.Kind == LogText {
		return
	}
	w := l.Log
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, FormatLine(entry))
}

func (l *Loop) logger() *logging.Logger {
	if l.Logger == nil {
		return logging.Default()
	}
	return l.Logger
}

// FormatLine renders an entry as a single timestamped plain-text line.
func FormatLine(e LogEntry) string {
	ts := e.Timestamp.Format("15:04:05")
	switch e.Kind {
	case LogToolUse:
		return fmt.Sprintf("[%s]  tool: %-14s %s", ts, e.ToolName, e.ToolInput)
	case LogError:
		return fmt.Sprintf("[%s]  error: %s", ts, e.Message)
	default:
		return fmt.Sprintf("[%s]  %s", ts, e.Message)
	}
}

func promiseLabel(p *string) string {
	if p == nil || *p == "" {
		return "none"
	}
	return fmt.Sprintf("%q", *p)
}

func summarizeInput(input map[string]any) string {
	for _, key := range []string{"file_path", "command", "path", "url", "pattern"} {
		if v, ok := input[key]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}
