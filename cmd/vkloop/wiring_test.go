package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/Stoneeu/vibe-kanban/internal/agent"
	"github.com/Stoneeu/vibe-kanban/internal/executor"
	"github.com/Stoneeu/vibe-kanban/internal/logging"
	"github.com/Stoneeu/vibe-kanban/internal/loop"
	"github.com/Stoneeu/vibe-kanban/internal/looptracker"
)

// scriptAgent replays one event script per call.
type scriptAgent struct {
	scripts [][]agent.Event
	calls   int
}

func (a *scriptAgent) Run(_ context.Context, _ string, _ agent.RunOptions) (<-chan agent.Event, error) {
	var script []agent.Event
	if a.calls < len(a.scripts) {
		script = a.scripts[a.calls]
	}
	a.calls++
	ch := make(chan agent.Event, len(script))
	for _, ev := range script {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// recordingWriter collects appended entries.
type recordingWriter struct {
	mu      sync.Mutex
	entries []loop.LogEntry
	failAll bool
}

func (w *recordingWriter) Append(e loop.LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAll {
		return errors.New("disk full")
	}
	w.entries = append(w.entries, e)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newTestLoop(a agent.Agent) *loop.Loop {
	return &loop.Loop{
		Tracker: looptracker.New(logging.NopLogger()),
		Agent:   a,
		Logger:  logging.NopLogger(),
	}
}

func testRequest(maxIter uint32) loop.Request {
	promise := "<promise>COMPLETE</promise>"
	return loop.Request{
		WorkspaceID:       uuid.New(),
		Prompt:            "Build the feature",
		MaxIterations:     maxIter,
		CompletionPromise: &promise,
		Profile:           executor.NewProfileID(executor.Copilot),
	}
}

func TestRunPlain(t *testing.T) {
	a := &scriptAgent{scripts: [][]agent.Event{
		{
			agent.SessionEvent("sess-1"),
			agent.ToolUseEvent("Read", map[string]any{"file_path": "main.go"}),
			agent.TextEvent("still going"),
			agent.ResultEvent(0.10, 3, "success"),
		},
		{
			agent.TextEvent("all done <promise>COMPLETE</promise>"),
			agent.ResultEvent(0.20, 4, "success"),
		},
	}}
	lp := newTestLoop(a)
	rec := &recordingWriter{}
	var out bytes.Buffer

	res, err := runPlain(context.Background(), lp, testRequest(5), rec, &out)
	if err != nil {
		t.Fatalf("runPlain: %v", err)
	}
	if res.Outcome != loop.OutcomeCompleted || res.Runs != 2 {
		t.Errorf("result = %+v, want completed after 2 runs", res)
	}

	var kinds []loop.LogKind
	for _, e := range rec.entries {
		kinds = append(kinds, e.Kind)
	}
	if kinds[0] != loop.LogInfo || kinds[len(kinds)-1] != loop.LogDone {
		t.Errorf("recorded kinds = %v", kinds)
	}
	var sawText bool
	for _, k := range kinds {
		if k == loop.LogText {
			sawText = true
		}
	}
	if !sawText {
		t.Error("text entries should be recorded")
	}

	printed := out.String()
	if strings.Contains(printed, "still going") {
		t.Errorf("agent text should not be printed:\n%s", printed)
	}
	for _, want := range []string{"tool: Read", "main.go", "Completion promise", "Loop complete"} {
		if !strings.Contains(printed, want) {
			t.Errorf("output missing %q:\n%s", want, printed)
		}
	}
}

func TestRunPlainStoreFailureDoesNotStopLoop(t *testing.T) {
	a := &scriptAgent{scripts: [][]agent.Event{
		{agent.TextEvent("<promise>COMPLETE</promise>"), agent.ResultEvent(0, 1, "success")},
	}}
	rec := &recordingWriter{failAll: true}
	var out bytes.Buffer

	res, err := runPlain(context.Background(), newTestLoop(a), testRequest(3), rec, &out)
	if err != nil {
		t.Fatalf("runPlain: %v", err)
	}
	if res.Outcome != loop.OutcomeCompleted {
		t.Errorf("Outcome = %s, want completed", res.Outcome)
	}
}

func TestRunPlainExhausted(t *testing.T) {
	a := &scriptAgent{}
	rec := &recordingWriter{}
	var out bytes.Buffer

	res, err := runPlain(context.Background(), newTestLoop(a), testRequest(2), rec, &out)
	if err != nil {
		t.Fatalf("runPlain: %v", err)
	}
	if res.Outcome != loop.OutcomeExhausted {
		t.Errorf("Outcome = %s, want exhausted", res.Outcome)
	}
	if !errors.Is(resultError(res, err), errExhausted) {
		t.Error("exhausted loop should map to errExhausted")
	}
	if last := rec.entries[len(rec.entries)-1]; last.Outcome != "exhausted" {
		t.Errorf("last recorded outcome = %q", last.Outcome)
	}
}
