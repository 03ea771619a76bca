package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Stoneeu/vibe-kanban/internal/loop"
	"github.com/Stoneeu/vibe-kanban/internal/store"
)

// chdir switches the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmdStructure(t *testing.T) {
	root := rootCmd()

	if root.Use != "vkloop" {
		t.Errorf("root Use = %q, want %q", root.Use, "vkloop")
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("missing --config persistent flag")
	}

	subs := map[string]bool{}
	for _, sub := range root.Commands() {
		subs[sub.Name()] = true
	}
	for _, want := range []string{"run", "check", "init", "status"} {
		if !subs[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestRunCmdFlags(t *testing.T) {
	cmd := runCmd()
	for _, name := range []string{"workspace", "prompt-file", "max", "promise", "profile", "dir", "model", "no-tui"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("run: missing --%s flag", name)
		}
	}
	if got := cmd.Flags().Lookup("max").DefValue; got != "-1" {
		t.Errorf("--max default = %s, want -1", got)
	}
}

func TestCheckCmd(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr bool
	}{
		{"found on stdin", "work done <promise>COMPLETE</promise>\n", []string{"<promise>COMPLETE</promise>"}, "found", false},
		{"missing on stdin", "still working\n", []string{"<promise>COMPLETE</promise>"}, "not found", true},
		{"empty promise never matches", "anything", []string{""}, "not found", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, append([]string{"check"}, tt.args...)...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errPromiseNotFound) {
				t.Errorf("err = %v, want errPromiseNotFound", err)
			}
			if !strings.HasPrefix(out, tt.want+"\n") {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}

	t.Run("reads file argument", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		if err := os.WriteFile(path, []byte("DONE"), 0644); err != nil {
			t.Fatal(err)
		}
		out, err := execute(t, "", "check", "DONE", path)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if out != "found\n" {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "", "check", "DONE", filepath.Join(t.TempDir(), "nope.txt"))
		if err == nil || !strings.Contains(err.Error(), "open output") {
			t.Errorf("err = %v, want open output error", err)
		}
	})

	t.Run("requires promise argument", func(t *testing.T) {
		if _, err := execute(t, "", "check"); err == nil {
			t.Error("expected argument error")
		}
	})
}

func TestInitCmdExecution(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	out, err := execute(t, "", "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, name := range []string{"vkloop.toml", "PROMPT.md", ".gitignore"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
		if !strings.Contains(out, name) {
			t.Errorf("output should mention %s: %s", name, out)
		}
	}

	out, err = execute(t, "", "init")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if !strings.Contains(out, "nothing to create") {
		t.Errorf("second init output = %q", out)
	}
}

func TestInitCmd_ScaffoldError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	for _, name := range []string{"vkloop.toml", "PROMPT.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// A directory named .gitignore cannot be read as a file.
	if err := os.Mkdir(filepath.Join(dir, ".gitignore"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "", "init")
	if err == nil || !strings.Contains(err.Error(), ".gitignore") {
		t.Errorf("err = %v, want error mentioning .gitignore", err)
	}
}

func TestStatusCmdExecution(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vkloop.toml")
	if err := os.WriteFile(cfgPath, []byte("[store]\ndir = \"logs\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ws := uuid.New()
	rec, err := store.NewJSONL(filepath.Join(dir, "logs"), ws)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	for _, e := range []loop.LogEntry{
		{Kind: loop.LogInfo, Timestamp: now, WorkspaceID: ws.String(), Profile: "CLAUDE_CODE", MaxIter: 5},
		{Kind: loop.LogIterStart, Timestamp: now, WorkspaceID: ws.String(), Run: 1, MaxIter: 5},
		{Kind: loop.LogIterComplete, Timestamp: now, WorkspaceID: ws.String(), Run: 1, SessionID: "sess-1", CostUSD: 0.5, Duration: 12, Subtype: "success"},
		{Kind: loop.LogDone, Timestamp: now, WorkspaceID: ws.String(), Run: 1, Outcome: "completed"},
	} {
		if err := rec.Append(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "status", "--config", cfgPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{ws.String(), "CLAUDE_CODE", "sess-1", "$0.50", "completed", "success"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCmdNoRuns(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vkloop.toml")
	if err := os.WriteFile(cfgPath, []byte("[store]\ndir = \"logs\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "status", "--config", cfgPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "No run logs found") {
		t.Errorf("output = %q", out)
	}
}

func TestRunCmd_BadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vkloop.toml")
	if err := os.WriteFile(cfgPath, []byte("[loop]\nmax_iteratons = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "", "run", "--config", cfgPath, "--no-tui", "do it")
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Errorf("err = %v, want unknown keys error", err)
	}
}

func TestRunCmd_MissingPrompt(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := execute(t, "", "run", "--no-tui")
	if err == nil || !strings.Contains(err.Error(), "read prompt") {
		t.Errorf("err = %v, want read prompt error", err)
	}
}
