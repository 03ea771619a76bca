package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Stoneeu/vibe-kanban/internal/executor"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"loop.max_iterations", cfg.Loop.MaxIterations, 10},
		{"loop.completion_promise", cfg.Loop.CompletionPromise, "<promise>COMPLETE</promise>"},
		{"loop.prompt_file", cfg.Loop.PromptFile, "PROMPT.md"},
		{"agent.profile", cfg.Agent.Profile, "COPILOT"},
		{"agent.executable", cfg.Agent.Executable, ""},
		{"log.level", cfg.Log.Level, "INFO"},
		{"log.format", cfg.Log.Format, "text"},
		{"store.dir", cfg.Store.Dir, ".vkloop/logs"},
		{"store.retention", cfg.Store.Retention, 20},
		{"tui.accent_color", cfg.TUI.AccentColor, DefaultAccentColor},
		{"notifications.on_complete", cfg.Notifications.OnComplete, true},
		{"notifications.on_exhausted", cfg.Notifications.OnExhausted, true},
		{"notifications.on_error", cfg.Notifications.OnError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		dir := t.TempDir()
		content := `
[loop]
max_iterations = 5
completion_promise = "DONE"
prompt_file = "TASK.md"

[agent]
profile = "claude-code:plan"
executable = "/usr/local/bin/claude"
model = "opus"
extra_args = ["--dangerously-skip-permissions"]

[log]
level = "debug"
format = "json"

[store]
dir = "/var/log/vkloop"
retention = 3

[notifications]
url = "https://ntfy.sh/loops"
on_exhausted = false
`
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}

		tests := []struct {
			name string
			got  any
			want any
		}{
			{"loop.max_iterations", cfg.Loop.MaxIterations, 5},
			{"loop.completion_promise", cfg.Loop.CompletionPromise, "DONE"},
			{"loop.prompt_file", cfg.Loop.PromptFile, "TASK.md"},
			{"agent.profile", cfg.Agent.Profile, "claude-code:plan"},
			{"agent.executable", cfg.Agent.Executable, "/usr/local/bin/claude"},
			{"agent.model", cfg.Agent.Model, "opus"},
			{"agent.extra_args", strings.Join(cfg.Agent.ExtraArgs, " "), "--dangerously-skip-permissions"},
			{"log.level", cfg.Log.Level, "debug"},
			{"log.format", cfg.Log.Format, "json"},
			{"store.dir", cfg.Store.Dir, "/var/log/vkloop"},
			{"store.retention", cfg.Store.Retention, 3},
			{"notifications.url", cfg.Notifications.URL, "https://ntfy.sh/loops"},
			{"notifications.on_complete", cfg.Notifications.OnComplete, true},
			{"notifications.on_exhausted", cfg.Notifications.OnExhausted, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.got != tt.want {
					t.Errorf("got %v, want %v", tt.got, tt.want)
				}
			})
		}

		if err := cfg.Validate(); err != nil {
			t.Errorf("loaded config should validate: %v", err)
		}
		profile, err := cfg.Profile()
		if err != nil {
			t.Fatal(err)
		}
		if profile.Executor != executor.ClaudeCode || profile.String() != "CLAUDE_CODE:plan" {
			t.Errorf("profile = %s", profile)
		}
	})

	t.Run("partial config uses defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, []byte("[loop]\nmax_iterations = 2\n"), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}

		if cfg.Loop.MaxIterations != 2 {
			t.Errorf("loop.max_iterations: got %d, want 2", cfg.Loop.MaxIterations)
		}
		if cfg.Loop.CompletionPromise != DefaultCompletionPromise {
			t.Errorf("loop.completion_promise: got %q, want default", cfg.Loop.CompletionPromise)
		}
		if cfg.Agent.Profile != "COPILOT" {
			t.Errorf("agent.profile: got %q, want COPILOT (default)", cfg.Agent.Profile)
		}
	})

	t.Run("relative store dir resolves against config dir", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, []byte("[store]\ndir = \"runs\"\n"), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join(dir, "runs"); cfg.Store.Dir != want {
			t.Errorf("store.dir: got %q, want %q", cfg.Store.Dir, want)
		}
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, []byte("[loop]\nmax_iteration = 2\n"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "loop.max_iteration") {
			t.Errorf("expected unknown key error, got %v", err)
		}
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := Load("/nonexistent/" + FileName)
		if err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid toml returns error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, []byte("not valid [[[ toml"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := Load(path)
		if err == nil {
			t.Error("expected error for invalid TOML")
		}
	})
}

func TestLoadAutoDiscovery(t *testing.T) {
	t.Run("finds vkloop.toml in parent directory", func(t *testing.T) {
		root := t.TempDir()
		child := filepath.Join(root, "sub", "dir")
		if err := os.MkdirAll(child, 0755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(filepath.Join(root, FileName), []byte("[loop]\nmax_iterations = 7\n"), 0644); err != nil {
			t.Fatal(err)
		}

		origDir, _ := os.Getwd()
		t.Cleanup(func() { os.Chdir(origDir) })
		if err := os.Chdir(child); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Loop.MaxIterations != 7 {
			t.Errorf("loop.max_iterations: got %d, want 7", cfg.Loop.MaxIterations)
		}
	})

	t.Run("returns ErrNotFound when vkloop.toml is missing", func(t *testing.T) {
		dir := t.TempDir()
		origDir, _ := os.Getwd()
		t.Cleanup(func() { os.Chdir(origDir) })
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}

		_, err := Load("")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"negative max iterations", func(c *Config) { c.Loop.MaxIterations = -1 }, "loop.max_iterations"},
		{"empty prompt file", func(c *Config) { c.Loop.PromptFile = "" }, "loop.prompt_file"},
		{"unknown agent", func(c *Config) { c.Agent.Profile = "CLIPPY" }, "agent.profile"},
		{"empty variant", func(c *Config) { c.Agent.Profile = "CODEX:" }, "agent.profile"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty store dir", func(c *Config) { c.Store.Dir = "" }, "store.dir"},
		{"negative retention", func(c *Config) { c.Store.Retention = -2 }, "store.retention"},
		{"bad accent color", func(c *Config) { c.TUI.AccentColor = "indigo" }, "tui.accent_color"},
		{"non-http url", func(c *Config) { c.Notifications.URL = "ftp://example.com" }, "notifications.url"},
		{"relative url", func(c *Config) { c.Notifications.URL = "ntfy.sh/topic" }, "notifications.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}

	t.Run("joins every issue", func(t *testing.T) {
		cfg := Defaults()
		cfg.Loop.MaxIterations = -1
		cfg.Store.Retention = -1
		cfg.Log.Format = "xml"
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected validation error")
		}
		if n := strings.Count(err.Error(), "\n") + 1; n != 3 {
			t.Errorf("expected 3 issues, got %d: %v", n, err)
		}
	})

	t.Run("level and format are case-insensitive", func(t *testing.T) {
		cfg := Defaults()
		cfg.Log.Level = "warn"
		cfg.Log.Format = "JSON"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestPromise(t *testing.T) {
	cfg := Defaults()
	if p := cfg.Promise(); p == nil || *p != DefaultCompletionPromise {
		t.Errorf("Promise() = %v, want default marker", p)
	}

	cfg.Loop.CompletionPromise = ""
	if p := cfg.Promise(); p != nil {
		t.Errorf("Promise() = %q, want nil for empty marker", *p)
	}
}

func TestInitFile(t *testing.T) {
	t.Run("creates vkloop.toml", func(t *testing.T) {
		dir := t.TempDir()
		path, err := InitFile(dir)
		if err != nil {
			t.Fatal(err)
		}

		if filepath.Base(path) != FileName {
			t.Errorf("expected %s, got %s", FileName, filepath.Base(path))
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("generated file is not valid: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("generated file should validate: %v", err)
		}
		if cfg.Loop.MaxIterations != 10 {
			t.Errorf("max_iterations: got %d, want 10", cfg.Loop.MaxIterations)
		}
	})

	t.Run("refuses to overwrite existing", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, FileName)
		if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := InitFile(dir)
		if err == nil {
			t.Error("expected error when vkloop.toml already exists")
		}
	})
}
