// Package config parses vkloop.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Stoneeu/vibe-kanban/internal/executor"
	"github.com/Stoneeu/vibe-kanban/internal/logging"
)

// FileName is the config file looked up by Load.
const FileName = "vkloop.toml"

// DefaultAccentColor is the default TUI accent color (indigo).
const DefaultAccentColor = "#7D56F4"

// DefaultCompletionPromise is the marker agents are asked to print when done.
const DefaultCompletionPromise = "<promise>COMPLETE</promise>"

// hexColorRe matches a 6-digit hex color string like "#7D56F4".
var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Config is the top-level vkloop.toml configuration.
type Config struct {
	Loop          LoopConfig          `toml:"loop"`
	Agent         AgentConfig         `toml:"agent"`
	Log           LogConfig           `toml:"log"`
	Store         StoreConfig         `toml:"store"`
	TUI           TUIConfig           `toml:"tui"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// LoopConfig controls the iteration budget and completion detection.
type LoopConfig struct {
	MaxIterations     int    `toml:"max_iterations"`
	CompletionPromise string `toml:"completion_promise"` // empty = run until the budget is spent
	PromptFile        string `toml:"prompt_file"`
}

// AgentConfig controls the coding agent CLI invocation.
type AgentConfig struct {
	Profile    string   `toml:"profile"`    // AGENT or AGENT:VARIANT
	Executable string   `toml:"executable"` // overrides the profile's default binary
	Model      string   `toml:"model"`
	ExtraArgs  []string `toml:"extra_args"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// StoreConfig controls the JSONL run logs.
type StoreConfig struct {
	Dir       string `toml:"dir"`
	Retention int    `toml:"retention"` // number of run logs to keep; 0 = unlimited
}

// TUIConfig controls the terminal UI appearance.
type TUIConfig struct {
	AccentColor string `toml:"accent_color"`
}

// NotificationsConfig controls webhook/ntfy.sh notifications.
type NotificationsConfig struct {
	URL         string `toml:"url"`
	OnComplete  bool   `toml:"on_complete"`
	OnExhausted bool   `toml:"on_exhausted"`
	OnError     bool   `toml:"on_error"`
}

// Profile parses the configured executor profile.
func (c *Config) Profile() (executor.ProfileID, error) {
	return executor.ParseProfileID(c.Agent.Profile)
}

// Promise returns the completion promise, or nil when none is configured.
func (c *Config) Promise() *string {
	if c.Loop.CompletionPromise == "" {
		return nil
	}
	p := c.Loop.CompletionPromise
	return &p
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if c.Loop.MaxIterations < 0 || int64(c.Loop.MaxIterations) > math.MaxUint32 {
		errs = append(errs, fmt.Errorf("loop.max_iterations must be between 0 and %d", uint32(math.MaxUint32)))
	}
	if c.Loop.PromptFile == "" {
		errs = append(errs, fmt.Errorf("loop.prompt_file must not be empty"))
	}

	if _, err := c.Profile(); err != nil {
		errs = append(errs, fmt.Errorf("agent.profile: %w", err))
	}

	if !isOneOf(strings.ToUpper(c.Log.Level), logging.ValidLevels()) {
		errs = append(errs, fmt.Errorf("log.level must be one of %s", strings.Join(logging.ValidLevels(), ", ")))
	}
	if f := strings.ToLower(c.Log.Format); f != logging.FormatText && f != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("log.format must be %q or %q", logging.FormatText, logging.FormatJSON))
	}

	if c.Store.Dir == "" {
		errs = append(errs, fmt.Errorf("store.dir must not be empty"))
	}
	if c.Store.Retention < 0 {
		errs = append(errs, fmt.Errorf("store.retention must be >= 0 (0 = unlimited)"))
	}

	if c.TUI.AccentColor != "" && !hexColorRe.MatchString(c.TUI.AccentColor) {
		errs = append(errs, fmt.Errorf("tui.accent_color must be a hex color (e.g. \"#7D56F4\")"))
	}

	if c.Notifications.URL != "" {
		u, parseErr := url.ParseRequestURI(c.Notifications.URL)
		if parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("notifications.url must be a valid http or https URL"))
		}
	}

	return errors.Join(errs...)
}

func isOneOf(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

// Defaults returns a Config with the built-in defaults.
func Defaults() Config {
	return Config{
		Loop: LoopConfig{
			MaxIterations:     10,
			CompletionPromise: DefaultCompletionPromise,
			PromptFile:        "PROMPT.md",
		},
		Agent: AgentConfig{
			Profile: string(executor.Copilot),
		},
		Log: LogConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
		Store: StoreConfig{
			Dir:       ".vkloop/logs",
			Retention: 20,
		},
		TUI: TUIConfig{
			AccentColor: DefaultAccentColor,
		},
		Notifications: NotificationsConfig{
			OnComplete:  true,
			OnExhausted: true,
			OnError:     true,
		},
	}
}

// Load reads vkloop.toml from the given path. If path is empty, it walks up
// from the current working directory looking for vkloop.toml. Returns an
// error if the file contains unknown keys (likely typos).
//
// A relative store.dir is resolved against the config file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, strings.Join(keys, ", "))
	}

	if cfg.Store.Dir != "" && !filepath.IsAbs(cfg.Store.Dir) {
		cfg.Store.Dir = filepath.Join(filepath.Dir(path), cfg.Store.Dir)
	}

	return &cfg, nil
}

// ErrNotFound is returned by Load when no vkloop.toml exists above the
// working directory.
var ErrNotFound = errors.New("config: " + FileName + " not found")

// findConfig walks up from the current directory looking for vkloop.toml.
func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched up from %s)", ErrNotFound, dir)
		}
		dir = parent
	}
}

// InitFile writes a default vkloop.toml template to the given directory.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config: %s already exists at %s", FileName, path)
	}

	if err := os.WriteFile(path, []byte(fileTemplate), 0644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}

const fileTemplate = `# vkloop.toml: agent loop configuration
# Place this file in the root of your workspace.

[loop]
max_iterations = 10                               # follow-ups allowed after the first run
completion_promise = "<promise>COMPLETE</promise>" # empty = never stop early
prompt_file = "PROMPT.md"

[agent]
profile = "COPILOT"  # CLAUDE_CODE, COPILOT, CODEX, GEMINI, AMP, OPENCODE, CURSOR_AGENT, QWEN_CODE (optionally :VARIANT)
executable = ""      # empty = the profile's default CLI
model = ""
extra_args = []

[log]
level = "info"   # debug, info, warn or error
format = "text"  # text or json

[store]
dir = ".vkloop/logs"
retention = 20   # number of run logs to keep; 0 = unlimited

[tui]
accent_color = "#7D56F4"

[notifications]
url = ""             # ntfy.sh topic URL or any HTTP webhook (empty = disabled)
on_complete = true   # notify when the completion promise is found
on_exhausted = true  # notify when the iteration budget runs out
on_error = true      # notify on agent or loop errors
`
