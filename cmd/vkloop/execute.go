package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Stoneeu/vibe-kanban/internal/agent"
	"github.com/Stoneeu/vibe-kanban/internal/config"
	"github.com/Stoneeu/vibe-kanban/internal/executor"
	"github.com/Stoneeu/vibe-kanban/internal/logging"
	"github.com/Stoneeu/vibe-kanban/internal/loop"
	"github.com/Stoneeu/vibe-kanban/internal/looptracker"
	"github.com/Stoneeu/vibe-kanban/internal/notify"
	"github.com/Stoneeu/vibe-kanban/internal/store"
)

// errExhausted makes `vkloop run` exit non-zero when the budget is spent
// without the completion promise.
var errExhausted = errors.New("iteration budget exhausted without completion promise")

// loadConfig loads the config at path. Without an explicit path a missing
// vkloop.toml falls back to the defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNotFound) && path == "" {
		d := config.Defaults()
		cfg, err = &d, nil
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRequest resolves the loop request from config, flags and positional
// arguments.
func buildRequest(cfg *config.Config, opts runOptions, args []string) (loop.Request, error) {
	var req loop.Request

	dir := opts.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return req, fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return req, fmt.Errorf("resolve dir %q: %w", dir, err)
	}
	req.WorkingDir = &abs

	prompt, err := resolvePrompt(cfg, opts, args, abs)
	if err != nil {
		return req, err
	}
	req.Prompt = prompt

	if opts.workspace != "" {
		id, err := uuid.Parse(opts.workspace)
		if err != nil {
			return req, fmt.Errorf("invalid --workspace %q: %w", opts.workspace, err)
		}
		req.WorkspaceID = id
	} else {
		req.WorkspaceID = uuid.New()
	}

	maxIter := cfg.Loop.MaxIterations
	if opts.max >= 0 {
		maxIter = opts.max
	}
	if int64(maxIter) > math.MaxUint32 {
		return req, fmt.Errorf("--max %d out of range", maxIter)
	}
	req.MaxIterations = uint32(maxIter)

	req.CompletionPromise = cfg.Promise()
	if opts.promiseSet {
		p := opts.promise
		req.CompletionPromise = &p
	}

	profile := cfg.Agent.Profile
	if opts.profile != "" {
		profile = opts.profile
	}
	req.Profile, err = executor.ParseProfileID(profile)
	if err != nil {
		return req, err
	}

	req.Model = cfg.Agent.Model
	if opts.model != "" {
		req.Model = opts.model
	}
	req.ExtraArgs = cfg.Agent.ExtraArgs
	return req, nil
}

// resolvePrompt picks the prompt from args, then --prompt-file, then
// loop.prompt_file relative to dir.
func resolvePrompt(cfg *config.Config, opts runOptions, args []string, dir string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	path := opts.promptFile
	if path == "" {
		path = cfg.Loop.PromptFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return prompt, nil
}

// executeRun wires config, tracker, agent, store and notifier together and
// runs one loop in plain or TUI mode.
func executeRun(out io.Writer, opts runOptions, args []string) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	req, err := buildRequest(cfg, opts, args)
	if err != nil {
		return err
	}

	rec, err := store.NewJSONL(cfg.Store.Dir, req.WorkspaceID)
	if err != nil {
		return err
	}
	defer rec.Close()

	logger, closeLog, err := newLogger(cfg, opts.noTUI, rec.DiagPath())
	if err != nil {
		return err
	}
	defer closeLog()
	logging.SetDefault(logger)

	if err := store.EnforceRetention(cfg.Store.Dir, cfg.Store.Retention); err != nil {
		logger.Warn("run log retention failed", "error", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	registerQuitHandler()

	lp := &loop.Loop{
		Tracker: looptracker.New(logger),
		Agent:   agent.NewCLIAgent(cfg.Agent.Executable),
		Logger:  logger,
	}
	if cfg.Notifications.URL != "" {
		n := notify.New(cfg.Notifications.URL, notify.Options{
			OnComplete:  cfg.Notifications.OnComplete,
			OnExhausted: cfg.Notifications.OnExhausted,
			OnError:     cfg.Notifications.OnError,
		}, logger)
		defer n.Wait()
		lp.NotificationHook = n.Hook
	}

	var res loop.Result
	if opts.noTUI {
		res, err = runPlain(ctx, lp, req, rec, out)
	} else {
		res, err = runWithTUI(ctx, lp, req, rec, cfg.TUI.AccentColor)
	}
	return resultError(res, err)
}

// resultError maps a loop result to the command's exit error. Cancellation
// is a normal shutdown.
func resultError(res loop.Result, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	if res.Outcome == loop.OutcomeExhausted {
		return errExhausted
	}
	return nil
}

// newLogger builds the diagnostic logger. In TUI mode it writes to diagPath
// instead of stderr so the screen stays intact.
func newLogger(cfg *config.Config, noTUI bool, diagPath string) (*logging.Logger, func(), error) {
	if noTUI {
		return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format), func() {}, nil
	}
	f, err := os.OpenFile(diagPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l := logging.New(f, cfg.Log.Level, cfg.Log.Format)
	return l, func() {
		_ = l.Sync()
		f.Close()
	}, nil
}

var (
	statusTitle = lipgloss.NewStyle().Bold(true)
	statusLabel = lipgloss.NewStyle().Width(16)
)

// showStatus prints a summary of the most recent run log in dir.
func showStatus(w io.Writer, dir string) error {
	path, err := store.Latest(dir)
	if errors.Is(err, store.ErrNoRuns) {
		fmt.Fprintln(w, "No run logs found. Run 'vkloop run' first.")
		return nil
	}
	if err != nil {
		return err
	}
	log, err := store.Open(path)
	if err != nil {
		return err
	}
	defer log.Close()

	sum, err := log.RunSummary()
	if err != nil {
		return err
	}
	iters, err := log.Iterations()
	if err != nil {
		return err
	}
	fmt.Fprint(w, formatStatus(sum, iters, time.Now()))
	return nil
}

// formatStatus renders a run summary and its per-run table.
func formatStatus(sum store.RunSummary, iters []store.IterationSummary, now time.Time) string {
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", statusLabel.Render(label), value)
	}

	b.WriteString(statusTitle.Render("vkloop status") + "\n")
	row("Log:", sum.LogID)
	row("Workspace:", orDash(sum.WorkspaceID))
	row("Profile:", orDash(sum.Profile))
	if sum.SessionID != "" {
		row("Session:", sum.SessionID)
	}
	row("Iterations:", fmt.Sprintf("%d/%d", sum.Iterations, sum.MaxIterations))
	row("Runs:", fmt.Sprintf("%d", sum.Runs))
	row("Total cost:", fmt.Sprintf("$%.2f", sum.TotalCost))

	outcome := sum.Outcome
	if outcome == "" {
		outcome = "running"
		if !sum.StartedAt.IsZero() {
			outcome += fmt.Sprintf(" (%s)", now.Sub(sum.StartedAt).Round(time.Second))
		}
	}
	row("Outcome:", outcome)

	if len(iters) > 0 {
		b.WriteString("\n")
		for _, it := range iters {
			fmt.Fprintf(&b, "  run %-3d iter %-3d $%-7.2f %6.1fs  %s\n", it.Run, it.Iteration, it.CostUSD, it.Duration, it.Subtype)
		}
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
