package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CLIAgent implements Agent by spawning the agent CLI as a subprocess. The
// prompt goes in via -p and output is parsed as stream-JSON.
type CLIAgent struct {
	// Executable overrides the binary chosen from the run's profile.
	Executable string
}

// NewCLIAgent creates a CLIAgent. An empty executable means "use the
// profile's default binary".
func NewCLIAgent(executable string) *CLIAgent {
	return &CLIAgent{Executable: executable}
}

// Run spawns the agent with the given prompt and streams parsed events back
// on the returned channel. The channel is closed when the process exits.
func (a *CLIAgent) Run(ctx context.Context, prompt string, opts RunOptions) (<-chan Event, error) {
	exe := a.executable(opts)
	if exe == "" {
		return nil, fmt.Errorf("agent: no executable for profile %s", opts.Profile)
	}

	cmd := exec.CommandContext(ctx, exe, buildArgs(prompt, opts)...)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agent: stdout pipe: %w", err)
	}

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("agent: start %s: %w", exe, err)
	}

	parsed := ParseStream(stdout)

	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		for ev := range parsed {
			ch <- ev
		}
		if err := cmd.Wait(); err != nil {
			// a cancelled context kills the process; that exit is expected
			if ctx.Err() == nil {
				msg := fmt.Sprintf("%s exited: %v", exe, err)
				if detail := strings.TrimSpace(stderrBuf.String()); detail != "" {
					msg = fmt.Sprintf("%s exited: %v: %s", exe, err, detail)
				}
				ch <- ErrorEvent(msg)
			}
		}
	}()

	return ch, nil
}

func (a *CLIAgent) executable(opts RunOptions) string {
	if a.Executable != "" {
		return a.Executable
	}
	return opts.Profile.DefaultExecutable()
}

func buildArgs(prompt string, opts RunOptions) []string {
	args := []string{
		"-p", prompt,
		"--output-format", "stream-json",
		"--verbose",
	}
	if opts.SessionID != "" {
		args = append(args, "--resume", opts.SessionID)
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	return append(args, opts.ExtraArgs...)
}
