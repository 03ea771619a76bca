package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Stoneeu/vibe-kanban/internal/config"
	"github.com/Stoneeu/vibe-kanban/internal/looptracker"
)

// errPromiseNotFound makes `vkloop check` exit non-zero when the marker is
// absent.
var errPromiseNotFound = errors.New("completion promise not found")

// runOptions holds the flags of `vkloop run`.
type runOptions struct {
	configPath string
	workspace  string
	promptFile string
	max        int // < 0 = use config
	promise    string
	promiseSet bool
	profile    string
	dir        string
	model      string
	noTUI      bool
}

func runCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the agent, re-prompting until the completion promise appears",
		Long: `Run the configured coding agent with a prompt. After every run the output is
searched for the completion promise; while it is missing and the iteration
budget allows, the agent session is resumed with a follow-up prompt.

The prompt comes from the arguments, --prompt-file, or loop.prompt_file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath, _ = cmd.Flags().GetString("config")
			opts.promiseSet = cmd.Flags().Changed("promise")
			return executeRun(cmd.OutOrStdout(), opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.workspace, "workspace", "", "workspace UUID (default: a new random id)")
	f.StringVar(&opts.promptFile, "prompt-file", "", "read the prompt from this file")
	f.IntVar(&opts.max, "max", -1, "override loop.max_iterations")
	f.StringVar(&opts.promise, "promise", "", "override loop.completion_promise (empty disables early completion)")
	f.StringVar(&opts.profile, "profile", "", "override agent.profile (AGENT or AGENT:VARIANT)")
	f.StringVar(&opts.dir, "dir", "", "working directory for the agent (default: current directory)")
	f.StringVar(&opts.model, "model", "", "override agent.model")
	f.BoolVar(&opts.noTUI, "no-tui", false, "print plain log lines instead of the TUI")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <promise> [file]",
		Short: "Report whether agent output contains the completion promise",
		Long:  "Reads agent output from file, or stdin when no file is given.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 2 {
				f, err := os.Open(args[1])
				if err != nil {
					return fmt.Errorf("open output: %w", err)
				}
				defer f.Close()
				r = f
			}
			found, err := checkOutput(r, args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "not found")
				return errPromiseNotFound
			}
			fmt.Fprintln(cmd.OutOrStdout(), "found")
			return nil
		},
	}
}

// checkOutput reads all of r and looks for promise.
func checkOutput(r io.Reader, promise string) (bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return false, fmt.Errorf("read output: %w", err)
	}
	return looptracker.CheckCompletionPromise(string(data), promise), nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold vkloop.toml and PROMPT.md in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			created, err := config.ScaffoldProject(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintln(out, "All files already exist, nothing to create.")
				return nil
			}
			for _, path := range created {
				fmt.Fprintf(out, "Created %s\n", path)
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarise the most recent loop run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return showStatus(cmd.OutOrStdout(), cfg.Store.Dir)
		},
	}
}
