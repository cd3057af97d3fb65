package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/agentspaces/asp/internal/logging"
	"github.com/agentspaces/asp/pkg/invoke"
	"github.com/agentspaces/asp/pkg/orchestrator"
	"github.com/agentspaces/asp/pkg/session"
)

var (
	runHarness     string
	runModel       string
	runYolo        bool
	runDryRun      bool
	runInteractive bool
	runRefresh     bool
	runSessionID   string
)

var runCmd = &cobra.Command{
	Use:   "run <target|space-ref|dev-dir> [prompt]",
	Short: "Install if needed and invoke the harness for a target, a bare space, or a dev-mode directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runHarness, "harness", "", "harness to invoke (default claude)")
	runCmd.Flags().StringVar(&runModel, "model", "", "model alias passed through to the harness")
	runCmd.Flags().BoolVar(&runYolo, "yolo", false, "skip permission prompts")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the invocation instead of running it")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "p", false, "run interactively instead of one-shot print mode")
	runCmd.Flags().BoolVar(&runRefresh, "refresh", false, "rebuild the bundle even if one already exists on disk")
	runCmd.Flags().StringVar(&runSessionID, "session-id", "", "external session id to resume (default: a fresh one is generated and printed)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	target := args[0]
	var prompt string
	if len(args) == 2 {
		prompt = args[1]
	}

	h := singleHarness(runHarness)
	opts := invoke.RunOptions{
		Model:       runModel,
		Yolo:        runYolo,
		Interactive: runInteractive,
		Prompt:      prompt,
	}

	sessionID := runSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	fs := newOsFs()
	rec, err := session.Open(fs, cfg.AspHome, sessionID, h, orchestrator.Now())
	if err != nil {
		return err
	}
	if runSessionID == "" {
		logging.Info("started session %s", sessionID)
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	var result *orchestrator.RunResult

	switch {
	case strings.HasPrefix(target, "space:"):
		result, err = orch.RunGlobalSpace(target, h, opts, runDryRun)

	default:
		isDevDir, statErr := afero.Exists(fs, filepath.Join(target, "space.toml"))
		if statErr != nil {
			return statErr
		}
		if isDevDir {
			result, err = orch.RunLocalSpace(target, h, opts, runDryRun)
			break
		}

		var dir string
		dir, err = projectDir()
		if err != nil {
			return err
		}
		result, err = orch.Run(dir, target, h, opts, runRefresh, runDryRun)
	}

	if result != nil {
		if runModel != "" {
			rec.Model = runModel
		}
		rec.UpdatedAt = orchestrator.Now()
		if saveErr := session.Save(fs, cfg.AspHome, rec); saveErr != nil {
			logging.Warn("failed to persist session record: %v", saveErr)
		}
	}

	if result != nil && result.DryRun {
		fmt.Println(invoke.FormatForDisplay(result.Invocation))
		return nil
	}
	if result != nil {
		exitCode = result.ExitCode
	}
	return err
}
