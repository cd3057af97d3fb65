package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentspaces/asp/internal/logging"
)

var (
	installHarness string
	installNoLock  bool
)

var installCmd = &cobra.Command{
	Use:   "install [target...]",
	Short: "Resolve, lock, materialize, and compose every requested target",
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installHarness, "harness", "", "comma-separated harnesses to build (default claude)")
	installCmd.Flags().BoolVar(&installNoLock, "no-lock", false, "do not read the existing lock (every target is resolved fresh either way)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	results, err := orch.Install(dir, args, parseHarnesses(installHarness), !installNoLock)
	if err != nil {
		return err
	}

	for name, result := range results {
		logging.Info("installed %s: %d spaces across %d harness(es)", name, len(result.Closure.LoadOrder), len(result.Bundles))
		for _, issue := range result.Linter.Issues() {
			fmt.Printf("%s [%s] %s\n", issue.Code, issue.Severity, issue.Message)
		}
	}
	return nil
}
