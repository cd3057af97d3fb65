package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <target>",
	Short: "Resolve a target fresh and compare it to the existing lock entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	diff, err := orch.Diff(dir, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("load order changed: %v\n", diff.LoadOrderChanged)
	for _, added := range diff.Added {
		fmt.Printf("  + %s\n", added)
	}
	for _, removed := range diff.Removed {
		fmt.Printf("  - %s\n", removed)
	}
	for _, changed := range diff.Changed {
		fmt.Printf("  ~ %s\n", changed)
	}
	return nil
}
