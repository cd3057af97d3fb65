package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var gcDryRun bool

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete snapshot store entries not referenced by any live lock",
	RunE:  runGC,
}

func init() {
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "report what would be deleted without deleting")
	rootCmd.AddCommand(gcCmd)
}

func runGC(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	result, err := orch.GC(dir, gcDryRun)
	if err != nil {
		return err
	}

	fmt.Printf("snapshots deleted: %d\nbytes freed: %d\n", result.SnapshotsDeleted, result.BytesFreed)
	return nil
}
