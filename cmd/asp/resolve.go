package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [target...]",
	Short: "Resolve one or more targets' closures without touching the store",
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	results, err := orch.Resolve(dir, args)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Printf("%s:\n", r.TargetName)
		for _, key := range r.Closure.LoadOrder {
			node := r.Closure.Nodes[key]
			fmt.Printf("  %s  (resolved via %s)\n", key, node.ResolvedFrom.Kind)
		}
	}
	return nil
}
