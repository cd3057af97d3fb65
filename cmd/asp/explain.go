package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain [target...]",
	Short: "Print each locked target's space provenance, components, and warnings",
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	targets, err := orch.Explain(dir, args)
	if err != nil {
		return err
	}

	for _, t := range targets {
		fmt.Printf("%s:\n", t.TargetName)
		for _, sp := range t.Spaces {
			plugin := "-"
			if sp.Plugin != nil {
				plugin = sp.Plugin.Name + "@" + sp.Plugin.Version
			}
			fmt.Printf("  %-28s plugin=%-24s integrity=%s\n", sp.SpaceKey, plugin, sp.Integrity)
		}
		for _, w := range t.Warnings {
			fmt.Printf("  warning [%s] %s\n", w.Code, w.Message)
		}
		for h, bundle := range t.Bundles {
			fmt.Printf("  %s bundle: %s\n", h, bundle.RootDir)
		}
	}
	return nil
}
