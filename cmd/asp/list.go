package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentspaces/asp/pkg/manifest"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the targets declared by the project's asp-targets.toml",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}

	fs := newOsFs()
	pm, err := manifest.ReadProjectManifest(fs, filepath.Join(dir, "asp-targets.toml"))
	if err != nil {
		return err
	}

	for name, target := range pm.Targets {
		fmt.Printf("%s\t%s\n", name, target.Description)
		for _, c := range target.Compose {
			fmt.Printf("  %s\n", c)
		}
	}
	return nil
}
