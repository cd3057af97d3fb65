package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildHarness string

var buildCmd = &cobra.Command{
	Use:   "build <target>",
	Short: "Install exactly one target and print its bundle paths",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildHarness, "harness", "", "comma-separated harnesses to build (default claude)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	dir, err := projectDir()
	if err != nil {
		return err
	}
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	result, err := orch.Build(dir, args[0], parseHarnesses(buildHarness))
	if err != nil {
		return err
	}

	for h, bundle := range result.Bundles {
		fmt.Printf("%s: %s\n", h, bundle.RootDir)
	}
	return nil
}
