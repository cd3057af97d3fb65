package main

import (
	"fmt"
	"os/exec"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/agentspaces/asp/pkg/registry"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that ASP_HOME, the registry, and known harness binaries are reachable",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fs := newOsFs()
	ok := true

	if exists, _ := afero.DirExists(fs, cfg.AspHome); exists {
		fmt.Printf("ok    ASP_HOME: %s\n", cfg.AspHome)
	} else {
		fmt.Printf("warn  ASP_HOME does not exist yet: %s (created on first install)\n", cfg.AspHome)
	}

	if cfg.Registry == "" {
		fmt.Println("fail  no registry configured (pass --registry)")
		ok = false
	} else if _, err := registry.Open(cfg.Registry); err != nil {
		fmt.Printf("fail  registry %s: %v\n", cfg.Registry, err)
		ok = false
	} else {
		fmt.Printf("ok    registry: %s\n", cfg.Registry)
	}

	for _, bin := range []string{"claude", "pi", "codex", "bun"} {
		if path, err := exec.LookPath(bin); err == nil {
			fmt.Printf("ok    %s: %s\n", bin, path)
		} else {
			fmt.Printf("warn  %s: not found on PATH\n", bin)
		}
	}

	if !ok {
		return fmt.Errorf("doctor found blocking issues")
	}
	return nil
}
