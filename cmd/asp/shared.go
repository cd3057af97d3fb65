package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/harness"
	"github.com/agentspaces/asp/pkg/orchestrator"
	"github.com/agentspaces/asp/pkg/registry"
)

// newOsFs returns the real filesystem, the one afero.Fs commands that
// only read project files (not orchestrating) need.
func newOsFs() afero.Fs { return afero.NewOsFs() }

// newOrchestrator opens the registry named by the --registry flag and
// builds an Orchestrator bound to the real filesystem and clock.
func newOrchestrator() (*orchestrator.Orchestrator, error) {
	if cfg.Registry == "" {
		return nil, fmt.Errorf("no registry configured; pass --registry")
	}
	reg, err := registry.Open(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry %s: %w", cfg.Registry, err)
	}
	fs := afero.NewOsFs()
	return orchestrator.New(fs, cfg.AspHome, reg, cfg.Registry, orchestrator.Now), nil
}

// projectDir resolves the project directory a command operates against:
// the current working directory, unless overridden.
func projectDir() (string, error) {
	return os.Getwd()
}

// parseHarnesses splits a comma-separated --harness value into harness
// IDs, defaulting to claude alone when unset.
func parseHarnesses(raw string) []harness.ID {
	if raw == "" {
		return []harness.ID{harness.Claude}
	}
	var out []harness.ID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, harness.ID(part))
	}
	return out
}

func singleHarness(raw string) harness.ID {
	if raw == "" {
		return harness.Claude
	}
	return harness.ID(raw)
}
