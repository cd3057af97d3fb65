package compose

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/harness"
	"github.com/agentspaces/asp/pkg/store"
)

// ComposeCodex assembles a codex.home/ template: config.toml, AGENTS.md,
// optional skills/, prompts/, optional mcp.json, and the user's Codex
// OAuth file linked into place (spec §4.9 "Codex").
func ComposeCodex(fs afero.Fs, artifacts []harness.Artifact, configToml []byte, authJSONPath, targetName, outputDir string) (*ComposedTargetBundle, error) {
	bundle := &ComposedTargetBundle{HarnessID: harness.Codex, TargetName: targetName, RootDir: outputDir}

	homeDir := filepath.Join(outputDir, "codex.home")
	if err := fs.MkdirAll(homeDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create codex home %s: %w", homeDir, err)
	}

	if len(configToml) > 0 {
		if err := afero.WriteFile(fs, filepath.Join(homeDir, "config.toml"), configToml, 0o644); err != nil {
			return nil, err
		}
	}

	agentsMd := composeAgentsMd(fs, artifacts)
	if err := afero.WriteFile(fs, filepath.Join(homeDir, "AGENTS.md"), []byte(agentsMd), 0o644); err != nil {
		return nil, err
	}

	for _, dir := range []string{"skills", "prompts"} {
		dst := filepath.Join(homeDir, dir)
		for _, a := range artifacts {
			src := filepath.Join(a.ArtifactPath, dir)
			if !pathExists(fs, src) {
				continue
			}
			if err := store.CopyInto(fs, src, dst); err != nil {
				return nil, err
			}
		}
	}

	mcpServers := make(map[string]harness.MCPServerConfig)
	for _, a := range artifacts {
		mcpPath := filepath.Join(a.ArtifactPath, "mcp", "mcp.json")
		if !pathExists(fs, mcpPath) {
			continue
		}
		data, err := afero.ReadFile(fs, mcpPath)
		if err != nil {
			return nil, err
		}
		var cfg harness.MCPConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		for name, server := range cfg.MCPServers {
			if _, exists := mcpServers[name]; exists {
				bundle.Warnings = append(bundle.Warnings, Warning{
					Code:    "MCP_COLLISION",
					Message: fmt.Sprintf("mcp server %q redefined by %s; later space wins", name, a.SpaceID),
					Spaces:  []string{a.SpaceID},
				})
			}
			mcpServers[name] = server // later-wins (spec §4.9)
		}
	}
	if len(mcpServers) > 0 {
		if err := writeJSON(fs, filepath.Join(homeDir, "mcp.json"), harness.MCPConfig{MCPServers: mcpServers}); err != nil {
			return nil, err
		}
	}

	if authJSONPath != "" && pathExists(fs, authJSONPath) {
		if err := store.CopyInto(fs, authJSONPath, filepath.Join(homeDir, "auth.json")); err != nil {
			return nil, fmt.Errorf("failed to link codex auth.json: %w", err)
		}
	}

	bundle.Codex = &CodexBundleInfo{HomeTemplatePath: homeDir}
	return bundle, nil
}

func composeAgentsMd(fs afero.Fs, artifacts []harness.Artifact) string {
	out := "# Composed Agent Instructions\n\n"
	for _, a := range artifacts {
		claudeMd := filepath.Join(a.ArtifactPath, "CLAUDE.md")
		if !pathExists(fs, claudeMd) {
			continue
		}
		data, err := afero.ReadFile(fs, claudeMd)
		if err != nil {
			continue
		}
		out += fmt.Sprintf("## %s\n\n%s\n\n", a.SpaceID, string(data))
	}
	return out
}
