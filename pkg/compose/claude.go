package compose

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/harness"
	"github.com/agentspaces/asp/pkg/store"
)

type claudeSettings struct {
	Permissions *claudeSettingsPermissions `json:"permissions,omitempty"`
	Env         map[string]string          `json:"env,omitempty"`
	Model       string                     `json:"model,omitempty"`
}

type claudeSettingsPermissions struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// ComposeClaude assembles plugins/, mcp.json, and settings.json for the
// Claude family (spec §4.9 "Claude family").
func ComposeClaude(fs afero.Fs, artifacts []harness.Artifact, inputs []SettingsInput, targetName, outputDir string, opts Options) (*ComposedTargetBundle, error) {
	bundle := &ComposedTargetBundle{HarnessID: harness.Claude, TargetName: targetName, RootDir: outputDir}

	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bundle root %s: %w", outputDir, err)
	}

	pluginsDir := filepath.Join(outputDir, "plugins")
	for i, a := range artifacts {
		dirName := fmt.Sprintf("%03d-%s", i, a.SpaceID)
		dst := filepath.Join(pluginsDir, dirName)
		if err := store.CopyInto(fs, a.ArtifactPath, dst); err != nil {
			return nil, fmt.Errorf("failed to link plugin dir for %s: %w", a.SpaceID, err)
		}
		bundle.PluginDirs = append(bundle.PluginDirs, dst)
	}

	mcpServers := make(map[string]harness.MCPServerConfig)
	var mcpWarnings []Warning
	for _, a := range artifacts {
		mcpPath := filepath.Join(a.ArtifactPath, "mcp", "mcp.json")
		data, err := afero.ReadFile(fs, mcpPath)
		if err != nil {
			continue // no mcp/mcp.json in this artifact
		}
		var cfg harness.MCPConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("invalid mcp.json in artifact %s: %w", a.SpaceID, err)
		}
		for name, server := range cfg.MCPServers {
			if _, exists := mcpServers[name]; exists {
				mcpWarnings = append(mcpWarnings, Warning{
					Code:    "MCP_COLLISION",
					Message: fmt.Sprintf("mcp server %q redefined by %s; later space wins", name, a.SpaceID),
					Spaces:  []string{a.SpaceID},
				})
			}
			mcpServers[name] = server // later-wins (spec §4.9)
		}
	}
	bundle.Warnings = append(bundle.Warnings, mcpWarnings...)

	if len(mcpServers) > 0 {
		mcpPath := filepath.Join(outputDir, "mcp.json")
		if err := writeJSON(fs, mcpPath, harness.MCPConfig{MCPServers: mcpServers}); err != nil {
			return nil, err
		}
		bundle.MCPConfigPath = mcpPath
	}

	settings := composeClaudeSettings(inputs)
	settingsPath := filepath.Join(outputDir, "settings.json")
	if err := writeJSON(fs, settingsPath, settings); err != nil {
		return nil, err
	}
	bundle.SettingsPath = settingsPath

	return bundle, nil
}

// composeClaudeSettings implements the allow/deny concat-with-dedup,
// env later-wins, and model last-non-empty-wins rules (spec §4.9).
func composeClaudeSettings(inputs []SettingsInput) claudeSettings {
	var allow, deny []string
	seenAllow := make(map[string]bool)
	seenDeny := make(map[string]bool)
	env := make(map[string]string)
	model := ""

	for _, in := range inputs {
		for _, a := range in.Allow {
			if !seenAllow[a] {
				seenAllow[a] = true
				allow = append(allow, a)
			}
		}
		for _, d := range in.Deny {
			if !seenDeny[d] {
				seenDeny[d] = true
				deny = append(deny, d)
			}
		}
		for k, v := range in.Env {
			env[k] = v // later-wins
		}
		if in.Model != "" {
			model = in.Model // last-non-empty-wins
		}
	}

	settings := claudeSettings{Model: model}
	if len(env) > 0 {
		settings.Env = env
	}
	if len(allow) > 0 || len(deny) > 0 {
		settings.Permissions = &claudeSettingsPermissions{Allow: allow, Deny: deny}
	}
	return settings
}

func writeJSON(fs afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
