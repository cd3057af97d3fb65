// Package harness materializes a single space's snapshot into a
// per-harness artifact directory (spec §4.8), and exposes the shared
// harness capability set used by orchestration and invocation.
package harness

import (
	"github.com/agentspaces/asp/pkg/closure"
	"github.com/agentspaces/asp/pkg/manifest"
)

// ID identifies one of the supported coding-agent harnesses.
type ID string

const (
	Claude         ID = "claude"
	ClaudeAgentSDK ID = "claude-agent-sdk"
	Pi             ID = "pi"
	PiSDK          ID = "pi-sdk"
	Codex          ID = "codex"
)

// MCPServerConfig is one entry of a Claude-style mcp.json, shaped after
// the teacher's LoadMCPServerConfig (cmd/main/load.go).
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// MCPConfig is the top-level mcp.json document.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MaterializeSpaceInput is C8's per-space input.
type MaterializeSpaceInput struct {
	SpaceKey     closure.SpaceKey
	Manifest     *manifest.SpaceManifest
	SnapshotPath string
	Integrity    string
}

// MaterializeOptions tunes how a space is copied into an artifact tree.
type MaterializeOptions struct {
	Force        bool
	UseHardlinks bool
}

// Artifact is C8's output: a materialized directory plus the files it
// wrote and any non-fatal warnings.
type Artifact struct {
	SpaceKey     closure.SpaceKey
	SpaceID      string
	ArtifactPath string
	PluginName   string
	PluginVersion string
	Files        []string
	Warnings     []string
}
