// Package compose assembles per-space artifacts into a per-target,
// per-harness ComposedTargetBundle (spec §4.9).
package compose

import "github.com/agentspaces/asp/pkg/harness"

// Warning is a lossy-merge notice recorded during composition (spec §4.9
// "record a LockWarning{code, message, spaces[]} for every lossy merge").
type Warning struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Spaces  []string `json:"spaces,omitempty"`
}

// PiBundleInfo is the Pi-specific leg of a ComposedTargetBundle.
type PiBundleInfo struct {
	ExtensionsDir string
	BridgePath    string
	// ExtensionFiles lists every non-bridge .js file under ExtensionsDir,
	// full paths, sorted, one "--extension" flag per file (spec §4.12 "Pi").
	ExtensionFiles []string
	NoExtensions   bool
}

// PiSDKBundleInfo is the Pi SDK-specific leg.
type PiSDKBundleInfo struct {
	BundleJSONPath string
}

// CodexBundleInfo is the Codex-specific leg.
type CodexBundleInfo struct {
	HomeTemplatePath string
}

// ComposedTargetBundle is the result of composing one target for one
// harness (spec §3).
type ComposedTargetBundle struct {
	HarnessID      harness.ID
	TargetName     string
	RootDir        string
	PluginDirs     []string
	MCPConfigPath  string
	SettingsPath   string
	Pi             *PiBundleInfo
	PiSDK          *PiSDKBundleInfo
	Codex          *CodexBundleInfo
	Warnings       []Warning
}

// SettingsInput bundles one artifact's raw manifest settings alongside its
// permissions.toml-derived canonical permissions, both needed by Claude
// settings.json composition.
type SettingsInput struct {
	SpaceID     string
	Env         map[string]string
	Model       string
	Allow       []string
	Deny        []string
	Permissions *harness.CanonicalPermissions
}

// Options tunes composition.
type Options struct {
	Force bool
}
