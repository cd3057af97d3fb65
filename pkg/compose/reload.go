package compose

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/harness"
)

// LoadComposedBundle reconstructs a ComposedTargetBundle from a
// previously-composed outputDir without redoing the merge work, the
// "reload" half of C9's dual compose-or-reload path (spec §4.13 "run").
// It trusts the directory layout each ComposeXxx function writes and
// returns an error if outputDir doesn't look like a prior composition.
func LoadComposedBundle(fs afero.Fs, h harness.ID, targetName, outputDir string) (*ComposedTargetBundle, error) {
	exists, err := afero.DirExists(fs, outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat bundle root %s: %w", outputDir, err)
	}
	if !exists {
		return nil, fmt.Errorf("no composed bundle found at %s", outputDir)
	}

	bundle := &ComposedTargetBundle{HarnessID: h, TargetName: targetName, RootDir: outputDir}

	switch h {
	case harness.Claude, harness.ClaudeAgentSDK:
		pluginsDir := filepath.Join(outputDir, "plugins")
		entries, err := afero.ReadDir(fs, pluginsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read plugins dir %s: %w", pluginsDir, err)
		}
		for _, e := range entries {
			bundle.PluginDirs = append(bundle.PluginDirs, filepath.Join(pluginsDir, e.Name()))
		}
		if mcpPath := filepath.Join(outputDir, "mcp.json"); pathExists(fs, mcpPath) {
			bundle.MCPConfigPath = mcpPath
		}
		bundle.SettingsPath = filepath.Join(outputDir, "settings.json")

	case harness.Pi:
		extDir := filepath.Join(outputDir, "extensions")
		bridgePath := filepath.Join(extDir, "asp-hooks.bridge.js")
		var extensionFiles []string
		if entries, err := afero.ReadDir(fs, extDir); err == nil {
			for _, e := range entries {
				if e.Name() == "asp-hooks.bridge.js" || !strings.HasSuffix(e.Name(), ".js") {
					continue
				}
				extensionFiles = append(extensionFiles, filepath.Join(extDir, e.Name()))
			}
			sort.Strings(extensionFiles)
		}
		bundle.Pi = &PiBundleInfo{
			ExtensionsDir:  extDir,
			BridgePath:     bridgePath,
			ExtensionFiles: extensionFiles,
			NoExtensions:   !pathExists(fs, bridgePath),
		}

	case harness.PiSDK:
		bundle.PiSDK = &PiSDKBundleInfo{BundleJSONPath: filepath.Join(outputDir, "bundle.json")}

	case harness.Codex:
		bundle.Codex = &CodexBundleInfo{HomeTemplatePath: filepath.Join(outputDir, "codex.home")}

	default:
		return nil, fmt.Errorf("unsupported harness %q", h)
	}

	return bundle, nil
}
