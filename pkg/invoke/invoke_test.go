package invoke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspaces/asp/pkg/compose"
	"github.com/agentspaces/asp/pkg/harness"
)

func TestBuildInvocation_Claude_PluginDirsAndMCP(t *testing.T) {
	bundle := &compose.ComposedTargetBundle{
		HarnessID:     harness.Claude,
		RootDir:       "/asp/targets/dev/claude",
		PluginDirs:    []string{"/asp/targets/dev/claude/plugins/000-base", "/asp/targets/dev/claude/plugins/001-frontend"},
		MCPConfigPath: "/asp/targets/dev/claude/mcp/mcp.json",
		SettingsPath:  "/asp/targets/dev/claude/settings.json",
	}

	inv, err := BuildInvocation(bundle, RunOptions{Model: "sonnet", Yolo: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"claude",
		"--plugin-dir", "/asp/targets/dev/claude/plugins/000-base",
		"--plugin-dir", "/asp/targets/dev/claude/plugins/001-frontend",
		"--mcp-config", "/asp/targets/dev/claude/mcp/mcp.json",
		"--settings", "/asp/targets/dev/claude/settings.json",
		"--model", "sonnet",
		"--dangerously-skip-permissions",
	}, inv.Argv)
	assert.Equal(t, "/asp/targets/dev/claude", inv.Env["ASP_PLUGIN_ROOT"])
}

func TestBuildInvocation_Pi_ModelTranslation(t *testing.T) {
	bundle := &compose.ComposedTargetBundle{
		HarnessID: harness.Pi,
		Pi:        &compose.PiBundleInfo{BridgePath: "/asp/targets/dev/pi/extensions/asp-hooks.bridge.js"},
	}

	inv, err := BuildInvocation(bundle, RunOptions{Model: "opus"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"pi",
		"--extension", "/asp/targets/dev/pi/extensions/asp-hooks.bridge.js",
		"--no-skills",
		"--model", "claude-opus",
	}, inv.Argv)
}

func TestBuildInvocation_Pi_SpaceExtensionsPrecedeBridge(t *testing.T) {
	bundle := &compose.ComposedTargetBundle{
		HarnessID: harness.Pi,
		Pi: &compose.PiBundleInfo{
			BridgePath:     "/asp/targets/dev/pi/extensions/asp-hooks.bridge.js",
			ExtensionFiles: []string{"/asp/targets/dev/pi/extensions/base-tools.js", "/asp/targets/dev/pi/extensions/frontend-tools.js"},
		},
	}

	inv, err := BuildInvocation(bundle, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"pi",
		"--extension", "/asp/targets/dev/pi/extensions/base-tools.js",
		"--extension", "/asp/targets/dev/pi/extensions/frontend-tools.js",
		"--extension", "/asp/targets/dev/pi/extensions/asp-hooks.bridge.js",
		"--no-skills",
	}, inv.Argv)
}

func TestBuildInvocation_Pi_NoExtensions(t *testing.T) {
	bundle := &compose.ComposedTargetBundle{
		HarnessID: harness.Pi,
		Pi:        &compose.PiBundleInfo{NoExtensions: true},
	}

	inv, err := BuildInvocation(bundle, RunOptions{})
	require.NoError(t, err)
	assert.Contains(t, inv.Argv, "--no-extensions")
	assert.NotContains(t, inv.Argv, "--extension")
}

func TestBuildInvocation_Codex_SetsCodexHome(t *testing.T) {
	bundle := &compose.ComposedTargetBundle{
		HarnessID: harness.Codex,
		Codex:     &compose.CodexBundleInfo{HomeTemplatePath: "/asp/targets/dev/codex/codex.home"},
	}

	inv, err := BuildInvocation(bundle, RunOptions{ApprovalPolicy: "untrusted", SandboxMode: "read-only"})
	require.NoError(t, err)

	assert.Equal(t, []string{"codex", "--approval-policy", "untrusted", "--sandbox-mode", "read-only"}, inv.Argv)
	assert.Equal(t, "/asp/targets/dev/codex/codex.home", inv.Env["CODEX_HOME"])
}

func TestBuildInvocation_UnknownHarness(t *testing.T) {
	bundle := &compose.ComposedTargetBundle{HarnessID: harness.ID("bogus")}
	_, err := BuildInvocation(bundle, RunOptions{})
	require.Error(t, err)
}

func TestFormatForDisplay_QuotesUnsafeArgsAndSortsEnv(t *testing.T) {
	inv := Invocation{
		Argv: []string{"claude", "--prompt", "do the thing; rm -rf /"},
		Env:  map[string]string{"ASP_PLUGIN_ROOT": "/a/b", "ZEBRA": "plain"},
	}

	out := FormatForDisplay(inv)
	assert.Contains(t, out, "ASP_PLUGIN_ROOT=/a/b ZEBRA=plain claude --prompt")
	assert.Contains(t, out, `'do the thing; rm -rf /'`)
}
