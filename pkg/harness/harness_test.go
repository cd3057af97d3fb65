package harness

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspaces/asp/pkg/manifest"
)

func TestTranslateHooksToClaude_GroupsByMatcher(t *testing.T) {
	hooks := []HookDef{
		{Event: "pre_tool_use", Script: "a.sh", Tools: []string{"Bash", "Edit"}},
		{Event: "pre_tool_use", Script: "b.sh", Tools: []string{"Bash", "Edit"}},
		{Event: "pre_tool_use", Script: "c.sh"},
		{Event: "stop", Script: "d.sh", Harness: "pi"}, // skipped: pi-only
	}

	doc := TranslateHooksToClaude(hooks, "${CLAUDE_PLUGIN_ROOT}/hooks/")

	groups := doc["PreToolUse"]
	require.Len(t, groups, 2)

	var combined, wildcard *ClaudeHookGroup
	for i := range groups {
		if groups[i].Matcher == "Bash|Edit" {
			combined = &groups[i]
		}
		if groups[i].Matcher == "*" {
			wildcard = &groups[i]
		}
	}
	require.NotNil(t, combined)
	require.NotNil(t, wildcard)
	assert.Len(t, combined.Hooks, 2)
	assert.Equal(t, "${CLAUDE_PLUGIN_ROOT}/hooks/a.sh", combined.Hooks[0].Command)
	assert.Len(t, wildcard.Hooks, 1)

	assert.Empty(t, doc["Stop"], "harness:pi hooks must not appear in Claude output")
}

func TestTranslateHooksToClaude_UnmappedEventOmitted(t *testing.T) {
	hooks := []HookDef{{Event: "nonexistent_event", Script: "x.sh"}}
	doc := TranslateHooksToClaude(hooks, "${CLAUDE_PLUGIN_ROOT}/hooks/")
	assert.Empty(t, doc)
}

func TestTranslateHooksToPi_SkipsClaudeOnly(t *testing.T) {
	hooks := []HookDef{
		{Event: "pre_tool_use", Script: "a.sh", Harness: "claude"},
		{Event: "session_start", Script: "b.sh"},
		{Event: "stop", Script: "c.sh"}, // no Pi mapping
	}
	targets := TranslateHooksToPi(hooks)
	require.Len(t, targets, 1)
	assert.Equal(t, "session_start", targets[0].PiEvent)
}

func TestToClaudeSettingsPermissions_DeniedPathsAndPatterns(t *testing.T) {
	p := &CanonicalPermissions{
		Read:  PermissionFacet{Paths: []string{"/src"}},
		Exec:  PermissionFacet{Patterns: []string{"npm *"}},
	}
	p.Deny.Read.Paths = []string{"/etc"}
	p.Deny.Write.Paths = []string{"/var"}
	p.Deny.Exec.Patterns = []string{"rm -rf *"}

	allow, deny := ToClaudeSettingsPermissions(p)
	assert.Contains(t, allow, "Read")
	assert.Contains(t, allow, "Bash(npm *)")
	assert.Contains(t, deny, "Read(/etc)")
	assert.Contains(t, deny, "Write(/var)")
	assert.Contains(t, deny, "Bash(rm -rf *)")
}

func TestLintOnlyFacets_Pi(t *testing.T) {
	p := &CanonicalPermissions{
		Read:    PermissionFacet{Paths: []string{"/src"}},
		Network: PermissionFacet{Hosts: []string{"example.com"}},
	}
	facets := LintOnlyFacets(p, PiEnforcement)
	assert.Contains(t, facets, "read")
	assert.Contains(t, facets, "network")
}

func TestMaterializeClaude_BuildsPluginAndInstructions(t *testing.T) {
	fs := afero.NewMemMapFs()
	snapshot := "/store/spaces/abc123"
	require.NoError(t, afero.WriteFile(fs, snapshot+"/AGENT.md", []byte("# instructions"), 0o644))
	require.NoError(t, afero.WriteFile(fs, snapshot+"/commands/build.md", []byte("do the build"), 0o644))

	input := MaterializeSpaceInput{
		SpaceKey:     "base@abc123456789",
		Manifest:     &manifest.SpaceManifest{Schema: 1, ID: "base", Plugin: &manifest.PluginMeta{Name: "base-plugin", Version: "1.0.0"}},
		SnapshotPath: snapshot,
		Integrity:    "sha256:abc123",
	}

	artifact, err := MaterializeClaude(fs, input, "/out/base", MaterializeOptions{UseHardlinks: false})
	require.NoError(t, err)
	assert.Equal(t, "base-plugin", artifact.PluginName)

	content, err := afero.ReadFile(fs, "/out/base/.claude-plugin/plugin.json")
	require.NoError(t, err)
	assert.Contains(t, string(content), "base-plugin")

	claudeMd, err := afero.ReadFile(fs, "/out/base/CLAUDE.md")
	require.NoError(t, err)
	assert.Equal(t, "# instructions", string(claudeMd))

	cmdFile, err := afero.ReadFile(fs, "/out/base/commands/build.md")
	require.NoError(t, err)
	assert.Equal(t, "do the build", string(cmdFile))
}

func TestMaterializePi_NamespacesExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	snapshot := "/store/spaces/def456"
	require.NoError(t, afero.WriteFile(fs, snapshot+"/extensions/tool.ts", []byte("export default {}"), 0o644))

	input := MaterializeSpaceInput{
		SpaceKey:     "frontend@def456789012",
		Manifest:     &manifest.SpaceManifest{Schema: 1, ID: "frontend"},
		SnapshotPath: snapshot,
	}

	artifact, err := MaterializePi(fs, input, "/out/frontend", MaterializeOptions{})
	require.NoError(t, err)
	assert.Contains(t, artifact.Files, "extensions/frontend__tool.js")

	content, err := afero.ReadFile(fs, "/out/frontend/extensions/frontend__tool.js")
	require.NoError(t, err)
	assert.Equal(t, "export default {}", string(content))
}
