package harness

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/store"
)

// claudePluginManifest is the .claude-plugin/plugin.json shape (spec
// §4.8.1).
type claudePluginManifest struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Author      *struct {
		Name  string `json:"name,omitempty"`
		Email string `json:"email,omitempty"`
		URL   string `json:"url,omitempty"`
	} `json:"author,omitempty"`
}

// componentDirs are the space-tree component directories linked/copied
// verbatim into a Claude artifact.
var componentDirs = []string{"commands", "skills", "agents", "hooks", "scripts", "mcp"}

// MaterializeClaude assembles a Claude-family artifact from a snapshot
// (spec §4.8.1). Claude and Claude Agent SDK both materialize through this
// function identically; only the outputDir the caller passes differs.
func MaterializeClaude(fs afero.Fs, input MaterializeSpaceInput, outputDir string, opts MaterializeOptions) (*Artifact, error) {
	artifact := &Artifact{SpaceKey: input.SpaceKey, SpaceID: input.Manifest.ID, ArtifactPath: outputDir}

	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", outputDir, err)
	}

	pluginJSON := claudePluginManifest{Name: input.Manifest.ID}
	if input.Manifest.Plugin != nil {
		pluginJSON.Name = input.Manifest.Plugin.Name
		pluginJSON.Version = input.Manifest.Plugin.Version
		artifact.PluginName = input.Manifest.Plugin.Name
		artifact.PluginVersion = input.Manifest.Plugin.Version
		if input.Manifest.Plugin.Author != nil {
			pluginJSON.Author = &struct {
				Name  string `json:"name,omitempty"`
				Email string `json:"email,omitempty"`
				URL   string `json:"url,omitempty"`
			}{
				Name:  input.Manifest.Plugin.Author.Name,
				Email: input.Manifest.Plugin.Author.Email,
				URL:   input.Manifest.Plugin.Author.URL,
			}
		}
	}
	pluginJSON.Description = input.Manifest.Description

	pluginDir := filepath.Join(outputDir, ".claude-plugin")
	if err := writeJSON(fs, filepath.Join(pluginDir, "plugin.json"), pluginJSON); err != nil {
		return nil, err
	}
	artifact.Files = append(artifact.Files, ".claude-plugin/plugin.json")

	for _, dir := range componentDirs {
		src := filepath.Join(input.SnapshotPath, dir)
		if !dirExists(fs, src) {
			continue
		}
		dst := filepath.Join(outputDir, dir)
		if err := store.CopyIntoMode(fs, src, dst, opts.UseHardlinks); err != nil {
			return nil, fmt.Errorf("failed to materialize %s: %w", dir, err)
		}
		artifact.Files = append(artifact.Files, dir+"/")
	}

	if err := materializeInstructions(fs, input.SnapshotPath, outputDir, artifact); err != nil {
		return nil, err
	}

	if err := materializeClaudeHooks(fs, input.SnapshotPath, outputDir, artifact); err != nil {
		return nil, err
	}

	permSrc := filepath.Join(input.SnapshotPath, "permissions.toml")
	if fileExists(fs, permSrc) {
		data, err := afero.ReadFile(fs, permSrc)
		if err != nil {
			return nil, err
		}
		dst := filepath.Join(outputDir, "permissions.toml")
		if err := afero.WriteFile(fs, dst, data, 0o644); err != nil {
			return nil, err
		}
		artifact.Files = append(artifact.Files, "permissions.toml")
	}

	return artifact, nil
}

// materializeInstructions applies the AGENT.md/CLAUDE.md precedence rule
// (spec §4.8.1).
func materializeInstructions(fs afero.Fs, snapshotPath, outputDir string, artifact *Artifact) error {
	agentMd := filepath.Join(snapshotPath, "AGENT.md")
	claudeMd := filepath.Join(snapshotPath, "CLAUDE.md")

	var src string
	if fileExists(fs, agentMd) {
		src = agentMd
	} else if fileExists(fs, claudeMd) {
		src = claudeMd
	} else {
		return nil
	}

	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}
	dst := filepath.Join(outputDir, "CLAUDE.md")
	if err := afero.WriteFile(fs, dst, data, 0o644); err != nil {
		return err
	}
	artifact.Files = append(artifact.Files, "CLAUDE.md")
	return nil
}

func materializeClaudeHooks(fs afero.Fs, snapshotPath, outputDir string, artifact *Artifact) error {
	hooksTomlPath := filepath.Join(snapshotPath, "hooks", "hooks.toml")
	hooksJSONPath := filepath.Join(snapshotPath, "hooks", "hooks.json")

	if fileExists(fs, hooksTomlPath) {
		data, err := afero.ReadFile(fs, hooksTomlPath)
		if err != nil {
			return err
		}
		hooks, err := DecodeHooksToml(data)
		if err != nil {
			return err
		}
		doc := TranslateHooksToClaude(hooks, "${CLAUDE_PLUGIN_ROOT}/hooks/")
		if err := writeJSON(fs, filepath.Join(outputDir, "hooks", "hooks.json"), doc); err != nil {
			return err
		}
		artifact.Files = append(artifact.Files, "hooks/hooks.json")

		for _, h := range hooks {
			if err := ensureExecutable(fs, filepath.Join(outputDir, "hooks", h.Script)); err != nil {
				artifact.Warnings = append(artifact.Warnings, fmt.Sprintf("hook script %s: %v", h.Script, err))
			}
		}
		return nil
	}

	if fileExists(fs, hooksJSONPath) {
		// Already Claude-native; left as-is by componentDirs' hooks/ copy.
		return nil
	}
	return nil
}

func ensureExecutable(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return nil // script not present in this snapshot's hooks/ dir; not this function's concern
	}
	if info.Mode()&0o111 == 0o111 {
		return nil
	}
	return fs.Chmod(path, info.Mode()|0o111)
}

// MaterializePi assembles a Pi/Pi SDK artifact from a snapshot (spec
// §4.8.2). Each .ts/.js/.tsx/.jsx file directly under extensions/ is
// copied byte-for-byte to "<spaceId>__<filename-no-ext>.js"; sources are
// not bundled or transpiled, and subdirectories are skipped.
func MaterializePi(fs afero.Fs, input MaterializeSpaceInput, outputDir string, opts MaterializeOptions) (*Artifact, error) {
	artifact := &Artifact{SpaceKey: input.SpaceKey, SpaceID: input.Manifest.ID, ArtifactPath: outputDir}
	if input.Manifest.Plugin != nil {
		artifact.PluginName = input.Manifest.Plugin.Name
		artifact.PluginVersion = input.Manifest.Plugin.Version
	}

	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", outputDir, err)
	}

	extSrc := filepath.Join(input.SnapshotPath, "extensions")
	if dirExists(fs, extSrc) {
		entries, err := afero.ReadDir(fs, extSrc)
		if err != nil {
			return nil, err
		}
		extDst := filepath.Join(outputDir, "extensions")
		if err := fs.MkdirAll(extDst, 0o755); err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if ext != ".ts" && ext != ".js" && ext != ".tsx" && ext != ".jsx" {
				continue
			}
			base := strings.TrimSuffix(e.Name(), ext)
			namespaced := input.Manifest.ID + "__" + base + ".js"
			data, err := afero.ReadFile(fs, filepath.Join(extSrc, e.Name()))
			if err != nil {
				return nil, err
			}
			dst := filepath.Join(extDst, namespaced)
			if err := afero.WriteFile(fs, dst, data, 0o644); err != nil {
				return nil, err
			}
			artifact.Files = append(artifact.Files, "extensions/"+namespaced)
		}
	}

	agentMd := filepath.Join(input.SnapshotPath, "AGENT.md")
	if fileExists(fs, agentMd) {
		data, err := afero.ReadFile(fs, agentMd)
		if err != nil {
			return nil, err
		}
		if err := afero.WriteFile(fs, filepath.Join(outputDir, "AGENT.md"), data, 0o644); err != nil {
			return nil, err
		}
		artifact.Files = append(artifact.Files, "AGENT.md")
	}

	for _, dir := range []string{"skills", "scripts"} {
		src := filepath.Join(input.SnapshotPath, dir)
		if !dirExists(fs, src) {
			continue
		}
		dst := filepath.Join(outputDir, dir)
		if err := store.CopyIntoMode(fs, src, dst, opts.UseHardlinks); err != nil {
			return nil, err
		}
		artifact.Files = append(artifact.Files, dir+"/")
	}

	// Pi hooks live under hooks-scripts/, not hooks/ (spec §4.8.2).
	hooksSrc := filepath.Join(input.SnapshotPath, "hooks")
	if dirExists(fs, hooksSrc) {
		dst := filepath.Join(outputDir, "hooks-scripts")
		if err := store.CopyIntoMode(fs, hooksSrc, dst, opts.UseHardlinks); err != nil {
			return nil, err
		}
		artifact.Files = append(artifact.Files, "hooks-scripts/")
	}

	permSrc := filepath.Join(input.SnapshotPath, "permissions.toml")
	if fileExists(fs, permSrc) {
		data, err := afero.ReadFile(fs, permSrc)
		if err != nil {
			return nil, err
		}
		if err := afero.WriteFile(fs, filepath.Join(outputDir, "permissions.toml"), data, 0o644); err != nil {
			return nil, err
		}
		artifact.Files = append(artifact.Files, "permissions.toml")
	}

	return artifact, nil
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

func dirExists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}
