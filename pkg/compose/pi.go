package compose

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/harness"
	"github.com/agentspaces/asp/pkg/store"
)

// bridgeTemplate renders the Pi hook bridge extension, the way the
// teacher's Manager.processTemplate renders bundle config templates.
var bridgeTemplate = template.Must(template.New("asp-hooks.bridge").Parse(`// Generated by asp compose. Do not edit by hand.
import { spawn } from "node:child_process";

const TARGETS = {{.TargetsJSON}};

function dispatch(event, payload) {
  const matches = TARGETS.filter((t) => t.piEvent === event);
  for (const target of matches) {
    const env = {
      ...process.env,
      ASP_HARNESS: "pi",
      ASP_TARGET: {{.TargetNameJSON}},
      ASP_BUNDLE_ROOT: {{.BundleRootJSON}},
      ASP_EVENT: event,
      ASP_TOOL_NAME: payload.toolName || "",
      ASP_TOOL_INPUT: JSON.stringify(payload.toolInput || {}),
      ASP_TOOL_RESULT: JSON.stringify(payload.toolResult || {}),
      ASP_SESSION_ID: payload.sessionId || "",
      ASP_SPACE_IDS: {{.SpaceIDsJSON}},
    };
    const child = spawn(target.script, { env, stdio: ["pipe", "pipe", "pipe"] });
    child.stdin.write(JSON.stringify(payload));
    child.stdin.end();
    if (target.blocking && event === "tool_call") {
      return { block: true, pending: child };
    }
  }
  return { block: false };
}

export function register(pi) {
  pi.on("tool_call", (payload) => dispatch("tool_call", payload));
  pi.on("tool_result", (payload) => dispatch("tool_result", payload));
  pi.on("session_start", (payload) => dispatch("session_start", payload));
  pi.on("session_shutdown", (payload) => dispatch("session_shutdown", payload));
}
`))

type bridgeTarget struct {
	PiEvent  string `json:"piEvent"`
	Script   string `json:"script"`
	Blocking bool   `json:"blocking"`
}

// ComposePi merges extensions/, skills/, scripts/, and hooks-scripts/ from
// every artifact and generates the Pi hook bridge (spec §4.9 "Pi").
func ComposePi(fs afero.Fs, artifacts []harness.Artifact, hooksBySpace map[string][]harness.HookDef, targetName, outputDir string, opts Options) (*ComposedTargetBundle, error) {
	bundle := &ComposedTargetBundle{HarnessID: harness.Pi, TargetName: targetName, RootDir: outputDir}

	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bundle root %s: %w", outputDir, err)
	}

	extDst := filepath.Join(outputDir, "extensions")
	seenExt := make(map[string]string) // basename -> owning space, for W303 detection
	for _, a := range artifacts {
		extSrc := filepath.Join(a.ArtifactPath, "extensions")
		if !pathExists(fs, extSrc) {
			continue
		}
		entries, err := afero.ReadDir(fs, extSrc)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if owner, collided := seenExt[e.Name()]; collided {
				bundle.Warnings = append(bundle.Warnings, Warning{
					Code:    "W303",
					Message: fmt.Sprintf("extension %q emitted by both %s and %s", e.Name(), owner, a.SpaceID),
					Spaces:  []string{owner, a.SpaceID},
				})
				continue
			}
			seenExt[e.Name()] = a.SpaceID
			if err := store.CopyInto(fs, filepath.Join(extSrc, e.Name()), filepath.Join(extDst, e.Name())); err != nil {
				return nil, err
			}
		}
	}

	var extensionFiles []string
	for name := range seenExt {
		if strings.HasSuffix(name, ".js") {
			extensionFiles = append(extensionFiles, filepath.Join(extDst, name))
		}
	}
	sort.Strings(extensionFiles)

	for _, dir := range []string{"skills", "scripts", "hooks-scripts"} {
		seenDirs := make(map[string]string)
		for _, a := range artifacts {
			src := filepath.Join(a.ArtifactPath, dir)
			if !pathExists(fs, src) {
				continue
			}
			entries, err := afero.ReadDir(fs, src)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				dst := filepath.Join(outputDir, dir, e.Name())
				if owner, collided := seenDirs[e.Name()]; collided {
					bundle.Warnings = append(bundle.Warnings, Warning{
						Code:    "COMPONENT_COLLISION",
						Message: fmt.Sprintf("%s/%s provided by both %s and %s; keeping first", dir, e.Name(), owner, a.SpaceID),
						Spaces:  []string{owner, a.SpaceID},
					})
					continue
				}
				seenDirs[e.Name()] = a.SpaceID
				if err := store.CopyInto(fs, filepath.Join(src, e.Name()), dst); err != nil {
					return nil, err
				}
			}
		}
	}

	var targets []bridgeTarget
	var hasBlocking bool
	var spaceIDs []string
	for _, a := range artifacts {
		spaceIDs = append(spaceIDs, a.SpaceID)
		for _, h := range harness.TranslateHooksToPi(hooksBySpace[a.SpaceID]) {
			targets = append(targets, bridgeTarget{PiEvent: h.PiEvent, Script: h.Script, Blocking: h.Blocking})
			if h.Blocking {
				hasBlocking = true
			}
		}
	}
	if hasBlocking {
		bundle.Warnings = append(bundle.Warnings, Warning{
			Code:    "W301",
			Message: "Pi cannot deterministically block a tool call the way Claude can; blocking hooks run best-effort",
		})
	}

	bridgePath := filepath.Join(extDst, "asp-hooks.bridge.js")
	if err := writeBridge(fs, bridgePath, targets, targetName, outputDir, spaceIDs); err != nil {
		return nil, err
	}

	bundle.Pi = &PiBundleInfo{
		ExtensionsDir:  extDst,
		BridgePath:     bridgePath,
		ExtensionFiles: extensionFiles,
		NoExtensions:   len(seenExt) == 0,
	}
	return bundle, nil
}

func writeBridge(fs afero.Fs, path string, targets []bridgeTarget, targetName, bundleRoot string, spaceIDs []string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Script < targets[j].Script })

	data := struct {
		TargetsJSON    string
		TargetNameJSON string
		BundleRootJSON string
		SpaceIDsJSON   string
	}{
		TargetsJSON:    jsonArrayLiteral(targets),
		TargetNameJSON: jsonStringLiteral(targetName),
		BundleRootJSON: jsonStringLiteral(bundleRoot),
		SpaceIDsJSON:   jsonStringLiteral(strings.Join(spaceIDs, ",")),
	}

	var buf strings.Builder
	if err := bridgeTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render hook bridge: %w", err)
	}
	return afero.WriteFile(fs, path, []byte(buf.String()), 0o644)
}

func jsonStringLiteral(s string) string {
	return fmt.Sprintf("%q", s)
}

func jsonArrayLiteral(targets []bridgeTarget) string {
	var parts []string
	for _, t := range targets {
		parts = append(parts, fmt.Sprintf(`{"piEvent":%q,"script":%q,"blocking":%t}`, t.PiEvent, t.Script, t.Blocking))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func pathExists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}
