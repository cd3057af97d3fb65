// Package invoke translates a ComposedTargetBundle and per-run options
// into an argv and environment overlay per harness (spec §4.12).
package invoke

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentspaces/asp/pkg/compose"
	"github.com/agentspaces/asp/pkg/harness"
)

// RunOptions are the per-run flags shared across harnesses (spec §6 CLI
// surface "per-run flags").
type RunOptions struct {
	Model          string
	Yolo           bool
	Interactive    bool
	Prompt         string
	SettingSources *string // nil: omit; pointer-to-"": emit empty string; pointer-to-value: passthrough
	PermissionMode string
	ApprovalPolicy string
	SandboxMode    string
	Profile        string
	ProjectRoot    string
	Cwd            string
}

// Invocation is an ordered argv plus an environment overlay, ready to
// spawn (or print, for --dry-run).
type Invocation struct {
	Argv []string
	Env  map[string]string
}

// BuildInvocation dispatches to the per-harness argv builder.
func BuildInvocation(bundle *compose.ComposedTargetBundle, opts RunOptions) (Invocation, error) {
	switch bundle.HarnessID {
	case harness.Claude, harness.ClaudeAgentSDK:
		return buildClaudeInvocation(bundle, opts), nil
	case harness.Pi:
		return buildPiInvocation(bundle, opts), nil
	case harness.PiSDK:
		return buildPiSDKInvocation(bundle, opts), nil
	case harness.Codex:
		return buildCodexInvocation(bundle, opts), nil
	default:
		return Invocation{}, fmt.Errorf("unknown harness id %q", bundle.HarnessID)
	}
}

func buildClaudeInvocation(bundle *compose.ComposedTargetBundle, opts RunOptions) Invocation {
	argv := []string{"claude"}
	for _, dir := range bundle.PluginDirs {
		argv = append(argv, "--plugin-dir", dir)
	}
	if bundle.MCPConfigPath != "" {
		argv = append(argv, "--mcp-config", bundle.MCPConfigPath)
	}

	settingsArg := bundle.SettingsPath
	argv = append(argv, "--settings", settingsArg)

	if opts.SettingSources != nil {
		argv = append(argv, "--setting-sources", *opts.SettingSources)
	}
	if opts.Model != "" {
		argv = append(argv, "--model", opts.Model)
	}
	if opts.PermissionMode != "" {
		argv = append(argv, "--permission-mode", opts.PermissionMode)
	}
	if opts.Yolo {
		argv = append(argv, "--dangerously-skip-permissions")
	}

	return Invocation{
		Argv: argv,
		Env:  map[string]string{"ASP_PLUGIN_ROOT": bundle.RootDir},
	}
}

// piModelTranslation maps the short aliases to Pi's claude-<alias> model
// identifiers (spec §4.12 "Pi").
var piModelTranslation = map[string]string{
	"sonnet": "claude-sonnet",
	"opus":   "claude-opus",
	"haiku":  "claude-haiku",
}

func buildPiInvocation(bundle *compose.ComposedTargetBundle, opts RunOptions) Invocation {
	argv := []string{"pi"}

	noExtensions := bundle.Pi == nil || bundle.Pi.NoExtensions
	if !noExtensions {
		for _, ext := range bundle.Pi.ExtensionFiles {
			argv = append(argv, "--extension", ext)
		}
		argv = append(argv, "--extension", bundle.Pi.BridgePath)
	} else {
		argv = append(argv, "--no-extensions")
	}
	argv = append(argv, "--no-skills")

	if opts.Model != "" {
		if translated, ok := piModelTranslation[opts.Model]; ok {
			argv = append(argv, "--model", translated)
		} else {
			argv = append(argv, "--model", opts.Model)
		}
	}

	return Invocation{Argv: argv, Env: map[string]string{}}
}

func buildPiSDKInvocation(bundle *compose.ComposedTargetBundle, opts RunOptions) Invocation {
	bundleRoot := bundle.RootDir
	if bundle.PiSDK != nil {
		bundleRoot = bundle.RootDir
	}

	argv := []string{"bun", bundleRoot + "/runner.ts", "--bundle", bundleRoot}
	if opts.ProjectRoot != "" {
		argv = append(argv, "--project", opts.ProjectRoot)
	}
	if opts.Cwd != "" {
		argv = append(argv, "--cwd", opts.Cwd)
	}

	mode := "print"
	if opts.Interactive {
		mode = "interactive"
	}
	argv = append(argv, "--mode", mode)

	if opts.Prompt != "" {
		argv = append(argv, "--prompt", opts.Prompt)
	}
	if opts.Model != "" {
		argv = append(argv, "--model", "p:"+opts.Model)
	}
	if opts.Yolo {
		argv = append(argv, "--yolo")
	}

	return Invocation{Argv: argv, Env: map[string]string{}}
}

func buildCodexInvocation(bundle *compose.ComposedTargetBundle, opts RunOptions) Invocation {
	argv := []string{"codex"}
	if opts.ApprovalPolicy != "" {
		argv = append(argv, "--approval-policy", opts.ApprovalPolicy)
	}
	if opts.SandboxMode != "" {
		argv = append(argv, "--sandbox-mode", opts.SandboxMode)
	}
	if opts.Profile != "" {
		argv = append(argv, "--profile", opts.Profile)
	}
	if opts.Model != "" {
		argv = append(argv, "--model", opts.Model)
	}

	env := map[string]string{}
	if bundle.Codex != nil {
		env["CODEX_HOME"] = bundle.Codex.HomeTemplatePath
	}
	return Invocation{Argv: argv, Env: env}
}

// FormatForDisplay shell-quotes every argv element and prefixes KEY=VALUE
// env pairs so the printed command is copy-pasteable (spec §4.12), in the
// teacher's colorized-summary presentation idiom generalized here into a
// plain argv pretty-printer.
func FormatForDisplay(inv Invocation) string {
	var parts []string

	keys := make([]string, 0, len(inv.Env))
	for k := range inv.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, shellQuote(inv.Env[k])))
	}

	for _, arg := range inv.Argv {
		parts = append(parts, shellQuote(arg))
	}

	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_./:@%+=,", r):
		default:
			safe = false
		}
		if !safe {
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
