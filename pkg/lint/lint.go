// Package lint implements the W2xx/W3xx composition warnings (spec
// §4.10), modeled on the teacher's validator issue-accumulation style
// (pkg/bundle/validator.Validator).
package lint

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/harness"
)

// Severity classifies a lint finding.
type Severity string

const (
	Info    Severity = "info"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Issue is one lint finding.
type Issue struct {
	Code     string
	Severity Severity
	Message  string
	Spaces   []string
}

// Linter accumulates issues the way the teacher's Validator does:
// construct, run checks, read Issues().
type Linter struct {
	issues []Issue
}

// New creates an empty Linter.
func New() *Linter { return &Linter{} }

// Issues returns every issue recorded so far.
func (l *Linter) Issues() []Issue { return l.issues }

// HasErrors reports whether any recorded issue is Error severity (spec §7:
// "Presence of any error severity aborts run before spawning the harness").
func (l *Linter) HasErrors() bool {
	for _, i := range l.issues {
		if i.Severity == Error {
			return true
		}
	}
	return false
}

func (l *Linter) add(code string, sev Severity, spaces []string, format string, args ...any) {
	l.issues = append(l.issues, Issue{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Spaces:   spaces,
	})
}

// artifactView is the minimal per-space info the linter needs: its id,
// artifact path, and plugin name, decoupled from pkg/harness.Artifact so
// tests can build fixtures without materializing real snapshots.
type artifactView struct {
	SpaceID      string
	ArtifactPath string
	PluginName   string
}

func toArtifactViews(artifacts []harness.Artifact) []artifactView {
	views := make([]artifactView, len(artifacts))
	for i, a := range artifacts {
		views[i] = artifactView{SpaceID: a.SpaceID, ArtifactPath: a.ArtifactPath, PluginName: a.PluginName}
	}
	return views
}

// CheckCommandCollisions implements W201: the same command file base-name
// appears in commands/ of two or more composed spaces.
func (l *Linter) CheckCommandCollisions(fs afero.Fs, artifacts []harness.Artifact) {
	owners := make(map[string][]string)
	for _, a := range toArtifactViews(artifacts) {
		dir := filepath.Join(a.ArtifactPath, "commands")
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			owners[e.Name()] = append(owners[e.Name()], a.SpaceID)
		}
	}

	var names []string
	for name := range owners {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spaces := owners[name]
		if len(spaces) > 1 {
			l.add("W201", Warning, spaces, "command %q provided by multiple spaces: %s", name, strings.Join(spaces, ", "))
		}
	}
}

var commandRefPattern = regexp.MustCompile(`/([a-zA-Z0-9_-]+)\b`)
var qualifiedCommandPattern = regexp.MustCompile(`/[a-zA-Z0-9_-]+:[a-zA-Z0-9_-]+`)
var urlPattern = regexp.MustCompile(`https?://`)

// CheckUnqualifiedCommandRefs implements W202: an agent markdown references
// "/name" where name is a command provided by any composed space, and the
// form is unqualified (not "/<plugin>:name").
func (l *Linter) CheckUnqualifiedCommandRefs(fs afero.Fs, artifacts []harness.Artifact) {
	commandNames := make(map[string]bool)
	for _, a := range toArtifactViews(artifacts) {
		dir := filepath.Join(a.ArtifactPath, "commands")
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			commandNames[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = true
		}
	}

	for _, a := range toArtifactViews(artifacts) {
		dir := filepath.Join(a.ArtifactPath, "agents")
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			data, err := afero.ReadFile(fs, filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			text := string(data)
			for _, line := range strings.Split(text, "\n") {
				if urlPattern.MatchString(line) {
					continue
				}
				for _, m := range commandRefPattern.FindAllStringSubmatch(line, -1) {
					name := m[1]
					if !commandNames[name] {
						continue
					}
					fullMatch := m[0]
					idx := strings.Index(line, fullMatch)
					if idx > 0 && qualifiedCommandPattern.MatchString(line[max(0, idx-40):idx+len(fullMatch)]) {
						continue
					}
					l.add("W202", Warning, []string{a.SpaceID}, "agent %s references unqualified command /%s", e.Name(), name)
				}
			}
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// CheckHookPathTraversal implements W203: a hook script path contains "..".
func (l *Linter) CheckHookPathTraversal(hooks []harness.HookDef, spaceID string) {
	for _, h := range hooks {
		if strings.Contains(h.Script, "..") {
			l.add("W203", Warning, []string{spaceID}, "hook script path %q escapes the plugin root", h.Script)
		}
	}
}

// CheckInvalidHooksConfig implements W204: hooks/ exists but neither
// hooks.toml nor hooks.json is valid.
func (l *Linter) CheckInvalidHooksConfig(fs afero.Fs, artifactPath, spaceID string, hooksTomlErr, hooksJSONErr error, hooksDirExists bool) {
	if hooksDirExists && hooksTomlErr != nil && hooksJSONErr != nil {
		l.add("W204", Error, []string{spaceID}, "hooks/ present but neither hooks.toml nor hooks.json parsed: %v / %v", hooksTomlErr, hooksJSONErr)
	}
}

// CheckPluginNameCollisions implements W205: two artifacts share the same
// plugin.name.
func (l *Linter) CheckPluginNameCollisions(artifacts []harness.Artifact) {
	owners := make(map[string][]string)
	for _, a := range artifacts {
		if a.PluginName == "" {
			continue
		}
		owners[a.PluginName] = append(owners[a.PluginName], a.SpaceID)
	}
	var names []string
	for name := range owners {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spaces := owners[name]
		if len(spaces) > 1 {
			l.add("W205", Warning, spaces, "plugin name %q shared by spaces: %s", name, strings.Join(spaces, ", "))
		}
	}
}

// CheckNonExecutableHookScripts implements W206: a hook script file exists
// but lacks an execute bit.
func (l *Linter) CheckNonExecutableHookScripts(fs afero.Fs, artifactPath, spaceID string, hooks []harness.HookDef) {
	for _, h := range hooks {
		path := filepath.Join(artifactPath, "hooks", h.Script)
		info, err := fs.Stat(path)
		if err != nil {
			continue
		}
		if info.Mode()&0o111 == 0 {
			l.add("W206", Warning, []string{spaceID}, "hook script %s is not executable", h.Script)
		}
	}
}

// CheckLintOnlyPermissions implements W304: permissions.toml contains
// facets the target harness cannot enforce.
func (l *Linter) CheckLintOnlyPermissions(spaceID string, facets []string) {
	if len(facets) == 0 {
		return
	}
	l.add("W304", Info, []string{spaceID}, "permission facets not enforced by this harness: %s", strings.Join(facets, ", "))
}
