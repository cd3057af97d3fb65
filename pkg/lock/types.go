// Package lock computes, serializes, diffs, and merges ASP lock files
// (spec §4.7).
package lock

import "github.com/agentspaces/asp/pkg/closure"

const (
	LockfileVersion = 1
	ResolverVersion = 1
)

// RegistryInfo identifies the registry a lock was computed against.
type RegistryInfo struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ResolvedFromRecord mirrors resolver.ResolvedSelector's provenance fields
// for persistence (spec §3 LockSpaceEntry.resolvedFrom).
type ResolvedFromRecord struct {
	Selector string `json:"selector,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Semver   string `json:"semver,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Commit   string `json:"commit,omitempty"`
}

// PluginRef is the minimal plugin identity carried in a lock entry.
type PluginRef struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// SpaceEntry is one pinned space (spec §3 LockSpaceEntry).
type SpaceEntry struct {
	ID           string              `json:"id"`
	Commit       string              `json:"commit"`
	Path         string              `json:"path"`
	Integrity    string              `json:"integrity"`
	Plugin       *PluginRef          `json:"plugin,omitempty"`
	Deps         SpaceDeps           `json:"deps"`
	ResolvedFrom *ResolvedFromRecord `json:"resolvedFrom,omitempty"`
}

// SpaceDeps wraps a space entry's dependency keys.
type SpaceDeps struct {
	Spaces []closure.SpaceKey `json:"spaces"`
}

// LockWarning is a non-fatal issue surfaced for a locked target (e.g. from
// the linter, C10).
type LockWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TargetEntry is one named target's pinned composition (spec §3
// LockTargetEntry).
type TargetEntry struct {
	Compose       []string           `json:"compose"`
	Roots         []closure.SpaceKey `json:"roots"`
	LoadOrder     []closure.SpaceKey `json:"loadOrder"`
	EnvHash       string             `json:"envHash"`
	Warnings      []LockWarning      `json:"warnings"`
}

// File is the full lock document (spec §3 LockFile).
type File struct {
	LockfileVersion int                             `json:"lockfileVersion"`
	ResolverVersion int                              `json:"resolverVersion"`
	GeneratedAt     string                           `json:"generatedAt"`
	Registry        RegistryInfo                     `json:"registry"`
	Spaces          map[closure.SpaceKey]SpaceEntry   `json:"spaces"`
	Targets         map[string]TargetEntry            `json:"targets"`
}

// New creates an empty lock file shell for registryURL, generated at the
// given RFC3339 timestamp (callers supply the clock; see DESIGN.md on
// avoiding time.Now() inside deterministic compute paths).
func New(registryURL, generatedAt string) *File {
	return &File{
		LockfileVersion: LockfileVersion,
		ResolverVersion: ResolverVersion,
		GeneratedAt:     generatedAt,
		Registry:        RegistryInfo{Type: "git", URL: registryURL},
		Spaces:          make(map[closure.SpaceKey]SpaceEntry),
		Targets:         make(map[string]TargetEntry),
	}
}
