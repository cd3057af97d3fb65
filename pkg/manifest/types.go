// Package manifest loads and schema-validates space.toml and
// asp-targets.toml documents (spec §3, §4.3).
package manifest

// SpaceManifest is the decoded form of a space's space.toml.
type SpaceManifest struct {
	Schema      int64              `toml:"schema"`
	ID          string             `toml:"id"`
	Version     string             `toml:"version,omitempty"`
	Description string             `toml:"description,omitempty"`
	Plugin      *PluginMeta        `toml:"plugin,omitempty"`
	Deps        Deps               `toml:"deps,omitempty"`
	Settings    *Settings          `toml:"settings,omitempty"`
	Harness     *HarnessSupport    `toml:"harness,omitempty"`
}

// PluginMeta is the plugin identity carried by a space.
type PluginMeta struct {
	Name        string   `toml:"name"`
	Version     string   `toml:"version,omitempty"`
	Author      *Author  `toml:"author,omitempty"`
	Keywords    []string `toml:"keywords,omitempty"`
	License     string   `toml:"license,omitempty"`
	Homepage    string   `toml:"homepage,omitempty"`
	Repository  string   `toml:"repository,omitempty"`
}

// Author is a free-form plugin author record.
type Author struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
	URL   string `toml:"url,omitempty"`
}

// Deps lists a space's declared dependencies.
type Deps struct {
	Spaces []string `toml:"spaces,omitempty"` // wire-form space refs
}

// Settings carries manifest-level settings composed into settings.json.
type Settings struct {
	Permissions *Permissions           `toml:"permissions,omitempty"`
	Env         map[string]string      `toml:"env,omitempty"`
	Model       string                 `toml:"model,omitempty"`
}

// Permissions is the manifest-embedded allow/deny list, distinct from the
// richer permissions.toml facets read separately by pkg/harness.
type Permissions struct {
	Allow []string `toml:"allow,omitempty"`
	Deny  []string `toml:"deny,omitempty"`
}

// HarnessSupport declares which harnesses a space is known to support.
type HarnessSupport struct {
	Supports []string `toml:"supports,omitempty"`
}

// ProjectManifest is the decoded form of asp-targets.toml.
type ProjectManifest struct {
	Schema  int64                `toml:"schema"`
	Claude  map[string]any       `toml:"claude,omitempty"`
	Codex   map[string]any       `toml:"codex,omitempty"`
	Targets map[string]Target    `toml:"targets"`
}

// Target is a named composition of spaces declared by a project.
type Target struct {
	Compose     []string       `toml:"compose"`
	Description string         `toml:"description,omitempty"`
	Claude      map[string]any `toml:"claude,omitempty"`
	Codex       map[string]any `toml:"codex,omitempty"`
	Resolver    ResolverOpts   `toml:"resolver,omitempty"`
	Yolo        bool           `toml:"yolo,omitempty"`
}

// ResolverOpts tunes how a target resolves against the lock file.
type ResolverOpts struct {
	Locked    bool `toml:"locked,omitempty"`
	AllowDirty bool `toml:"allow_dirty,omitempty"`
}
