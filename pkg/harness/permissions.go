package harness

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// PermissionFacet is a single allow/deny path or pattern list (spec
// §4.8.3 permissions.toml canonical schema).
type PermissionFacet struct {
	Paths    []string `toml:"paths,omitempty"`
	Commands []string `toml:"commands,omitempty"`
	Patterns []string `toml:"patterns,omitempty"`
	Hosts    []string `toml:"hosts,omitempty"`
}

// CanonicalPermissions is the full permissions.toml document.
type CanonicalPermissions struct {
	Read    PermissionFacet `toml:"read,omitempty"`
	Write   PermissionFacet `toml:"write,omitempty"`
	Exec    PermissionFacet `toml:"exec,omitempty"`
	Network PermissionFacet `toml:"network,omitempty"`
	Deny    struct {
		Read    PermissionFacet `toml:"read,omitempty"`
		Write   PermissionFacet `toml:"write,omitempty"`
		Exec    PermissionFacet `toml:"exec,omitempty"`
		Network PermissionFacet `toml:"network,omitempty"`
	} `toml:"deny,omitempty"`
}

// DecodePermissionsToml parses a permissions.toml document.
func DecodePermissionsToml(data []byte) (*CanonicalPermissions, error) {
	var p CanonicalPermissions
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse permissions.toml: %w", err)
	}
	return &p, nil
}

// EnforcementLevel classifies how strictly a harness applies a facet.
type EnforcementLevel string

const (
	Enforced   EnforcementLevel = "enforced"
	LintOnly   EnforcementLevel = "lint_only"
	BestEffort EnforcementLevel = "best_effort"
)

// ClaudeEnforcement is the per-facet enforcement matrix for Claude (spec
// §4.8.3).
var ClaudeEnforcement = map[string]EnforcementLevel{
	"read": Enforced, "write": Enforced, "exec": Enforced, "network": LintOnly,
	"deny.read": Enforced, "deny.write": Enforced, "deny.exec": Enforced, "deny.network": LintOnly,
}

// PiEnforcement is the per-facet enforcement matrix for Pi (spec §4.8.3).
var PiEnforcement = map[string]EnforcementLevel{
	"read": LintOnly, "write": LintOnly, "exec": BestEffort, "network": LintOnly,
	"deny.read": LintOnly, "deny.write": LintOnly, "deny.exec": LintOnly, "deny.network": LintOnly,
}

// ToClaudeSettingsPermissions translates the canonical schema into Claude's
// settings.json permissions shape: {allow: [...], deny: [...]}. Denied
// paths map to Read(<path>)/Write(<path>); denied exec patterns map to
// Bash(<pattern>) (spec §4.8.3, §8 translation laws).
func ToClaudeSettingsPermissions(p *CanonicalPermissions) (allow, deny []string) {
	if len(p.Read.Paths) > 0 || len(p.Write.Paths) > 0 {
		allow = append(allow, "Read", "Write")
	}
	for _, cmd := range p.Exec.Commands {
		allow = append(allow, fmt.Sprintf("Bash(%s *)", cmd))
	}
	for _, pat := range p.Exec.Patterns {
		allow = append(allow, fmt.Sprintf("Bash(%s)", pat))
	}

	for _, path := range p.Deny.Read.Paths {
		deny = append(deny, fmt.Sprintf("Read(%s)", path))
	}
	for _, path := range p.Deny.Write.Paths {
		deny = append(deny, fmt.Sprintf("Write(%s)", path))
	}
	for _, pat := range p.Deny.Exec.Patterns {
		deny = append(deny, fmt.Sprintf("Bash(%s)", pat))
	}
	for _, cmd := range p.Deny.Exec.Commands {
		deny = append(deny, fmt.Sprintf("Bash(%s)", cmd))
	}
	return allow, deny
}

// LintOnlyFacets returns the facet names a harness cannot enforce, for
// W304 (spec §4.10).
func LintOnlyFacets(p *CanonicalPermissions, matrix map[string]EnforcementLevel) []string {
	var facets []string
	check := func(name string, nonEmpty bool) {
		if nonEmpty && matrix[name] == LintOnly {
			facets = append(facets, name)
		}
	}
	check("read", len(p.Read.Paths) > 0)
	check("write", len(p.Write.Paths) > 0)
	check("exec", len(p.Exec.Commands) > 0 || len(p.Exec.Patterns) > 0)
	check("network", len(p.Network.Hosts) > 0)
	check("deny.read", len(p.Deny.Read.Paths) > 0)
	check("deny.write", len(p.Deny.Write.Paths) > 0)
	check("deny.exec", len(p.Deny.Exec.Patterns) > 0 || len(p.Deny.Exec.Commands) > 0)
	check("deny.network", len(p.Deny.Network.Hosts) > 0)
	return facets
}
