// Package resolver maps a (SpaceId, Selector) pair to a concrete commit,
// recording provenance (spec §4.4).
package resolver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agentspaces/asp/pkg/ref"
	"github.com/agentspaces/asp/pkg/registry"
)

// Kind mirrors ref.SelectorKind but spelled out for the resolved record,
// per spec §4.4 ("tag, semver, branch, commit, dev").
type Kind string

const (
	KindTag    Kind = "tag"
	KindSemver Kind = "semver"
	KindBranch Kind = "branch"
	KindCommit Kind = "commit"
	KindDev    Kind = "dev"
)

// DevSentinel is the literal commit placeholder used for dev selectors.
const DevSentinel = "dev"

// DevIntegrity is the sentinel integrity value for dev-mode spaces, which
// are never snapshotted (spec §3 Selector.Dev).
const DevIntegrity = "sha256:dev"

// ResolvedSelector is the result of resolving one (id, selector) pair.
type ResolvedSelector struct {
	Kind          Kind
	Commit        string
	DisplayString string
	// Provenance fields, mirroring LockSpaceEntry.resolvedFrom (spec §3).
	Tag     string
	Semver  string // the chosen version (e.g. "1.1.0"), when Kind == semver; the req is in DisplayString
	Branch  string
	CommitSha string
}

// Resolver resolves selectors against a registry adapter, caching results
// for the lifetime of one orchestration call (spec §4.4).
type Resolver struct {
	adapter *registry.Adapter
	cache   map[string]ResolvedSelector
}

// New creates a Resolver bound to a registry adapter.
func New(adapter *registry.Adapter) *Resolver {
	return &Resolver{adapter: adapter, cache: make(map[string]ResolvedSelector)}
}

// Resolve maps (id, selector) to a ResolvedSelector, per the rules in spec
// §4.4.
func (r *Resolver) Resolve(id string, sel ref.Selector) (ResolvedSelector, error) {
	key := id + "@" + sel.String()
	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}

	resolved, err := r.resolveUncached(id, sel)
	if err != nil {
		return ResolvedSelector{}, err
	}

	r.cache[key] = resolved
	return resolved, nil
}

func (r *Resolver) resolveUncached(id string, sel ref.Selector) (ResolvedSelector, error) {
	switch sel.Kind {
	case ref.KindDev:
		return ResolvedSelector{
			Kind:          KindDev,
			Commit:        DevSentinel,
			DisplayString: "dev",
		}, nil

	case ref.KindTag:
		commit, err := r.adapter.ResolveSpaceTag(id, sel.Value)
		if err != nil {
			return ResolvedSelector{}, err
		}
		return ResolvedSelector{
			Kind:          KindTag,
			Commit:        commit,
			DisplayString: sel.Value,
			Tag:           sel.Value,
		}, nil

	case ref.KindBranch:
		commit, err := r.adapter.ResolveBranch(sel.Value)
		if err != nil {
			return ResolvedSelector{}, err
		}
		return ResolvedSelector{
			Kind:          KindBranch,
			Commit:        commit,
			DisplayString: "branch/" + sel.Value,
			Branch:        sel.Value,
		}, nil

	case ref.KindCommit:
		if err := r.adapter.VerifyCommit(sel.Value); err != nil {
			return ResolvedSelector{}, err
		}
		return ResolvedSelector{
			Kind:          KindCommit,
			Commit:        sel.Value,
			DisplayString: sel.Value,
			CommitSha:     sel.Value,
		}, nil

	case ref.KindSemverReq:
		return r.resolveSemver(id, sel.Value)

	default:
		return ResolvedSelector{}, fmt.Errorf("unknown selector kind for space %q", id)
	}
}

func (r *Resolver) resolveSemver(id, req string) (ResolvedSelector, error) {
	versions, err := r.adapter.SpaceVersionTags(id)
	if err != nil {
		return ResolvedSelector{}, err
	}

	var best string
	var bestParsed semver
	found := false
	for _, v := range versions {
		parsed, ok := parseSemver(v)
		if !ok {
			continue
		}
		if !matches(req, parsed) {
			continue
		}
		if !found || parsed.greaterThan(bestParsed) {
			best = v
			bestParsed = parsed
			found = true
		}
	}

	if !found {
		return ResolvedSelector{}, &registry.RefNotFoundError{ID: id, Selector: req}
	}

	commit, err := r.adapter.ResolveSpaceTag(id, "v"+best)
	if err != nil {
		return ResolvedSelector{}, err
	}

	return ResolvedSelector{
		Kind:          KindSemver,
		Commit:        commit,
		DisplayString: req,
		Semver:        best,
	}, nil
}

// semver is a minimal dotted-triple version, parsed by hand since no
// semver library appears anywhere in the reference corpus (DESIGN.md).
type semver struct {
	major, minor, patch int
	pre                 string
}

func parseSemver(v string) (semver, bool) {
	v = strings.TrimPrefix(v, "v")
	pre := ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		pre = v[i+1:]
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	if len(parts) < 1 || len(parts) > 3 {
		return semver{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return semver{}, false
		}
		nums[i] = n
	}
	return semver{major: nums[0], minor: nums[1], patch: nums[2], pre: pre}, true
}

func (a semver) compare(b semver) int {
	if a.major != b.major {
		return a.major - b.major
	}
	if a.minor != b.minor {
		return a.minor - b.minor
	}
	if a.patch != b.patch {
		return a.patch - b.patch
	}
	// A version with a prerelease suffix sorts before its release.
	if a.pre == "" && b.pre != "" {
		return 1
	}
	if a.pre != "" && b.pre == "" {
		return -1
	}
	return strings.Compare(a.pre, b.pre)
}

func (a semver) greaterThan(b semver) bool { return a.compare(b) > 0 }

// matches evaluates a single requirement clause or a space-separated list
// of clauses (e.g. ">=1.0 <2") against a candidate version. Supported
// operators: ^ ~ > >= < <= =.
func matches(req string, v semver) bool {
	clauses := strings.Fields(req)
	for _, clause := range clauses {
		if !matchesClause(clause, v) {
			return false
		}
	}
	return true
}

func matchesClause(clause string, v semver) bool {
	switch {
	case strings.HasPrefix(clause, "^"):
		base, ok := parseSemver(clause[1:])
		if !ok {
			return false
		}
		if v.compare(base) < 0 {
			return false
		}
		if base.major > 0 {
			return v.major == base.major
		}
		if base.minor > 0 {
			return v.major == 0 && v.minor == base.minor
		}
		return v.major == 0 && v.minor == 0 && v.patch == base.patch

	case strings.HasPrefix(clause, "~"):
		base, ok := parseSemver(clause[1:])
		if !ok {
			return false
		}
		return v.major == base.major && v.minor == base.minor && v.compare(base) >= 0

	case strings.HasPrefix(clause, ">="):
		base, ok := parseSemver(clause[2:])
		return ok && v.compare(base) >= 0

	case strings.HasPrefix(clause, "<="):
		base, ok := parseSemver(clause[2:])
		return ok && v.compare(base) <= 0

	case strings.HasPrefix(clause, ">"):
		base, ok := parseSemver(clause[1:])
		return ok && v.compare(base) > 0

	case strings.HasPrefix(clause, "<"):
		base, ok := parseSemver(clause[1:])
		return ok && v.compare(base) < 0

	case strings.HasPrefix(clause, "="):
		base, ok := parseSemver(clause[1:])
		return ok && v.compare(base) == 0

	default:
		base, ok := parseSemver(clause)
		return ok && v.compare(base) == 0
	}
}

// sortedVersions is exposed for tests that want deterministic ordering
// independent of registry tag iteration order.
func sortedVersions(versions []string) []string {
	out := append([]string(nil), versions...)
	sort.Slice(out, func(i, j int) bool {
		a, _ := parseSemver(out[i])
		b, _ := parseSemver(out[j])
		return a.compare(b) < 0
	})
	return out
}
