// Package closure walks a target's declared dependency graph in
// declared-order DFS, producing a postorder load order with cycle
// detection (spec §4.5).
package closure

import (
	"fmt"
	"strings"

	"github.com/agentspaces/asp/pkg/manifest"
	"github.com/agentspaces/asp/pkg/ref"
	"github.com/agentspaces/asp/pkg/resolver"
)

// SpaceKey is "<id>@<commit12>", the unique identity of a pinned space
// within a lock (spec §3).
type SpaceKey string

// KeyFor builds the SpaceKey for an id resolved to a given commit. Dev
// selectors use the literal "dev" in place of a commit12, since they are
// never snapshotted.
func KeyFor(id string, resolved resolver.ResolvedSelector) SpaceKey {
	if resolved.Kind == resolver.KindDev {
		return SpaceKey(id + "@dev")
	}
	commit := resolved.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return SpaceKey(id + "@" + commit)
}

// Node is one resolved space in a target's closure.
type Node struct {
	Key          SpaceKey
	ID           string
	Commit       string
	Manifest     *manifest.SpaceManifest
	ResolvedFrom resolver.ResolvedSelector
	Deps         []SpaceKey
}

// Closure is the result of walking a target's compose list: a postorder
// load order plus the root keys the target directly composed.
type Closure struct {
	LoadOrder []SpaceKey
	Roots     []SpaceKey
	Nodes     map[SpaceKey]*Node
}

// CyclicDependencyError reports a dependency cycle, with the full cycle
// path from the cycle's entry point back to itself.
type CyclicDependencyError struct {
	CyclePath []SpaceKey
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.CyclePath))
	for i, k := range e.CyclePath {
		parts[i] = string(k)
	}
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(parts, " -> "))
}

// MissingDependencyError reports that a parent space's declared dependency
// could not be resolved.
type MissingDependencyError struct {
	ParentID string
	DepRef   string
	Err      error
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("space %q declares missing dependency %q: %v", e.ParentID, e.DepRef, e.Err)
}

func (e *MissingDependencyError) Unwrap() error { return e.Err }

// Walker computes closures against a Source.
type Walker struct {
	source Source
}

// New creates a closure Walker bound to a Source.
func New(source Source) *Walker {
	return &Walker{source: source}
}

// visitState tracks DFS coloring for cycle detection.
type visitState int

const (
	unvisited visitState = iota
	visiting
	done
)

// Walk computes the closure for a target's compose list (declared-order
// DFS, postorder load order, spec §4.5).
func (w *Walker) Walk(compose []string) (*Closure, error) {
	state := make(map[SpaceKey]visitState)
	nodes := make(map[SpaceKey]*Node)
	var loadOrder []SpaceKey
	var roots []SpaceKey
	var path []SpaceKey

	var visit func(refStr string) (SpaceKey, error)
	visit = func(refStr string) (SpaceKey, error) {
		parsed, err := ref.Parse(refStr)
		if err != nil {
			return "", fmt.Errorf("invalid reference %q: %w", refStr, err)
		}

		resolved, err := w.source.Resolve(parsed.ID, parsed.Selector)
		if err != nil {
			return "", err
		}
		key := KeyFor(parsed.ID, resolved)

		switch state[key] {
		case done:
			return key, nil
		case visiting:
			cycleStart := indexOf(path, key)
			cycle := append(append([]SpaceKey(nil), path[cycleStart:]...), key)
			return "", &CyclicDependencyError{CyclePath: cycle}
		}

		state[key] = visiting
		path = append(path, key)

		m, err := w.source.ReadManifest(parsed.ID, resolved)
		if err != nil {
			return "", fmt.Errorf("failed to read manifest for %q: %w", parsed.ID, err)
		}

		node := &Node{
			Key:          key,
			ID:           parsed.ID,
			Commit:       resolved.Commit,
			Manifest:     m,
			ResolvedFrom: resolved,
		}

		for _, depRef := range m.Deps.Spaces {
			depKey, err := visit(depRef)
			if err != nil {
				var cycleErr *CyclicDependencyError
				if asCyclic(err, &cycleErr) {
					return "", err
				}
				return "", &MissingDependencyError{ParentID: parsed.ID, DepRef: depRef, Err: err}
			}
			node.Deps = append(node.Deps, depKey)
		}

		nodes[key] = node
		state[key] = done
		path = path[:len(path)-1]
		loadOrder = append(loadOrder, key)

		return key, nil
	}

	for _, composeRef := range compose {
		rootKey, err := visit(composeRef)
		if err != nil {
			return nil, err
		}
		roots = append(roots, rootKey)
	}

	return &Closure{LoadOrder: loadOrder, Roots: roots, Nodes: nodes}, nil
}

func indexOf(path []SpaceKey, key SpaceKey) int {
	for i, k := range path {
		if k == key {
			return i
		}
	}
	return 0
}

func asCyclic(err error, target **CyclicDependencyError) bool {
	if c, ok := err.(*CyclicDependencyError); ok {
		*target = c
		return true
	}
	return false
}
