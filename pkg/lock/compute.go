package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agentspaces/asp/pkg/closure"
)

// ComputeTarget maps a closure's nodes into f.Spaces and adds a TargetEntry
// for targetName, deriving envHash from the canonical serialization
// described in spec §4.7. integrities supplies each node's snapshot
// digest (computed separately by pkg/store, since the closure walker has
// no store dependency).
func ComputeTarget(f *File, targetName string, compose []string, cl *closure.Closure, integrities map[closure.SpaceKey]string) error {
	for _, key := range cl.LoadOrder {
		node := cl.Nodes[key]
		integrity, ok := integrities[key]
		if !ok {
			return fmt.Errorf("missing integrity for space %q", key)
		}

		var plugin *PluginRef
		if node.Manifest.Plugin != nil {
			plugin = &PluginRef{Name: node.Manifest.Plugin.Name, Version: node.Manifest.Plugin.Version}
		}

		f.Spaces[key] = SpaceEntry{
			ID:        node.ID,
			Commit:    node.Commit,
			Path:      "spaces/" + node.ID,
			Integrity: integrity,
			Plugin:    plugin,
			Deps:      SpaceDeps{Spaces: node.Deps},
			ResolvedFrom: &ResolvedFromRecord{
				Selector: node.ResolvedFrom.DisplayString,
				Tag:      node.ResolvedFrom.Tag,
				Semver:   node.ResolvedFrom.Semver,
				Branch:   node.ResolvedFrom.Branch,
				Commit:   node.ResolvedFrom.CommitSha,
			},
		}
	}

	envHash, err := computeEnvHash(f, compose, cl.LoadOrder)
	if err != nil {
		return err
	}

	f.Targets[targetName] = TargetEntry{
		Compose:   compose,
		Roots:     cl.Roots,
		LoadOrder: cl.LoadOrder,
		EnvHash:   envHash,
		Warnings:  nil,
	}
	return nil
}

// canonicalEnv is the stable shape hashed to produce envHash.
type canonicalEnv struct {
	LockfileVersion int                            `json:"lockfileVersion"`
	ResolverVersion int                             `json:"resolverVersion"`
	RegistryURL     string                          `json:"registryUrl"`
	Spaces          []canonicalSpaceEntry           `json:"spaces"`
	Compose         []string                        `json:"compose"`
	LoadOrder       []closure.SpaceKey              `json:"loadOrder"`
}

type canonicalSpaceEntry struct {
	Key    closure.SpaceKey `json:"key"`
	Commit string           `json:"commit"`
}

func computeEnvHash(f *File, compose []string, loadOrder []closure.SpaceKey) (string, error) {
	keys := make([]closure.SpaceKey, 0, len(loadOrder))
	seen := make(map[closure.SpaceKey]bool)
	for _, k := range loadOrder {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	entries := make([]canonicalSpaceEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, canonicalSpaceEntry{Key: k, Commit: f.Spaces[k].Commit})
	}

	env := canonicalEnv{
		LockfileVersion: f.LockfileVersion,
		ResolverVersion: f.ResolverVersion,
		RegistryURL:     f.Registry.URL,
		Spaces:          entries,
		Compose:         compose,
		LoadOrder:       loadOrder,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to serialize canonical env: %w", err)
	}

	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
