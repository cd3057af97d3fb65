// Package gc implements the snapshot store garbage collector (spec §4.11).
package gc

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/lock"
	"github.com/agentspaces/asp/pkg/store"
)

// Result reports what a GC run deleted (spec §4.11).
type Result struct {
	SnapshotsDeleted int
	BytesFreed       int64
}

// Collect enumerates directories under the store's snapshots dir and
// removes every one whose basename is not a live integrity across locks.
// dryRun reports what would be deleted without removing anything.
func Collect(fs afero.Fs, s *store.Store, locks []*lock.File, dryRun bool) (Result, error) {
	live := liveIntegrities(locks)

	snapshotsDir := s.SnapshotsDir()
	entries, err := afero.ReadDir(fs, snapshotsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var result Result
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if live[e.Name()] {
			continue
		}

		dirPath := snapshotsDir + "/" + e.Name()
		size, err := dirSize(fs, dirPath)
		if err != nil {
			return Result{}, fmt.Errorf("failed to measure %s: %w", dirPath, err)
		}

		result.SnapshotsDeleted++
		result.BytesFreed += size

		if !dryRun {
			if err := fs.RemoveAll(dirPath); err != nil {
				return Result{}, fmt.Errorf("failed to remove orphan snapshot %s: %w", dirPath, err)
			}
		}
	}

	return result, nil
}

// liveIntegrities unions spaces[*].integrity across every lock, keyed by
// bare digest (no "sha256:" prefix) to match store directory names.
func liveIntegrities(locks []*lock.File) map[string]bool {
	live := make(map[string]bool)
	for _, l := range locks {
		for _, entry := range l.Spaces {
			digest := entry.Integrity
			const prefix = "sha256:"
			if len(digest) > len(prefix) && digest[:len(prefix)] == prefix {
				digest = digest[len(prefix):]
			}
			live[digest] = true
		}
	}
	return live
}

// dirSize computes a directory's recursive on-disk size, mirroring the
// teacher's copyDir walk idiom (afero.Walk over afero.ReadDir).
func dirSize(fs afero.Fs, path string) (int64, error) {
	var total int64
	err := afero.Walk(fs, path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
