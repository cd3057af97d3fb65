// Package store implements the content-addressed snapshot store under
// ASP_HOME: store/spaces/<sha256>, cache/materialized/, sessions/, and the
// temp/ atomic-swap staging area (spec §4.6).
package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/registry"
	"github.com/agentspaces/asp/pkg/resolver"
)

// Git file mode constants, matching go-git's filemode.FileMode encoding
// (registry.TreeEntry.Mode carries these verbatim).
const (
	modeRegular    = 0o100644
	modeExecutable = 0o100755
	modeSymlink    = 0o120000
)

// TreeReader is the slice of registry.Adapter that the store needs to
// enumerate and read a space's tracked files at a commit. Declared locally
// so tests can substitute a fake without touching git.
type TreeReader interface {
	ListTree(commit, dirPath string) ([]registry.TreeEntry, error)
	ReadBlobAt(commit, path string) ([]byte, error)
}

// Store manages the ASP_HOME content-addressed layout.
type Store struct {
	fs   afero.Fs
	home string
}

// New creates a Store rooted at home (the ASP_HOME directory).
func New(fs afero.Fs, home string) *Store {
	return &Store{fs: fs, home: home}
}

// SnapshotsDir is "$ASP_HOME/store/spaces".
func (s *Store) SnapshotsDir() string { return filepath.Join(s.home, "store", "spaces") }

// TempDir is "$ASP_HOME/temp", the atomic-swap staging area.
func (s *Store) TempDir() string { return filepath.Join(s.home, "temp") }

// MaterializedDir is "$ASP_HOME/cache/materialized", a garbage-collectable
// per-run scratch area.
func (s *Store) MaterializedDir() string { return filepath.Join(s.home, "cache", "materialized") }

// SessionsDir is "$ASP_HOME/sessions/<harness>".
func (s *Store) SessionsDir(harness string) string { return filepath.Join(s.home, "sessions", harness) }

// SnapshotPath returns the on-disk path for a given integrity digest.
func (s *Store) SnapshotPath(integrity string) string {
	digest := strings.TrimPrefix(integrity, "sha256:")
	return filepath.Join(s.SnapshotsDir(), digest)
}

// Exists reports whether a snapshot for integrity is already present.
func (s *Store) Exists(integrity string) (bool, error) {
	_, err := s.fs.Stat(s.SnapshotPath(integrity))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ComputeIntegrity is the deterministic digest of a space's tracked files:
// sorted by path, each fed as "path\0mode\0content\0" into SHA-256
// (spec §4.6 step 2).
func ComputeIntegrity(entries []registry.TreeEntry, readBlob func(path string) ([]byte, error)) (string, error) {
	sorted := append([]registry.TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	for _, e := range sorted {
		content, err := readBlob(e.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s for integrity computation: %w", e.Path, err)
		}
		h.Write([]byte(e.Path))
		h.Write([]byte{0})
		fmt.Fprintf(h, "%d", e.Mode)
		h.Write([]byte{0})
		h.Write(content)
		h.Write([]byte{0})
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// Snapshot creates (or confirms) the snapshot for (id, commit), returning
// its integrity digest. Dev selectors never snapshot: content is read live
// from the registry path by callers (spec §4.6 step 1).
func (s *Store) Snapshot(id, commit string, reader TreeReader) (string, error) {
	if commit == resolver.DevSentinel {
		return resolver.DevIntegrity, nil
	}

	prefix := "spaces/" + id
	entries, err := reader.ListTree(commit, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to list tree for %s at %s: %w", id, commit, err)
	}

	readBlob := func(p string) ([]byte, error) { return reader.ReadBlobAt(commit, p) }
	integrity, err := ComputeIntegrity(entries, readBlob)
	if err != nil {
		return "", err
	}

	exists, err := s.Exists(integrity)
	if err != nil {
		return "", err
	}
	if exists {
		return integrity, nil
	}

	stagingDir, err := s.newStagingDir()
	if err != nil {
		return "", err
	}

	if err := s.stageEntries(stagingDir, prefix, entries, readBlob); err != nil {
		_ = s.fs.RemoveAll(stagingDir)
		return "", &StageFailedError{StagingDir: stagingDir, Err: err}
	}

	if err := s.fs.MkdirAll(s.SnapshotsDir(), 0o755); err != nil {
		_ = s.fs.RemoveAll(stagingDir)
		return "", fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	finalPath := s.SnapshotPath(integrity)
	if _, statErr := s.fs.Stat(finalPath); statErr == nil {
		// A concurrent caller won the race; the existing snapshot is
		// authoritative, discard our staging copy (spec §4.6 step 4).
		_ = s.fs.RemoveAll(stagingDir)
		return integrity, nil
	}

	if err := s.fs.Rename(stagingDir, finalPath); err != nil {
		_ = s.fs.RemoveAll(stagingDir)
		return "", &StageFailedError{StagingDir: stagingDir, Err: err}
	}

	return integrity, nil
}

func (s *Store) newStagingDir() (string, error) {
	if err := s.fs.MkdirAll(s.TempDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate staging suffix: %w", err)
	}
	dir := filepath.Join(s.TempDir(), "snapshot-"+hex.EncodeToString(suffix))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return dir, nil
}

func (s *Store) stageEntries(stagingDir, prefix string, entries []registry.TreeEntry, readBlob func(string) ([]byte, error)) error {
	for _, e := range entries {
		rel := strings.TrimPrefix(e.Path, prefix+"/")
		dest := filepath.Join(stagingDir, rel)

		if err := s.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("failed to create parent directory for %s: %w", rel, err)
		}

		content, err := readBlob(e.Path)
		if err != nil {
			return err
		}

		if e.Mode == modeSymlink {
			// afero.Fs has no generic symlink primitive; best effort for
			// real filesystems, otherwise the link target is written as
			// plain file content (the snapshot is still byte-identical
			// for integrity purposes since readBlob fed the same bytes).
			if _, ok := s.fs.(*afero.OsFs); ok {
				if err := os.Symlink(string(content), dest); err == nil {
					continue
				}
			}
		}

		perm := os.FileMode(0o644)
		if e.Mode == modeExecutable {
			perm = 0o755
		}

		if err := afero.WriteFile(s.fs, dest, content, perm); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}
	return nil
}

// CopyInto materializes a snapshot (or a dev-mode live directory) into dst,
// preferring hardlinks when src and dst share a filesystem and falling back
// to a byte copy otherwise (used by pkg/harness when assembling per-harness
// artifact trees from store snapshots).
func CopyInto(fs afero.Fs, src, dst string) error {
	return CopyIntoMode(fs, src, dst, true)
}

// CopyIntoMode is CopyInto with explicit hardlink control. useHardlinks=false
// forces a byte copy, matching the dev-mode requirement in spec §4.8.1
// ("useHardlinks=false switches to copying... protects the working tree
// from generated content").
func CopyIntoMode(fs afero.Fs, src, dst string, useHardlinks bool) error {
	info, err := fs.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat snapshot source %s: %w", src, err)
	}
	if !info.IsDir() {
		return copyOrLink(fs, src, dst, useHardlinks)
	}

	return afero.Walk(fs, src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if fi.IsDir() {
			return fs.MkdirAll(target, 0o755)
		}
		return copyOrLink(fs, path, target, useHardlinks)
	})
}

func copyOrLink(fs afero.Fs, src, dst string, useHardlinks bool) error {
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	if useHardlinks {
		if _, ok := fs.(*afero.OsFs); ok {
			if err := os.Link(src, dst); err == nil {
				return nil
			}
			// Cross-device or unsupported: fall through to copy.
		}
	}

	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := fs.Stat(src)
	if err != nil {
		return err
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
