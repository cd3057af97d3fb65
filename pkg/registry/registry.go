// Package registry adapts a local git working tree into the read-only
// registry operations ASP's resolver and closure walker need (spec §4.2).
package registry

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TreeEntry is one entry returned by ListTree.
type TreeEntry struct {
	Path string
	Mode uint32
	Size int64
}

// Adapter reads blobs, lists tags, and resolves tag/branch/commit queries
// against a git working tree. It never mutates the registry.
type Adapter struct {
	path string
	repo *git.Repository
}

// Open opens the git working tree at path as a registry.
func Open(path string) (*Adapter, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, &RegistryUnavailableError{Path: path, Err: err}
	}
	return &Adapter{path: path, repo: repo}, nil
}

// Path returns the registry's working tree path.
func (a *Adapter) Path() string { return a.path }

// FromRepository wraps an already-opened git.Repository as a registry
// Adapter. Exposed primarily for tests that build an in-memory repository.
func FromRepository(path string, repo *git.Repository) *Adapter {
	return &Adapter{path: path, repo: repo}
}

// ListTags returns every tag ref name in the repository (short form,
// without "refs/tags/").
func (a *Adapter) ListTags() ([]string, error) {
	iter, err := a.repo.Tags()
	if err != nil {
		return nil, &RegistryUnavailableError{Path: a.path, Err: err}
	}
	defer iter.Close()

	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, &RegistryUnavailableError{Path: a.path, Err: err}
	}
	sort.Strings(tags)
	return tags, nil
}

// ResolveTag resolves a tag name (as returned by ListTags) to a commit sha.
// Annotated tags are dereferenced to the commit they point at.
func (a *Adapter) ResolveTag(tag string) (string, error) {
	ref, err := a.repo.Tag(tag)
	if err != nil {
		return "", &RefNotFoundError{ID: "", Selector: tag}
	}

	hash := ref.Hash()
	obj, err := a.repo.TagObject(hash)
	if err == nil {
		// Annotated tag: dereference to the commit it points at.
		commit, err := obj.Commit()
		if err != nil {
			return "", &RefNotFoundError{ID: "", Selector: tag}
		}
		return commit.Hash.String(), nil
	}

	// Lightweight tag: hash already points at the commit.
	return hash.String(), nil
}

// ResolveBranch resolves a branch name to its current tip commit sha.
func (a *Adapter) ResolveBranch(name string) (string, error) {
	ref, err := a.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return "", &RefNotFoundError{ID: "", Selector: "branch/" + name}
	}
	return ref.Hash().String(), nil
}

// VerifyCommit confirms a commit sha exists in the repository.
func (a *Adapter) VerifyCommit(sha string) error {
	_, err := a.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return &RefNotFoundError{ID: "", Selector: sha}
	}
	return nil
}

// ReadBlobAt returns the content of a tracked file at path within commit.
func (a *Adapter) ReadBlobAt(commit, filePath string) ([]byte, error) {
	tree, err := a.treeAt(commit)
	if err != nil {
		return nil, err
	}

	file, err := tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("file %s not found at commit %s: %w", filePath, commit, err)
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s at commit %s: %w", filePath, commit, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at commit %s: %w", filePath, commit, err)
	}
	return data, nil
}

// ListTree enumerates every tracked blob under dirPath within commit,
// sorted by path. dirPath is relative to the repository root.
func (a *Adapter) ListTree(commit, dirPath string) ([]TreeEntry, error) {
	tree, err := a.treeAt(commit)
	if err != nil {
		return nil, err
	}

	subtree := tree
	if dirPath != "" && dirPath != "." {
		subtree, err = tree.Tree(dirPath)
		if err != nil {
			// No such directory at this commit: empty listing, not an error,
			// so callers (e.g. "no hooks/ in this snapshot") can treat it
			// uniformly with "directory exists but is empty".
			return nil, nil
		}
	}

	var entries []TreeEntry
	walker := object.NewTreeWalker(subtree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk tree at %s: %w", dirPath, err)
		}
		if entry.Mode.IsFile() {
			blob, err := object.GetBlob(a.repo.Storer, entry.Hash)
			var size int64
			if err == nil {
				size = blob.Size
			}
			entries = append(entries, TreeEntry{
				Path: path.Join(dirPath, name),
				Mode: uint32(entry.Mode),
				Size: size,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (a *Adapter) treeAt(commit string) (*object.Tree, error) {
	commitObj, err := a.repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return nil, fmt.Errorf("commit %s not found: %w", commit, err)
	}
	tree, err := commitObj.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree at commit %s: %w", commit, err)
	}
	return tree, nil
}

// IsDirty reports whether the registry's working tree has uncommitted
// changes. Callers treat this as fatal only when a target's
// resolver.allow_dirty is false (spec §7).
func (a *Adapter) IsDirty() (bool, error) {
	wt, err := a.repo.Worktree()
	if err != nil {
		// Bare repositories have no worktree to be dirty.
		return false, nil
	}
	status, err := wt.Status()
	if err != nil {
		return false, &RegistryUnavailableError{Path: a.path, Err: err}
	}
	return !status.IsClean(), nil
}

// SpaceTagName builds the space-scoped tag convention "space/<id>/<tag>".
func SpaceTagName(id, tag string) string {
	return "space/" + id + "/" + tag
}

// resolveSpaceTag looks up "space/<id>/<tag>", falling back to the bare
// "<tag>" (spec §4.2 tag convention).
func (a *Adapter) resolveSpaceTag(id, tag string, tags []string) (string, bool) {
	scoped := SpaceTagName(id, tag)
	for _, t := range tags {
		if t == scoped {
			return scoped, true
		}
	}
	for _, t := range tags {
		if t == tag {
			return tag, true
		}
	}
	return "", false
}

// ResolveSpaceTag resolves a tag selector for a given space id, applying
// the space-scoped-tag-with-bare-fallback convention, and returns the
// commit sha it points at.
func (a *Adapter) ResolveSpaceTag(id, tag string) (string, error) {
	tags, err := a.ListTags()
	if err != nil {
		return "", err
	}
	resolved, ok := a.resolveSpaceTag(id, tag, tags)
	if !ok {
		return "", &RefNotFoundError{ID: id, Selector: tag}
	}
	return a.ResolveTag(resolved)
}

// SpaceVersionTags returns the version strings of every
// "space/<id>/v<semver>" tag, in the order they appear in ListTags.
func (a *Adapter) SpaceVersionTags(id string) ([]string, error) {
	tags, err := a.ListTags()
	if err != nil {
		return nil, err
	}
	prefix := "space/" + id + "/v"
	var versions []string
	for _, t := range tags {
		if strings.HasPrefix(t, prefix) {
			versions = append(versions, strings.TrimPrefix(t, prefix))
		}
	}
	return versions, nil
}
