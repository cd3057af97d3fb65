package resolver

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspaces/asp/pkg/ref"
	"github.com/agentspaces/asp/pkg/registry"
)

func writeFile(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// multiVersionRepo tags three commits v1.0.0, v1.1.0, v2.0.0 of "frontend"
// plus a "stable" tag and a "main" branch on v2.0.0.
func multiVersionRepo(t *testing.T) (*registry.Adapter, map[string]string) {
	t.Helper()

	fs := memfs.New()
	storer := memory.NewStorage()
	repo, err := git.Init(storer, fs)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "t", Email: "t@example.com", When: time.Unix(0, 0)}
	commits := make(map[string]string)

	writeVersion := func(v string) plumbing.Hash {
		writeFile(t, fs, "spaces/frontend/space.toml", "schema = 1\nid = \"frontend\"\nversion = \""+v+"\"\n")
		_, err := wt.Add("spaces/frontend/space.toml")
		require.NoError(t, err)
		h, err := wt.Commit("release "+v, &git.CommitOptions{Author: sig})
		require.NoError(t, err)
		_, err = repo.CreateTag("space/frontend/v"+v, h, nil)
		require.NoError(t, err)
		commits[v] = h.String()
		return h
	}

	writeVersion("1.0.0")
	writeVersion("1.1.0")
	h2 := writeVersion("2.0.0")

	_, err = repo.CreateTag("space/frontend/stable", h2, &git.CreateTagOptions{Tagger: sig, Message: "stable"})
	require.NoError(t, err)

	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), h2),
	))

	return registry.FromRepository("mem", repo), commits
}

func TestResolve_Tag(t *testing.T) {
	adapter, commits := multiVersionRepo(t)
	r := New(adapter)

	result, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindTag, Value: "stable"})
	require.NoError(t, err)
	assert.Equal(t, KindTag, result.Kind)
	assert.Equal(t, commits["2.0.0"], result.Commit)
}

func TestResolve_SemverCaret(t *testing.T) {
	adapter, commits := multiVersionRepo(t)
	r := New(adapter)

	result, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindSemverReq, Value: "^1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, KindSemver, result.Kind)
	assert.Equal(t, "1.1.0", result.Semver)
	assert.Equal(t, commits["1.1.0"], result.Commit)
}

func TestResolve_SemverExact(t *testing.T) {
	adapter, commits := multiVersionRepo(t)
	r := New(adapter)

	result, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindSemverReq, Value: "=2.0.0"})
	require.NoError(t, err)
	assert.Equal(t, commits["2.0.0"], result.Commit)
}

func TestResolve_SemverTilde_PartialVersion(t *testing.T) {
	adapter, commits := multiVersionRepo(t)
	r := New(adapter)

	result, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindSemverReq, Value: "~1.1"})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", result.Semver)
	assert.Equal(t, commits["1.1.0"], result.Commit)
}

func TestResolve_SemverRange_PartialVersions(t *testing.T) {
	adapter, commits := multiVersionRepo(t)
	r := New(adapter)

	result, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindSemverReq, Value: ">=1.0 <2"})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", result.Semver)
	assert.Equal(t, commits["1.1.0"], result.Commit)
}

func TestResolve_SemverNoMatch(t *testing.T) {
	adapter, _ := multiVersionRepo(t)
	r := New(adapter)

	_, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindSemverReq, Value: "^3.0.0"})
	require.Error(t, err)
}

func TestResolve_Branch(t *testing.T) {
	adapter, commits := multiVersionRepo(t)
	r := New(adapter)

	result, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindBranch, Value: "main"})
	require.NoError(t, err)
	assert.Equal(t, commits["2.0.0"], result.Commit)
}

func TestResolve_Dev(t *testing.T) {
	adapter, _ := multiVersionRepo(t)
	r := New(adapter)

	result, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindDev})
	require.NoError(t, err)
	assert.Equal(t, KindDev, result.Kind)
	assert.Equal(t, DevSentinel, result.Commit)
}

func TestResolve_Commit(t *testing.T) {
	adapter, commits := multiVersionRepo(t)
	r := New(adapter)

	result, err := r.Resolve("frontend", ref.Selector{Kind: ref.KindCommit, Value: commits["1.0.0"]})
	require.NoError(t, err)
	assert.Equal(t, commits["1.0.0"], result.Commit)
}

func TestResolve_IsCached(t *testing.T) {
	adapter, _ := multiVersionRepo(t)
	r := New(adapter)

	sel := ref.Selector{Kind: ref.KindTag, Value: "stable"}
	first, err := r.Resolve("frontend", sel)
	require.NoError(t, err)
	second, err := r.Resolve("frontend", sel)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
