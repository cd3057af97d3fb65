package orchestrator

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspaces/asp/pkg/harness"
	"github.com/agentspaces/asp/pkg/registry"
)

func writeFile(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(dirOf(path), 0o755))
	f, err := fs.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// newFixtureRegistry builds a one-commit registry with two spaces: "base"
// (no deps) and "frontend" (depends on base@v1.0.0), tagged so a target's
// compose list can resolve "space:frontend@v1.0.0".
func newFixtureRegistry(t *testing.T) *registry.Adapter {
	t.Helper()

	fs := memfs.New()
	storer := memory.NewStorage()
	repo, err := git.Init(storer, fs)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, fs, "spaces/base/space.toml", "schema = 1\nid = \"base\"\n\n[plugin]\nname = \"base-plugin\"\nversion = \"1.0.0\"\n")
	writeFile(t, fs, "spaces/base/commands/build.md", "# build\ndo the build\n")
	writeFile(t, fs, "spaces/base/AGENT.md", "base agent instructions\n")

	writeFile(t, fs, "spaces/frontend/space.toml", "schema = 1\nid = \"frontend\"\ndeps = { spaces = [\"space:base@v1.0.0\"] }\n\n[plugin]\nname = \"frontend-plugin\"\nversion = \"1.0.0\"\n")
	writeFile(t, fs, "spaces/frontend/commands/build.md", "# build\nbuild the frontend\n")

	_, err = wt.Add("spaces")
	require.NoError(t, err)

	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(0, 0)}
	commitHash, err := wt.Commit("initial", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	_, err = repo.CreateTag("space/base/v1.0.0", commitHash, nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("space/frontend/v1.0.0", commitHash, nil)
	require.NoError(t, err)

	return registry.FromRepository("mem", repo)
}

func fixedNow() string { return "2026-07-31T00:00:00Z" }

func TestResolve_WalksComposeList(t *testing.T) {
	reg := newFixtureRegistry(t)
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/project/asp-targets.toml",
		[]byte("schema = 1\n\n[targets.dev]\ncompose = [\"space:frontend@v1.0.0\"]\n"), 0o644))

	o := New(fs, "/home/.asp", reg, "/registry", fixedNow)
	results, err := o.Resolve("/project", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "dev", results[0].TargetName)
	assert.Len(t, results[0].Closure.LoadOrder, 2)
	assert.Equal(t, "base", results[0].Closure.Nodes[results[0].Closure.LoadOrder[0]].ID)
}

func TestInstall_WritesLockAndComposesClaudeBundle(t *testing.T) {
	reg := newFixtureRegistry(t)
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/project/asp-targets.toml",
		[]byte("schema = 1\n\n[targets.dev]\ncompose = [\"space:frontend@v1.0.0\"]\n"), 0o644))

	o := New(fs, "/home/.asp", reg, "/registry", fixedNow)
	results, err := o.Install("/project", nil, []harness.ID{harness.Claude}, true)
	require.NoError(t, err)

	result, ok := results["dev"]
	require.True(t, ok)
	require.Len(t, result.Closure.LoadOrder, 2)

	bundle, ok := result.Bundles[harness.Claude]
	require.True(t, ok)
	assert.Len(t, bundle.PluginDirs, 2)
	assert.NotEmpty(t, bundle.SettingsPath)

	lockExists, _ := afero.Exists(fs, "/project/asp-lock.json")
	assert.True(t, lockExists)

	// Both spaces ship commands/build.md, so W201 must fire.
	foundW201 := false
	for _, issue := range result.Linter.Issues() {
		if issue.Code == "W201" {
			foundW201 = true
		}
	}
	assert.True(t, foundW201, "expected a W201 command collision warning")
}

func TestBuild_InstallsSingleTarget(t *testing.T) {
	reg := newFixtureRegistry(t)
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/project/asp-targets.toml",
		[]byte("schema = 1\n\n[targets.dev]\ncompose = [\"space:base@v1.0.0\"]\n\n[targets.other]\ncompose = [\"space:base@v1.0.0\"]\n"), 0o644))

	o := New(fs, "/home/.asp", reg, "/registry", fixedNow)
	result, err := o.Build("/project", "dev", []harness.ID{harness.Claude})
	require.NoError(t, err)
	assert.Equal(t, "dev", result.TargetName)

	otherComposed, _ := afero.Exists(fs, "/project/asp_modules/other")
	assert.False(t, otherComposed)
}

func TestDiff_ReportsAddedSpaceAgainstEmptyLock(t *testing.T) {
	reg := newFixtureRegistry(t)
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/project/asp-targets.toml",
		[]byte("schema = 1\n\n[targets.dev]\ncompose = [\"space:base@v1.0.0\"]\n"), 0o644))

	o := New(fs, "/home/.asp", reg, "/registry", fixedNow)
	diff, err := o.Diff("/project", "dev")
	require.NoError(t, err)
	assert.True(t, diff.LoadOrderChanged)
}

func TestGC_CollectsOrphansAcrossProjectAndGlobalLocks(t *testing.T) {
	reg := newFixtureRegistry(t)
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/project/asp-targets.toml",
		[]byte("schema = 1\n\n[targets.dev]\ncompose = [\"space:base@v1.0.0\"]\n"), 0o644))

	o := New(fs, "/home/.asp", reg, "/registry", fixedNow)
	_, err := o.Install("/project", nil, []harness.ID{harness.Claude}, true)
	require.NoError(t, err)

	// An orphan snapshot directory with no referencing lock entry.
	require.NoError(t, afero.WriteFile(fs, "/home/.asp/store/spaces/"+orphanDigest+"/junk.bin", make([]byte, 42), 0o644))

	result, err := o.GC("/project", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SnapshotsDeleted)
	assert.Equal(t, int64(42), result.BytesFreed)
}

func TestExplain_RunsLinterAgainstMaterializedArtifacts(t *testing.T) {
	reg := newFixtureRegistry(t)
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/project/asp-targets.toml",
		[]byte("schema = 1\n\n[targets.dev]\ncompose = [\"space:frontend@v1.0.0\"]\n"), 0o644))

	o := New(fs, "/home/.asp", reg, "/registry", fixedNow)
	_, err := o.Install("/project", nil, []harness.ID{harness.Claude}, true)
	require.NoError(t, err)

	targets, err := o.Explain("/project", []string{"dev"})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Len(t, targets[0].Spaces, 2)

	foundW201 := false
	for _, w := range targets[0].Warnings {
		if w.Code == "W201" {
			foundW201 = true
		}
	}
	assert.True(t, foundW201, "explain must recompute lint warnings, not just copy the (always-nil) lock entry warnings")
}

func TestInstall_TwiceWithNoChangesIsIdempotent(t *testing.T) {
	reg := newFixtureRegistry(t)
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/project/asp-targets.toml",
		[]byte("schema = 1\n\n[targets.dev]\ncompose = [\"space:base@v1.0.0\"]\n"), 0o644))

	o := New(fs, "/home/.asp", reg, "/registry", fixedNow)

	_, err := o.Install("/project", nil, []harness.ID{harness.Claude}, true)
	require.NoError(t, err)
	first, err := afero.ReadFile(fs, "/project/asp-lock.json")
	require.NoError(t, err)

	_, err = o.Install("/project", nil, []harness.ID{harness.Claude}, true)
	require.NoError(t, err)
	second, err := afero.ReadFile(fs, "/project/asp-lock.json")
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second), "asp-lock.json must be byte-identical across a no-op reinstall")
}

const orphanDigest = "0000000000000000000000000000000000000000000000000000000000ab"
