package gc

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspaces/asp/pkg/lock"
	"github.com/agentspaces/asp/pkg/store"
)

func TestCollect_RemovesOrphanSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := store.New(fs, "/home")

	liveDigest := strings.Repeat("a", 64)
	require.NoError(t, afero.WriteFile(fs, s.SnapshotsDir()+"/"+liveDigest+"/space.toml", []byte("schema = 1\n"), 0o644))

	orphanDigest := strings.Repeat("0", 64)
	require.NoError(t, afero.WriteFile(fs, s.SnapshotsDir()+"/"+orphanDigest+"/blob.bin", make([]byte, 1000), 0o644))

	l := lock.New("url", "t0")
	l.Spaces["base@c1c1c1c1c1c1"] = lock.SpaceEntry{ID: "base", Integrity: "sha256:" + liveDigest}

	result, err := Collect(fs, s, []*lock.File{l}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SnapshotsDeleted)
	assert.Equal(t, int64(1000), result.BytesFreed)

	exists, _ := afero.DirExists(fs, s.SnapshotsDir()+"/"+orphanDigest)
	assert.False(t, exists)

	stillExists, _ := afero.DirExists(fs, s.SnapshotsDir()+"/"+liveDigest)
	assert.True(t, stillExists)
}

func TestCollect_DryRunLeavesOrphanInPlace(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := store.New(fs, "/home")

	orphanDigest := strings.Repeat("0", 64)
	require.NoError(t, afero.WriteFile(fs, s.SnapshotsDir()+"/"+orphanDigest+"/blob.bin", make([]byte, 1000), 0o644))

	result, err := Collect(fs, s, []*lock.File{lock.New("url", "t0")}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SnapshotsDeleted)
	assert.Equal(t, int64(1000), result.BytesFreed)

	exists, _ := afero.DirExists(fs, s.SnapshotsDir()+"/"+orphanDigest)
	assert.True(t, exists, "dry run must not remove the orphan directory")
}

func TestCollect_NeverRemovesLiveIntegrity(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := store.New(fs, "/home")

	digest := strings.Repeat("b", 64)
	require.NoError(t, afero.WriteFile(fs, s.SnapshotsDir()+"/"+digest+"/space.toml", []byte("x"), 0o644))

	l1 := lock.New("url", "t0")
	l1.Spaces["a@aaaaaaaaaaaa"] = lock.SpaceEntry{ID: "a", Integrity: "sha256:" + digest}
	l2 := lock.New("url", "t1")

	result, err := Collect(fs, s, []*lock.File{l1, l2}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SnapshotsDeleted)

	exists, _ := afero.DirExists(fs, s.SnapshotsDir()+"/"+digest)
	assert.True(t, exists)
}
