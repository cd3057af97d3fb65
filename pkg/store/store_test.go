package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspaces/asp/pkg/registry"
	"github.com/agentspaces/asp/pkg/resolver"
)

// fakeReader serves fixed tree entries and blob content for one commit,
// independent of a real git repository.
type fakeReader struct {
	entries []registry.TreeEntry
	blobs   map[string][]byte
}

func (f *fakeReader) ListTree(commit, dirPath string) ([]registry.TreeEntry, error) {
	return f.entries, nil
}

func (f *fakeReader) ReadBlobAt(commit, path string) ([]byte, error) {
	return f.blobs[path], nil
}

func sampleReader() *fakeReader {
	return &fakeReader{
		entries: []registry.TreeEntry{
			{Path: "spaces/base/space.toml", Mode: modeRegular, Size: 10},
			{Path: "spaces/base/README.md", Mode: modeRegular, Size: 5},
		},
		blobs: map[string][]byte{
			"spaces/base/space.toml": []byte("schema = 1\nid = \"base\"\n"),
			"spaces/base/README.md":  []byte("hello"),
		},
	}
}

func TestSnapshot_CreatesAndIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/home")
	reader := sampleReader()

	integrity1, err := s.Snapshot("base", "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", reader)
	require.NoError(t, err)
	assert.True(t, len(integrity1) > len("sha256:"))

	exists, err := s.Exists(integrity1)
	require.NoError(t, err)
	assert.True(t, exists)

	content, err := afero.ReadFile(fs, s.SnapshotPath(integrity1)+"/space.toml")
	require.NoError(t, err)
	assert.Equal(t, "schema = 1\nid = \"base\"\n", string(content))

	// Re-snapshotting identical content is a no-op returning the same digest.
	integrity2, err := s.Snapshot("base", "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", reader)
	require.NoError(t, err)
	assert.Equal(t, integrity1, integrity2)
}

func TestSnapshot_EqualIntegrityImpliesEqualContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/home")

	r1 := sampleReader()
	r2 := sampleReader() // identical content, different reader instance

	i1, err := s.Snapshot("base", "1111111111111111111111111111111111111a", r1)
	require.NoError(t, err)
	i2, err := s.Snapshot("base", "2222222222222222222222222222222222222b", r2)
	require.NoError(t, err)

	assert.Equal(t, i1, i2, "identical tracked-file content must yield identical integrity regardless of commit sha")
}

func TestSnapshot_DevSelectorSkipsSnapshot(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/home")

	integrity, err := s.Snapshot("base", resolver.DevSentinel, sampleReader())
	require.NoError(t, err)
	assert.Equal(t, resolver.DevIntegrity, integrity)

	exists, err := s.Exists(integrity)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestComputeIntegrity_OrderIndependent(t *testing.T) {
	entries := []registry.TreeEntry{
		{Path: "spaces/x/b.txt", Mode: modeRegular},
		{Path: "spaces/x/a.txt", Mode: modeRegular},
	}
	blobs := map[string][]byte{"spaces/x/a.txt": []byte("A"), "spaces/x/b.txt": []byte("B")}
	readBlob := func(p string) ([]byte, error) { return blobs[p], nil }

	reversed := []registry.TreeEntry{entries[1], entries[0]}

	d1, err := ComputeIntegrity(entries, readBlob)
	require.NoError(t, err)
	d2, err := ComputeIntegrity(reversed, readBlob)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestCopyInto_MaterializesTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/store/spaces/abc/space.toml", []byte("schema = 1\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/store/spaces/abc/nested/file.txt", []byte("x"), 0o644))

	require.NoError(t, CopyInto(fs, "/store/spaces/abc", "/artifact/base"))

	content, err := afero.ReadFile(fs, "/artifact/base/space.toml")
	require.NoError(t, err)
	assert.Equal(t, "schema = 1\n", string(content))

	nested, err := afero.ReadFile(fs, "/artifact/base/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(nested))
}
