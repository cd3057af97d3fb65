package manifest

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSpaceTOML = `
schema = 1
id = "base"
version = "1.0.0"
description = "base space"

[plugin]
name = "base"
version = "1.0.0"

[deps]
spaces = ["space:other@stable"]
`

func TestReadSpaceManifest_Valid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "space.toml", []byte(validSpaceTOML), 0644))

	m, err := ReadSpaceManifest(fs, "space.toml")
	require.NoError(t, err)
	assert.Equal(t, "base", m.ID)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, []string{"space:other@stable"}, m.Deps.Spaces)
}

func TestReadSpaceManifest_InvalidSchema(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "space.toml", []byte(`
schema = 2
id = "base"
`), 0644))

	_, err := ReadSpaceManifest(fs, "space.toml")
	require.Error(t, err)
	var verr *ConfigValidationError
	require.ErrorAs(t, err, &verr)
}

func TestReadSpaceManifest_BadID(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "space.toml", []byte(`
schema = 1
id = "Bad_ID"
`), 0644))

	_, err := ReadSpaceManifest(fs, "space.toml")
	require.Error(t, err)
}

func TestReadSpaceManifest_BadDepRef(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "space.toml", []byte(`
schema = 1
id = "base"

[deps]
spaces = ["not-a-ref"]
`), 0644))

	_, err := ReadSpaceManifest(fs, "space.toml")
	require.Error(t, err)
}

func TestReadSpaceManifest_MalformedTOML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "space.toml", []byte(`not = [valid`), 0644))

	_, err := ReadSpaceManifest(fs, "space.toml")
	require.Error(t, err)
	var perr *ConfigParseError
	require.ErrorAs(t, err, &perr)
}

const validProjectTOML = `
schema = 1

[targets.dev]
compose = ["space:frontend@stable"]
`

func TestReadProjectManifest_Valid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "asp-targets.toml", []byte(validProjectTOML), 0644))

	m, err := ReadProjectManifest(fs, "asp-targets.toml")
	require.NoError(t, err)
	require.Contains(t, m.Targets, "dev")
	assert.Equal(t, []string{"space:frontend@stable"}, m.Targets["dev"].Compose)
}

func TestReadProjectManifest_EmptyTargets(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "asp-targets.toml", []byte(`schema = 1`), 0644))

	_, err := ReadProjectManifest(fs, "asp-targets.toml")
	require.Error(t, err)
}

func TestReadProjectManifest_EmptyCompose(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "asp-targets.toml", []byte(`
schema = 1

[targets.dev]
compose = []
`), 0644))

	_, err := ReadProjectManifest(fs, "asp-targets.toml")
	require.Error(t, err)
}
