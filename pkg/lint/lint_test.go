package lint

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspaces/asp/pkg/harness"
)

func TestCheckCommandCollisions_W201(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/artifacts/base/commands/build.md", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/artifacts/frontend/commands/build.md", []byte("y"), 0o644))

	artifacts := []harness.Artifact{
		{SpaceID: "base", ArtifactPath: "/artifacts/base"},
		{SpaceID: "frontend", ArtifactPath: "/artifacts/frontend"},
	}

	l := New()
	l.CheckCommandCollisions(fs, artifacts)

	require.NotEmpty(t, l.Issues())
	found := false
	for _, issue := range l.Issues() {
		if issue.Code == "W201" {
			assert.Contains(t, issue.Message, "build")
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckPluginNameCollisions_W205(t *testing.T) {
	artifacts := []harness.Artifact{
		{SpaceID: "a", PluginName: "shared"},
		{SpaceID: "b", PluginName: "shared"},
	}
	l := New()
	l.CheckPluginNameCollisions(artifacts)
	require.Len(t, l.Issues(), 1)
	assert.Equal(t, "W205", l.Issues()[0].Code)
}

func TestHasErrors_OnlyTriggersOnErrorSeverity(t *testing.T) {
	l := New()
	l.add("W201", Warning, nil, "warning only")
	assert.False(t, l.HasErrors())

	l.CheckInvalidHooksConfig(afero.NewMemMapFs(), "/artifacts/x", "x", assertErr(), assertErr(), true)
	assert.True(t, l.HasErrors())
}

func assertErr() error { return assertError{} }

type assertError struct{}

func (assertError) Error() string { return "boom" }
