package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Classification(t *testing.T) {
	cases := []struct {
		name string
		in   string
		kind SelectorKind
		val  string
	}{
		{"dev", "space:base@dev", KindDev, ""},
		{"commit", "space:base@" + "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2", KindCommit, "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2"},
		{"caret semver", "space:base@^1.0.0", KindSemverReq, "^1.0.0"},
		{"tilde semver", "space:base@~1.2", KindSemverReq, "~1.2"},
		{"range semver", "space:base@>=1.0 <2", KindSemverReq, ">=1.0 <2"},
		{"exact semver", "space:base@1.2.3", KindSemverReq, "=1.2.3"},
		{"exact semver v-prefixed", "space:base@v1.2.3", KindSemverReq, "=1.2.3"},
		{"branch", "space:base@branch/feature-x", KindBranch, "feature-x"},
		{"tag", "space:base@stable", KindTag, "stable"},
		{"exact semver with prerelease", "space:base@v1.1.0-rc", KindSemverReq, "=1.1.0-rc"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := Parse(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.kind, r.Selector.Kind)
			assert.Equal(t, c.val, r.Selector.Value)
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{
		"space:base@stable",
		"space:base@^1.0.0",
		"space:frontend@branch/main",
		"space:frontend@" + "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2",
		"space:frontend@dev",
	}
	for _, in := range inputs {
		r, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, in, r.String())
		assert.Equal(t, in, Serialize(r))
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"no prefix", "base@stable"},
		{"no at", "space:base"},
		{"empty id", "space:@stable"},
		{"empty selector", "space:base@"},
		{"bad id chars", "space:Base_1@stable"},
		{"unclassifiable selector", "space:base@st!able"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse(c.in)
			require.Error(t, err)
		})
	}
}

func TestParse_IDLengthLimit(t *testing.T) {
	long := "a"
	for i := 0; i < 70; i++ {
		long += "b"
	}
	_, err := Parse("space:" + long + "@stable")
	require.Error(t, err)
}
