package mkver

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"0.0.0", Version{}},
		{"1.2.3", Version{Major: 1, Minor: 2, Patch: 3}},
		{"1.2.3-rc.1", Version{Major: 1, Minor: 2, Patch: 3, PreRelease: []string{"rc", "1"}}},
		{"1.2.3+build.5", Version{Major: 1, Minor: 2, Patch: 3, Build: "build.5"}},
		{"10.20.30-alpha.beta+exp.sha.5114f85", Version{Major: 10, Minor: 20, Patch: 30, PreRelease: []string{"alpha", "beta"}, Build: "exp.sha.5114f85"}},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseVersion(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.input, got.String())
		})
	}
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "1.2", "v1.2.3", "1.2.3.4", "01.2.3", "1.2.x", "dev"} {
		_, err := ParseVersion(input)
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), "input %q", input)
		assert.Equal(t, input, parseErr.Input)
	}
}

func TestParseTag(t *testing.T) {
	v, err := ParseTag("v1.4.0", "v")
	require.NoError(t, err)
	assert.Equal(t, MustParseVersion("1.4.0"), v)

	v, err = ParseTag("release-2.0.0-rc.1", "release-")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-rc.1", v.String())

	_, err = ParseTag("vnext", "v")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "vnext", parseErr.Input)

	_, err = ParseTag("1.0.0", "v")
	require.True(t, errors.As(err, &parseErr))
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.0-rc.1", "1.0.0", -1},
		{"1.0.0-alpha", "1.0.0-alpha.1", -1},
		{"1.0.0-rc.2", "1.0.0-rc.10", -1},
		{"1.0.0-beta", "1.0.0-alpha", 1},
		{"1.0.0+build.1", "1.0.0+build.2", 0},
		{"1.0.0+zzz", "1.0.0", 0},
	}
	for _, tc := range tests {
		got := MustParseVersion(tc.a).Compare(MustParseVersion(tc.b))
		assert.Equal(t, tc.want, got, "%s <=> %s", tc.a, tc.b)
	}
	assert.True(t, MustParseVersion("1.0.0-rc").LessThan(MustParseVersion("1.0.0")))
}

func TestVersionBump(t *testing.T) {
	tests := []struct {
		version  string
		bump     Increment
		expected string
	}{
		{"1.2.3", IncrementMajor, "2.0.0"},
		{"1.2.3", IncrementMinor, "1.3.0"},
		{"1.2.3", IncrementPatch, "1.2.4"},
		{"1.2.3", IncrementNone, "1.2.3"},
		{"1.2.3+meta", IncrementPatch, "1.2.4"},
		// pre-releases whose core already covers the increment are released
		{"2.0.0-rc.1", IncrementMajor, "2.0.0"},
		{"1.3.0-rc.1", IncrementMinor, "1.3.0"},
		{"1.2.4-0", IncrementPatch, "1.2.4"},
		// otherwise they are bumped past
		{"1.3.0-rc.1", IncrementMajor, "2.0.0"},
		{"1.3.1-rc.1", IncrementMinor, "1.4.0"},
	}
	for _, tc := range tests {
		got := MustParseVersion(tc.version).Bump(tc.bump)
		assert.Equal(t, tc.expected, got.String(), "bump %s by %s", tc.version, tc.bump)
	}
}

func TestVersionTag(t *testing.T) {
	v := MustParseVersion("1.2.3-rc.1")
	assert.Equal(t, "v1.2.3-rc.1", v.Tag("v"))
	assert.Equal(t, "1.2.3-rc.1", v.Tag(""))
	assert.True(t, v.IsPreRelease())
	assert.False(t, v.Core().IsPreRelease())
}

func TestParseIncrement(t *testing.T) {
	for _, name := range []string{"major", "Minor", "PATCH", "none"} {
		inc, err := ParseIncrement(name)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(name), inc.String())
	}
	_, err := ParseIncrement("huge")
	assert.Error(t, err)
}
