package mkver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	t.Setenv("MKVER_TEST_BUILD", "42")
	vars := VersionVars(MustParseVersion("1.2.3-rc.1+sha.abc"), "v").Merge(StateVars(RepositoryState{
		Branch:   "main",
		FullHash: "0123456789abcdef0123",
		Commits:  []string{"a", "b"},
		LastTag:  vp("1.2.2"),
	}, "v"))

	tests := []struct {
		template string
		want     string
	}{
		{"{Version}", "1.2.3-rc.1+sha.abc"},
		{"{Tag}", "v1.2.3-rc.1+sha.abc"},
		{"{Major}.{Minor}.{Patch}", "1.2.3"},
		{"{PreRelease}|{BuildMetaData}", "rc.1|sha.abc"},
		{"{Branch}@{ShortHash} ({CommitCount} since {LastTag})", "main@0123456 (2 since v1.2.2)"},
		{"{FullHash}", "0123456789abcdef0123"},
		{"build {env.MKVER_TEST_BUILD}", "build 42"},
		{"[{env.MKVER_TEST_UNSET}]", "[]"},
		{`version = "{VersionRegex}"`, `version = "{VersionRegex}"`},
		{"{ not a placeholder }", "{ not a placeholder }"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Format(tc.template, vars), tc.template)
	}
}

func TestVarsMergeDoesNotModifyReceiver(t *testing.T) {
	base := Vars{"A": "1", "B": "2"}
	merged := base.Merge(Vars{"B": "3"})
	assert.Equal(t, Vars{"A": "1", "B": "3"}, merged)
	assert.Equal(t, "2", base["B"])
	assert.Equal(t, Vars{"C": "4"}, Vars(nil).Merge(Vars{"C": "4"}))
}

func TestSanitizeBuild(t *testing.T) {
	tests := map[string]string{
		"main":                 "main",
		"feature/login":        "feature-login",
		"release/1.x..abc":     "release-1.x.abc",
		"..a b__c.":            "a-b-c",
		"exp.sha.5114f85":      "exp.sha.5114f85",
		"dependabot/npm/foo@2": "dependabot-npm-foo-2",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeBuild(in), in)
	}
}
