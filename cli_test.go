package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mkver "github.com/bcomnes/mkver/pkg"
)

// runCLI runs the command line in-process and returns its exit code and output.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
}

// newRepo creates a repository tagged v1.2.3 followed by the given commits.
func newRepo(t *testing.T, commits ...string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv(mkver.EnvConfig, "")
	dir := t.TempDir()
	git(t, dir, "init")
	git(t, dir, "config", "user.email", "test@example.com")
	git(t, dir, "config", "user.name", "Test User")
	git(t, dir, "config", "commit.gpgsign", "false")
	git(t, dir, "config", "tag.gpgsign", "false")
	git(t, dir, "commit", "--allow-empty", "-m", "initial")
	git(t, dir, "tag", "v1.2.3")
	for _, msg := range commits {
		git(t, dir, "commit", "--allow-empty", "-m", msg)
	}
	return dir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, mkver.DefaultConfigFile), []byte(content), 0o644))
}

func TestHelpAndVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Usage:")
	for _, name := range []string{"next", "tag", "patch", "info", "init"} {
		assert.Contains(t, stdout, name)
	}

	code, stdout, _ = runCLI(t, "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, Version.String())
}

func TestNext(t *testing.T) {
	dir := newRepo(t, "fix: bug", "feat: add X")

	code, stdout, stderr := runCLI(t, "next", "-C", dir)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "1.3.0\n", stdout)

	code, stdout, _ = runCLI(t, "next", "-C", dir, "--format", "{Tag} from {LastTag} after {CommitCount}")
	require.Equal(t, 0, code)
	assert.Equal(t, "v1.3.0 from v1.2.3 after 2\n", stdout)

	code, stdout, _ = runCLI(t, "next", "-C", dir, "--pre-release", "rc")
	require.Equal(t, 0, code)
	assert.Equal(t, "1.3.0-rc\n", stdout)
}

func TestNextWithoutMatchingCommits(t *testing.T) {
	dir := newRepo(t, "chore: deps")
	code, stdout, _ := runCLI(t, "next", "-C", dir)
	require.Equal(t, 0, code)
	assert.Equal(t, "1.2.3\n", stdout)

	code, stdout, _ = runCLI(t, "tag", "-C", dir)
	require.Equal(t, 0, code)
	assert.Equal(t, "No release needed, staying at 1.2.3\n", stdout)
}

func TestTag(t *testing.T) {
	dir := newRepo(t, "fix: bug")

	code, stdout, _ := runCLI(t, "tag", "-C", dir, "--dry")
	require.Equal(t, 0, code)
	assert.Equal(t, "Would tag v1.2.4\n", stdout)

	code, stdout, stderr := runCLI(t, "tag", "-C", dir)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Tagged v1.2.4\n", stdout)
	assert.Contains(t, stderr, "created tag")

	code, stdout, _ = runCLI(t, "next", "-C", dir)
	require.Equal(t, 0, code)
	assert.Equal(t, "1.2.4\n", stdout)
}

func TestPatch(t *testing.T) {
	dir := newRepo(t, "feat: add X")
	writeConfig(t, dir, `patches:
  - path: Cargo.toml
    search: 'version = "{VersionRegex}"'
`)
	cargo := filepath.Join(dir, "Cargo.toml")
	require.NoError(t, os.WriteFile(cargo, []byte("[package]\nversion = \"1.2.3\"\n"), 0o644))

	code, stdout, stderr := runCLI(t, "patch", "-C", dir, "--dry")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Dry run complete, no files were modified.")
	assert.Contains(t, stdout, "New Version: 1.3.0")
	assert.Contains(t, stdout, "Files that would be updated:")
	assert.Contains(t, stdout, "+version = \"1.3.0\"")
	data, err := os.ReadFile(cargo)
	require.NoError(t, err)
	assert.Equal(t, "[package]\nversion = \"1.2.3\"\n", string(data))

	code, stdout, stderr = runCLI(t, "patch", "-C", dir)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Files updated:")
	data, err = os.ReadFile(cargo)
	require.NoError(t, err)
	assert.Equal(t, "[package]\nversion = \"1.3.0\"\n", string(data))

	code, stdout, _ = runCLI(t, "patch", "-C", dir)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "All files already up to date.")
}

func TestPatchMissingPatternWritesNothing(t *testing.T) {
	dir := newRepo(t, "fix: bug")
	writeConfig(t, dir, `patches:
  - path: a.txt
    search: 'version = "{VersionRegex}"'
  - path: b.txt
    search: 'version = "{VersionRegex}"'
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(`version = "1.2.3"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("nothing here"), 0o644))

	code, stdout, stderr := runCLI(t, "patch", "-C", dir)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error: MissingPatternError:")
	assert.Contains(t, stderr, "b.txt")

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, `version = "1.2.3"`, string(data))
}

func TestErrorKinds(t *testing.T) {
	dir := newRepo(t, "fix: bug")
	writeConfig(t, dir, "rules:\n  - pattern: '^fix'\n    increment: huge\n")
	code, _, stderr := runCLI(t, "next", "-C", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "ConfigError:")
	assert.Contains(t, stderr, "rules[0].increment")

	dir = newRepo(t, "chore: before bad tag")
	git(t, dir, "tag", "vbad")
	git(t, dir, "commit", "--allow-empty", "-m", "fix: after bad tag")
	code, _, stderr = runCLI(t, "next", "-C", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "ParseError:")
	assert.Contains(t, stderr, "vbad")

	code, _, stderr = runCLI(t, "next", "-C", dir, "--pre-release", "a..b")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid pre-release label")
	assert.NotContains(t, stderr, "Error: Error:")

	code, _, stderr = runCLI(t, "bump")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `unknown command "bump"`)
	assert.NotContains(t, stderr, "Error: Error:")
}

func TestTagTwiceWithPatchPolicy(t *testing.T) {
	dir := newRepo(t)
	writeConfig(t, dir, "whenNoMatch: patch\n")

	for i := 0; i < 2; i++ {
		code, stdout, stderr := runCLI(t, "tag", "-C", dir)
		require.Equal(t, 0, code, stderr)
		assert.Equal(t, "No release needed, staying at 1.2.3\n", stdout)
	}

	git(t, dir, "commit", "--allow-empty", "-m", "chore: ci")
	code, stdout, stderr := runCLI(t, "tag", "-C", dir)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Tagged v1.2.4\n", stdout)

	code, stdout, _ = runCLI(t, "tag", "-C", dir)
	require.Equal(t, 0, code)
	assert.Equal(t, "No release needed, staying at 1.2.4\n", stdout)
}

func TestInfo(t *testing.T) {
	dir := newRepo(t, "fix: bug", "docs: readme")
	code, stdout, stderr := runCLI(t, "info", "-C", dir)
	require.Equal(t, 0, code, stderr)
	for _, want := range []string{"Old Version", "1.2.3", "New Version", "1.2.4", "patch", "fix: bug", "docs: readme"} {
		assert.Contains(t, stdout, want)
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(mkver.EnvConfig, "")

	code, stdout, _ := runCLI(t, "init", "-C", dir)
	require.Equal(t, 0, code)
	path := filepath.Join(dir, mkver.DefaultConfigFile)
	assert.Equal(t, "Wrote "+path+"\n", stdout)

	cfg, err := mkver.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "v", cfg.TagPrefix)

	code, _, stderr := runCLI(t, "init", "-C", dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "IOError:")

	code, _, _ = runCLI(t, "init", "-C", dir, "--force")
	assert.Equal(t, 0, code)
}
