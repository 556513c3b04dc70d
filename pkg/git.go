package mkver

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// Repository exposes the history facts the resolver consumes.
type Repository interface {
	// ListTags returns every tag name starting with prefix.
	ListTags(ctx context.Context, prefix string) ([]string, error)
	// LatestTag returns the most recent tag reachable from HEAD that starts
	// with prefix, preferring the highest version when several tags share
	// that commit; ok is false when there is none.
	LatestTag(ctx context.Context, prefix string) (tag string, ok bool, err error)
	// CommitsSince returns commit messages after tag, oldest first. An empty
	// tag means the whole history.
	CommitsSince(ctx context.Context, tag string) ([]string, error)
}

// RefInfo is implemented by repositories that can describe HEAD.
type RefInfo interface {
	Branch(ctx context.Context) (string, error)
	Head(ctx context.Context) (string, error)
}

// Tagger creates tags.
type Tagger interface {
	CreateTag(ctx context.Context, name, message string) error
}

// Git runs the git binary against the repository in Dir.
type Git struct {
	Dir    string
	Logger *zap.Logger
}

func (g Git) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// gitError carries git's stderr so callers can report it.
type gitError struct {
	args   []string
	stderr string
	err    error
}

func (e *gitError) Error() string {
	return "git " + strings.Join(e.args, " ") + ": " + e.err.Error() + ": " + strings.TrimSpace(e.stderr)
}

func (e *gitError) Unwrap() error { return e.err }

func (g Git) run(ctx context.Context, args ...string) (string, error) {
	full := args
	if g.Dir != "" {
		full = append([]string{"-C", g.Dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	g.logger().Debug("running git", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return "", &gitError{args: args, stderr: stderr.String(), err: err}
	}
	return stdout.String(), nil
}

// CheckGit verifies that git is available on the system.
func CheckGit(ctx context.Context) error {
	if err := exec.CommandContext(ctx, "git", "--version").Run(); err != nil {
		return errors.New("git is not available on the system")
	}
	return nil
}

func (g Git) ListTags(ctx context.Context, prefix string) ([]string, error) {
	out, err := g.run(ctx, "tag", "--list", prefix+"*")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (g Git) LatestTag(ctx context.Context, prefix string) (string, bool, error) {
	if _, err := g.Head(ctx); err != nil {
		// no commits yet
		return "", false, nil
	}
	out, err := g.run(ctx, "describe", "--tags", "--abbrev=0", "--match", prefix+"*")
	if err != nil {
		var ge *gitError
		if errors.As(err, &ge) && isNoTagsMessage(ge.stderr) {
			return "", false, nil
		}
		return "", false, err
	}
	described := strings.TrimSpace(out)

	// describe picks an arbitrary tag when several point at the same commit
	out, err = g.run(ctx, "tag", "--list", prefix+"*", "--points-at", described+"^{commit}")
	if err != nil {
		return "", false, err
	}
	if best, ok := highestTag(splitLines(out), prefix); ok {
		return best, true, nil
	}
	return described, true, nil
}

// highestTag returns the tag with the highest version precedence among
// names. Tags that are not versions after prefix are skipped.
func highestTag(names []string, prefix string) (string, bool) {
	best, bestSV := "", ""
	for _, name := range names {
		if _, err := ParseTag(name, prefix); err != nil {
			continue
		}
		sv := "v" + strings.TrimPrefix(name, prefix)
		if best == "" || semver.Compare(sv, bestSV) > 0 {
			best, bestSV = name, sv
		}
	}
	return best, best != ""
}

func isNoTagsMessage(stderr string) bool {
	return strings.Contains(stderr, "No names found") ||
		strings.Contains(stderr, "No tags can describe") ||
		strings.Contains(stderr, "cannot describe")
}

func (g Git) CommitsSince(ctx context.Context, tag string) ([]string, error) {
	if _, err := g.Head(ctx); err != nil {
		return nil, nil
	}
	args := []string{"log", "--reverse", "--format=%B%x00"}
	if tag != "" {
		args = append(args, tag+"..HEAD")
	}
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var msgs []string
	for _, m := range strings.Split(out, "\x00") {
		if m = strings.TrimSpace(m); m != "" {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (g Git) Branch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g Git) Head(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CreateTag creates an annotated tag at HEAD.
func (g Git) CreateTag(ctx context.Context, name, message string) error {
	if _, err := g.run(ctx, "tag", "-a", name, "-m", message); err != nil {
		return errors.Wrapf(err, "creating tag %s", name)
	}
	g.logger().Info("created tag", zap.String("tag", name))
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ReadState snapshots repo into a RepositoryState. The latest tag must parse
// as a version after prefix, otherwise a ParseError is returned. Other tags
// that are not versions are ignored.
func ReadState(ctx context.Context, repo Repository, prefix string) (RepositoryState, error) {
	var state RepositoryState

	latest, ok, err := repo.LatestTag(ctx, prefix)
	if err != nil {
		return state, errors.Wrap(err, "reading latest tag")
	}
	if ok {
		v, err := ParseTag(latest, prefix)
		if err != nil {
			return state, err
		}
		state.LastTag = &v
	} else {
		latest = ""
	}

	if state.Commits, err = repo.CommitsSince(ctx, latest); err != nil {
		return state, errors.Wrap(err, "reading commits")
	}

	names, err := repo.ListTags(ctx, prefix)
	if err != nil {
		return state, errors.Wrap(err, "listing tags")
	}
	for _, name := range names {
		if v, err := ParseTag(name, prefix); err == nil {
			state.Tags = append(state.Tags, v)
		}
	}

	if ri, ok := repo.(RefInfo); ok {
		if state.Branch, err = ri.Branch(ctx); err != nil {
			state.Branch = ""
		}
		if state.FullHash, err = ri.Head(ctx); err != nil {
			state.FullHash = ""
		}
	}
	return state, nil
}
