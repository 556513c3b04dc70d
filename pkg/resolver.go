package mkver

import (
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// RepositoryState is an immutable snapshot of the facts Resolve needs.
type RepositoryState struct {
	LastTag  *Version // most recent reachable version tag, nil when untagged
	Commits  []string // messages since LastTag, oldest first
	Tags     []Version
	Branch   string
	FullHash string
}

// NoMatchPolicy decides what happens when no commit matches any rule.
type NoMatchPolicy string

const (
	NoMatchNone  NoMatchPolicy = "none"  // keep the last tag, no release
	NoMatchPatch NoMatchPolicy = "patch" // release a patch anyway
	NoMatchFail  NoMatchPolicy = "fail"  // report NoReleaseError
)

// ResolveOptions tune Resolve beyond the rule table.
type ResolveOptions struct {
	InitialVersion *Version // used when there is no tag and nothing to bump; default 0.0.1
	WhenNoMatch    NoMatchPolicy
	PreRelease     string // label applied when the winning rule has none
	BuildMetadata  string // rendered build metadata attached to a release
}

// CommitClass records how a single commit was classified.
type CommitClass struct {
	Message   string
	Rule      int // index into the rule table, -1 when unmatched
	Increment Increment
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Previous  *Version
	Version   Version
	Increment Increment
	Released  bool // false when Version equals Previous
	Commits   []CommitClass
}

// Resolve computes the next version from state. Each commit is classified by
// the first matching rule, the most severe increment across all commits is
// applied once to the last tag, and a pre-release label is attached when
// requested. With no commits since the last tag the last tag is kept
// whatever the no-match policy says. Resolve performs no I/O.
func Resolve(state RepositoryState, rules []BumpRule, opts ResolveOptions) (Resolution, error) {
	res := Resolution{Previous: state.LastTag}
	label := ""
	for _, msg := range state.Commits {
		idx, inc := Classify(msg, rules)
		res.Commits = append(res.Commits, CommitClass{Message: msg, Rule: idx, Increment: inc})
		if idx >= 0 && inc > res.Increment {
			res.Increment = inc
			label = rules[idx].PreRelease
		}
	}

	var next Version
	switch {
	case res.Increment == IncrementNone && state.LastTag == nil:
		next = initialVersion(opts)
	case res.Increment == IncrementNone && len(state.Commits) == 0:
		// nothing new since the last tag, whatever the policy
		res.Version = *state.LastTag
		return res, nil
	case res.Increment == IncrementNone:
		switch opts.WhenNoMatch {
		case NoMatchPatch:
			res.Increment = IncrementPatch
		case NoMatchFail:
			return res, &NoReleaseError{Commits: len(state.Commits)}
		default:
			res.Version = *state.LastTag
			return res, nil
		}
	}

	if res.Increment != IncrementNone {
		base := Version{}
		if state.LastTag != nil {
			base = *state.LastTag
		}
		next = base.Bump(res.Increment)
	}
	if label == "" {
		label = opts.PreRelease
	}
	if label != "" {
		tags := state.Tags
		if state.LastTag != nil {
			tags = append(slices.Clone(tags), *state.LastTag)
		}
		next = nextPreRelease(next, label, tags)
	}
	if b := sanitizeBuild(opts.BuildMetadata); b != "" {
		next.Build = b
	}
	res.Version = next
	res.Released = true
	return res, nil
}

func initialVersion(opts ResolveOptions) Version {
	if opts.InitialVersion != nil {
		return *opts.InitialVersion
	}
	return Version{Patch: 1}
}

// nextPreRelease appends label to base. When tags already hold that label for
// the same core version, a counter one above the highest seen is attached; a
// bare label counts as zero.
func nextPreRelease(base Version, label string, tags []Version) Version {
	ids := strings.Split(label, ".")
	counter := -1
	sameLabel := lo.Filter(tags, func(t Version, _ int) bool {
		return t.sameCore(base) && len(t.PreRelease) >= len(ids) && slices.Equal(t.PreRelease[:len(ids)], ids)
	})
	for _, t := range sameLabel {
		switch len(t.PreRelease) - len(ids) {
		case 0:
			counter = max(counter, 0)
		case 1:
			if n, err := strconv.Atoi(t.PreRelease[len(ids)]); err == nil {
				counter = max(counter, n)
			}
		}
	}

	next := base.Core()
	next.PreRelease = ids
	if counter >= 0 {
		next.PreRelease = append(slices.Clone(ids), strconv.Itoa(counter+1))
	}
	return next
}
