package mkver

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// Increment is the severity of a version bump.
type Increment int

const (
	IncrementNone Increment = iota
	IncrementPatch
	IncrementMinor
	IncrementMajor
)

var incrementNames = map[Increment]string{
	IncrementNone:  "none",
	IncrementPatch: "patch",
	IncrementMinor: "minor",
	IncrementMajor: "major",
}

func (i Increment) String() string {
	if s, ok := incrementNames[i]; ok {
		return s
	}
	return "unknown"
}

// ParseIncrement accepts major, minor, patch and none (case insensitive).
func ParseIncrement(s string) (Increment, error) {
	for inc, name := range incrementNames {
		if strings.EqualFold(s, name) {
			return inc, nil
		}
	}
	return IncrementNone, errors.Newf("unknown increment %q (want major, minor, patch or none)", s)
}

// BumpRule maps commit messages matching Trigger to an increment. PreRelease,
// when set, asks for a pre-release suffix on the resulting version.
type BumpRule struct {
	Trigger    *regexp.Regexp
	Increment  Increment
	PreRelease string
}

// NewBumpRule compiles pattern into a rule.
func NewBumpRule(pattern string, inc Increment) (BumpRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return BumpRule{}, errors.Wrapf(err, "compile rule pattern %q", pattern)
	}
	return BumpRule{Trigger: re, Increment: inc}, nil
}

// MustBumpRule is like NewBumpRule but panics on a bad pattern.
func MustBumpRule(pattern string, inc Increment) BumpRule {
	r, err := NewBumpRule(pattern, inc)
	if err != nil {
		panic(err)
	}
	return r
}

// Conventional commit patterns used by the default rule table.
const (
	ConventionalBreaking = `(?m)^[a-zA-Z]+(\([^)]*\))?!:|BREAKING[ -]CHANGE`
	ConventionalFeature  = `^feat(\([^)]*\))?:`
	ConventionalFix      = `^fix(\([^)]*\))?:`
)

// ConventionalRules classify commits following the conventional commits
// convention: breaking changes are major, feat is minor, fix is patch.
func ConventionalRules() []BumpRule {
	return []BumpRule{
		MustBumpRule(ConventionalBreaking, IncrementMajor),
		MustBumpRule(ConventionalFeature, IncrementMinor),
		MustBumpRule(ConventionalFix, IncrementPatch),
	}
}

// Classify returns the index of the first rule matching message and its
// increment, or -1 and IncrementNone when no rule matches.
func Classify(message string, rules []BumpRule) (int, Increment) {
	for i, r := range rules {
		if r.Trigger != nil && r.Trigger.MatchString(message) {
			return i, r.Increment
		}
	}
	return -1, IncrementNone
}
