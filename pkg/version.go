package mkver

import (
	"strings"

	"github.com/blang/semver/v4"
	"github.com/cockroachdb/errors"
)

// Version is a semantic version. The zero value is 0.0.0.
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	PreRelease []string // dot separated identifiers, nil for a release
	Build      string   // opaque build metadata, ignored by Compare
}

// ParseVersion parses a strict MAJOR.MINOR.PATCH[-PRE][+BUILD] string.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.Parse(s)
	if err != nil {
		return Version{}, &ParseError{Input: s, Err: err}
	}
	return fromSemver(sv), nil
}

// MustParseVersion is like ParseVersion but panics on malformed input.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseTag strips prefix from a tag name and parses the remainder.
func ParseTag(tag, prefix string) (Version, error) {
	if !strings.HasPrefix(tag, prefix) {
		return Version{}, &ParseError{Input: tag, Err: errors.Newf("missing tag prefix %q", prefix)}
	}
	sv, err := semver.Parse(strings.TrimPrefix(tag, prefix))
	if err != nil {
		// report the tag as written, not the stripped remainder
		return Version{}, &ParseError{Input: tag, Err: err}
	}
	return fromSemver(sv), nil
}

func fromSemver(sv semver.Version) Version {
	v := Version{Major: sv.Major, Minor: sv.Minor, Patch: sv.Patch}
	for _, pr := range sv.Pre {
		v.PreRelease = append(v.PreRelease, pr.String())
	}
	if len(sv.Build) > 0 {
		v.Build = strings.Join(sv.Build, ".")
	}
	return v
}

func (v Version) semver() semver.Version {
	sv := semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
	for _, id := range v.PreRelease {
		pr, err := semver.NewPRVersion(id)
		if err != nil {
			pr = semver.PRVersion{VersionStr: id}
		}
		sv.Pre = append(sv.Pre, pr)
	}
	if v.Build != "" {
		sv.Build = strings.Split(v.Build, ".")
	}
	return sv
}

// String renders the canonical form without any tag prefix.
func (v Version) String() string {
	return v.semver().String()
}

// Tag renders the version with the given tag prefix.
func (v Version) Tag(prefix string) string {
	return prefix + v.String()
}

// Compare returns -1, 0 or 1 following semver precedence. Build metadata
// does not participate.
func (v Version) Compare(o Version) int {
	return v.semver().Compare(o.semver())
}

// LessThan reports whether v has lower precedence than o.
func (v Version) LessThan(o Version) bool {
	return v.Compare(o) < 0
}

// IsPreRelease reports whether v carries pre-release identifiers.
func (v Version) IsPreRelease() bool {
	return len(v.PreRelease) > 0
}

// Core returns MAJOR.MINOR.PATCH with pre-release and build cleared.
func (v Version) Core() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}

func (v Version) sameCore(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

// Bump applies inc and returns a release version. A pre-release whose core
// already accounts for inc (1.3.0-rc.1 bumped by minor) is released as its
// core instead of being bumped again.
func (v Version) Bump(inc Increment) Version {
	if inc == IncrementNone {
		return v
	}
	pre := v.IsPreRelease()
	next := v.Core()
	switch inc {
	case IncrementMajor:
		if !pre || v.Minor != 0 || v.Patch != 0 {
			next.Major++
			next.Minor = 0
			next.Patch = 0
		}
	case IncrementMinor:
		if !pre || v.Patch != 0 {
			next.Minor++
			next.Patch = 0
		}
	case IncrementPatch:
		if !pre {
			next.Patch++
		}
	}
	return next
}
