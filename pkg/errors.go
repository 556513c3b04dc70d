package mkver

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ParseError reports a string that is not a valid semantic version.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingPatternError reports a mandatory patch target whose pattern does not
// occur in the file it names.
type MissingPatternError struct {
	Path    string
	Pattern string
}

func (e *MissingPatternError) Error() string {
	return fmt.Sprintf("pattern %q not found in %s", e.Pattern, e.Path)
}

// IOError reports a file that could not be read, written or located.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConfigError reports an invalid rule, patch or option declaration. Index is
// the position of the offending entry in its list, or -1 for scalar options.
type ConfigError struct {
	Field string
	Index int
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid config: %v", e.Err)
	}
	return fmt.Sprintf("invalid config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NoReleaseError is returned by Resolve when no commit matched a rule and the
// configured policy demands a release.
type NoReleaseError struct {
	Commits int
}

func (e *NoReleaseError) Error() string {
	return fmt.Sprintf("no release: none of %d commit(s) matched a bump rule", e.Commits)
}

func configErrorf(field string, index int, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Index: index, Err: errors.Newf(format, args...)}
}

// ErrorKind names the taxonomy entry of err, or "Error" for anything else.
// A ConfigError wins over the error it wraps.
func ErrorKind(err error) string {
	var (
		parseErr   *ParseError
		missingErr *MissingPatternError
		ioErr      *IOError
		configErr  *ConfigError
		noRelErr   *NoReleaseError
	)
	switch {
	case errors.As(err, &configErr):
		return "ConfigError"
	case errors.As(err, &parseErr):
		return "ParseError"
	case errors.As(err, &missingErr):
		return "MissingPatternError"
	case errors.As(err, &ioErr):
		return "IOError"
	case errors.As(err, &noRelErr):
		return "NoReleaseError"
	}
	return "Error"
}
