package mkver

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Vars holds the values substituted for {Name} placeholders.
type Vars map[string]string

var placeholderRe = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)?)\}`)

// Format replaces every {Name} in template with vars[Name]. {env.NAME} reads
// the environment. Unknown placeholders are kept verbatim so that
// {VersionRegex} survives in search patterns.
func Format(template string, vars Vars) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		if env, ok := strings.CutPrefix(name, "env."); ok {
			if val, found := os.LookupEnv(env); found {
				return val
			}
			return ""
		}
		if val, ok := vars[name]; ok {
			return val
		}
		return m
	})
}

// Merge returns a copy of v overlaid with o.
func (v Vars) Merge(o Vars) Vars {
	out := make(Vars, len(v)+len(o))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range o {
		out[k] = val
	}
	return out
}

// StateVars exposes repository facts: {Branch}, {ShortHash}, {FullHash},
// {CommitCount} and {LastTag}.
func StateVars(state RepositoryState, prefix string) Vars {
	vars := Vars{
		"Branch":      state.Branch,
		"FullHash":    state.FullHash,
		"ShortHash":   shortHash(state.FullHash),
		"CommitCount": strconv.Itoa(len(state.Commits)),
		"LastTag":     "",
	}
	if state.LastTag != nil {
		vars["LastTag"] = state.LastTag.Tag(prefix)
	}
	return vars
}

// VersionVars exposes {Version}, {Tag}, {TagPrefix}, {Major}, {Minor},
// {Patch}, {PreRelease} and {BuildMetaData}.
func VersionVars(v Version, prefix string) Vars {
	return Vars{
		"Version":       v.String(),
		"Tag":           v.Tag(prefix),
		"TagPrefix":     prefix,
		"Major":         strconv.FormatUint(v.Major, 10),
		"Minor":         strconv.FormatUint(v.Minor, 10),
		"Patch":         strconv.FormatUint(v.Patch, 10),
		"PreRelease":    strings.Join(v.PreRelease, "."),
		"BuildMetaData": v.Build,
	}
}

func shortHash(full string) string {
	if len(full) > 7 {
		return full[:7]
	}
	return full
}

var buildInvalidRe = regexp.MustCompile(`[^0-9A-Za-z.-]+`)

// sanitizeBuild turns arbitrary text (branch names, paths) into valid build
// metadata identifiers.
func sanitizeBuild(s string) string {
	s = buildInvalidRe.ReplaceAllString(s, "-")
	parts := strings.Split(s, ".")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
