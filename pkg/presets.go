package mkver

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// VersionRegexPlaceholder marks where the version sits inside a literal
// search string, e.g. `version = "{VersionRegex}"`.
const VersionRegexPlaceholder = "{VersionRegex}"

// versionRegex is the semver.org grammar without anchors or named groups.
const versionRegex = `(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)` +
	`(?:-(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*)?` +
	`(?:\+[0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*)?`

// Preset is a named search pattern for a common manifest format. Every preset
// is a regular expression with exactly one capture group around the version.
type Preset struct {
	Name    string
	Pattern string
}

// Presets lists the built-in patterns usable as `preset:` in a patch entry.
var Presets = []Preset{
	{Name: "json", Pattern: `"version"\s*:\s*"v?(` + versionRegex + `)"`},
	{Name: "toml", Pattern: `(?m)^\s*version\s*=\s*"v?(` + versionRegex + `)"`},
	{Name: "yaml", Pattern: `(?m)^version\s*:\s*["']?v?(` + versionRegex + `)`},
	{Name: "xml", Pattern: `<version>v?(` + versionRegex + `)</version>`},
	{Name: "go", Pattern: `Version\s*=\s*"v?(` + versionRegex + `)"`},
	{Name: "assignment", Pattern: `(?mi)^\s*VERSION\s*[:=]\s*["']?v?(` + versionRegex + `)`},
	{Name: "markdown", Pattern: `(?i)#\s*version\s+v?(` + versionRegex + `)`},
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Preset, bool) {
	return lo.Find(Presets, func(p Preset) bool { return strings.EqualFold(p.Name, name) })
}

// PresetNames returns the sorted preset names.
func PresetNames() []string {
	names := lo.Map(Presets, func(p Preset, _ int) string { return p.Name })
	slices.Sort(names)
	return names
}
