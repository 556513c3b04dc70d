package mkver

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/blang/semver/v4"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is looked up in the repository directory.
	DefaultConfigFile = "mkver.yaml"
	// EnvConfig overrides the config path.
	EnvConfig = "MKVER_CONFIG"
)

// RuleConfig declares a BumpRule.
type RuleConfig struct {
	Pattern    string `yaml:"pattern"`
	Increment  string `yaml:"increment"`
	PreRelease string `yaml:"preRelease,omitempty"`
}

// PatchConfig declares a PatchTarget. Preset replaces Search and Regex.
type PatchConfig struct {
	Path     string `yaml:"path"`
	Search   string `yaml:"search,omitempty"`
	Regex    bool   `yaml:"regex,omitempty"`
	Preset   string `yaml:"preset,omitempty"`
	Replace  string `yaml:"replace,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
}

// BranchConfig overrides options on branches matching Pattern. Nil fields
// keep the top-level value.
type BranchConfig struct {
	Pattern       string  `yaml:"pattern"`
	PreRelease    *string `yaml:"preRelease,omitempty"`
	BuildMetadata *string `yaml:"buildMetadata,omitempty"`
}

// Config is the mkver.yaml document.
type Config struct {
	TagPrefix      string         `yaml:"tagPrefix"`
	InitialVersion string         `yaml:"initialVersion"`
	WhenNoMatch    string         `yaml:"whenNoMatch"`
	PreRelease     string         `yaml:"preRelease,omitempty"`
	BuildMetadata  string         `yaml:"buildMetadata,omitempty"`
	TagMessage     string         `yaml:"tagMessage"`
	GoModule       bool           `yaml:"goModule,omitempty"`
	Rules          []RuleConfig   `yaml:"rules"`
	Patches        []PatchConfig  `yaml:"patches,omitempty"`
	Branches       []BranchConfig `yaml:"branches,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		TagPrefix:      "v",
		InitialVersion: "0.0.1",
		WhenNoMatch:    string(NoMatchNone),
		TagMessage:     "release {Version}",
		Rules: []RuleConfig{
			{Pattern: ConventionalBreaking, Increment: "major"},
			{Pattern: ConventionalFeature, Increment: "minor"},
			{Pattern: ConventionalFix, Increment: "patch"},
		},
	}
}

// ConfigPath picks the config file: explicit path, then $MKVER_CONFIG, then
// mkver.yaml in dir.
func ConfigPath(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	return filepath.Join(dir, DefaultConfigFile)
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, &IOError{Path: path, Op: "read", Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, &ConfigError{Index: -1, Err: errors.Wrapf(err, "parse %s", path)}
	}
	return cfg, cfg.Validate()
}

// Validate checks every declaration, reporting the first offending entry.
func (c Config) Validate() error {
	if c.InitialVersion != "" {
		if _, err := ParseVersion(c.InitialVersion); err != nil {
			return &ConfigError{Field: "initialVersion", Index: -1, Err: err}
		}
	}
	switch NoMatchPolicy(c.WhenNoMatch) {
	case "", NoMatchNone, NoMatchPatch, NoMatchFail:
	default:
		return configErrorf("whenNoMatch", -1, "unknown policy %q (want none, patch or fail)", c.WhenNoMatch)
	}
	if err := validPreRelease(c.PreRelease); err != nil {
		return &ConfigError{Field: "preRelease", Index: -1, Err: err}
	}
	if _, err := c.BumpRules(); err != nil {
		return err
	}
	if _, err := c.PatchTargets(); err != nil {
		return err
	}
	for i, b := range c.Branches {
		if _, err := regexp.Compile(b.Pattern); err != nil {
			return &ConfigError{Field: fmt.Sprintf("branches[%d].pattern", i), Index: i, Err: err}
		}
		if b.PreRelease != nil {
			if err := validPreRelease(*b.PreRelease); err != nil {
				return &ConfigError{Field: fmt.Sprintf("branches[%d].preRelease", i), Index: i, Err: err}
			}
		}
	}
	return nil
}

func validPreRelease(label string) error {
	if label == "" {
		return nil
	}
	_, err := semver.Parse("0.0.0-" + label)
	return errors.Wrapf(err, "invalid pre-release label %q", label)
}

// BumpRules compiles the rule table in declared order. An empty table falls
// back to ConventionalRules.
func (c Config) BumpRules() ([]BumpRule, error) {
	if len(c.Rules) == 0 {
		return ConventionalRules(), nil
	}
	rules := make([]BumpRule, 0, len(c.Rules))
	for i, rc := range c.Rules {
		inc, err := ParseIncrement(rc.Increment)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("rules[%d].increment", i), Index: i, Err: err}
		}
		rule, err := NewBumpRule(rc.Pattern, inc)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("rules[%d].pattern", i), Index: i, Err: err}
		}
		if err := validPreRelease(rc.PreRelease); err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("rules[%d].preRelease", i), Index: i, Err: err}
		}
		rule.PreRelease = rc.PreRelease
		rules = append(rules, rule)
	}
	return rules, nil
}

// PatchTargets converts patch declarations, expanding presets.
func (c Config) PatchTargets() ([]PatchTarget, error) {
	targets := make([]PatchTarget, 0, len(c.Patches))
	for i, pc := range c.Patches {
		if pc.Path == "" {
			return nil, configErrorf(fmt.Sprintf("patches[%d].path", i), i, "path is required")
		}
		t := PatchTarget{Path: pc.Path, Search: pc.Search, Regex: pc.Regex, Replace: pc.Replace, Optional: pc.Optional}
		if pc.Preset != "" {
			p, ok := LookupPreset(pc.Preset)
			if !ok {
				return nil, configErrorf(fmt.Sprintf("patches[%d].preset", i), i, "unknown preset %q (want one of %v)", pc.Preset, PresetNames())
			}
			t.Search, t.Regex = p.Pattern, true
		}
		if _, err := t.compile(); err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("patches[%d].search", i), Index: i, Err: err}
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// ResolveOptions derives resolver options for branch. Build metadata is
// rendered with vars.
func (c Config) ResolveOptions(branch string, vars Vars) (ResolveOptions, error) {
	opts := ResolveOptions{
		WhenNoMatch:   NoMatchPolicy(c.WhenNoMatch),
		PreRelease:    c.PreRelease,
		BuildMetadata: c.BuildMetadata,
	}
	if opts.WhenNoMatch == "" {
		opts.WhenNoMatch = NoMatchNone
	}
	if c.InitialVersion != "" {
		v, err := ParseVersion(c.InitialVersion)
		if err != nil {
			return opts, &ConfigError{Field: "initialVersion", Index: -1, Err: err}
		}
		opts.InitialVersion = &v
	}
	for i, b := range c.Branches {
		re, err := regexp.Compile(b.Pattern)
		if err != nil {
			return opts, &ConfigError{Field: fmt.Sprintf("branches[%d].pattern", i), Index: i, Err: err}
		}
		if !re.MatchString(branch) {
			continue
		}
		if b.PreRelease != nil {
			opts.PreRelease = *b.PreRelease
		}
		if b.BuildMetadata != nil {
			opts.BuildMetadata = *b.BuildMetadata
		}
		break
	}
	opts.BuildMetadata = Format(opts.BuildMetadata, vars)
	return opts, nil
}

// WriteDefaultConfig writes the default config to path. An existing file is
// kept unless force is set.
func WriteDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return &IOError{Path: path, Op: "create", Err: os.ErrExist}
	}
	cfg := DefaultConfig()
	cfg.Patches = []PatchConfig{
		{Path: "version.go", Preset: "go", Optional: true},
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "marshal default config")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "marshal default config")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}
