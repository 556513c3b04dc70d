// Package main implements the mkver CLI tool.
//
// mkver computes the next semantic version of a git repository. It reads the
// latest version tag (default prefix "v"), classifies every commit message
// since that tag with an ordered list of rules where the first match wins,
// and applies the most severe increment (major > minor > patch) exactly once.
// When no commit matches, the version stays at the last tag.
//
// Command Usage:
//
//	mkver [flags] <command>
//
// Commands:
//
//	next:   Print the next version. --format renders a template such as "{Tag}".
//	tag:    Create an annotated tag for the next version. --dry only reports it.
//	patch:  Rewrite version references in the files listed in the config.
//	        All files are validated before any is written. --dry prints a diff.
//	info:   Show the last tag, the next version and how each commit was classified.
//	init:   Write a default mkver.yaml.
//
// Flags:
//
//	--config, -c:  Config file. Defaults to $MKVER_CONFIG, then <dir>/mkver.yaml.
//	--dir, -C:     Repository directory (default ".").
//	--pre-release: Attach a pre-release label, e.g. "rc". A counter is added when
//	               the label was already used for the same version (1.3.0-rc.1).
//	--verbose, -v: Log debug details to stderr.
//	--quiet, -q:   Only log errors.
//	--version:     Print the mkver version.
//
// Configuration (mkver.yaml):
//
//	tagPrefix: v
//	initialVersion: 0.0.1
//	whenNoMatch: none            # none | patch | fail
//	tagMessage: "release {Version}"
//	buildMetadata: ""            # e.g. "{Branch}.{ShortHash}"
//	goModule: true               # move go.mod to /vN on major bumps past v1
//	rules:
//	  - pattern: "^feat"
//	    increment: minor
//	  - pattern: "^fix"
//	    increment: patch
//	patches:
//	  - path: version.go
//	    preset: go
//	  - path: README.md
//	    search: "install v{VersionRegex}"
//	  - path: "charts/*/Chart.yaml"
//	    search: '(?m)^appVersion: "?([^"\n]+)"?'
//	    regex: true
//	    optional: true
//	branches:
//	  - pattern: "^main$"
//	  - pattern: ".*"
//	    preRelease: beta
//
// Examples:
//
//	# Print the next version (e.g. 1.2.3 with a "feat:" commit → 1.3.0)
//	mkver next
//
//	# Print the next tag name
//	mkver next --format "{Tag}"
//
//	# Preview file changes
//	mkver patch --dry
//
//	# Patch files, then tag
//	mkver patch && git commit -am "release" && mkver tag
//
// Errors are printed as "Error: <Kind>: <detail>" where Kind is one of
// ParseError, MissingPatternError, IOError, ConfigError or NoReleaseError, and
// the process exits with status 1.
package main
