package main

import "github.com/blang/semver/v4"

// Version is the mkver CLI version.
var Version = semver.MustParse("0.6.0")
