// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package version holds the module's release version.
package version

import "strconv"

const (
	Major = 1
	Minor = 0
	Patch = 0
)

// PreRelease is the pre-release label, such as "beta.1". It is empty
// for a stable release and may be overridden at link time.
var PreRelease = ""

// Commit and BuildTime are set at link time by release builds.
var (
	Commit    = "none"
	BuildTime = "unknown"
)

// String returns the semantic version, for example "1.0.0" or
// "1.0.0-beta.1".
func String() string {
	v := strconv.Itoa(Major) + "." + strconv.Itoa(Minor) + "." + strconv.Itoa(Patch)
	if PreRelease != "" {
		v += "-" + PreRelease
	}

	return v
}

// Full returns the version together with the build metadata.
func Full() string {
	return "version: " + String() + ", commit: " + Commit + ", built at: " + BuildTime
}
