/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

// Version is the current version of the Shellff catalog pipeline.
// This is set at build time via ldflags:
//
//	-X github.com/abtechsolutionagency/shellff-platform-sub000/internal/version.Version=X.Y.Z
var Version = "0.4.1"

// String returns the version string.
func String() string {
	return Version
}
