// Package version provides centralized version information for bootkit.
// All versions follow semantic versioning (semver) conventions.
package version

// FrameworkVersion holds the current bootkit framework version reported in the
// startup diagnostics of every application built on it.
// Format: major.minor.patch[-prerelease][+build]
const FrameworkVersion = "0.1.0-dev"
