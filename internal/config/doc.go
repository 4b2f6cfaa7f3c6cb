// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/keel/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/keel/config.cue on macOS, %APPDATA%\keel\config.cue
// on Windows). The package provides type-safe configuration access for the kit
// registry (URL template, offered archive formats, pinned release), the dependency
// manager command and its install deadline, machine-config defaults, the skeleton
// manifest location, and UI settings.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to
// ensure type safety and provide clear error messages for invalid configurations.
// Constraints CUE cannot express (IP syntax, duration syntax, release-version
// syntax) are validated in Go after decoding.
package config
