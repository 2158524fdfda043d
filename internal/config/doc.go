// SPDX-License-Identifier: MPL-2.0

// Package config handles scarab configuration using Viper with CUE as the
// file format.
//
// Configuration is read from config.cue in the scarab config directory
// ($XDG_CONFIG_HOME/scarab on Linux, ~/Library/Application Support/scarab
// on macOS, %APPDATA%\scarab on Windows). Values are validated against the
// embedded config_schema.cue, then SCARAB_* environment variables override
// them (SCARAB_MANAGED_PATH, SCARAB_UI_VERBOSE and so on).
package config
