// Package config loads, normalizes, and validates mp4edit configuration.
//
// Settings come from a TOML file (by default ~/.config/mp4edit/config.toml,
// falling back to ./mp4edit.toml) layered over repository defaults. A missing
// file is not an error: the defaults are used as is.
package config
