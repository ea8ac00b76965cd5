// Package config loads, validates, and normalizes slipstream configuration.
//
// Configuration lives in a TOML file (default ~/.config/slipstream/config.toml)
// with sections per subsystem: paths, pipeline, recognition, notifications,
// and logging. Load applies defaults first, then file values, then tilde
// expansion and validation, so callers always receive a complete, usable
// Config or an explanatory error.
package config
