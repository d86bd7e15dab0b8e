// Package config loads, normalizes, and validates Hakimi configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUNO_API_KEY and ZAI_API_KEY (optionally sourced from a .env file). The
// Config type centralizes every knob the daemon and CLI need, so output
// directories, poll cadence, and external service credentials are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
