// Package config loads, normalizes, and validates subfuse configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and canonicalizes language tags. The Config
// type centralizes every knob the daemon and CLI need, and translates the
// timing sections into the engine's native settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
