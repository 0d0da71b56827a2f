// Package config loads, normalizes, and validates MovUp configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MOVUP_JWT_SECRET and MOVUP_PG_PASSWORD. The Config type centralizes every
// knob the daemon and CLI need, so the storage backend, API credentials, and
// image base path are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
