// Package config loads, normalizes, and validates seiir configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes the worker
// pool sizes, log routing, and run ledger location used by the CLI so the
// computational packages never reach for process-wide constants.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
