// Package config loads, normalizes, and validates galman configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the GALMAN_COLLECTION environment
// fallback. The Config type centralizes the collection layout names, import
// ignore rules, viewer key bindings, and logging knobs so the CLI discovers
// everything in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
