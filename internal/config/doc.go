// Package config loads, normalizes, and validates dubber configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and MINIMAX_API_KEY. The Config type centralizes every knob
// the server and CLI need, so upload/output/work directories, remote service
// credentials, and alignment bounds are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
