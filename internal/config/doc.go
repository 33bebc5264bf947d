// Package config loads, normalizes, and validates animelista configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ANIMELISTA_API_TOKEN and OPENROUTER_API_KEY. The Config type centralizes
// every knob the daemon and CLI need, from the library location to the
// catalog timezone used for airing dates.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
