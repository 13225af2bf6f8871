// Package config loads, normalizes, and validates topic2manim configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and CLAUDE_API_KEY, including values provided through a
// local .env file. The Config type centralizes every knob the server and CLI
// need so media directories, provider credentials, and tool binaries are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
