// Package config loads, normalizes, and validates brieflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY. The Config type centralizes every knob the pipeline and
// CLI need: LLM connection settings, retry and fan-out policy, the stage order,
// pricing for cost reporting, and logging output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
