// Package config loads, validates, and normalizes reface configuration from
// TOML files, applying defaults and path expansion so the rest of the system
// can rely on absolute, well-formed settings.
package config
