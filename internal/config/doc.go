// Package config loads, normalizes, and validates the importer's TOML
// configuration.
//
// Load resolves the config file (explicit path, ~/.config/oepma/config.toml,
// then ./oepma.toml), overlays it on Default, expands ~ in paths, applies
// environment fallbacks and validates the result. CreateSample writes the
// embedded sample used by `oepma config init`.
package config
