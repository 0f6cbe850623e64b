// Package config handles configuration loading and management for postspec.
//
// It provides functionality for:
//   - Loading configuration from .postspec.json or .postspec.yaml files
//   - Default configuration values
//   - Merging command-line overrides on top of file settings
package config
