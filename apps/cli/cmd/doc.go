// Package cmd implements the postspec CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the built-in /posts suite or YAML catalogs
//   - validate: Check catalog files without executing them
//   - list: Display the cases a suite would run
//   - mock: Serve an in-memory /posts API for offline runs
//   - version: Show postspec version information
//
// Flags default from POSTSPEC_* environment variables and override values
// read from the config file.
package cmd
