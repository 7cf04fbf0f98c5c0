// Package config loads and validates autosave's settings.
//
// Settings are resolved by viper from, lowest to highest precedence:
// built-in defaults, an autosave.yaml / .toml / .json file in the repository
// (or the file given with --config), AUTOSAVE_* environment variables
// (dashes become underscores, e.g. AUTOSAVE_COMMIT_PREFIX) and explicitly set
// command-line flags.
//
// Finalize validates the result, resolves the repository to an absolute
// path and picks the default debug log location.
package config
