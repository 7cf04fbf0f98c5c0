package constants

import "time"

// Logo is the ASCII banner printed by --logo.
const Logo = `
                 _
  __ _ _   _| |_ ___  ___  __ ___   _____
 / _` + "`" + ` | | | | __/ _ \/ __|/ _` + "`" + ` \ \ / / _ \
| (_| | |_| | || (_) \__ \ (_| |\ V /  __/
 \__,_|\__,_|\__\___/|___/\__,_| \_/ \___|
`

// Tagline is printed centred under Logo.
const Tagline = "commit early, push quietly"

// AppName is used for the config file name, env prefix and log directory.
const AppName = "autosave"

// EnvPrefix prefixes every environment variable autosave reads.
const EnvPrefix = "AUTOSAVE"

// DefaultSentinel is the repo-root file that marks a running instance.
const DefaultSentinel = ".autosave.pid"

// Loop timing defaults.
const (
	DefaultInterval     = 2 * time.Second
	DefaultDebounce     = 5 * time.Second
	DefaultErrorBackoff = 5 * time.Second
)
