package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/xxh3"

	"github.com/bashhack/autosave/internal/constants"
	"github.com/bashhack/autosave/internal/errors"
	"github.com/bashhack/autosave/internal/git"
)

// Config holds all autosave settings. Values come from, lowest to highest
// precedence: defaults, the config file, AUTOSAVE_* environment variables
// and command-line flags.
type Config struct {
	// RepoPath is the working tree to watch. Empty means the current directory.
	RepoPath string `mapstructure:"repo"`

	// Interval is how often the tree is checked for changes.
	Interval time.Duration `mapstructure:"interval"`

	// Debounce is the quiet period after the last change before saving.
	Debounce time.Duration `mapstructure:"debounce"`

	// Remote is the git remote pushed to.
	Remote string `mapstructure:"remote"`

	// Branch is the primary branch pushed to.
	Branch string `mapstructure:"branch"`

	// FallbackBranch is tried once when the push to Branch fails. Empty disables it.
	FallbackBranch string `mapstructure:"fallback-branch"`

	// DetectBranch pushes to the checked-out branch instead of Branch.
	DetectBranch bool `mapstructure:"detect-branch"`

	// CommitPrefix starts every commit message.
	CommitPrefix string `mapstructure:"commit-prefix"`

	// CommandTimeout bounds every git invocation.
	CommandTimeout time.Duration `mapstructure:"command-timeout"`

	// ErrorBackoff is the pause after a failed loop iteration.
	ErrorBackoff time.Duration `mapstructure:"error-backoff"`

	// PushRetries is the number of extra push rounds after primary and fallback fail.
	PushRetries int `mapstructure:"push-retries"`

	// RetryBackoff is the delay before the first extra push round; it doubles each round.
	RetryBackoff time.Duration `mapstructure:"retry-backoff"`

	// Sentinel is the repo-relative lock file marking a running instance.
	Sentinel string `mapstructure:"sentinel"`

	// Exclude lists globs ignored by change detection.
	Exclude []string `mapstructure:"exclude"`

	// Notify switches change detection from polling to filesystem events.
	Notify bool `mapstructure:"notify"`

	// Debug enables the rotating debug log file.
	Debug bool `mapstructure:"debug"`

	// LogFile is the debug log location. Empty means the XDG default.
	LogFile string `mapstructure:"log-file"`

	// Quiet hides warnings that are only useful when watching the terminal.
	Quiet bool `mapstructure:"quiet"`

	// NoColor disables styled output.
	NoColor bool `mapstructure:"no-color"`

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string `mapstructure:"-"`

	// VersionInfo contains build metadata injected at link time.
	VersionInfo VersionInfo `mapstructure:"-"`
}

// VersionInfo contains build-time version metadata.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		Interval:       constants.DefaultInterval,
		Debounce:       constants.DefaultDebounce,
		Remote:         git.DefaultRemote,
		Branch:         git.DefaultBranch,
		FallbackBranch: git.DefaultFallbackBranch,
		CommitPrefix:   git.DefaultCommitPrefix,
		CommandTimeout: git.DefaultCommandTimeout,
		ErrorBackoff:   constants.DefaultErrorBackoff,
		RetryBackoff:   git.DefaultRetryBackoff,
		Sentinel:       constants.DefaultSentinel,
		VersionInfo: VersionInfo{
			Version: "dev",
			Commit:  "unknown",
			Date:    "unknown",
		},
	}
}

// RegisterFlags defines every configuration flag on fs, defaulting to c's values.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("repo", "r", c.RepoPath, "Path to repository (default: current directory)")
	fs.DurationP("interval", "i", c.Interval, "How often to check for changes")
	fs.DurationP("debounce", "d", c.Debounce, "Quiet period after the last change before saving")
	fs.String("remote", c.Remote, "Remote to push to")
	fs.StringP("branch", "b", c.Branch, "Branch to push to")
	fs.String("fallback-branch", c.FallbackBranch, "Branch tried once when the push to --branch fails (empty disables)")
	fs.Bool("detect-branch", c.DetectBranch, "Push to the checked-out branch instead of --branch")
	fs.StringP("commit-prefix", "p", c.CommitPrefix, "Commit message prefix")
	fs.Duration("command-timeout", c.CommandTimeout, "Timeout for each git command")
	fs.Duration("error-backoff", c.ErrorBackoff, "Pause after an unexpected error in the watch loop")
	fs.Int("push-retries", c.PushRetries, "Extra push rounds when both branches fail (0 = none)")
	fs.Duration("retry-backoff", c.RetryBackoff, "Delay before the first extra push round, doubled each round")
	fs.String("sentinel", c.Sentinel, "Repo-relative PID file marking a running instance")
	fs.StringSlice("exclude", c.Exclude, "Glob of paths to ignore (repeatable)")
	fs.Bool("notify", c.Notify, "Use filesystem notifications instead of polling")
	fs.Bool("debug", c.Debug, "Enable debug logging")
	fs.String("log-file", c.LogFile, "Path to log file (default: ~/.local/share/autosave/logs/autosave-{repo-hash}.log)")
	fs.BoolP("quiet", "q", c.Quiet, "Hide non-essential warnings")
	fs.Bool("no-color", c.NoColor, "Disable colored output")
}

// Keys lists every configuration key, in flag order.
func Keys() []string {
	return []string{
		"repo", "interval", "debounce", "remote", "branch", "fallback-branch",
		"detect-branch", "commit-prefix", "command-timeout", "error-backoff",
		"push-retries", "retry-backoff", "sentinel", "exclude", "notify",
		"debug", "log-file", "quiet", "no-color",
	}
}

// Load resolves the configuration from v. flags, when non-nil, are bound so
// that explicitly set flags win over everything else. configFile, when
// non-empty, is read instead of searching the repository for autosave.*.
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string) (*Config, error) {
	defaults := New()

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("repo", defaults.RepoPath)
	v.SetDefault("interval", defaults.Interval)
	v.SetDefault("debounce", defaults.Debounce)
	v.SetDefault("remote", defaults.Remote)
	v.SetDefault("branch", defaults.Branch)
	v.SetDefault("fallback-branch", defaults.FallbackBranch)
	v.SetDefault("detect-branch", defaults.DetectBranch)
	v.SetDefault("commit-prefix", defaults.CommitPrefix)
	v.SetDefault("command-timeout", defaults.CommandTimeout)
	v.SetDefault("error-backoff", defaults.ErrorBackoff)
	v.SetDefault("push-retries", defaults.PushRetries)
	v.SetDefault("retry-backoff", defaults.RetryBackoff)
	v.SetDefault("sentinel", defaults.Sentinel)
	v.SetDefault("exclude", []string{})
	v.SetDefault("notify", defaults.Notify)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("log-file", defaults.LogFile)
	v.SetDefault("quiet", defaults.Quiet)
	v.SetDefault("no-color", defaults.NoColor)

	if flags != nil {
		for _, key := range Keys() {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.NewConfigError(key, nil, errors.Wrap(errors.ErrInvalidConfiguration, err.Error()))
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", configFile,
				errors.Wrap(errors.ErrInvalidConfiguration, err.Error()))
		}
	} else {
		searchDir := v.GetString("repo")
		if searchDir == "" {
			searchDir = "."
		}
		v.SetConfigName(constants.AppName)
		v.AddConfigPath(searchDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("config", v.ConfigFileUsed(),
					errors.Wrap(errors.ErrInvalidConfiguration, err.Error()))
			}
		}
	}

	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.NewConfigError("config", nil,
			errors.Wrap(errors.ErrInvalidConfiguration, err.Error()))
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	cfg.Exclude = splitExcludes(cfg.Exclude)

	return cfg, nil
}

// splitExcludes flattens comma-separated entries, which is how a list
// arrives from a single environment variable.
func splitExcludes(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, p := range strings.Split(entry, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Finalize validates and finalizes the configuration
func (c *Config) Finalize() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"interval", c.Interval},
		{"debounce", c.Debounce},
		{"command-timeout", c.CommandTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return errors.NewConfigError(d.name, d.value,
				errors.Wrap(errors.ErrInvalidConfiguration, "must be greater than 0"))
		}
	}

	if c.ErrorBackoff < 0 {
		return errors.NewConfigError("error-backoff", c.ErrorBackoff,
			errors.Wrap(errors.ErrInvalidConfiguration, "cannot be negative"))
	}

	if c.PushRetries < 0 {
		return errors.NewConfigError("push-retries", c.PushRetries,
			errors.Wrap(errors.ErrInvalidConfiguration, "cannot be negative"))
	}
	if c.PushRetries > 0 && c.RetryBackoff <= 0 {
		return errors.NewConfigError("retry-backoff", c.RetryBackoff,
			errors.Wrap(errors.ErrInvalidConfiguration, "must be greater than 0 when push-retries is set"))
	}

	required := []struct {
		name  string
		value string
	}{
		{"remote", c.Remote},
		{"branch", c.Branch},
		{"commit-prefix", c.CommitPrefix},
		{"sentinel", c.Sentinel},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.NewConfigError(r.name, nil,
				errors.Wrap(errors.ErrInvalidConfiguration, "must not be empty"))
		}
	}

	if filepath.IsAbs(c.Sentinel) || strings.HasPrefix(filepath.Clean(c.Sentinel), "..") {
		return errors.NewConfigError("sentinel", c.Sentinel,
			errors.Wrap(errors.ErrInvalidConfiguration, "must be a path inside the repository"))
	}

	for _, p := range c.Exclude {
		if _, err := filepath.Match(p, ""); err != nil {
			return errors.NewConfigError("exclude", p,
				errors.Wrap(errors.ErrInvalidConfiguration, err.Error()))
		}
	}

	if c.RepoPath == "" {
		var err error
		c.RepoPath, err = os.Getwd()
		if err != nil {
			return errors.NewConfigError("repo", "", errors.Wrap(err, "failed to get current directory"))
		}
	}

	absRepoPath, err := filepath.Abs(c.RepoPath)
	if err != nil {
		return errors.NewConfigError("repo", c.RepoPath, errors.Wrap(err, "failed to resolve absolute path"))
	}
	c.RepoPath = absRepoPath

	if c.Debug && c.LogFile == "" {
		c.LogFile = DefaultLogFile(c.RepoPath)
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o700); err != nil {
			return errors.NewConfigError("log-file", c.LogFile, errors.Wrap(err, "cannot create log directory"))
		}
	}

	return nil
}

// DefaultLogFile follows the XDG base directory layout and keys the file
// name on the repository path, so each repository gets its own log.
func DefaultLogFile(repoPath string) string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(homeDir, ".local", "share")
		} else {
			dataHome = os.TempDir()
		}
	}

	repoHash := fmt.Sprintf("%016x", xxh3.HashString(repoPath))
	return filepath.Join(dataHome, constants.AppName, "logs", fmt.Sprintf("%s-%s.log", constants.AppName, repoHash))
}

// CommitterConfig derives the commit orchestrator settings.
func (c *Config) CommitterConfig() git.CommitterConfig {
	return git.CommitterConfig{
		Remote:         c.Remote,
		Branch:         c.Branch,
		FallbackBranch: c.FallbackBranch,
		DetectBranch:   c.DetectBranch,
		CommitPrefix:   c.CommitPrefix,
		PushRetries:    c.PushRetries,
		RetryBackoff:   c.RetryBackoff,
	}
}
