package config

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileView mirrors Config in the shape of an autosave.yaml / autosave.toml
// file. Durations are written as strings ("5s") so the output can be read
// back by Load.
type fileView struct {
	Repo           string   `yaml:"repo" toml:"repo"`
	Interval       string   `yaml:"interval" toml:"interval"`
	Debounce       string   `yaml:"debounce" toml:"debounce"`
	Remote         string   `yaml:"remote" toml:"remote"`
	Branch         string   `yaml:"branch" toml:"branch"`
	FallbackBranch string   `yaml:"fallback-branch" toml:"fallback-branch"`
	DetectBranch   bool     `yaml:"detect-branch" toml:"detect-branch"`
	CommitPrefix   string   `yaml:"commit-prefix" toml:"commit-prefix"`
	CommandTimeout string   `yaml:"command-timeout" toml:"command-timeout"`
	ErrorBackoff   string   `yaml:"error-backoff" toml:"error-backoff"`
	PushRetries    int      `yaml:"push-retries" toml:"push-retries"`
	RetryBackoff   string   `yaml:"retry-backoff" toml:"retry-backoff"`
	Sentinel       string   `yaml:"sentinel" toml:"sentinel"`
	Exclude        []string `yaml:"exclude" toml:"exclude"`
	Notify         bool     `yaml:"notify" toml:"notify"`
	Debug          bool     `yaml:"debug" toml:"debug"`
	LogFile        string   `yaml:"log-file,omitempty" toml:"log-file,omitempty"`
	Quiet          bool     `yaml:"quiet" toml:"quiet"`
	NoColor        bool     `yaml:"no-color" toml:"no-color"`
}

func (c *Config) view() fileView {
	exclude := c.Exclude
	if exclude == nil {
		exclude = []string{}
	}
	return fileView{
		Repo:           c.RepoPath,
		Interval:       c.Interval.String(),
		Debounce:       c.Debounce.String(),
		Remote:         c.Remote,
		Branch:         c.Branch,
		FallbackBranch: c.FallbackBranch,
		DetectBranch:   c.DetectBranch,
		CommitPrefix:   c.CommitPrefix,
		CommandTimeout: c.CommandTimeout.String(),
		ErrorBackoff:   c.ErrorBackoff.String(),
		PushRetries:    c.PushRetries,
		RetryBackoff:   c.RetryBackoff.String(),
		Sentinel:       c.Sentinel,
		Exclude:        exclude,
		Notify:         c.Notify,
		Debug:          c.Debug,
		LogFile:        c.LogFile,
		Quiet:          c.Quiet,
		NoColor:        c.NoColor,
	}
}

// Write renders the configuration to w as "yaml" or "toml".
func (c *Config) Write(w io.Writer, format string) error {
	v := c.view()

	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(v); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (want yaml or toml)", format)
	}
}
