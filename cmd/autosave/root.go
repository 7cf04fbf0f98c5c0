package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bashhack/autosave/internal/config"
)

// commandEnv carries what the commands need from the process.
type commandEnv struct {
	version config.VersionInfo
	stdout  io.Writer
	stderr  io.Writer

	// newApp builds the App for a resolved config; tests swap it out.
	newApp func(cfg *config.Config, stdout, stderr io.Writer) *App
}

func defaultNewApp(cfg *config.Config, stdout, stderr io.Writer) *App {
	return NewApp(AppOptions{Config: cfg, Stdout: stdout, Stderr: stderr})
}

func newRootCmd(env commandEnv) *cobra.Command {
	if env.newApp == nil {
		env.newApp = defaultNewApp
	}

	var configFile string
	var showLogo bool

	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(viper.New(), cmd.Flags(), configFile)
		if err != nil {
			return nil, err
		}
		cfg.VersionInfo = env.version
		return cfg, nil
	}

	root := &cobra.Command{
		Use:   "autosave",
		Short: "Commit and push a working tree automatically after edits settle",
		Long: `autosave watches a git working tree and, once files have stopped changing
for the debounce period, stages everything, commits it with a timestamped
message and pushes it to the remote (falling back to a second branch name
if the first push fails).

Settings can also come from an autosave.yaml/.toml/.json file in the
repository or from AUTOSAVE_* environment variables.`,
		Example: `  autosave                              # watch the current directory
  autosave -r ~/notes -d 30s            # 30s of quiet before saving
  autosave --branch trunk --fallback-branch ""
  autosave --notify --exclude '*.swp'   # filesystem events instead of polling`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			app := env.newApp(cfg, env.stdout, env.stderr)

			if showLogo {
				app.ShowLogo()
				return nil
			}

			defer func() { _ = app.Close() }()

			if err := app.Run(cmd.Context()); err != nil {
				return err
			}

			app.PrintSummary()
			return nil
		},
	}

	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	config.New().RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: autosave.{yaml,toml,json} in the repository)")
	root.Flags().BoolVar(&showLogo, "logo", false, "Display ASCII logo and exit")

	root.AddCommand(newVersionCmd(env))
	root.AddCommand(newConfigCmd(env, loadConfig))

	return root
}

func newVersionCmd(env commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.New()
			cfg.VersionInfo = env.version
			NewApp(AppOptions{Config: cfg, Stdout: env.stdout, Stderr: env.stderr}).ShowVersion()
		},
	}
}

func newConfigCmd(env commandEnv, load func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration autosave would run with, after merging defaults,
the config file, AUTOSAVE_* environment variables and flags. The output can
be saved as autosave.yaml or autosave.toml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Finalize(); err != nil {
				return err
			}
			return cfg.Write(env.stdout, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or toml")
	return cmd
}
