package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"

	"github.com/bashhack/autosave/internal/config"
	"github.com/bashhack/autosave/internal/constants"
	"github.com/bashhack/autosave/internal/errors"
	"github.com/bashhack/autosave/internal/git"
	"github.com/bashhack/autosave/internal/lock"
	"github.com/bashhack/autosave/internal/logger"
	"github.com/bashhack/autosave/internal/snapshot"
	"github.com/bashhack/autosave/internal/watcher"
)

// Watcher runs the watch loop
type Watcher interface {
	PrintSummary()
	Run(ctx context.Context) error
}

// Locker manages the sentinel lock
type Locker interface {
	Acquire() error
	Release() error
}

// AppOptions contains app configuration and dependencies
type AppOptions struct {
	// Required
	Config *config.Config

	// Optional components
	Logger  logger.Logger
	Locker  Locker
	Watcher Watcher

	// I/O dependencies
	Stdout io.Writer
	Stderr io.Writer

	// System dependencies
	ExecLookPath func(file string) (string, error)
	IsRepository func(string) (bool, error)
	IsTerminal   func(w io.Writer) bool
}

// App is the main autosave application
type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Locker  Locker
	Watcher Watcher

	// I/O streams
	Stdout io.Writer
	Stderr io.Writer

	source      watcher.Source
	initialized bool
	closed      bool

	// System dependencies
	execLookPath func(file string) (string, error)
	isRepository func(string) (bool, error)
	isTerminal   func(w io.Writer) bool
}

// NewApp creates an App with custom dependencies
func NewApp(opts AppOptions) *App {
	if opts.Config == nil {
		panic("Config is required in AppOptions")
	}

	app := &App{
		Config:       opts.Config,
		Logger:       opts.Logger,
		Locker:       opts.Locker,
		Watcher:      opts.Watcher,
		Stdout:       opts.Stdout,
		Stderr:       opts.Stderr,
		execLookPath: opts.ExecLookPath,
		isRepository: opts.IsRepository,
		isTerminal:   opts.IsTerminal,
	}

	// Set defaults for nil dependencies
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.execLookPath == nil {
		app.execLookPath = exec.LookPath
	}
	if app.isRepository == nil {
		app.isRepository = git.IsRepository
	}
	if app.isTerminal == nil {
		app.isTerminal = isTerminal
	}

	return app
}

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Initialize sets up components not provided during construction
func (a *App) Initialize() error {
	if a.initialized {
		return nil
	}

	if err := a.Config.Finalize(); err != nil {
		if errors.Is(err, errors.ErrInvalidConfiguration) {
			return err
		}
		return errors.Wrap(errors.ErrInvalidConfiguration, err.Error())
	}

	if a.Logger == nil {
		l := logger.NewWithOutput(a.Config.Debug, a.Config.LogFile, !a.Config.Quiet, a.Stdout, a.Stderr)
		l.SetColor(!a.Config.NoColor && a.isTerminal(a.Stdout))
		a.Logger = l
	}

	if a.Locker == nil {
		locker, err := lock.New(a.Config.RepoPath, a.Config.Sentinel)
		if err != nil {
			return errors.Wrap(err, "failed to initialize lock")
		}
		a.Locker = locker
	}

	a.initialized = true
	return nil
}

// Run verifies the environment, takes the lock and watches until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(); err != nil {
		return err
	}

	if err := a.checkRequiredCommands(); err != nil {
		_, _ = fmt.Fprintf(a.Stderr, "❌ Error: %v. Please install it and try again.\n", err)
		return err
	}

	isRepo, err := a.isRepository(a.Config.RepoPath)
	if err != nil {
		a.Logger.Warning("Failed to check if path is a git repository: %v", err)
		return errors.Wrap(errors.ErrGitOperationFailed, err.Error())
	}
	if !isRepo {
		return errors.Wrapf(errors.ErrNotGitRepository, "%s", a.Config.RepoPath)
	}
	a.Logger.Info("Git repository verified")

	client := git.NewClient(a.Config.RepoPath, a.Config.CommandTimeout)
	if err := client.ExcludeLocally(ctx, "/"+a.Config.Sentinel); err != nil {
		a.Logger.Warning("Failed to add %s to .git/info/exclude: %v", a.Config.Sentinel, err)
	}

	if err := a.Locker.Acquire(); err != nil {
		if errors.Is(err, errors.ErrAlreadyRunning) {
			return err
		}
		return errors.Wrap(errors.ErrLockAcquisitionFailure, err.Error())
	}
	a.Logger.Info("Lock acquired")

	if a.Watcher == nil {
		w, err := a.buildWatcher(client)
		if err != nil {
			return err
		}
		a.Watcher = w
	}

	return a.Watcher.Run(ctx)
}

// buildWatcher wires the change source, committer and loop together.
func (a *App) buildWatcher(client *git.Client) (*watcher.Watcher, error) {
	committer, err := git.NewCommitter(a.Config.CommitterConfig(), client, a.Logger)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfiguration, err.Error())
	}

	filter := snapshot.NewFilter(a.Config.Sentinel, a.Config.Exclude)

	mode := "poll"
	if a.Config.Notify {
		src, err := watcher.NewNotifySource(a.Config.RepoPath, filter, a.Logger)
		if err != nil {
			a.Logger.WarningToUser("Filesystem notifications unavailable, polling instead: %v", err)
		} else {
			a.source = src
			mode = "notify"
		}
	}
	if a.source == nil {
		a.source = watcher.NewPollSource(snapshot.NewScanner(a.Config.RepoPath, filter, client), a.Logger)
	}

	return watcher.New(watcher.Config{
		RepoPath:     a.Config.RepoPath,
		Interval:     a.Config.Interval,
		Debounce:     a.Config.Debounce,
		ErrorBackoff: a.Config.ErrorBackoff,
		Remote:       a.Config.Remote,
		Branch:       a.Config.Branch,
		Mode:         mode,
	}, a.source, committer, a.Logger)
}

// ShowVersion displays version information
func (a *App) ShowVersion() {
	_, _ = fmt.Fprintf(a.Stdout, "autosave %s (%s) built on %s\n",
		a.Config.VersionInfo.Version,
		a.Config.VersionInfo.Commit,
		a.Config.VersionInfo.Date)
}

// ShowLogo displays ASCII art logo
func (a *App) ShowLogo() {
	_, _ = fmt.Fprint(a.Stdout, constants.Logo)

	asciiArtWidth := 44
	padding := (asciiArtWidth - len(constants.Tagline)) / 2
	if padding < 0 {
		padding = 0
	}
	_, _ = fmt.Fprintf(a.Stdout, "%s%s\n", strings.Repeat(" ", padding), constants.Tagline)
}

// checkRequiredCommands verifies git is available in PATH
func (a *App) checkRequiredCommands() error {
	if _, err := a.execLookPath("git"); err != nil {
		return fmt.Errorf("git is not found in PATH")
	}
	return nil
}

// PrintSummary shows the session summary if the watch loop was started.
func (a *App) PrintSummary() {
	if a.Watcher != nil {
		a.Watcher.PrintSummary()
	}
}

// Close releases resources held by the App. It is safe to call more than once.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error

	if a.source != nil {
		if err := a.source.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if a.Locker != nil {
		if err := a.Locker.Release(); err != nil {
			if a.Logger != nil {
				a.Logger.Error("Failed to release lock during cleanup: %v", err)
			} else {
				_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to release lock during cleanup: %v\n", err)
			}
			errs = append(errs, err)
		}
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to close logger: %v\n", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
