package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashhack/autosave/internal/config"
	"github.com/bashhack/autosave/internal/constants"
	"github.com/bashhack/autosave/internal/errors"
	"github.com/bashhack/autosave/internal/git"
	"github.com/bashhack/autosave/internal/logger"
)

// MockLocker records lock calls
type MockLocker struct {
	AcquireErr    error
	ReleaseErr    error
	AcquireCalled bool
	ReleaseCalled int
}

func (m *MockLocker) Acquire() error {
	m.AcquireCalled = true
	return m.AcquireErr
}

func (m *MockLocker) Release() error {
	m.ReleaseCalled++
	return m.ReleaseErr
}

// MockWatcher records watcher calls
type MockWatcher struct {
	RunErr         error
	RunCalled      bool
	SummaryPrinted bool
}

func (m *MockWatcher) Run(ctx context.Context) error {
	m.RunCalled = true
	return m.RunErr
}

func (m *MockWatcher) PrintSummary() {
	m.SummaryPrinted = true
}

type testApp struct {
	app    *App
	logger *logger.MockLogger
	locker *MockLocker
	watch  *MockWatcher
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestApp builds an App whose environment checks all pass.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.New()
	cfg.RepoPath = t.TempDir()
	cfg.VersionInfo = config.VersionInfo{Version: "test-version", Commit: "test-commit", Date: "test-date"}

	ta := &testApp{
		logger: logger.NewMockLogger(),
		locker: &MockLocker{},
		watch:  &MockWatcher{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	ta.app = NewApp(AppOptions{
		Config:       cfg,
		Logger:       ta.logger,
		Locker:       ta.locker,
		Watcher:      ta.watch,
		Stdout:       ta.stdout,
		Stderr:       ta.stderr,
		ExecLookPath: func(file string) (string, error) { return "/usr/bin/" + file, nil },
		IsRepository: func(string) (bool, error) { return true, nil },
		IsTerminal:   func(io.Writer) bool { return false },
	})
	return ta
}

func TestNewAppRequiresConfig(t *testing.T) {
	assert.Panics(t, func() { NewApp(AppOptions{}) })
}

func TestNewAppDefaults(t *testing.T) {
	app := NewApp(AppOptions{Config: config.New()})

	assert.NotNil(t, app.Stdout)
	assert.NotNil(t, app.Stderr)
	assert.NotNil(t, app.execLookPath)
	assert.NotNil(t, app.isRepository)
	assert.NotNil(t, app.isTerminal)
	assert.Nil(t, app.Logger)
	assert.Nil(t, app.Locker)
}

func TestAppRunScenarios(t *testing.T) {
	tests := map[string]struct {
		setup       func(ta *testApp)
		wantErr     error
		errContains string
		validate    func(t *testing.T, ta *testApp)
	}{
		"HappyPath": {
			validate: func(t *testing.T, ta *testApp) {
				assert.True(t, ta.locker.AcquireCalled)
				assert.True(t, ta.watch.RunCalled)
				assert.True(t, ta.logger.Contains("Git repository verified"))
				assert.True(t, ta.logger.Contains("Lock acquired"))
			},
		},
		"MissingGitCommand": {
			setup: func(ta *testApp) {
				ta.app.execLookPath = func(string) (string, error) {
					return "", fmt.Errorf("not found")
				}
			},
			errContains: "git is not found in PATH",
			validate: func(t *testing.T, ta *testApp) {
				assert.Contains(t, ta.stderr.String(), "Error:")
				assert.False(t, ta.locker.AcquireCalled)
				assert.False(t, ta.watch.RunCalled)
			},
		},
		"NotARepository": {
			setup: func(ta *testApp) {
				ta.app.isRepository = func(string) (bool, error) { return false, nil }
			},
			wantErr: errors.ErrNotGitRepository,
			validate: func(t *testing.T, ta *testApp) {
				assert.False(t, ta.locker.AcquireCalled)
			},
		},
		"RepositoryCheckFails": {
			setup: func(ta *testApp) {
				ta.app.isRepository = func(string) (bool, error) {
					return false, fmt.Errorf("permission denied")
				}
			},
			wantErr:     errors.ErrGitOperationFailed,
			errContains: "permission denied",
		},
		"AlreadyRunning": {
			setup: func(ta *testApp) {
				ta.locker.AcquireErr = errors.NewLockError("/repo/.autosave.pid", 4242, errors.ErrAlreadyRunning)
			},
			wantErr: errors.ErrAlreadyRunning,
			validate: func(t *testing.T, ta *testApp) {
				assert.False(t, ta.watch.RunCalled)
			},
		},
		"LockAcquisitionFailure": {
			setup: func(ta *testApp) {
				ta.locker.AcquireErr = fmt.Errorf("read-only file system")
			},
			wantErr:     errors.ErrLockAcquisitionFailure,
			errContains: "read-only file system",
		},
		"InvalidConfiguration": {
			setup: func(ta *testApp) {
				ta.app.Config.Interval = 0
			},
			wantErr: errors.ErrInvalidConfiguration,
			validate: func(t *testing.T, ta *testApp) {
				assert.False(t, ta.locker.AcquireCalled)
			},
		},
		"WatcherError": {
			setup: func(ta *testApp) {
				ta.watch.RunErr = fmt.Errorf("loop exploded")
			},
			errContains: "loop exploded",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ta := newTestApp(t)
			if tc.setup != nil {
				tc.setup(ta)
			}

			err := ta.app.Run(context.Background())

			if tc.wantErr == nil && tc.errContains == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				if tc.wantErr != nil {
					assert.ErrorIs(t, err, tc.wantErr)
				}
				if tc.errContains != "" {
					assert.Contains(t, err.Error(), tc.errContains)
				}
			}

			if tc.validate != nil {
				tc.validate(t, ta)
			}
		})
	}
}

func TestAppInitializeBuildsDefaults(t *testing.T) {
	cfg := config.New()
	cfg.RepoPath = t.TempDir()
	var stdout, stderr bytes.Buffer

	app := NewApp(AppOptions{Config: cfg, Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, app.Initialize())
	defer func() { _ = app.Close() }()

	assert.NotNil(t, app.Logger)
	assert.NotNil(t, app.Locker)
	assert.True(t, app.initialized)

	// A second call is a no-op.
	first := app.Logger
	require.NoError(t, app.Initialize())
	assert.Same(t, first, app.Logger)
}

func TestAppBuildWatcherFallsBackToPolling(t *testing.T) {
	ta := newTestApp(t)
	ta.app.Config.Notify = true
	ta.app.Config.RepoPath = "/nonexistent/autosave/repo"

	client := git.NewClient(ta.app.Config.RepoPath, time.Second)
	w, err := ta.app.buildWatcher(client)
	require.NoError(t, err)
	require.NotNil(t, w)

	assert.NotNil(t, ta.app.source)
	assert.True(t, ta.logger.Contains("polling instead"))
}

func TestAppShowVersion(t *testing.T) {
	ta := newTestApp(t)
	ta.app.ShowVersion()
	assert.Equal(t, "autosave test-version (test-commit) built on test-date\n", ta.stdout.String())
}

func TestAppShowLogo(t *testing.T) {
	ta := newTestApp(t)
	ta.app.ShowLogo()

	out := ta.stdout.String()
	assert.True(t, strings.HasPrefix(out, constants.Logo))
	assert.False(t, strings.HasPrefix(out, constants.Logo+"\n"), "no blank line between logo and tagline")
	assert.True(t, strings.HasSuffix(out, constants.Tagline+"\n"))
}

func TestAppPrintSummary(t *testing.T) {
	ta := newTestApp(t)
	ta.app.PrintSummary()
	assert.True(t, ta.watch.SummaryPrinted)

	// Without a watcher there is nothing to print.
	ta.app.Watcher = nil
	assert.NotPanics(t, ta.app.PrintSummary)
}

func TestAppCloseScenarios(t *testing.T) {
	tests := map[string]struct {
		setup    func(ta *testApp)
		wantErr  string
		validate func(t *testing.T, ta *testApp)
	}{
		"ReleasesEverything": {
			validate: func(t *testing.T, ta *testApp) {
				assert.Equal(t, 1, ta.locker.ReleaseCalled)
				assert.True(t, ta.logger.Closed())
			},
		},
		"NilLogger": {
			setup: func(ta *testApp) {
				ta.app.Logger = nil
			},
			validate: func(t *testing.T, ta *testApp) {
				assert.Equal(t, 1, ta.locker.ReleaseCalled)
			},
		},
		"NilLocker": {
			setup: func(ta *testApp) {
				ta.app.Locker = nil
			},
			validate: func(t *testing.T, ta *testApp) {
				assert.True(t, ta.logger.Closed(), "logger should close even without a locker")
			},
		},
		"LockerError": {
			setup: func(ta *testApp) {
				ta.locker.ReleaseErr = fmt.Errorf("mock release error")
			},
			wantErr: "mock release error",
			validate: func(t *testing.T, ta *testApp) {
				assert.True(t, ta.logger.Contains("Failed to release lock"))
				assert.True(t, ta.logger.Closed())
			},
		},
		"LockerErrorWithoutLogger": {
			setup: func(ta *testApp) {
				ta.app.Logger = nil
				ta.locker.ReleaseErr = fmt.Errorf("mock release error")
			},
			wantErr: "mock release error",
			validate: func(t *testing.T, ta *testApp) {
				assert.Contains(t, ta.stderr.String(), "Failed to release lock")
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ta := newTestApp(t)
			if tc.setup != nil {
				tc.setup(ta)
			}

			err := ta.app.Close()
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			if tc.validate != nil {
				tc.validate(t, ta)
			}
		})
	}
}

func TestAppCloseIsIdempotent(t *testing.T) {
	ta := newTestApp(t)

	require.NoError(t, ta.app.Close())
	require.NoError(t, ta.app.Close())

	assert.Equal(t, 1, ta.locker.ReleaseCalled)
}

func TestAppRunRespectsCancelledContext(t *testing.T) {
	ta := newTestApp(t)
	ta.app.Watcher = nil

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The real watcher stops cleanly once ctx is done.
	ta.app.Config.Interval = 10 * time.Millisecond
	err := ta.app.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, ta.app.Close())
}
