package watcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bashhack/autosave/internal/debounce"
	"github.com/bashhack/autosave/internal/errors"
	"github.com/bashhack/autosave/internal/git"
	"github.com/bashhack/autosave/internal/logger"
)

// Config holds the control loop settings.
type Config struct {
	// RepoPath is the watched working tree; shown in the startup banner.
	RepoPath string

	// Interval is how often the source is polled. Must be > 0.
	Interval time.Duration

	// Debounce is the quiet period after the last change before saving. Must be > 0.
	Debounce time.Duration

	// ErrorBackoff is how long the loop pauses after a failed iteration.
	ErrorBackoff time.Duration

	// Remote and Branch are only used for display.
	Remote string
	Branch string

	// Mode names the change source ("poll" or "notify") for display.
	Mode string
}

// Validate sanity-checks the config and returns an error if something is wrong.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("Interval must be > 0 (got %s)", c.Interval)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("Debounce must be > 0 (got %s)", c.Debounce)
	}
	if c.ErrorBackoff < 0 {
		return fmt.Errorf("ErrorBackoff cannot be negative (got %s)", c.ErrorBackoff)
	}
	return nil
}

// Saver persists a settled batch of changes. *git.Committer satisfies it.
type Saver interface {
	Save(ctx context.Context) (git.Outcome, error)
}

// PendingChecker is implemented by savers that can tell whether the working
// tree already holds unsaved work. *git.Committer satisfies it.
type PendingChecker interface {
	HasPendingChanges(ctx context.Context) (bool, error)
}

// Stats counts what happened during a session.
type Stats struct {
	StartTime      time.Time
	ChangesSeen    int
	Settles        int
	Commits        int
	Pushes         int
	SaveFailures   int
	LoopErrors     int
	LastCommitMsg  string
	LastPushBranch string
}

// Watcher owns the polling loop: poll, observe, settle, save, rebaseline.
// All of its state is confined to the goroutine that calls Run.
type Watcher struct {
	config   Config
	source   Source
	detector *debounce.Detector
	saver    Saver
	logger   logger.Logger
	stats    Stats

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Watcher.
func New(config Config, source Source, saver Saver, logger logger.Logger) (*Watcher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid watcher configuration: %w", err)
	}

	detector, err := debounce.New(config.Debounce)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		config:   config,
		source:   source,
		detector: detector,
		saver:    saver,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// Run polls until ctx is cancelled. It returns nil on cancellation; an
// individual failed iteration is logged and never ends the loop.
func (w *Watcher) Run(ctx context.Context) error {
	w.stats.StartTime = w.now()
	w.displayStartupInfo()

	if err := w.source.Reset(ctx); err != nil {
		w.logger.Warning("Initial scan incomplete: %v", err)
	}
	w.checkPendingAtStartup(ctx)
	w.logger.StatusMessage("👀 Ready, watching for changes")

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Received cancellation signal, shutting down gracefully...")
			return nil

		case <-ticker.C:
			if err := w.safeTick(ctx, w.now()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.stats.LoopErrors++
				w.logger.Error("Error in watch loop: %v", err)
				w.logger.WarningToUser("Pausing for %s before resuming", w.config.ErrorBackoff)
				if w.sleep(ctx, w.config.ErrorBackoff) != nil {
					return nil
				}
			}
		}
	}
}

// safeTick runs one iteration, turning a panic into an error.
func (w *Watcher) safeTick(ctx context.Context, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Info("Recovered panic stack:\n%s", debug.Stack())
			err = fmt.Errorf("panic in watch loop: %v", r)
		}
	}()
	return w.tick(ctx, now)
}

// checkPendingAtStartup treats work left unsaved by a previous run as a fresh
// change, so it is saved after one debounce window instead of waiting for the
// next edit.
func (w *Watcher) checkPendingAtStartup(ctx context.Context) {
	checker, ok := w.saver.(PendingChecker)
	if !ok {
		return
	}

	pending, err := checker.HasPendingChanges(ctx)
	if err != nil {
		w.logger.Warning("Failed to check for unsaved changes: %v", err)
		return
	}
	if !pending {
		return
	}

	w.detector.Observe(w.now(), true)
	w.stats.ChangesSeen++
	w.logger.InfoToUser("Unsaved changes found at startup, waiting for debounce...")
}

// tick polls once and saves when the debounce window has elapsed.
func (w *Watcher) tick(ctx context.Context, now time.Time) error {
	changed, err := w.source.Poll(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrScanFailed) {
			return errors.Wrap(err, "failed to poll for changes")
		}
		w.logger.Warning("Scan incomplete: %v", err)
	}

	decision := w.detector.Observe(now, changed)
	if decision.Changed {
		w.stats.ChangesSeen++
		w.logger.InfoToUser("Changes detected, waiting for debounce...")
	}
	if !decision.Settled {
		return nil
	}

	w.stats.Settles++
	w.logger.Info("Quiet for %s, saving", decision.Quiet)

	outcome, saveErr := w.saver.Save(ctx)
	w.detector.Settle()

	if outcome.Committed {
		w.stats.Commits++
		w.stats.LastCommitMsg = outcome.Message
	}
	if outcome.Pushed {
		w.stats.Pushes++
		w.stats.LastPushBranch = outcome.Branch
	}
	if saveErr != nil {
		// The committer already reported the failing phase.
		w.stats.SaveFailures++
	}

	if err := w.source.Reset(ctx); err != nil {
		w.logger.Warning("Failed to refresh baseline: %v", err)
	}
	return nil
}

// Stats returns the session counters.
func (w *Watcher) Stats() Stats {
	return w.stats
}

// displayStartupInfo outputs the active configuration to the user
func (w *Watcher) displayStartupInfo() {
	w.logger.StatusMessage("🔄 autosave started at %s", w.stats.StartTime.Format("2006-01-02 15:04:05"))
	w.logger.StatusMessage("📂 Repository: %s", w.config.RepoPath)
	w.logger.StatusMessage("⏱️  Check interval: %s, debounce: %s", w.config.Interval, w.config.Debounce)
	if w.config.Remote != "" {
		w.logger.StatusMessage("🚀 Pushing to: %s/%s", w.config.Remote, w.config.Branch)
	}
	if w.config.Mode != "" {
		w.logger.StatusMessage("👀 Change detection: %s", w.config.Mode)
	}
	w.logger.StatusMessage("❓ Press Ctrl+C to stop and view session summary")
}

// PrintSummary prints a summary of the autosave session
func (w *Watcher) PrintSummary() {
	duration := w.now().Sub(w.stats.StartTime)
	if w.stats.StartTime.IsZero() {
		duration = 0
	}
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	seconds := int(duration.Seconds()) % 60

	w.logger.StatusMessage("")
	w.logger.StatusMessage("---------------------------------------------")
	w.logger.StatusMessage("📊 autosave Session Summary")
	w.logger.StatusMessage("---------------------------------------------")
	w.logger.StatusMessage("✅ Commits made: %d", w.stats.Commits)
	w.logger.StatusMessage("🚀 Pushes: %d", w.stats.Pushes)
	if w.stats.SaveFailures > 0 || w.stats.LoopErrors > 0 {
		w.logger.StatusMessage("⚠️  Failed saves: %d, loop errors: %d", w.stats.SaveFailures, w.stats.LoopErrors)
	}
	if w.stats.LastCommitMsg != "" {
		w.logger.StatusMessage("📝 Last commit: %s", w.stats.LastCommitMsg)
	}
	if w.detector.Pending() {
		w.logger.StatusMessage("⏳ Changes were still settling and have not been saved")
	}
	w.logger.StatusMessage("⏱️  Session duration: %dh %dm %ds", hours, minutes, seconds)
	w.logger.StatusMessage("---------------------------------------------")
	w.logger.StatusMessage("🛑 autosave terminated at %s", w.now().Format("2006-01-02 15:04:05"))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
