package git

import (
	"context"
	"fmt"
	"time"

	"github.com/bashhack/autosave/internal/errors"
	"github.com/bashhack/autosave/internal/logger"
)

// Default orchestration settings.
const (
	DefaultRemote         = "origin"
	DefaultBranch         = "main"
	DefaultFallbackBranch = "master"
	DefaultCommitPrefix   = "Auto-save:"
	DefaultRetryBackoff   = 10 * time.Second

	// commitTimestampFormat is the layout embedded in every commit message.
	commitTimestampFormat = "2006-01-02 15:04:05"
)

// CommitterConfig controls how a settled batch of changes is persisted.
type CommitterConfig struct {
	// Remote is the remote every push targets.
	Remote string

	// Branch is the primary branch name pushed to.
	Branch string

	// FallbackBranch is tried once when pushing to Branch fails.
	// Empty disables the fallback.
	FallbackBranch string

	// DetectBranch makes the checked-out branch the primary push target,
	// falling back to Branch when it cannot be determined.
	DetectBranch bool

	// CommitPrefix starts every commit message; the timestamp follows it.
	CommitPrefix string

	// PushRetries is how many extra rounds of primary+fallback pushes are
	// made after both fail. Zero means a failed round ends the cycle.
	PushRetries int

	// RetryBackoff is the delay before the first retry round; it doubles
	// for each further round.
	RetryBackoff time.Duration
}

// Validate sanity-checks the config and returns an error if something is wrong.
func (c *CommitterConfig) Validate() error {
	if c.Remote == "" {
		return fmt.Errorf("Remote must not be empty")
	}
	if c.Branch == "" {
		return fmt.Errorf("Branch must not be empty")
	}
	if c.CommitPrefix == "" {
		return fmt.Errorf("CommitPrefix must not be empty")
	}
	if c.PushRetries < 0 {
		return fmt.Errorf("PushRetries cannot be negative (got %d)", c.PushRetries)
	}
	if c.PushRetries > 0 && c.RetryBackoff <= 0 {
		return fmt.Errorf("RetryBackoff must be > 0 when PushRetries is set (got %s)", c.RetryBackoff)
	}
	return nil
}

// Outcome describes what a single Save accomplished.
type Outcome struct {
	// Committed is false when staging left nothing to commit.
	Committed bool

	// Message is the commit message used, if a commit was made.
	Message string

	// Pushed reports whether some branch accepted the push.
	Pushed bool

	// Branch is the branch that accepted the push.
	Branch string

	// PushAttempts counts individual push invocations.
	PushAttempts int
}

// Committer stages, commits and pushes the working tree in one synchronous
// call. It keeps no state between calls.
type Committer struct {
	config CommitterConfig
	repo   Repository
	logger logger.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewCommitter creates a Committer for repo.
func NewCommitter(config CommitterConfig, repo Repository, logger logger.Logger) (*Committer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid committer configuration: %w", err)
	}

	return &Committer{
		config: config,
		repo:   repo,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}, nil
}

// Save performs stage -> status -> commit -> push. A nil error means the
// cycle succeeded, including the case where there was nothing to commit.
// On a commit failure the changes stay staged; on a push failure the local
// commit is kept.
func (c *Committer) Save(ctx context.Context) (Outcome, error) {
	var out Outcome

	if err := c.interrupted(ctx, "staging"); err != nil {
		return out, err
	}

	c.logger.InfoToUser("Auto-saving changes...")

	if err := c.repo.StageAll(ctx); err != nil {
		c.logger.Error("Error staging files: %v", err)
		return out, errors.Wrap(err, "failed to stage changes")
	}

	if err := c.interrupted(ctx, "status check"); err != nil {
		return out, err
	}

	status, err := c.repo.Status(ctx)
	if err != nil {
		c.logger.Error("Error checking status: %v", err)
		return out, errors.Wrap(err, "failed to check git status")
	}
	if len(status) == 0 {
		c.logger.InfoToUser("No changes to commit")
		return out, nil
	}
	c.logger.Info("Staged %d change(s)", len(status))

	if err := c.interrupted(ctx, "commit"); err != nil {
		return out, err
	}

	message := fmt.Sprintf("%s %s", c.config.CommitPrefix, c.now().Format(commitTimestampFormat))
	if err := c.repo.Commit(ctx, message); err != nil {
		c.logger.Error("Error committing: %v", err)
		return out, errors.Wrap(err, "failed to create commit")
	}
	out.Committed = true
	out.Message = message
	c.logger.Info("Created commit %q", message)

	if err := c.interrupted(ctx, "push"); err != nil {
		return out, err
	}

	branch, attempts, err := c.push(ctx)
	out.PushAttempts = attempts
	if err != nil {
		c.logger.Error("Error pushing: %v", err)
		return out, err
	}

	out.Pushed = true
	out.Branch = branch
	c.logger.Success("Successfully auto-saved to %s/%s", c.config.Remote, branch)
	return out, nil
}

// HasPendingChanges reports whether the working tree or index differs from
// HEAD, i.e. whether a Save now would create a commit.
func (c *Committer) HasPendingChanges(ctx context.Context) (bool, error) {
	status, err := c.repo.Status(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to check git status")
	}
	return len(status) > 0, nil
}

// push runs rounds of primary-then-fallback pushes until one is accepted or
// the retry budget is spent.
func (c *Committer) push(ctx context.Context) (string, int, error) {
	primary := c.primaryBranch(ctx)
	attempts := 0

	for round := 0; ; round++ {
		branch, n, err := c.pushRound(ctx, primary)
		attempts += n
		if err == nil {
			return branch, attempts, nil
		}

		if round >= c.config.PushRetries {
			return "", attempts, err
		}

		delay := c.config.RetryBackoff << round
		c.logger.WarningToUser("Push failed, retrying in %s (%d/%d)", delay, round+1, c.config.PushRetries)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", attempts, errors.Wrap(err, "push retry abandoned")
		}
	}
}

// pushRound tries primary, then the fallback branch exactly once.
func (c *Committer) pushRound(ctx context.Context, primary string) (string, int, error) {
	err := c.repo.Push(ctx, c.config.Remote, primary)
	if err == nil {
		return primary, 1, nil
	}

	fallback := c.config.FallbackBranch
	if fallback == "" || fallback == primary {
		return "", 1, fmt.Errorf("%w to %s/%s: %w", errors.ErrPushFailed, c.config.Remote, primary, err)
	}

	if ctxErr := c.interrupted(ctx, "fallback push"); ctxErr != nil {
		return "", 1, fmt.Errorf("%w to %s/%s: %w", errors.ErrPushFailed, c.config.Remote, primary, ctxErr)
	}

	c.logger.Warning("Push to %s/%s failed, trying %s: %v", c.config.Remote, primary, fallback, err)

	if err := c.repo.Push(ctx, c.config.Remote, fallback); err != nil {
		return "", 2, fmt.Errorf("%w to %s/%s and %s/%s: %w",
			errors.ErrPushFailed, c.config.Remote, primary, c.config.Remote, fallback, err)
	}
	return fallback, 2, nil
}

// primaryBranch resolves the branch to push first.
func (c *Committer) primaryBranch(ctx context.Context) string {
	if !c.config.DetectBranch {
		return c.config.Branch
	}

	current, err := c.repo.CurrentBranch(ctx)
	if err != nil {
		c.logger.Warning("Failed to detect current branch, using %s: %v", c.config.Branch, err)
		return c.config.Branch
	}
	if current == "" {
		c.logger.Warning("Detached HEAD, using %s", c.config.Branch)
		return c.config.Branch
	}
	return current
}

// interrupted returns a non-nil error once ctx is done, so that no new git
// step starts after shutdown. A step already running is left to finish.
func (c *Committer) interrupted(ctx context.Context, next string) error {
	if err := ctx.Err(); err != nil {
		c.logger.Warning("Shutdown requested, skipping %s", next)
		return errors.Wrapf(err, "save interrupted before %s", next)
	}
	return nil
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
