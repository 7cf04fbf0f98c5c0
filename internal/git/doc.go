// Package git provides the version-control operations autosave performs.
//
// Git is treated as an external command service: every operation shells out
// to the git executable in the configured working tree, bounded by a
// per-command timeout.
//
// # Core Components
//
// - Repository: narrow capability interface (status, ls-files, add, commit, push)
// - Client: Repository implementation backed by the git binary
// - CommandExecutor: seam between Client and os/exec, replaced in tests
// - Committer: stages, commits and pushes a settled batch of changes
//
// # Usage
//
//	client := git.NewClient("/path/to/repo", git.DefaultCommandTimeout)
//
//	committer, err := git.NewCommitter(git.CommitterConfig{
//	    Remote:         "origin",
//	    Branch:         "main",
//	    FallbackBranch: "master",
//	    CommitPrefix:   "Auto-save:",
//	}, client, logger)
//	if err != nil {
//	    // Handle error
//	}
//
//	outcome, err := committer.Save(ctx)
//
// # Push Fallback
//
// A push goes to the primary branch first. If that fails the fallback branch
// is tried exactly once. When both fail the local commit is kept and the
// error wraps errors.ErrPushFailed; the next settled batch pushes it along
// with its own commit. PushRetries adds bounded, doubling back-off rounds.
//
// # Concurrency Model
//
// Client and Committer hold no mutable state and are meant to be driven from
// the single watcher goroutine.
package git
