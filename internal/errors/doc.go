// Package errors provides error handling utilities for the autosave application.
//
// It wraps the standard library errors package with a handful of sentinel
// errors and typed errors that carry the context autosave needs when it
// reports a failure: which git operation failed and what it printed, which
// sentinel file could not be locked, which configuration value was invalid,
// and which entries a snapshot scan had to skip.
//
// # Usage
//
//	if err != nil {
//	    return errors.Wrap(err, "failed to stage changes")
//	}
//
//	var gitErr *errors.GitError
//	if errors.As(err, &gitErr) {
//	    fmt.Println(gitErr.Output)
//	}
//
// Sentinels are matched with errors.Is, so a push that timed out satisfies
// both errors.Is(err, ErrCommandTimeout) and errors.Is(err, ErrPushFailed)
// when the orchestrator wraps it.
package errors
