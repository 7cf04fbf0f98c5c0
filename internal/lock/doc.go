// Package lock keeps a single autosave instance per repository.
//
// The lock is the sentinel file (".autosave.pid" by default) in the
// repository root. It holds the owner's PID and an exclusive flock on it.
// Because the flock dies with the process, a sentinel left behind by a
// crashed instance is simply taken over; the PID is only used to name the
// current owner in error messages.
//
// # Usage
//
//	locker, err := lock.New("/path/to/repo", ".autosave.pid")
//	if err != nil {
//	    // Handle error
//	}
//
//	if err := locker.Acquire(); err != nil {
//	    // errors.ErrAlreadyRunning: another instance is watching this repo
//	}
//	defer locker.Release()
//
// Autosave also lists the sentinel in .git/info/exclude so that `git add -A`
// never commits it.
//
// Only Unix-like systems are supported.
package lock
