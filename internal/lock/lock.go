package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/bashhack/autosave/internal/errors"
)

// Locker guards a repository against concurrent autosave instances with a
// flock'd sentinel file holding the owner's PID.
type Locker struct {
	lockFile string
	lockFd   *os.File
	pid      int
	acquired bool
}

// New creates a Locker whose sentinel is sentinel relative to repoPath.
func New(repoPath, sentinel string) (*Locker, error) {
	if sentinel == "" || filepath.IsAbs(sentinel) {
		return nil, errors.NewLockError(sentinel, 0,
			errors.Wrap(errors.ErrLockAcquisitionFailure, "sentinel must be a path relative to the repository"))
	}

	return &Locker{
		lockFile: filepath.Join(repoPath, sentinel),
		pid:      os.Getpid(),
	}, nil
}

// Path returns the sentinel file location.
func (l *Locker) Path() string {
	return l.lockFile
}

// Acquired reports whether this Locker currently holds the lock.
func (l *Locker) Acquired() bool {
	return l.acquired
}

// Acquire tries to acquire the lock
func (l *Locker) Acquire() error {
	if l.acquired {
		return nil
	}

	err := l.tryCreateLock()
	if err == nil {
		return nil
	} else if os.IsExist(err) {
		return l.tryAcquireExistingLock()
	}

	return err
}

// tryCreateLock attempts to create and lock a new sentinel file
func (l *Locker) tryCreateLock() error {
	var err error

	l.lockFd, err = os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		// Pass through the original error so os.IsExist() can detect it
		if os.IsExist(err) {
			return err
		}
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to create sentinel file"))
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to lock newly created sentinel file"))
	}

	if err = l.writePid(); err != nil {
		if releaseErr := l.Release(); releaseErr != nil {
			return errors.Wrapf(err, "failed to write PID and failed to release lock: %v", releaseErr)
		}
		return err
	}

	l.acquired = true
	return nil
}

// tryAcquireExistingLock takes over an existing sentinel whose flock is free.
// A free flock means the previous owner exited without cleaning up.
func (l *Locker) tryAcquireExistingLock() error {
	var err error
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_RDWR, 0o644)
	if err != nil {
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to open existing sentinel file"))
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()

		// EWOULDBLOCK and EAGAIN are distinct on some older systems.
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return l.handleBlockedLock()
		}

		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(err, "failed to acquire lock"))
	}

	if err = l.writePid(); err != nil {
		if releaseErr := l.Release(); releaseErr != nil {
			return errors.Wrapf(err, "failed to reset PID and failed to release lock: %v", releaseErr)
		}
		return err
	}

	l.acquired = true
	return nil
}

// handleBlockedLock reports who holds the flock.
func (l *Locker) handleBlockedLock() error {
	otherPid, pidErr := l.readPid()
	if pidErr != nil {
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(errors.ErrAlreadyRunning, "sentinel is locked but holds no readable PID"))
	}

	if !isProcessRunning(otherPid) {
		// The holder is gone but the flock survives, e.g. inherited by a child process.
		return errors.NewLockError(l.lockFile, otherPid,
			errors.Wrap(errors.ErrLockAcquisitionFailure,
				fmt.Sprintf("sentinel is locked by an open descriptor of exited PID %d", otherPid)))
	}

	return errors.NewLockError(l.lockFile, otherPid, errors.ErrAlreadyRunning)
}

// acquireFlock gets an exclusive non-blocking lock
func (l *Locker) acquireFlock() error {
	return unix.Flock(int(l.lockFd.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// writePid replaces the sentinel contents with the current PID
func (l *Locker) writePid() error {
	if err := l.lockFd.Truncate(0); err != nil {
		return errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(err, "failed to truncate sentinel file"))
	}
	if _, err := l.lockFd.WriteAt([]byte(strconv.Itoa(l.pid)+"\n"), 0); err != nil {
		return errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(err, "failed to write PID to sentinel file"))
	}
	return nil
}

// closeFileDescriptor closes the sentinel file descriptor
func (l *Locker) closeFileDescriptor() {
	if l.lockFd != nil {
		_ = l.lockFd.Close()
		l.lockFd = nil
	}
}

// readPid reads and parses the PID from the sentinel file
func (l *Locker) readPid() (int, error) {
	data, err := os.ReadFile(l.lockFile)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read sentinel file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in sentinel file")
	}

	return pid, nil
}

// isProcessRunning probes pid with signal 0. EPERM means the process exists
// but belongs to someone else.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Release unlocks and removes the sentinel if it was acquired. It is safe to
// call more than once.
func (l *Locker) Release() error {
	if l.lockFd == nil {
		return nil
	}

	var err error

	fd := int(l.lockFd.Fd())
	var stat unix.Stat_t
	if statErr := unix.Fstat(fd, &stat); statErr != nil {
		err = errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(statErr, "failed to stat sentinel file - file descriptor is invalid"))
	} else if flockErr := unix.Flock(fd, unix.LOCK_UN); flockErr != nil {
		err = errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(flockErr, "failed to release lock"))
	}

	// Always try to close the file descriptor, even if previous operations failed
	if closeErr := l.lockFd.Close(); closeErr != nil && err == nil {
		err = errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(closeErr, "failed to close sentinel file"))
	}

	l.lockFd = nil
	l.acquired = false

	// Only report a removal failure if nothing failed before it
	if removeErr := os.Remove(l.lockFile); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = errors.NewLockError(l.lockFile, l.pid,
			errors.Wrap(removeErr, "failed to remove sentinel file"))
	}

	return err
}
