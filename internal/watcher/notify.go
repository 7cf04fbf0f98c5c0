package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/bashhack/autosave/internal/errors"
	"github.com/bashhack/autosave/internal/logger"
	"github.com/bashhack/autosave/internal/snapshot"
)

// NotifySource detects changes from filesystem events instead of rescans.
// A single goroutine drains fsnotify and only flips an atomic flag, so Poll
// never blocks.
type NotifySource struct {
	root    string
	filter  *snapshot.Filter
	logger  logger.Logger
	watcher *fsnotify.Watcher

	dirty atomic.Bool

	mu      sync.Mutex
	errs    []error
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
	watched int
}

// NewNotifySource starts watching root and every non-excluded directory below it.
func NewNotifySource(root string, filter *snapshot.Filter, logger logger.Logger) (*NotifySource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if filter == nil {
		filter = snapshot.NewFilter("", nil)
	}

	n := &NotifySource{
		root:    root,
		filter:  filter,
		logger:  logger,
		watcher: w,
		done:    make(chan struct{}),
	}

	if err := n.addTree(root); err != nil {
		_ = w.Close()
		return nil, err
	}

	n.wg.Add(1)
	go n.processEvents()

	logger.Info("Watching %d directories under %s", n.watchedDirs(), root)
	return n, nil
}

// addTree adds dir and its non-excluded subdirectories to the watch set.
func (n *NotifySource) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			n.recordError(err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		if path != n.root {
			rel, relErr := filepath.Rel(n.root, path)
			if relErr == nil && n.filter.Excluded(rel, true) {
				return filepath.SkipDir
			}
		}

		if err := n.watcher.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			n.recordError(err)
			return nil
		}

		n.mu.Lock()
		n.watched++
		n.mu.Unlock()
		return nil
	})
}

func (n *NotifySource) processEvents() {
	defer n.wg.Done()

	for {
		select {
		case <-n.done:
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handleEvent(event)

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.recordError(err)
		}
	}
}

func (n *NotifySource) handleEvent(event fsnotify.Event) {
	// Permission changes do not alter content or mtime.
	if event.Op == fsnotify.Chmod {
		return
	}

	rel, err := filepath.Rel(n.root, event.Name)
	if err != nil {
		return
	}

	info, statErr := os.Lstat(event.Name)
	isDir := statErr == nil && info.IsDir()

	if n.filter.Excluded(rel, isDir) {
		return
	}

	if isDir && event.Has(fsnotify.Create) {
		if err := n.addTree(event.Name); err != nil {
			n.recordError(err)
		}
	}

	n.dirty.Store(true)
}

func (n *NotifySource) recordError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *NotifySource) takeErrors() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	errs := n.errs
	n.errs = nil
	return errors.NewScanError(n.root, errs)
}

func (n *NotifySource) watchedDirs() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.watched
}

// Poll implements Source.Poll
func (n *NotifySource) Poll(ctx context.Context) (bool, error) {
	return n.dirty.Swap(false), n.takeErrors()
}

// Reset implements Source.Reset
func (n *NotifySource) Reset(ctx context.Context) error {
	n.dirty.Store(false)
	return n.takeErrors()
}

// Close implements Source.Close. It blocks until the event goroutine exits.
func (n *NotifySource) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	err := n.watcher.Close()
	n.wg.Wait()

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}
