package snapshot

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bashhack/autosave/internal/errors"
)

// IndexLister lists the files recorded in the version-control index,
// relative to the repository root. git.Repository satisfies it.
type IndexLister interface {
	ListTracked(ctx context.Context) ([]string, error)
}

// Scanner builds snapshots of a working tree.
type Scanner struct {
	root    string
	filter  *Filter
	index   IndexLister
	lstat   func(string) (os.FileInfo, error)
	walkDir func(string, fs.WalkDirFunc) error
}

// NewScanner creates a Scanner for root. index may be nil, in which case only
// the directory walk contributes.
func NewScanner(root string, filter *Filter, index IndexLister) *Scanner {
	if filter == nil {
		filter = NewFilter("", nil)
	}
	return &Scanner{
		root:    root,
		filter:  filter,
		index:   index,
		lstat:   os.Lstat,
		walkDir: filepath.WalkDir,
	}
}

// Root returns the directory the scanner walks.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the tree and merges in the tracked files. Unreadable entries are
// skipped and reported together as a *errors.ScanError alongside the partial
// snapshot; the snapshot is never nil.
func (s *Scanner) Scan(ctx context.Context) (Snapshot, error) {
	snap := make(Snapshot)
	var errs []error

	walkErr := s.walkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			// A vanished entry is just a race with the editor; anything else is worth reporting.
			if !os.IsNotExist(err) {
				errs = append(errs, err)
			}
			if d != nil && d.IsDir() && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}

		if path == s.root {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			errs = append(errs, relErr)
			return nil
		}

		if s.filter.Excluded(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			if !os.IsNotExist(infoErr) {
				errs = append(errs, infoErr)
			}
			return nil
		}
		snap[path] = info.ModTime().UnixNano()
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	if s.index != nil && ctx.Err() == nil {
		errs = append(errs, s.mergeTracked(ctx, snap)...)
	}

	return snap, errors.NewScanError(s.root, errs)
}

// mergeTracked adds tracked files the walk did not see. Walk results win.
func (s *Scanner) mergeTracked(ctx context.Context, snap Snapshot) []error {
	tracked, err := s.index.ListTracked(ctx)
	if err != nil {
		return []error{errors.Wrap(err, "failed to list tracked files")}
	}

	var errs []error
	for _, rel := range tracked {
		rel = filepath.FromSlash(rel)
		if s.filter.Excluded(rel, false) {
			continue
		}

		path := filepath.Join(s.root, rel)
		if _, seen := snap[path]; seen {
			continue
		}

		info, err := s.lstat(path)
		if err != nil {
			// Tracked but deleted from disk: absence from the map is the signal.
			if !os.IsNotExist(err) {
				errs = append(errs, err)
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		snap[path] = info.ModTime().UnixNano()
	}
	return errs
}
