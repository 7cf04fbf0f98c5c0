package watcher

import (
	"context"

	"github.com/bashhack/autosave/internal/logger"
	"github.com/bashhack/autosave/internal/snapshot"
)

// Source reports whether the working tree changed since the previous call.
type Source interface {
	// Poll reports whether anything changed since the last Poll or Reset.
	// An error wrapping errors.ErrScanFailed is advisory: the changed flag
	// is still meaningful.
	Poll(ctx context.Context) (bool, error)

	// Reset takes a new baseline, forgetting any change seen so far.
	Reset(ctx context.Context) error

	// Close releases the source's resources.
	Close() error
}

// PollSource detects changes by comparing consecutive snapshots.
type PollSource struct {
	scanner  *snapshot.Scanner
	logger   logger.Logger
	baseline snapshot.Snapshot
}

// NewPollSource creates a PollSource. Call Reset before the first Poll to
// take the initial baseline.
func NewPollSource(scanner *snapshot.Scanner, logger logger.Logger) *PollSource {
	return &PollSource{
		scanner:  scanner,
		logger:   logger,
		baseline: snapshot.Snapshot{},
	}
}

// Poll implements Source.Poll
func (p *PollSource) Poll(ctx context.Context) (bool, error) {
	current, err := p.scanner.Scan(ctx)

	// An empty result from a failed scan says nothing about the tree; keep the old baseline.
	if err != nil && current.Len() == 0 {
		return false, err
	}

	changes := current.Diff(p.baseline)
	p.baseline = current

	if !changes.Empty() {
		p.logger.Info("Scan of %d files (digest %016x): %d added, %d modified, %d removed",
			current.Len(), current.Digest(), len(changes.Added), len(changes.Modified), len(changes.Removed))
		for _, path := range firstN(changes.Added, 5) {
			p.logger.Info("  added: %s", path)
		}
		for _, path := range firstN(changes.Modified, 5) {
			p.logger.Info("  modified: %s", path)
		}
		for _, path := range firstN(changes.Removed, 5) {
			p.logger.Info("  removed: %s", path)
		}
	}

	return !changes.Empty(), err
}

// Reset implements Source.Reset
func (p *PollSource) Reset(ctx context.Context) error {
	current, err := p.scanner.Scan(ctx)
	if err != nil && current.Len() == 0 {
		return err
	}
	p.baseline = current
	p.logger.Info("Baseline of %d files (digest %016x)", current.Len(), current.Digest())
	return err
}

// Close implements Source.Close
func (p *PollSource) Close() error {
	return nil
}

// Baseline returns the snapshot the next Poll compares against.
func (p *PollSource) Baseline() snapshot.Snapshot {
	return p.baseline
}

func firstN(paths []string, n int) []string {
	if len(paths) > n {
		return paths[:n]
	}
	return paths
}
