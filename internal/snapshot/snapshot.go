package snapshot

import (
	"encoding/binary"
	"sort"

	"github.com/zeebo/xxh3"
)

// Snapshot maps absolute file paths to their modification time in Unix
// nanoseconds. A Snapshot is built once per scan and never mutated afterwards.
type Snapshot map[string]int64

// Changes lists the paths that differ between two snapshots, each sorted.
type Changes struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether no path differs.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Count is the total number of differing paths.
func (c Changes) Count() int {
	return len(c.Added) + len(c.Modified) + len(c.Removed)
}

// Len returns the number of files in the snapshot.
func (s Snapshot) Len() int {
	return len(s)
}

// Diff compares s against an earlier snapshot prev.
func (s Snapshot) Diff(prev Snapshot) Changes {
	var c Changes
	for path, mtime := range s {
		old, ok := prev[path]
		switch {
		case !ok:
			c.Added = append(c.Added, path)
		case old != mtime:
			c.Modified = append(c.Modified, path)
		}
	}
	for path := range prev {
		if _, ok := s[path]; !ok {
			c.Removed = append(c.Removed, path)
		}
	}

	sort.Strings(c.Added)
	sort.Strings(c.Modified)
	sort.Strings(c.Removed)
	return c
}

// Equal reports whether both snapshots hold the same paths with the same mtimes.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for path, mtime := range s {
		if o, ok := other[path]; !ok || o != mtime {
			return false
		}
	}
	return true
}

// Digest returns an order-independent fingerprint of the snapshot. Equal
// snapshots always share a digest; it is meant for debug logs, not equality.
func (s Snapshot) Digest() uint64 {
	paths := make([]string, 0, len(s))
	for path := range s {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	h := xxh3.New()
	var buf [8]byte
	for _, path := range paths {
		_, _ = h.WriteString(path)
		binary.LittleEndian.PutUint64(buf[:], uint64(s[path]))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
