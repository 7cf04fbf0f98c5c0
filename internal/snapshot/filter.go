package snapshot

import (
	"path/filepath"
	"strings"
)

// Filter decides which repository-relative paths are ignored by scans and
// by the notify source.
type Filter struct {
	sentinel string
	patterns []string
}

// NewFilter creates a Filter. sentinel is a repo-root relative file path;
// patterns are filepath.Match globs checked against both the slash-separated
// relative path and the base name.
func NewFilter(sentinel string, patterns []string) *Filter {
	var cleaned []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, filepath.ToSlash(p))
		}
	}
	if sentinel != "" {
		sentinel = filepath.ToSlash(filepath.Clean(sentinel))
	}
	return &Filter{sentinel: sentinel, patterns: cleaned}
}

// Excluded reports whether rel should be skipped. Any path component named
// .git excludes the path, and a pattern matching a parent directory excludes
// everything below it.
func (f *Filter) Excluded(rel string, isDir bool) bool {
	slash := filepath.ToSlash(rel)
	parts := strings.Split(slash, "/")

	for _, part := range parts {
		if part == ".git" {
			return true
		}
	}

	if !isDir && f.sentinel != "" && slash == f.sentinel {
		return true
	}

	for i, part := range parts {
		prefix := strings.Join(parts[:i+1], "/")
		for _, p := range f.patterns {
			if ok, _ := filepath.Match(p, prefix); ok {
				return true
			}
			if ok, _ := filepath.Match(p, part); ok {
				return true
			}
		}
	}
	return false
}
