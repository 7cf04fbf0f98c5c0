// Package autosave commits and pushes a git working tree automatically.
//
// autosave watches a repository for file edits. Once the tree has been quiet
// for a debounce period it stages everything, commits it with a timestamped
// message and pushes to a remote, trying a fallback branch once when the
// primary push is rejected. Nothing is ever lost on a failed push: the commit
// stays local and rides along with the next save.
//
// # Quick Start
//
//	cd /path/to/notes
//	autosave
//
//	# Press Ctrl+C to stop; a session summary is printed on exit
//
// # Layout
//
// The binary lives in cmd/autosave. Its building blocks are internal:
//
//   - internal/snapshot: path to mtime snapshots of the tree, with exclude globs
//   - internal/debounce: the Clean / DirtyWaiting settle detector
//   - internal/watcher: the poll loop plus polling and fsnotify change sources
//   - internal/git: git command execution and the stage/commit/push sequence
//   - internal/lock: the single-instance PID file
//   - internal/config: defaults, config file, AUTOSAVE_* environment and flags
//   - internal/logger: user-facing messages and the optional debug log file
//
// See cmd/autosave for flags and configuration.
package autosave
