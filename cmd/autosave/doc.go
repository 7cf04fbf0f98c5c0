// Package main implements autosave, a background committer for a git working tree
//
// autosave watches a repository and, once files have stopped changing for a
// short debounce period, stages everything, commits it with a timestamped
// message and pushes it to a remote. It is meant for note collections, dotfiles
// and drafts: places where every edit should reach the remote without anyone
// running git by hand.
//
// # Basic Usage
//
//	autosave                          # Watch the current directory
//	autosave -r ~/notes               # Watch another repository
//	autosave -d 30s -i 5s             # 30s of quiet before saving, check every 5s
//	autosave --branch trunk           # Push to trunk, then master if that fails
//	autosave --fallback-branch ""     # Never try a second branch
//	autosave --notify                 # Filesystem events instead of polling
//	autosave config --format toml     # Print the effective configuration
//	autosave version                  # Print version information
//
// # Configuration
//
// Every flag can also be set in an autosave.yaml, autosave.toml or
// autosave.json file in the repository (or the file named by --config), or
// through an AUTOSAVE_* environment variable with dashes turned into
// underscores (AUTOSAVE_COMMIT_PREFIX). Flags win over the environment, the
// environment wins over the file, and the file wins over the built-in defaults.
//
// # Saving
//
// A save runs `git add -A`, skips the commit when `git status --porcelain` is
// empty, commits as "Auto-save: 2006-01-02 15:04:05" and pushes to
// <remote> <branch>. A failed push is retried once against the fallback
// branch; if that fails too the commit stays local and the next save pushes it.
//
// # Single Instance
//
// A PID file (.autosave.pid by default) in the repository root, held with an
// advisory lock, stops a second autosave from watching the same tree. The file
// is listed in .git/info/exclude so it is never committed.
package main
