// Package watcher runs the autosave control loop.
//
// Every interval the Watcher asks its Source whether the working tree
// changed, feeds the answer into a debounce.Detector and, once the tree has
// been quiet for the debounce window, hands off to a Saver (the git
// Committer). After each save attempt the detector returns to Clean and the
// source takes a fresh baseline.
//
// # Change Sources
//
// - PollSource: rescans the tree each tick and diffs against the previous snapshot
// - NotifySource: fsnotify events flip a dirty flag that Poll swaps out
//
// # Concurrency Model
//
// Run is strictly serial: no scan overlaps a save. NotifySource owns one
// extra goroutine that only touches an atomic flag and an error list.
//
// # Error Handling
//
// Incomplete scans are logged as warnings and the tick carries on with the
// partial result. Any other error, or a panic, inside an iteration is logged
// and the loop pauses for ErrorBackoff before resuming. Save failures are
// reported by the committer and counted; the next burst tries again.
package watcher
