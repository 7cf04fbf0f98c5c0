// Package snapshot captures the state of a working tree as a map from file
// path to modification time.
//
// A Scanner walks the directory tree and unions the result with the files
// recorded in the git index, so tracked files inside otherwise ignored
// directories are still observed. Directories named .git, the sentinel file
// and user exclude globs are never part of a snapshot.
//
// Comparing two snapshots with Diff yields the added, modified and removed
// paths. The scanner tolerates unreadable entries: it returns what it could
// read together with a *errors.ScanError describing the rest.
package snapshot
