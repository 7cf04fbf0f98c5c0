// Package logger provides logging facilities for the autosave application.
//
// Two audiences are served by one interface. Operators watching the console
// get timestamped, colour-coded status lines for every phase of the loop
// (changes detected, auto-save started, saved, failed). Debugging gets a
// structured log/slog text log written to a size-rotated file, with every
// record tagged with the session id of the run.
//
// # Message types
//
//   - Info: debug log only
//   - Warning: debug log, plus stdout when verbose
//   - Error: debug log, plus stderr always
//   - InfoToUser, WarningToUser, Success: debug log plus a timestamped stdout line
//   - StatusMessage: raw stdout line, used for banners and the session summary
//
// # Usage
//
//	log := logger.New(cfg.Debug, cfg.LogFile, !cfg.Quiet)
//	defer log.Close()
//
//	log.InfoToUser("Changes detected, waiting for debounce...")
//	log.Success("Successfully auto-saved to %s/%s", remote, branch)
//
// Colour is detected from the output writer; SetColor overrides it.
//
// The DefaultLogger implementation is safe for concurrent use.
package logger
