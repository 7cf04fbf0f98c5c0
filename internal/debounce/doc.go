// Package debounce decides when a burst of file changes has gone quiet.
//
// The Detector is a two-state machine. Any observed change moves it to
// DirtyWaiting and restarts the quiet period; once a full window passes with
// no further change, Observe reports Settled. The caller acts on the settle
// and calls Settle to return to Clean.
//
// With a poll interval I and a window W, the worst-case delay between the
// last change of a burst and its settle is roughly I + W.
package debounce
