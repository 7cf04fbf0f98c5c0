package debounce

import (
	"fmt"
	"time"
)

// State is the detector's position in the Clean / DirtyWaiting cycle.
type State int

const (
	// Clean means nothing changed since the last settle (or since startup).
	Clean State = iota
	// DirtyWaiting means a change was seen and the quiet period is running.
	DirtyWaiting
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case DirtyWaiting:
		return "dirty-waiting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Decision is the outcome of a single Observe call.
type Decision struct {
	// Changed is true when this observation started or extended the window.
	Changed bool

	// Settled is true when the quiet period has elapsed; the caller should
	// persist the changes and then call Settle.
	Settled bool

	// Quiet is how long it has been since the last change while dirty.
	Quiet time.Duration
}

// Detector implements a sliding-window debounce. Time is supplied by the
// caller, so the detector itself never reads a clock.
//
// A Detector is not safe for concurrent use.
type Detector struct {
	window       time.Duration
	state        State
	lastChangeAt time.Time
}

// New creates a Detector that settles once window has passed without changes.
func New(window time.Duration) (*Detector, error) {
	if window <= 0 {
		return nil, fmt.Errorf("debounce window must be positive (got %s)", window)
	}
	return &Detector{window: window}, nil
}

// Window returns the configured quiet period.
func (d *Detector) Window() time.Duration {
	return d.window
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// Pending reports whether a change has been observed since the last settle.
func (d *Detector) Pending() bool {
	return d.state == DirtyWaiting
}

// LastChangeAt returns when the most recent change was observed; zero when Clean.
func (d *Detector) LastChangeAt() time.Time {
	if d.state == Clean {
		return time.Time{}
	}
	return d.lastChangeAt
}

// Observe feeds one poll result into the detector. An observation that
// reports a change never settles on the same call.
func (d *Detector) Observe(now time.Time, changed bool) Decision {
	if changed {
		d.state = DirtyWaiting
		d.lastChangeAt = now
		return Decision{Changed: true}
	}

	if d.state == Clean {
		return Decision{}
	}

	quiet := now.Sub(d.lastChangeAt)
	return Decision{
		Settled: quiet >= d.window,
		Quiet:   quiet,
	}
}

// Settle returns the detector to Clean. It is called after a settle has been
// acted on, whatever the outcome of that action.
func (d *Detector) Settle() {
	d.state = Clean
	d.lastChangeAt = time.Time{}
}
