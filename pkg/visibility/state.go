// Package visibility decides whether the overlay window is shown, hidden or
// fading out. It fuses explicit user intent, idle time, pointer presence,
// focus loss and external triggers into one state.
//
// The states and the transitions between them:
//
//	hidden                -> visible_locked (shown; idle resumes after a grace period)
//	visible_locked        -> visible_idle_tracking | hidden
//	visible_idle_tracking -> visible_locked | fading | hidden
//	fading                -> hidden | visible_locked (click or shortcut rescues it)
//
// visible_locked covers every visible state in which idle counting is
// suppressed, whether by an explicit lock, pointer presence or preferences.
package visibility

import (
	"fmt"
	"time"
)

// State is the coordinator's view of the overlay window.
type State int

const (
	Hidden State = iota
	VisibleIdleTracking
	VisibleLocked
	Fading
)

// String returns the state name used in logs and status output
func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case VisibleIdleTracking:
		return "visible_idle_tracking"
	case VisibleLocked:
		return "visible_locked"
	case Fading:
		return "fading"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Visible reports whether the window is on screen in this state.
func (s State) Visible() bool {
	return s != Hidden
}

// Signals are the flags that gate idle counting.
type Signals struct {
	// Locked is set once the user has shown intent to interact, by clicking
	// inside the window or opening it with the shortcut. Only the explicit
	// dismissal paths clear it.
	Locked bool
	// PointerOver is set while the pointer is inside the window.
	PointerOver bool
	// Fading is set while a fade-out is in flight.
	Fading bool
}

// Prefs is the subset of user preferences the coordinator reads. A new
// snapshot replaces the old one wholesale.
type Prefs struct {
	AutoHideEnabled bool
	AutoHideDelay   time.Duration
	AutoFocus       bool
	HideOnBlur      bool
	FadeDuration    time.Duration
}

// tracksIdle reports whether these preferences allow idle counting at all.
func (p Prefs) tracksIdle() bool {
	return p.AutoHideEnabled && !p.AutoFocus
}
