package visibility

import (
	"fmt"
	"time"
)

// EventKind identifies an input to the state machine.
type EventKind int

const (
	// EventShown reports that the window became visible, either because the
	// daemon showed it or because it regained visibility on its own.
	EventShown EventKind = iota
	// EventHidden reports that the window was hidden by something other than
	// the coordinator, e.g. minimized.
	EventHidden
	// EventPointerDown is a click inside the window outside the drag handle.
	EventPointerDown
	EventShortcut
	EventHotCorner
	EventPointerEnter
	EventPointerLeave
	EventIdleTimeout
	EventGraceElapsed
	EventBlur
	// EventClose is the close button or the cancel key.
	EventClose
	EventFadeCompleted
	// EventHideFailed reports that a hide request failed and the window is
	// still on screen.
	EventHideFailed
	// EventPreferencesChanged carries a new Prefs snapshot.
	EventPreferencesChanged
)

var eventNames = map[EventKind]string{
	EventShown:              "shown",
	EventHidden:             "hidden",
	EventPointerDown:        "pointer_down",
	EventShortcut:           "shortcut",
	EventHotCorner:          "hotcorner",
	EventPointerEnter:       "pointer_enter",
	EventPointerLeave:       "pointer_leave",
	EventIdleTimeout:        "idle_timeout",
	EventGraceElapsed:       "grace_elapsed",
	EventBlur:               "blur",
	EventClose:              "close",
	EventFadeCompleted:      "fade_completed",
	EventHideFailed:         "hide_failed",
	EventPreferencesChanged: "preferences_changed",
}

// String returns the event name
func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a single input to the state machine.
type Event struct {
	Kind EventKind
	// Prefs is read only for EventPreferencesChanged.
	Prefs Prefs
}

// ActionKind identifies a side effect requested by the state machine.
type ActionKind int

const (
	ActionStartIdle ActionKind = iota
	ActionStopIdle
	ActionBeginFade
	ActionCancelFade
	ActionHideInstant
	ActionFocusEditor
	ActionScheduleGrace
	ActionCancelGrace
	ActionFlushGeometry
)

var actionNames = map[ActionKind]string{
	ActionStartIdle:     "start_idle",
	ActionStopIdle:      "stop_idle",
	ActionBeginFade:     "begin_fade",
	ActionCancelFade:    "cancel_fade",
	ActionHideInstant:   "hide_instant",
	ActionFocusEditor:   "focus_editor",
	ActionScheduleGrace: "schedule_grace",
	ActionCancelGrace:   "cancel_grace",
	ActionFlushGeometry: "flush_geometry",
}

// String returns the action name
func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action is a side effect to perform, in order, after a transition.
type Action struct {
	Kind ActionKind
	// Duration is the idle timeout for ActionStartIdle and the fade length
	// for ActionBeginFade.
	Duration time.Duration
	// Deferred asks for ActionFocusEditor to run after the focus delay.
	Deferred bool
}

// Machine is the pure visibility state machine. It performs no I/O; Apply
// returns the actions the caller must carry out.
type Machine struct {
	state State
	sig   Signals
	prefs Prefs
}

// NewMachine creates a machine in the Hidden state.
func NewMachine(prefs Prefs) *Machine {
	return &Machine{state: Hidden, prefs: prefs}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Signals returns the current gating flags
func (m *Machine) Signals() Signals {
	return m.sig
}

// Prefs returns the current preferences snapshot
func (m *Machine) Prefs() Prefs {
	return m.prefs
}

// Apply feeds ev to the machine and returns the resulting actions.
func (m *Machine) Apply(ev Event) []Action {
	var actions []Action

	switch ev.Kind {
	case EventShown:
		actions = m.shown()

	case EventHidden:
		switch m.state {
		case Hidden:
			return nil
		case Fading:
			// The window is already gone; the fade has nothing left to hide.
			actions = m.enterHidden([]Action{{Kind: ActionCancelFade}})
		default:
			actions = m.enterHidden(nil)
		}

	case EventPointerDown:
		m.sig.Locked = true
		actions = m.suppress()

	case EventShortcut:
		m.sig.Locked = true
		actions = append(m.suppress(), Action{Kind: ActionFocusEditor, Deferred: true})

	case EventHotCorner:
		// Ambient: resets the idle clock but never locks or hides.
		if m.sig.Locked || m.state == Hidden || m.state == Fading {
			return nil
		}
		actions = m.evaluate()

	case EventPointerEnter:
		m.sig.PointerOver = true
		if m.state == VisibleIdleTracking {
			m.state = VisibleLocked
			actions = []Action{{Kind: ActionStopIdle}}
		}

	case EventPointerLeave:
		m.sig.PointerOver = false
		if !m.sig.Locked && (m.state == VisibleIdleTracking || m.state == VisibleLocked) {
			actions = m.evaluate()
		}

	case EventIdleTimeout:
		if m.state != VisibleIdleTracking || m.sig.Locked || m.sig.PointerOver {
			return nil
		}
		m.state = Fading
		m.sig.Fading = true
		actions = []Action{
			{Kind: ActionStopIdle},
			{Kind: ActionBeginFade, Duration: m.prefs.FadeDuration},
		}

	case EventGraceElapsed:
		if m.sig.Locked || m.sig.PointerOver {
			return nil
		}
		if m.state == VisibleIdleTracking || m.state == VisibleLocked {
			actions = m.evaluate()
		}

	case EventBlur:
		if !m.prefs.HideOnBlur {
			return nil
		}
		actions = m.dismiss()

	case EventClose:
		actions = m.dismiss()

	case EventFadeCompleted:
		if m.state != Fading {
			return nil
		}
		m.sig.Fading = false
		m.state = Hidden
		actions = []Action{{Kind: ActionFlushGeometry}}

	case EventHideFailed:
		if m.state != Hidden && m.state != Fading {
			return nil
		}
		// The window is still on screen.
		m.sig.Fading = false
		m.state = VisibleLocked
		actions = m.evaluate()

	case EventPreferencesChanged:
		m.prefs = ev.Prefs
		if m.state == VisibleIdleTracking || m.state == VisibleLocked {
			actions = m.evaluate()
		}
	}

	return actions
}

// evaluate applies the idle policy to a visible, non-fading window.
func (m *Machine) evaluate() []Action {
	if m.prefs.tracksIdle() && !m.sig.Locked && !m.sig.PointerOver {
		m.state = VisibleIdleTracking
		return []Action{{Kind: ActionStartIdle, Duration: m.prefs.AutoHideDelay}}
	}
	m.state = VisibleLocked
	return []Action{{Kind: ActionStopIdle}}
}

func (m *Machine) shown() []Action {
	if m.state == Fading {
		return nil
	}
	wasHidden := m.state == Hidden

	m.state = VisibleLocked
	actions := []Action{{Kind: ActionStopIdle}}
	if !m.sig.Locked {
		// Pointer-enter events for the new appearance arrive during the
		// grace period.
		m.sig.PointerOver = false
		actions = append(actions, Action{Kind: ActionScheduleGrace})
	}
	if wasHidden && m.prefs.AutoFocus {
		actions = append(actions, Action{Kind: ActionFocusEditor})
	}
	return actions
}

// suppress moves a visible window to VisibleLocked, rescuing it from a fade.
func (m *Machine) suppress() []Action {
	switch m.state {
	case Hidden:
		return nil
	case Fading:
		m.sig.Fading = false
		m.state = VisibleLocked
		return []Action{{Kind: ActionCancelFade}, {Kind: ActionStopIdle}, {Kind: ActionCancelGrace}}
	default:
		m.state = VisibleLocked
		return []Action{{Kind: ActionStopIdle}, {Kind: ActionCancelGrace}}
	}
}

// dismiss clears the lock and hides the window with no fade.
func (m *Machine) dismiss() []Action {
	m.sig.Locked = false
	if m.state == Hidden {
		return nil
	}
	return m.enterHidden([]Action{{Kind: ActionHideInstant}})
}

func (m *Machine) enterHidden(hide []Action) []Action {
	m.state = Hidden
	m.sig.Fading = false
	actions := []Action{{Kind: ActionStopIdle}, {Kind: ActionCancelGrace}}
	actions = append(actions, hide...)
	return append(actions, Action{Kind: ActionFlushGeometry})
}
