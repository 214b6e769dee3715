// Package fade runs the timed opacity transition that precedes hiding the
// overlay window.
package fade

import (
	"time"

	"github.com/Veraticus/quicknote/pkg/interfaces"
	"github.com/Veraticus/quicknote/pkg/schedule"
)

// RestingOpacity is the opacity of a visible, non-fading overlay.
const RestingOpacity = 1.0

// Sequencer fades the overlay out and hides it. At most one fade is in
// flight at a time. Methods must be called on the scheduler's executor.
type Sequencer struct {
	sched   *schedule.Scheduler
	surface interfaces.Surface
	window  interfaces.WindowManager

	fading bool
	task   *schedule.Task
	done   func(error)
}

// New creates a sequencer. A nil surface or window turns the corresponding
// step into a no-op.
func New(sched *schedule.Scheduler, surface interfaces.Surface, window interfaces.WindowManager) *Sequencer {
	return &Sequencer{
		sched:   sched,
		surface: surface,
		window:  window,
	}
}

// FadeOutThenHide animates opacity to zero over d, then hides the window and
// restores resting opacity. done receives the hide result. It returns false,
// and does nothing, if a fade is already running.
func (s *Sequencer) FadeOutThenHide(d time.Duration, done func(error)) bool {
	if s.fading {
		return false
	}
	if d < 0 {
		d = 0
	}

	s.fading = true
	s.done = done
	if s.surface != nil {
		s.surface.SetTransition(d)
		s.surface.SetOpacity(0)
	}
	s.task = s.sched.After(d, s.finish)
	return true
}

// HideInstant hides the window with no transition. An in-flight fade is
// abandoned and its done callback is never called.
func (s *Sequencer) HideInstant() error {
	if s.fading {
		s.task.Cancel()
		s.task = nil
		s.done = nil
		s.fading = false
	}

	s.restore()
	return s.hide()
}

// Cancel abandons an in-flight fade and restores resting opacity without
// hiding the window. It returns false if no fade was running.
func (s *Sequencer) Cancel() bool {
	if !s.fading {
		return false
	}
	s.task.Cancel()
	s.task = nil
	s.done = nil
	s.fading = false
	s.restore()
	return true
}

// Fading reports whether a fade is in flight.
func (s *Sequencer) Fading() bool {
	return s.fading
}

func (s *Sequencer) finish() {
	done := s.done
	s.task = nil
	s.done = nil

	err := s.hide()
	s.restore()
	s.fading = false

	if done != nil {
		done(err)
	}
}

func (s *Sequencer) restore() {
	if s.surface == nil {
		return
	}
	s.surface.SetTransition(0)
	s.surface.SetOpacity(RestingOpacity)
}

func (s *Sequencer) hide() error {
	if s.window == nil {
		return nil
	}
	return s.window.Hide()
}
