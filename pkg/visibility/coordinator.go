package visibility

import (
	"log/slog"
	"time"

	"github.com/Veraticus/quicknote/pkg/interfaces"
	"github.com/Veraticus/quicknote/pkg/schedule"
	"github.com/Veraticus/quicknote/pkg/types"
)

const (
	// DefaultGracePeriod is how long a newly visible window waits for
	// pointer-enter events before idle counting resumes.
	DefaultGracePeriod = 50 * time.Millisecond
	// DefaultFocusDelay is how long after a shortcut the editor is focused.
	DefaultFocusDelay = 100 * time.Millisecond
)

// IdleTracker is the activity tracker the coordinator drives.
type IdleTracker interface {
	Start(timeout time.Duration, onIdle func())
	Stop()
	UpdateDelay(timeout time.Duration)
	Running() bool
}

// Fader runs the fade-out and instant hide of the window.
type Fader interface {
	FadeOutThenHide(d time.Duration, done func(error)) bool
	HideInstant() error
	Cancel() bool
	Fading() bool
}

// Config holds the coordinator's collaborators.
type Config struct {
	Prefs     Prefs
	Scheduler *schedule.Scheduler
	Tracker   IdleTracker
	Fader     Fader
	Editor    interfaces.Editor

	GracePeriod time.Duration
	FocusDelay  time.Duration

	// OnHidden runs whenever the window enters Hidden, used to persist the
	// window geometry immediately.
	OnHidden func()
	// OnTransition observes state changes.
	OnTransition func(from, to State, ev Event)

	Logger *slog.Logger
}

// Coordinator runs the visibility Machine and carries out its actions.
// All methods must be called on the scheduler's executor.
type Coordinator struct {
	cfg     Config
	machine *Machine
	logger  *slog.Logger

	queue       []Event
	dispatching bool

	grace *schedule.Task
	focus *schedule.Task
}

// NewCoordinator creates a coordinator for a hidden window.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.FocusDelay <= 0 {
		cfg.FocusDelay = DefaultFocusDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:     cfg,
		machine: NewMachine(cfg.Prefs),
		logger:  logger.With("component", "visibility"),
	}
}

// Dispatch processes ev. Events dispatched while another is being handled,
// including from inside an action, are queued and handled in order once the
// current one completes.
func (c *Coordinator) Dispatch(ev Event) {
	c.queue = append(c.queue, ev)
	if c.dispatching {
		return
	}

	c.dispatching = true
	defer func() { c.dispatching = false }()

	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.handle(next)
	}
}

// Attach subscribes the coordinator to window input: a click outside the
// drag handle locks the window and the Escape key closes it.
func (c *Coordinator) Attach(src interfaces.InputSource) func() {
	return src.Subscribe(func(ev types.InputEvent) {
		switch {
		case ev.Kind == types.PointerDown && !ev.DragRegion:
			c.Dispatch(Event{Kind: EventPointerDown})
		case ev.Kind == types.KeyDown && ev.Key == "Escape":
			c.Dispatch(Event{Kind: EventClose})
		}
	})
}

// State returns the current state
func (c *Coordinator) State() State {
	return c.machine.State()
}

// Signals returns the current gating flags
func (c *Coordinator) Signals() Signals {
	return c.machine.Signals()
}

// Prefs returns the preferences snapshot in effect
func (c *Coordinator) Prefs() Prefs {
	return c.machine.Prefs()
}

func (c *Coordinator) handle(ev Event) {
	from := c.machine.State()
	actions := c.machine.Apply(ev)
	to := c.machine.State()

	if from != to {
		c.logger.Debug("transition", "event", ev.Kind.String(), "from", from.String(), "to", to.String())
	}

	for _, a := range actions {
		c.execute(a)
	}

	if from != to && c.cfg.OnTransition != nil {
		c.cfg.OnTransition(from, to, ev)
	}
}

func (c *Coordinator) execute(a Action) {
	switch a.Kind {
	case ActionStartIdle:
		if c.cfg.Tracker == nil {
			return
		}
		if c.cfg.Tracker.Running() {
			c.cfg.Tracker.UpdateDelay(a.Duration)
		} else {
			c.cfg.Tracker.Start(a.Duration, c.onIdle)
		}

	case ActionStopIdle:
		if c.cfg.Tracker != nil {
			c.cfg.Tracker.Stop()
		}

	case ActionBeginFade:
		if c.cfg.Fader == nil {
			c.Dispatch(Event{Kind: EventFadeCompleted})
			return
		}
		if !c.cfg.Fader.FadeOutThenHide(a.Duration, c.onFadeDone) {
			c.logger.Debug("fade already in progress")
		}

	case ActionCancelFade:
		if c.cfg.Fader != nil {
			c.cfg.Fader.Cancel()
		}

	case ActionHideInstant:
		if c.cfg.Fader == nil {
			return
		}
		if err := c.cfg.Fader.HideInstant(); err != nil {
			c.logger.Warn("hide window failed", "error", err)
			c.Dispatch(Event{Kind: EventHideFailed})
		}

	case ActionFocusEditor:
		c.focus.Cancel()
		if a.Deferred {
			c.focus = c.cfg.Scheduler.After(c.cfg.FocusDelay, c.focusEditor)
		} else {
			c.focus = nil
			c.focusEditor()
		}

	case ActionScheduleGrace:
		c.grace.Cancel()
		c.grace = c.cfg.Scheduler.After(c.cfg.GracePeriod, func() {
			c.Dispatch(Event{Kind: EventGraceElapsed})
		})

	case ActionCancelGrace:
		c.grace.Cancel()
		c.grace = nil

	case ActionFlushGeometry:
		if c.cfg.OnHidden != nil {
			c.cfg.OnHidden()
		}
	}
}

func (c *Coordinator) onIdle() {
	c.Dispatch(Event{Kind: EventIdleTimeout})
}

func (c *Coordinator) onFadeDone(err error) {
	if err != nil {
		c.logger.Warn("hide window after fade failed", "error", err)
		c.Dispatch(Event{Kind: EventHideFailed})
		return
	}
	c.Dispatch(Event{Kind: EventFadeCompleted})
}

func (c *Coordinator) focusEditor() {
	if c.cfg.Editor == nil {
		return
	}
	if err := c.cfg.Editor.Focus(); err != nil {
		c.logger.Warn("focus editor failed", "error", err)
	}
}
