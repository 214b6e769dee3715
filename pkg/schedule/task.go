package schedule

import (
	"time"

	"github.com/Veraticus/quicknote/pkg/clock"
)

// Scheduler arms timers whose callbacks are delivered through an Executor.
type Scheduler struct {
	clock clock.Clock
	exec  Executor
}

// NewScheduler creates a scheduler. Task bodies run via exec.
func NewScheduler(c clock.Clock, exec Executor) *Scheduler {
	if c == nil {
		c = clock.Real()
	}
	if exec == nil {
		exec = Inline{}
	}
	return &Scheduler{clock: c, exec: exec}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Post runs fn on the scheduler's executor.
func (s *Scheduler) Post(fn func()) bool {
	return s.exec.Post(fn)
}

// After runs fn on the executor once d has elapsed, unless the returned task
// is cancelled first.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	t := &Task{}
	t.timer = s.clock.AfterFunc(d, func() {
		s.exec.Post(func() {
			if t.cancelled || t.done {
				return
			}
			t.done = true
			fn()
		})
	})
	return t
}

// Task is a scheduled resumption. Its methods must be called from the
// executor the task was scheduled on. A nil *Task is a valid, finished task.
type Task struct {
	timer     clock.Timer
	cancelled bool
	done      bool
}

// Cancel prevents the task body from running. Cancelling a finished or
// already cancelled task does nothing.
func (t *Task) Cancel() {
	if t == nil || t.cancelled || t.done {
		return
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Pending reports whether the task body has yet to run.
func (t *Task) Pending() bool {
	return t != nil && !t.cancelled && !t.done
}
