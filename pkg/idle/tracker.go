// Package idle tracks user activity inside the overlay window and reports
// when the user has stopped interacting with it.
package idle

import (
	"sync"
	"time"

	"github.com/Veraticus/quicknote/pkg/interfaces"
	"github.com/Veraticus/quicknote/pkg/schedule"
	"github.com/Veraticus/quicknote/pkg/types"
)

// DefaultPollInterval is how often a running tracker compares elapsed
// inactivity against its timeout.
const DefaultPollInterval = 100 * time.Millisecond

// Tracker measures time since the last qualifying input and invokes a
// callback once per idle crossing.
//
// Start, Stop and UpdateDelay must be called on the scheduler's executor.
// The query methods are safe from any goroutine.
type Tracker struct {
	source   interfaces.InputSource
	sched    *schedule.Scheduler
	interval time.Duration

	mu           sync.RWMutex
	lastActivity time.Time
	timeout      time.Duration
	onIdle       func()
	running      bool
	fired        bool
	generation   int
	unsubscribe  func()
	poll         *schedule.Task
}

// Ensure Tracker implements IdleDetector
var _ interfaces.IdleDetector = (*Tracker)(nil)

// NewTracker creates a stopped tracker. source may be nil, in which case
// only MarkActivity counts as activity.
func NewTracker(source interfaces.InputSource, sched *schedule.Scheduler, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tracker{
		source:       source,
		sched:        sched,
		interval:     interval,
		lastActivity: sched.Now(),
	}
}

// Start begins tracking, replacing any prior run. onIdle fires once when
// inactivity reaches timeout; further input re-arms it for the next crossing.
func (t *Tracker) Start(timeout time.Duration, onIdle func()) {
	t.Stop()

	t.mu.Lock()
	t.timeout = timeout
	t.onIdle = onIdle
	t.running = true
	t.fired = false
	t.lastActivity = t.sched.Now()
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	var unsubscribe func()
	if t.source != nil {
		unsubscribe = t.source.Subscribe(t.handleInput)
	}

	t.mu.Lock()
	t.unsubscribe = unsubscribe
	t.mu.Unlock()

	t.schedulePoll(gen)
}

// Stop detaches from the input source and cancels polling. Calling Stop on a
// stopped tracker does nothing.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.generation++
	unsubscribe := t.unsubscribe
	poll := t.poll
	t.unsubscribe = nil
	t.poll = nil
	t.mu.Unlock()

	poll.Cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// UpdateDelay changes the idle threshold and restarts the inactivity count
// without detaching listeners.
func (t *Tracker) UpdateDelay(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.timeout = timeout
	t.lastActivity = t.sched.Now()
	t.fired = false
}

// MarkActivity records activity without an input event.
func (t *Tracker) MarkActivity() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastActivity = t.sched.Now()
	t.fired = false
}

// Running reports whether the tracker is started.
func (t *Tracker) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// Timeout returns the current idle threshold.
func (t *Tracker) Timeout() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.timeout
}

// IsUserIdle returns true if no activity was seen within threshold.
func (t *Tracker) IsUserIdle(threshold time.Duration) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.sched.Now().Sub(t.lastActivity) >= threshold, nil
}

// LastActivity returns the time of the last recorded activity.
func (t *Tracker) LastActivity() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastActivity
}

func (t *Tracker) handleInput(types.InputEvent) {
	t.MarkActivity()
}

func (t *Tracker) schedulePoll(gen int) {
	task := t.sched.After(t.interval, func() { t.check(gen) })

	t.mu.Lock()
	if t.running && gen == t.generation {
		t.poll = task
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	task.Cancel()
}

func (t *Tracker) check(gen int) {
	t.mu.Lock()
	if !t.running || gen != t.generation {
		t.mu.Unlock()
		return
	}

	onIdle := t.onIdle
	elapsed := t.sched.Now().Sub(t.lastActivity)
	fire := onIdle != nil && !t.fired && elapsed >= t.timeout
	if fire {
		t.fired = true
	}
	t.mu.Unlock()

	// Re-arm before the callback so a Stop or Start inside it cancels the
	// right task.
	t.schedulePoll(gen)

	if fire {
		onIdle()
	}
}
