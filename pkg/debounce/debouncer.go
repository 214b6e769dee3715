// Package debounce coalesces bursts of change notifications into a single
// delayed write per key.
package debounce

import (
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/quicknote/pkg/schedule"
)

// Debouncer holds at most one pending write per key. Scheduling a write for
// a key replaces the pending one, so only the latest write in a burst runs.
//
// Methods must be called on the scheduler's executor.
type Debouncer struct {
	sched   *schedule.Scheduler
	onError func(key string, err error)

	mu      sync.Mutex
	pending map[string]*pendingWrite
}

type pendingWrite struct {
	task  *schedule.Task
	write func() error
}

// New creates a debouncer. onError, if non-nil, receives failures from
// writes that ran off a timer.
func New(sched *schedule.Scheduler, onError func(key string, err error)) *Debouncer {
	return &Debouncer{
		sched:   sched,
		onError: onError,
		pending: make(map[string]*pendingWrite),
	}
}

// Schedule arranges for write to run after delay, cancelling any write still
// pending for key.
func (d *Debouncer) Schedule(key string, delay time.Duration, write func() error) {
	pw := &pendingWrite{write: write}

	d.mu.Lock()
	prev := d.pending[key]
	d.pending[key] = pw
	d.mu.Unlock()

	if prev != nil {
		prev.task.Cancel()
	}

	pw.task = d.sched.After(delay, func() {
		if err := d.take(key, pw); err != nil && d.onError != nil {
			d.onError(key, err)
		}
	})
}

// Flush runs the pending write for key immediately. It returns false if
// nothing was pending.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	pw := d.pending[key]
	d.mu.Unlock()

	if pw == nil {
		return false
	}
	pw.task.Cancel()
	if err := d.take(key, pw); err != nil && d.onError != nil {
		d.onError(key, err)
	}
	return true
}

// FlushAll runs every pending write immediately, in key order.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.mu.Unlock()

	sort.Strings(keys)
	for _, k := range keys {
		d.Flush(k)
	}
}

// WriteNow cancels any pending write for key and runs write synchronously.
func (d *Debouncer) WriteNow(key string, write func() error) error {
	d.Cancel(key)
	return write()
}

// Cancel drops the pending write for key without running it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	pw := d.pending[key]
	delete(d.pending, key)
	d.mu.Unlock()

	if pw != nil {
		pw.task.Cancel()
	}
}

// Pending reports whether a write is waiting for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// take removes pw from the pending set, if it is still current, and runs it.
func (d *Debouncer) take(key string, pw *pendingWrite) error {
	d.mu.Lock()
	if d.pending[key] != pw {
		d.mu.Unlock()
		return nil
	}
	delete(d.pending, key)
	d.mu.Unlock()

	return pw.write()
}
