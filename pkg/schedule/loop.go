// Package schedule provides the single-threaded event loop the overlay core
// runs on, and cancellable tasks whose bodies always execute on that loop.
package schedule

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned when work is posted to a loop that has stopped.
var ErrStopped = errors.New("event loop stopped")

// Executor runs posted functions. Implementations must run functions in the
// order they were posted and never concurrently with each other.
type Executor interface {
	Post(fn func()) bool
}

// Loop is an Executor backed by a single goroutine.
type Loop struct {
	jobs     chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// Ensure Loop implements Executor
var _ Executor = (*Loop)(nil)

// NewLoop creates a loop whose queue holds up to buffer pending jobs before
// Post blocks.
func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 1
	}
	return &Loop{
		jobs: make(chan func(), buffer),
		done: make(chan struct{}),
	}
}

// Run executes posted jobs until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.jobs:
			fn()
		}
	}
}

// Post queues fn for execution. It returns false if the loop has stopped.
// Post must not be called from a job running on the same loop when the
// queue may be full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.jobs <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do posts fn and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Stop terminates Run. Jobs still queued are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Inline runs posted functions immediately on the caller's goroutine.
type Inline struct{}

// Post runs fn.
func (Inline) Post(fn func()) bool {
	fn()
	return true
}
