package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/quicknote/pkg/clock"
	"github.com/Veraticus/quicknote/pkg/testutil"
)

func TestSchedulerAfter(t *testing.T) {
	c := testutil.NewManualClock(time.Time{})
	s := NewScheduler(c, Inline{})

	ran := 0
	task := s.After(500*time.Millisecond, func() { ran++ })
	if !task.Pending() {
		t.Fatal("new task should be pending")
	}

	c.Advance(499 * time.Millisecond)
	if ran != 0 {
		t.Fatal("task ran early")
	}

	c.Advance(time.Millisecond)
	if ran != 1 {
		t.Fatalf("task ran %d times, want 1", ran)
	}
	if task.Pending() {
		t.Error("finished task should not be pending")
	}
}

func TestTaskCancel(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(c *testutil.ManualClock, task *Task)
	}{
		{
			name: "cancel before deadline",
			cancel: func(c *testutil.ManualClock, task *Task) {
				c.Advance(100 * time.Millisecond)
				task.Cancel()
			},
		},
		{
			name: "cancel twice",
			cancel: func(c *testutil.ManualClock, task *Task) {
				task.Cancel()
				task.Cancel()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testutil.NewManualClock(time.Time{})
			s := NewScheduler(c, Inline{})
			ran := false
			task := s.After(200*time.Millisecond, func() { ran = true })

			tt.cancel(c, task)
			c.Advance(time.Second)

			if ran {
				t.Error("cancelled task ran")
			}
			if task.Pending() {
				t.Error("cancelled task reports pending")
			}
		})
	}
}

func TestNilTask(t *testing.T) {
	var task *Task
	task.Cancel()
	if task.Pending() {
		t.Error("nil task should not be pending")
	}
}

// queuedExecutor holds posted jobs until drained, modelling a busy loop.
type queuedExecutor struct {
	jobs []func()
}

func (q *queuedExecutor) Post(fn func()) bool {
	q.jobs = append(q.jobs, fn)
	return true
}

func (q *queuedExecutor) drain() {
	for len(q.jobs) > 0 {
		fn := q.jobs[0]
		q.jobs = q.jobs[1:]
		fn()
	}
}

func TestCancelAfterTimerFiredButBeforeRun(t *testing.T) {
	c := testutil.NewManualClock(time.Time{})
	exec := &queuedExecutor{}
	s := NewScheduler(c, exec)

	ran := false
	task := s.After(100*time.Millisecond, func() { ran = true })

	// The timer fires and queues the body, but the loop has not run it yet.
	c.Advance(100 * time.Millisecond)
	if len(exec.jobs) != 1 {
		t.Fatalf("expected 1 queued job, got %d", len(exec.jobs))
	}

	task.Cancel()
	exec.drain()

	if ran {
		t.Error("task cancelled while queued still ran")
	}
}

func TestSchedulerOnLoopWithRealClock(t *testing.T) {
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	s := NewScheduler(clock.Real(), loop)
	fired := make(chan struct{})
	if err := loop.Do(ctx, func() {
		s.After(10*time.Millisecond, func() { close(fired) })
	}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled task did not run")
	}
}
