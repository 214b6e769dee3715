package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoopRunsJobsInOrder(t *testing.T) {
	loop := NewLoop(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		loop.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}

	if err := loop.Do(ctx, func() {}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 10 {
		t.Fatalf("ran %d jobs, want 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Errorf("job %d ran as %d", i, v)
		}
	}
}

func TestLoopStop(t *testing.T) {
	loop := NewLoop(1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	if loop.Post(func() {}) {
		t.Error("Post after Stop should return false")
	}
	if err := loop.Do(ctx, func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Do() after Stop error = %v, want ErrStopped", err)
	}

	// Stop is idempotent
	loop.Stop()
}

func TestLoopContextCancel(t *testing.T) {
	loop := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	select {
	case <-loop.Done():
	default:
		t.Error("Done() not closed after Run returned")
	}
}

func TestInline(t *testing.T) {
	ran := false
	if !(Inline{}).Post(func() { ran = true }) {
		t.Error("Inline.Post returned false")
	}
	if !ran {
		t.Error("Inline.Post did not run the function")
	}
}
