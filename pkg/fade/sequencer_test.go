package fade

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Veraticus/quicknote/pkg/schedule"
	"github.com/Veraticus/quicknote/pkg/testutil"
	"github.com/Veraticus/quicknote/pkg/types"
)

func newTestSequencer() (*Sequencer, *testutil.MockOverlay, *testutil.ManualClock) {
	c := testutil.NewManualClock(time.Time{})
	overlay := testutil.NewMockOverlay()
	return New(schedule.NewScheduler(c, schedule.Inline{}), overlay, overlay), overlay, c
}

func TestFadeOutThenHide(t *testing.T) {
	s, overlay, c := newTestSequencer()
	var doneErr error
	doneCalls := 0

	if !s.FadeOutThenHide(200*time.Millisecond, func(err error) { doneCalls++; doneErr = err }) {
		t.Fatal("FadeOutThenHide() = false on idle sequencer")
	}
	if !s.Fading() {
		t.Fatal("Fading() = false during fade")
	}
	if overlay.GetHideCount() != 0 {
		t.Fatal("window hidden before the fade elapsed")
	}

	c.Advance(200 * time.Millisecond)

	want := []string{"transition:200ms", "opacity:0", "hide", "transition:0s", "opacity:1"}
	if got := overlay.GetCalls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if s.Fading() {
		t.Error("Fading() = true after completion")
	}
	if doneCalls != 1 || doneErr != nil {
		t.Errorf("done called %d times with %v, want once with nil", doneCalls, doneErr)
	}
}

func TestFadeIsNotReentrant(t *testing.T) {
	s, overlay, c := newTestSequencer()

	first := s.FadeOutThenHide(200*time.Millisecond, nil)
	c.Advance(50 * time.Millisecond)
	second := s.FadeOutThenHide(200*time.Millisecond, nil)

	if !first || second {
		t.Fatalf("FadeOutThenHide results = %v, %v; want true, false", first, second)
	}

	c.Advance(time.Second)

	if overlay.GetHideCount() != 1 {
		t.Errorf("hide count = %d, want 1", overlay.GetHideCount())
	}
	restores := 0
	for _, call := range overlay.GetCalls() {
		if call == "opacity:1" {
			restores++
		}
	}
	if restores != 1 {
		t.Errorf("resting opacity restored %d times, want 1", restores)
	}
}

func TestHideInstant(t *testing.T) {
	s, overlay, _ := newTestSequencer()

	if err := s.HideInstant(); err != nil {
		t.Fatalf("HideInstant() error = %v", err)
	}

	want := []string{"transition:0s", "opacity:1", "hide"}
	if got := overlay.GetCalls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestHideInstantPreemptsFade(t *testing.T) {
	s, overlay, c := newTestSequencer()
	doneCalls := 0
	s.FadeOutThenHide(200*time.Millisecond, func(error) { doneCalls++ })

	c.Advance(100 * time.Millisecond)
	if err := s.HideInstant(); err != nil {
		t.Fatalf("HideInstant() error = %v", err)
	}
	if s.Fading() {
		t.Error("Fading() = true after preemption")
	}

	c.Advance(time.Second)

	if overlay.GetHideCount() != 1 {
		t.Errorf("hide count = %d, want 1", overlay.GetHideCount())
	}
	if doneCalls != 0 {
		t.Errorf("preempted fade called done %d times", doneCalls)
	}
	if overlay.GetOpacity() != RestingOpacity {
		t.Errorf("opacity = %v, want %v", overlay.GetOpacity(), RestingOpacity)
	}
	if !s.FadeOutThenHide(100*time.Millisecond, nil) {
		t.Error("new fade refused after preemption")
	}
}

func TestFadeHideFailure(t *testing.T) {
	s, overlay, c := newTestSequencer()
	hideErr := errors.New("window handle lost")
	overlay.SetHideError(hideErr)

	var doneErr error
	s.FadeOutThenHide(100*time.Millisecond, func(err error) { doneErr = err })
	c.Advance(100 * time.Millisecond)

	if !errors.Is(doneErr, hideErr) {
		t.Errorf("done error = %v, want %v", doneErr, hideErr)
	}
	if s.Fading() {
		t.Error("failed fade left sequencer fading")
	}
	if overlay.GetOpacity() != RestingOpacity {
		t.Errorf("opacity = %v after failed hide, want resting", overlay.GetOpacity())
	}
}

func TestRepeatedCyclesLeaveRestingOpacity(t *testing.T) {
	s, overlay, c := newTestSequencer()

	for i := 0; i < 5; i++ {
		if err := overlay.Show(types.Bounds{Width: 400, Height: 300}); err != nil {
			t.Fatal(err)
		}
		if i%2 == 0 {
			s.FadeOutThenHide(200*time.Millisecond, nil)
			c.Advance(200 * time.Millisecond)
		} else {
			if err := s.HideInstant(); err != nil {
				t.Fatal(err)
			}
		}

		if overlay.GetOpacity() != RestingOpacity {
			t.Fatalf("cycle %d left opacity %v", i, overlay.GetOpacity())
		}
		if overlay.GetTransition() != 0 {
			t.Fatalf("cycle %d left transition %v", i, overlay.GetTransition())
		}
	}
}

func TestNilCollaborators(t *testing.T) {
	c := testutil.NewManualClock(time.Time{})
	s := New(schedule.NewScheduler(c, schedule.Inline{}), nil, nil)

	var doneErr error = errors.New("unset")
	s.FadeOutThenHide(10*time.Millisecond, func(err error) { doneErr = err })
	c.Advance(10 * time.Millisecond)

	if doneErr != nil {
		t.Errorf("done error = %v, want nil", doneErr)
	}
	if err := s.HideInstant(); err != nil {
		t.Errorf("HideInstant() error = %v", err)
	}
}

func TestCancelRestoresWithoutHiding(t *testing.T) {
	s, overlay, c := newTestSequencer()
	doneCalls := 0
	s.FadeOutThenHide(200*time.Millisecond, func(error) { doneCalls++ })

	c.Advance(50 * time.Millisecond)
	if !s.Cancel() {
		t.Fatal("Cancel() = false during fade")
	}
	if s.Cancel() {
		t.Error("second Cancel() = true")
	}

	c.Advance(time.Second)
	if overlay.GetHideCount() != 0 {
		t.Errorf("cancelled fade hid the window %d times", overlay.GetHideCount())
	}
	if doneCalls != 0 {
		t.Errorf("cancelled fade called done %d times", doneCalls)
	}
	if overlay.GetOpacity() != RestingOpacity || overlay.GetTransition() != 0 {
		t.Errorf("opacity=%v transition=%v after cancel", overlay.GetOpacity(), overlay.GetTransition())
	}
}
