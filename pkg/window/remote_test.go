package window

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/quicknote/pkg/daemon"
	"github.com/Veraticus/quicknote/pkg/types"
)

type sent struct {
	t       daemon.MessageType
	payload any
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sent
}

func (f *fakeSender) SendHost(t daemon.MessageType, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{t: t, payload: payload})
	return nil
}

func (f *fakeSender) kinds() []daemon.MessageType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]daemon.MessageType, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.t
	}
	return out
}

func TestRemoteCommands(t *testing.T) {
	sender := &fakeSender{}
	r := NewRemote(sender, nil)

	if _, err := r.Bounds(); !errors.Is(err, ErrNoBounds) {
		t.Fatalf("Bounds() before show error = %v, want ErrNoBounds", err)
	}

	b := types.Bounds{X: 10, Y: 20, Width: 300, Height: 200}
	if err := r.Show(b); err != nil {
		t.Fatal(err)
	}
	r.SetTransition(200 * time.Millisecond)
	r.SetOpacity(0)
	if err := r.Focus(); err != nil {
		t.Fatal(err)
	}
	if err := r.Hide(); err != nil {
		t.Fatal(err)
	}

	want := []daemon.MessageType{
		daemon.MsgShow, daemon.MsgSetTransition, daemon.MsgSetOpacity,
		daemon.MsgFocusEditor, daemon.MsgHide,
	}
	got := sender.kinds()
	if len(got) != len(want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sent[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if p := sender.sent[1].payload.(daemon.TransitionPayload); p.DurationMS != 200 {
		t.Errorf("transition = %dms, want 200ms", p.DurationMS)
	}
	if got, err := r.Bounds(); err != nil || got != b {
		t.Errorf("Bounds() = %+v, %v; want %+v", got, err, b)
	}
	if r.Visible() {
		t.Error("Visible() = true after Hide")
	}
}

func TestRemoteSendFailure(t *testing.T) {
	sender := &fakeSender{err: daemon.ErrNoHost}
	r := NewRemote(sender, nil)

	if err := r.Show(types.Bounds{Width: 1, Height: 1}); !errors.Is(err, daemon.ErrNoHost) {
		t.Errorf("Show() error = %v, want ErrNoHost", err)
	}
	if r.Visible() {
		t.Error("Visible() = true after failed show")
	}
	if err := r.Hide(); !errors.Is(err, daemon.ErrNoHost) {
		t.Errorf("Hide() error = %v, want ErrNoHost", err)
	}

	// Surface commands swallow errors
	r.SetOpacity(1)
	r.SetTransition(0)
}

func TestRemoteObservations(t *testing.T) {
	r := NewRemote(&fakeSender{}, nil)

	r.ObserveBounds(types.Bounds{X: 5, Width: 10, Height: 10})
	r.ObserveVisibility(true)
	monitors := []types.Monitor{{Name: "eDP-1", Bounds: types.Bounds{Width: 1920, Height: 1080}, Primary: true}}
	r.ObserveMonitors(monitors)
	monitors[0].Name = "mutated"

	if b, err := r.Bounds(); err != nil || b.X != 5 {
		t.Errorf("Bounds() = %+v, %v", b, err)
	}
	if !r.Visible() {
		t.Error("Visible() = false after observed show")
	}
	if got := r.Monitors(); len(got) != 1 || got[0].Name != "eDP-1" {
		t.Errorf("Monitors() = %+v", got)
	}

	r.Detach()
	if r.Visible() || len(r.Monitors()) != 0 {
		t.Error("Detach did not clear host state")
	}
	if _, err := r.Bounds(); err != nil {
		t.Error("Detach should keep last bounds for geometry saves")
	}
}
