package window

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/quicknote/pkg/daemon"
	"github.com/Veraticus/quicknote/pkg/interfaces"
	"github.com/Veraticus/quicknote/pkg/types"
)

// ErrNoBounds is returned before the host has reported any geometry.
var ErrNoBounds = errors.New("window bounds unknown")

// Sender delivers a command to the overlay host
type Sender interface {
	SendHost(t daemon.MessageType, payload any) error
}

// Remote drives the overlay host over the daemon socket. It implements
// interfaces.WindowManager, interfaces.Surface and interfaces.Editor and
// caches what the host reports back.
type Remote struct {
	sender Sender
	logger *slog.Logger

	mu        sync.RWMutex
	bounds    types.Bounds
	hasBounds bool
	monitors  []types.Monitor
	visible   bool
}

var (
	_ interfaces.WindowManager = (*Remote)(nil)
	_ interfaces.Surface       = (*Remote)(nil)
	_ interfaces.Editor        = (*Remote)(nil)
)

// NewRemote creates a remote window
func NewRemote(sender Sender, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		sender: sender,
		logger: logger.With("component", "window"),
	}
}

// Show positions the window at b and shows it.
func (r *Remote) Show(b types.Bounds) error {
	if err := r.sender.SendHost(daemon.MsgShow, daemon.ShowPayload{Bounds: b}); err != nil {
		return err
	}
	r.mu.Lock()
	r.bounds, r.hasBounds = b, true
	r.visible = true
	r.mu.Unlock()
	return nil
}

// Hide hides the window.
func (r *Remote) Hide() error {
	if err := r.sender.SendHost(daemon.MsgHide, nil); err != nil {
		return err
	}
	r.mu.Lock()
	r.visible = false
	r.mu.Unlock()
	return nil
}

// Bounds returns the last known geometry.
func (r *Remote) Bounds() (types.Bounds, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasBounds {
		return types.Bounds{}, ErrNoBounds
	}
	return r.bounds, nil
}

// SetTransition sets the opacity transition. Failures are logged; the fade
// still completes on its own timer.
func (r *Remote) SetTransition(d time.Duration) {
	payload := daemon.TransitionPayload{DurationMS: d.Milliseconds()}
	if err := r.sender.SendHost(daemon.MsgSetTransition, payload); err != nil {
		r.logger.Debug("set transition failed", "error", err)
	}
}

// SetOpacity sets window opacity.
func (r *Remote) SetOpacity(o float64) {
	if err := r.sender.SendHost(daemon.MsgSetOpacity, daemon.OpacityPayload{Opacity: o}); err != nil {
		r.logger.Debug("set opacity failed", "error", err)
	}
}

// Focus moves keyboard focus into the editor.
func (r *Remote) Focus() error {
	return r.sender.SendHost(daemon.MsgFocusEditor, nil)
}

// ObserveBounds records geometry reported by the host.
func (r *Remote) ObserveBounds(b types.Bounds) {
	r.mu.Lock()
	r.bounds, r.hasBounds = b, true
	r.mu.Unlock()
}

// ObserveMonitors records the host's display layout
func (r *Remote) ObserveMonitors(m []types.Monitor) {
	r.mu.Lock()
	r.monitors = append([]types.Monitor(nil), m...)
	r.mu.Unlock()
}

// ObserveVisibility records the host's actual visibility
func (r *Remote) ObserveVisibility(visible bool) {
	r.mu.Lock()
	r.visible = visible
	r.mu.Unlock()
}

// Monitors returns the last reported display layout
func (r *Remote) Monitors() []types.Monitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.Monitor(nil), r.monitors...)
}

// Visible reports whether the window was last known to be shown
func (r *Remote) Visible() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.visible
}

// Detach forgets host state after the host disconnects.
func (r *Remote) Detach() {
	r.mu.Lock()
	r.visible = false
	r.monitors = nil
	r.mu.Unlock()
}
