// Package hotcorner watches the pointer and reports when it rests in a
// screen corner.
package hotcorner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/quicknote/pkg/clock"
	"github.com/Veraticus/quicknote/pkg/preferences"
)

// Default timings
const (
	PollInterval = 50 * time.Millisecond
	EmitInterval = 100 * time.Millisecond
)

// InCorner reports whether (x, y) falls inside the size-pixel trigger zone
// of corner on a screenW x screenH screen. Zone edges are inclusive.
func InCorner(x, y int, corner preferences.Corner, size, screenW, screenH int) bool {
	switch corner {
	case preferences.TopRight:
		return x >= screenW-size && y <= size
	case preferences.TopLeft:
		return x <= size && y <= size
	case preferences.BottomRight:
		return x >= screenW-size && y >= screenH-size
	case preferences.BottomLeft:
		return x <= size && y >= screenH-size
	default:
		return false
	}
}

// Config is the detector's live configuration
type Config struct {
	Enabled bool
	Corner  preferences.Corner
	Size    int
}

// ConfigFromPreferences extracts the hot corner settings.
func ConfigFromPreferences(p preferences.Preferences) Config {
	return Config{
		Enabled: p.HotCornerEnabled,
		Corner:  p.HotCornerCorner,
		Size:    p.HotCornerSize,
	}
}

// Detector polls a Locator and calls onTrigger while the pointer stays in the
// configured corner, at most once per EmitInterval.
type Detector struct {
	locator   Locator
	clock     clock.Clock
	onTrigger func()
	logger    *slog.Logger

	PollInterval time.Duration
	EmitInterval time.Duration

	mu          sync.Mutex
	config      Config
	lastTrigger time.Time
	failing     bool
}

// NewDetector creates a detector. onTrigger runs on the polling goroutine.
func NewDetector(locator Locator, clk clock.Clock, cfg Config, onTrigger func(), logger *slog.Logger) *Detector {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		locator:      locator,
		clock:        clk,
		onTrigger:    onTrigger,
		logger:       logger.With("component", "hotcorner"),
		PollInterval: PollInterval,
		EmitInterval: EmitInterval,
		config:       cfg,
		lastTrigger:  clk.Now(),
	}
}

// UpdateConfig replaces the corner settings; the next poll uses them.
func (d *Detector) UpdateConfig(cfg Config) {
	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
}

// SetOnTrigger replaces the trigger callback.
func (d *Detector) SetOnTrigger(fn func()) {
	d.mu.Lock()
	d.onTrigger = fn
	d.mu.Unlock()
}

// Config returns the current settings
func (d *Detector) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// Run polls until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.poll()
		}
	}
}

// poll performs one detection step and reports whether it triggered.
func (d *Detector) poll() bool {
	d.mu.Lock()
	cfg := d.config
	d.mu.Unlock()

	if !cfg.Enabled {
		return false
	}

	x, y, err := d.locator.Pointer()
	if err != nil {
		d.mu.Lock()
		first := !d.failing
		d.failing = true
		d.mu.Unlock()
		if first {
			d.logger.Warn("pointer location unavailable", "error", err)
		}
		return false
	}

	w, h := d.locator.Screen()
	if !InCorner(x, y, cfg.Corner, cfg.Size, w, h) {
		d.mu.Lock()
		d.failing = false
		d.mu.Unlock()
		return false
	}

	now := d.clock.Now()
	d.mu.Lock()
	d.failing = false
	if now.Sub(d.lastTrigger) <= d.EmitInterval {
		d.mu.Unlock()
		return false
	}
	d.lastTrigger = now
	onTrigger := d.onTrigger
	d.mu.Unlock()

	if onTrigger != nil {
		onTrigger()
	}
	return true
}
