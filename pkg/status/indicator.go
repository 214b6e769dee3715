// Package status renders autosave state for the terminal editor and records
// it for daemon status queries.
package status

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

// Status represents the autosave state
type Status int

const (
	StatusIdle Status = iota
	StatusSaving
	StatusSaved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
)

// Indicator draws a one-line status bar on the last terminal row
type Indicator struct {
	mu      sync.Mutex
	status  Status
	savedAt time.Time
	label   string
	width   int
	enabled bool
	writer  io.Writer
	now     func() time.Time

	refreshChan chan struct{}
}

// NewIndicator creates a new status indicator. label names the document
// being edited.
func NewIndicator(writer io.Writer, label string, enabled bool) *Indicator {
	return &Indicator{
		status:      StatusIdle,
		label:       label,
		width:       80,
		writer:      writer,
		enabled:     enabled,
		now:         time.Now,
		refreshChan: make(chan struct{}, 1),
	}
}

// SetStatus updates the current status
func (i *Indicator) SetStatus(status Status) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.status = status
	if status == StatusSaved {
		i.savedAt = i.now()
	}

	// Best effort
	_ = i.draw()
}

// Status returns the current status
func (i *Indicator) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// SetWidth sets the terminal width used for truncation.
func (i *Indicator) SetWidth(cols int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if cols > 0 {
		i.width = cols
	}
	_ = i.draw()
}

func (i *Indicator) draw() error {
	if !i.enabled || i.writer == nil {
		return nil
	}

	// \0337 save cursor, \033[r reset scroll region, \033[999;1H last line,
	// \033[2K clear it, \0338 restore cursor.
	sequence := fmt.Sprintf("\0337\033[r\033[999;1H\033[2K%s\0338", i.line())
	_, err := fmt.Fprint(i.writer, sequence)
	return err
}

// line returns the colored status text, truncated to the terminal width.
func (i *Indicator) line() string {
	var text, color string
	switch i.status {
	case StatusSaving:
		text, color = "⟳ saving", colorYellow
	case StatusSaved:
		text, color = "✓ saved "+i.savedAt.Format("15:04:05"), colorGreen
	case StatusFailed:
		text, color = "✗ save failed", colorRed
	default:
		text, color = "● editing", colorGray
	}
	if i.label != "" {
		text = i.label + "  " + text
	}

	// Leave the last column free so the terminal does not wrap
	text = runewidth.Truncate(text, i.width-1, "…")
	return color + text + colorReset
}

// Clear removes the status line
func (i *Indicator) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled || i.writer == nil {
		return nil
	}

	_, err := fmt.Fprint(i.writer, "\0337\033[999;1H\033[2K\0338")
	return err
}

// StartAutoRefresh redraws periodically and whenever a refresh is requested,
// until stopChan closes.
func (i *Indicator) StartAutoRefresh(stopChan <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				i.mu.Lock()
				_ = i.draw()
				i.mu.Unlock()
			case <-i.refreshChan:
				i.mu.Lock()
				_ = i.draw()
				i.mu.Unlock()
			case <-stopChan:
				_ = i.Clear()
				return
			}
		}
	}()
}

// HandleScreenClear schedules a redraw after the editor wiped the screen.
func (i *Indicator) HandleScreenClear() {
	if !i.enabled {
		return
	}
	select {
	case i.refreshChan <- struct{}{}:
	default:
	}
}
