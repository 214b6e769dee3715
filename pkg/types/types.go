// Package types contains shared data structures used across the application.
package types

import (
	"fmt"
	"strings"
)

// InputKind identifies a user input that counts as activity.
type InputKind int

const (
	PointerMove InputKind = iota
	PointerDown
	KeyDown
	Scroll
	TouchStart
)

var inputKindNames = map[InputKind]string{
	PointerMove: "pointer_move",
	PointerDown: "pointer_down",
	KeyDown:     "key_down",
	Scroll:      "scroll",
	TouchStart:  "touch_start",
}

// String returns the wire name of the input kind
func (k InputKind) String() string {
	if name, ok := inputKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("input(%d)", int(k))
}

// ParseInputKind converts a wire name into an InputKind
func ParseInputKind(s string) (InputKind, error) {
	for kind, name := range inputKindNames {
		if strings.EqualFold(name, s) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown input kind %q", s)
}

// InputEvent is a single user input observed inside the overlay window.
type InputEvent struct {
	Kind InputKind
	// Key is the key name for KeyDown events, e.g. "Escape".
	Key string
	// DragRegion is set when a PointerDown landed on the window's drag handle.
	DragRegion bool
}

// Trigger is an external request to bring the overlay up.
type Trigger int

const (
	TriggerHotCorner Trigger = iota
	TriggerShortcut
)

// String returns the wire name of the trigger
func (t Trigger) String() string {
	switch t {
	case TriggerHotCorner:
		return "hotcorner"
	case TriggerShortcut:
		return "shortcut"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// Bounds is a window or monitor rectangle in physical pixels.
type Bounds struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Contains reports whether the point lies inside b
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Empty reports whether b has no area
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Monitor describes one display attached to the overlay host.
type Monitor struct {
	Name    string `json:"name,omitempty"`
	Bounds  Bounds `json:"bounds"`
	Primary bool   `json:"primary,omitempty"`
}
