// Package window places the overlay window and drives it on the remote host.
package window

import "github.com/Veraticus/quicknote/pkg/types"

// Padding separates a freshly placed window from the screen edges.
const Padding = 20

// DefaultSize is used when neither saved nor current geometry is known.
var DefaultSize = types.Bounds{Width: 400, Height: 500}

// Place chooses where to show the window. Saved geometry is restored when its
// origin lies on any monitor; otherwise the window goes to the top-right of
// the primary monitor, keeping size.
func Place(saved types.Bounds, hasSaved bool, size types.Bounds, monitors []types.Monitor) types.Bounds {
	if hasSaved && !saved.Empty() && onScreen(saved.X, saved.Y, monitors) {
		return saved
	}

	if size.Empty() {
		if hasSaved && !saved.Empty() {
			size = saved
		} else {
			size = DefaultSize
		}
	}

	screen := primary(monitors)
	return types.Bounds{
		X:      screen.X + screen.Width - size.Width - Padding,
		Y:      screen.Y + Padding,
		Width:  size.Width,
		Height: size.Height,
	}
}

func onScreen(x, y int, monitors []types.Monitor) bool {
	for _, m := range monitors {
		if m.Bounds.Contains(x, y) {
			return true
		}
	}
	return false
}

// primary returns the primary monitor, the first monitor when none is
// flagged, or a 1920x1080 screen when the host reported nothing.
func primary(monitors []types.Monitor) types.Bounds {
	for _, m := range monitors {
		if m.Primary {
			return m.Bounds
		}
	}
	if len(monitors) > 0 {
		return monitors[0].Bounds
	}
	return types.Bounds{Width: 1920, Height: 1080}
}
