// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import (
	"time"

	"github.com/Veraticus/quicknote/pkg/types"
)

// IdleDetector detects user activity/inactivity.
type IdleDetector interface {
	IsUserIdle(threshold time.Duration) (bool, error)
	LastActivity() time.Time
}

// InputSource delivers user input observed in the overlay window.
type InputSource interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(types.InputEvent)) (unsubscribe func())
}

// WindowManager controls the overlay window itself.
type WindowManager interface {
	Show(at types.Bounds) error
	Hide() error
	Bounds() (types.Bounds, error)
}

// Surface controls the overlay's visual presentation.
type Surface interface {
	SetTransition(d time.Duration)
	SetOpacity(opacity float64)
}

// Editor is the rich-text editing surface inside the overlay.
type Editor interface {
	Focus() error
}

// StatusReporter reports autosave status.
type StatusReporter interface {
	ReportSaving()
	ReportSaved()
	ReportFailure()
}
