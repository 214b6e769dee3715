// Package preferences holds the user-editable settings of the overlay and
// persists them as YAML.
package preferences

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/quicknote/pkg/types"
	"github.com/Veraticus/quicknote/pkg/visibility"
)

// Corner is a screen corner that can act as the hot corner.
type Corner string

const (
	TopLeft     Corner = "TopLeft"
	TopRight    Corner = "TopRight"
	BottomLeft  Corner = "BottomLeft"
	BottomRight Corner = "BottomRight"
)

// Valid reports whether c names a known corner
func (c Corner) Valid() bool {
	switch c {
	case TopLeft, TopRight, BottomLeft, BottomRight:
		return true
	}
	return false
}

// Preferences is the complete user settings record.
type Preferences struct {
	ShowOnLaunch     bool   `yaml:"show_on_launch" json:"show_on_launch"`
	LaunchOnStartup  bool   `yaml:"launch_on_startup" json:"launch_on_startup"`
	HotCornerEnabled bool   `yaml:"hotcorner_enabled" json:"hotcorner_enabled"`
	HotCornerCorner  Corner `yaml:"hotcorner_corner" json:"hotcorner_corner"`
	HotCornerSize    int    `yaml:"hotcorner_size" json:"hotcorner_size"`
	ShortcutEnabled  bool   `yaml:"shortcut_enabled" json:"shortcut_enabled"`
	KeyboardShortcut string `yaml:"keyboard_shortcut" json:"keyboard_shortcut"`
	AutoFocus        bool   `yaml:"auto_focus" json:"auto_focus"`
	AutoHideEnabled  bool   `yaml:"auto_hide_enabled" json:"auto_hide_enabled"`
	AutoHideDelayMs  int    `yaml:"auto_hide_delay_ms" json:"auto_hide_delay_ms"`
	HideOnBlur       bool   `yaml:"hide_on_blur" json:"hide_on_blur"`
	FadeDurationMs   int    `yaml:"fade_duration_ms" json:"fade_duration_ms"`
	TextSize         int    `yaml:"text_size" json:"text_size"`

	// Saved window geometry. Nil until the window has been moved or resized.
	WindowX      *int `yaml:"window_x,omitempty" json:"window_x,omitempty"`
	WindowY      *int `yaml:"window_y,omitempty" json:"window_y,omitempty"`
	WindowWidth  *int `yaml:"window_width,omitempty" json:"window_width,omitempty"`
	WindowHeight *int `yaml:"window_height,omitempty" json:"window_height,omitempty"`

	Sync Sync `yaml:"sync" json:"sync"`
}

// Sync configures export of the note to other places.
type Sync struct {
	MarkdownEnabled bool   `yaml:"markdown_enabled" json:"markdown_enabled"`
	MarkdownPath    string `yaml:"markdown_path,omitempty" json:"markdown_path,omitempty"`
	IncludeMetadata bool   `yaml:"include_metadata" json:"include_metadata"`
}

// Default returns the preferences used when no file exists
func Default() Preferences {
	return Preferences{
		ShowOnLaunch:     false,
		LaunchOnStartup:  true,
		HotCornerEnabled: true,
		HotCornerCorner:  TopRight,
		HotCornerSize:    10,
		ShortcutEnabled:  true,
		KeyboardShortcut: "Alt+Command+N",
		AutoFocus:        true,
		AutoHideEnabled:  false,
		AutoHideDelayMs:  5000,
		HideOnBlur:       true,
		FadeDurationMs:   200,
		TextSize:         14,
		Sync: Sync{
			MarkdownEnabled: false,
			IncludeMetadata: true,
		},
	}
}

// Validate checks every field range
func (p Preferences) Validate() error {
	if p.HotCornerSize < 1 || p.HotCornerSize > 100 {
		return fmt.Errorf("hotcorner_size must be between 1 and 100 pixels, got %d", p.HotCornerSize)
	}
	if !p.HotCornerCorner.Valid() {
		return fmt.Errorf("hotcorner_corner %q is not one of TopLeft, TopRight, BottomLeft, BottomRight", p.HotCornerCorner)
	}
	if p.AutoHideDelayMs < 250 || p.AutoHideDelayMs > 300000 {
		return fmt.Errorf("auto_hide_delay_ms must be between 250 and 300000, got %d", p.AutoHideDelayMs)
	}
	if p.FadeDurationMs < 0 || p.FadeDurationMs > 2000 {
		return fmt.Errorf("fade_duration_ms must be between 0 and 2000, got %d", p.FadeDurationMs)
	}
	if err := ValidateShortcut(p.KeyboardShortcut); err != nil {
		return fmt.Errorf("keyboard_shortcut: %w", err)
	}
	if p.TextSize < 8 || p.TextSize > 32 {
		return fmt.Errorf("text_size must be between 8 and 32, got %d", p.TextSize)
	}
	if p.Sync.MarkdownEnabled && strings.TrimSpace(p.Sync.MarkdownPath) == "" {
		return errors.New("sync.markdown_path is required when markdown sync is enabled")
	}
	return nil
}

// AutoHideDelay returns the idle timeout as a duration
func (p Preferences) AutoHideDelay() time.Duration {
	return time.Duration(p.AutoHideDelayMs) * time.Millisecond
}

// FadeDuration returns the fade length as a duration
func (p Preferences) FadeDuration() time.Duration {
	return time.Duration(p.FadeDurationMs) * time.Millisecond
}

// Visibility returns the snapshot the visibility coordinator reads
func (p Preferences) Visibility() visibility.Prefs {
	return visibility.Prefs{
		AutoHideEnabled: p.AutoHideEnabled,
		AutoHideDelay:   p.AutoHideDelay(),
		AutoFocus:       p.AutoFocus,
		HideOnBlur:      p.HideOnBlur,
		FadeDuration:    p.FadeDuration(),
	}
}

// SavedBounds returns the saved window geometry. ok is false unless the
// position and size have all been saved.
func (p Preferences) SavedBounds() (b types.Bounds, ok bool) {
	if p.WindowX == nil || p.WindowY == nil || p.WindowWidth == nil || p.WindowHeight == nil {
		return types.Bounds{}, false
	}
	return types.Bounds{X: *p.WindowX, Y: *p.WindowY, Width: *p.WindowWidth, Height: *p.WindowHeight}, true
}

// WithoutBounds returns a copy of p with the window geometry cleared
func (p Preferences) WithoutBounds() Preferences {
	p.WindowX, p.WindowY, p.WindowWidth, p.WindowHeight = nil, nil, nil, nil
	return p
}

// WithBounds returns a copy of p with the window geometry set to b
func (p Preferences) WithBounds(b types.Bounds) Preferences {
	x, y, w, h := b.X, b.Y, b.Width, b.Height
	p.WindowX, p.WindowY, p.WindowWidth, p.WindowHeight = &x, &y, &w, &h
	return p
}

var shortcutModifiers = map[string]bool{
	"alt":              true,
	"option":           true,
	"command":          true,
	"cmd":              true,
	"super":            true,
	"meta":             true,
	"ctrl":             true,
	"control":          true,
	"shift":            true,
	"commandorcontrol": true,
	"cmdorctrl":        true,
}

// ValidateShortcut checks that s looks like "Modifier+...+Key"
func ValidateShortcut(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("shortcut cannot be empty")
	}

	parts := strings.Split(s, "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Errorf("shortcut %q has an empty key", s)
		}
		isModifier := shortcutModifiers[strings.ToLower(part)]
		last := i == len(parts)-1
		if last && isModifier {
			return fmt.Errorf("shortcut %q must end with a non-modifier key", s)
		}
		if !last && !isModifier {
			return fmt.Errorf("shortcut %q: %q is not a modifier", s, part)
		}
	}
	return nil
}
