// Package note stores the single overlay note and exports it to Markdown.
package note

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the note file name inside the data directory.
const FileName = "note.html"

// Welcome is the note shown before anything has been saved.
const Welcome = `<h1>Welcome to quicknote!</h1>` +
	`<p>A minimal, always-accessible sticky note.</p>` +
	`<h2>Quick Start</h2><ul>` +
	`<li><p><strong>Show/Hide:</strong> Use the keyboard shortcut or move the pointer into the hot corner</p></li>` +
	`<li><p><strong>Formatting:</strong> Click the text icon in the top-left to reveal styling options</p></li>` +
	`<li><p><strong>Settings:</strong> Edit preferences.yaml; changes apply immediately</p></li></ul>` +
	`<h2>Features</h2><ul data-type="taskList">` +
	`<li data-checked="false"><label><input type="checkbox"></label><div><p>Auto-save - your notes are saved as you type</p></div></li>` +
	`<li data-checked="false"><label><input type="checkbox"></label><div><p>Rich formatting - bold, italic, lists, headings, and more</p></div></li>` +
	`<li data-checked="false"><label><input type="checkbox"></label><div><p>Drag to reposition, resize from edges</p></div></li>` +
	`<li data-checked="false"><label><input type="checkbox"></label><div><p>Click away to hide (customizable in settings)</p></div></li></ul>` +
	`<p><em>Delete this text and start writing your notes!</em></p>`

// Store reads and writes the note file.
type Store struct {
	path string
}

// NewStore creates a store for the note in dataDir.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, FileName)}
}

// Path returns the note file path
func (s *Store) Path() string {
	return s.path
}

// Read returns the saved note, or the welcome note if none was saved yet.
func (s *Store) Read() (string, error) {
	// #nosec G304 - path is derived from the configured data directory
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Welcome, nil
		}
		return "", fmt.Errorf("failed to read note: %w", err)
	}
	return string(data), nil
}

// Write replaces the saved note.
func (s *Store) Write(content string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write note: %w", err)
	}
	return nil
}
