package preferences

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileName is the preferences file name inside the config directory.
const FileName = "preferences.yaml"

// reloadDebounce coalesces the burst of events editors produce on save.
const reloadDebounce = 100 * time.Millisecond

// Store keeps the current preferences in memory and on disk. Listeners are
// called on the goroutine that caused the change.
type Store struct {
	path string

	mu        sync.RWMutex
	prefs     Preferences
	nextID    int
	listeners []listener
}

type listener struct {
	id int
	fn func(Preferences)
}

// Open loads preferences from path. A missing file yields defaults.
func Open(path string) (*Store, error) {
	prefs, err := load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, prefs: prefs}, nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Get returns the current preferences
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Update validates and persists p, then notifies listeners.
func (s *Store) Update(p Preferences) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}
	if err := save(s.path, p); err != nil {
		return err
	}

	s.mu.Lock()
	changed := !reflect.DeepEqual(s.prefs, p)
	s.prefs = p
	s.mu.Unlock()

	if changed {
		s.notify(p)
	}
	return nil
}

// Reload re-reads the file and notifies listeners if its content differs
// from the current preferences. It reports whether anything changed.
func (s *Store) Reload() (bool, error) {
	p, err := load(s.path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if reflect.DeepEqual(s.prefs, p) {
		s.mu.Unlock()
		return false, nil
	}
	s.prefs = p
	s.mu.Unlock()

	s.notify(p)
	return true, nil
}

// OnChange registers fn to receive each new snapshot. The returned function
// unregisters it.
func (s *Store) OnChange(fn func(Preferences)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Watch reloads the store whenever the file changes on disk, until ctx is
// done. Reload failures are passed to onErr and the previous preferences
// stay in effect.
func (s *Store) Watch(ctx context.Context, onErr func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	// Watch the directory so atomic renames are seen.
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	report := func(err error) {
		if onErr != nil {
			onErr(err)
		}
	}

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		defer func() {
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
		}()

		name := filepath.Base(s.path)
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(reloadDebounce, func() {
					if _, err := s.Reload(); err != nil {
						report(err)
					}
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				report(fmt.Errorf("preferences watcher: %w", err))
			}
		}
	}()

	return nil
}

func (s *Store) notify(p Preferences) {
	s.mu.RLock()
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l.fn(p)
	}
}

func load(path string) (Preferences, error) {
	prefs := Default()

	// #nosec G304 - path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return Preferences{}, fmt.Errorf("failed to read preferences file: %w", err)
	}

	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("failed to parse preferences: %w", err)
	}
	if err := prefs.Validate(); err != nil {
		return Preferences{}, fmt.Errorf("invalid preferences in %s: %w", path, err)
	}
	return prefs, nil
}

func save(path string, p Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize preferences: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}
