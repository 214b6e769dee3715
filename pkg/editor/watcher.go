package editor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reports new contents of one file. It watches the parent
// directory so editors that save by renaming a temp file are seen.
type FileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	last    []byte
	logger  *slog.Logger
}

// NewFileWatcher starts watching path. initial is the content already known,
// so a write that leaves the file unchanged is not reported.
func NewFileWatcher(path string, initial []byte, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{
		path:    abs,
		watcher: w,
		last:    append([]byte(nil), initial...),
		logger:  logger.With("component", "scratch-watcher"),
	}, nil
}

// Run delivers changed contents to onChange until ctx is done, then closes
// the watcher.
func (f *FileWatcher) Run(ctx context.Context, onChange func([]byte)) error {
	defer func() { _ = f.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			f.check(onChange)
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watch error", "error", err)
		}
	}
}

func (f *FileWatcher) check(onChange func([]byte)) {
	// #nosec G304 - the scratch path is created by this process
	data, err := os.ReadFile(f.path)
	if err != nil {
		// Mid-rename; the Create that follows carries the content
		f.logger.Debug("scratch file unreadable", "error", err)
		return
	}
	if bytes.Equal(data, f.last) {
		return
	}
	f.last = data
	onChange(data)
}
