package editor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.html")
	if err := os.WriteFile(path, []byte("one"), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := NewFileWatcher(path, []byte("one"), nil)
	if err != nil {
		t.Fatalf("NewFileWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string, 8)
	go func() {
		_ = w.Run(ctx, func(b []byte) { changes <- string(b) })
	}()

	// Unrelated files in the directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	// Save by rename, the way vim does
	tmp := filepath.Join(dir, ".note.html.swp")
	if err := os.WriteFile(tmp, []byte("two"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		if got != "two" {
			t.Errorf("change = %q, want %q", got, "two")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestFileWatcherSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.html")
	if err := os.WriteFile(path, []byte("same"), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := NewFileWatcher(path, []byte("same"), nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan string, 8)
	go func() {
		_ = w.Run(ctx, func(b []byte) { changes <- string(b) })
	}()

	if err := os.WriteFile(path, []byte("same"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("new"), 0600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-changes:
			if got == "same" {
				t.Fatal("unchanged content reported")
			}
			if got == "new" {
				return
			}
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
}
