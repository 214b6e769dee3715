package note

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/quicknote/pkg/preferences"
)

func TestStoreReadMissingReturnsWelcome(t *testing.T) {
	store := NewStore(t.TempDir())

	got, err := store.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != Welcome {
		t.Errorf("Read() = %q, want welcome note", got)
	}
}

func TestStoreWriteRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store := NewStore(dir)

	if err := store.Write("<p>saved</p>"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := store.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "<p>saved</p>" {
		t.Errorf("Read() = %q, want %q", got, "<p>saved</p>")
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("note permissions = %o, want 600", perm)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

type fakeExporter struct {
	err   error
	calls []string
}

func (f *fakeExporter) Export(content, path string, _ bool) error {
	f.calls = append(f.calls, path+":"+content)
	return f.err
}

func TestServiceSave(t *testing.T) {
	tests := []struct {
		name      string
		sync      preferences.Sync
		exportErr error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "export disabled",
			sync:      preferences.Sync{},
			wantCalls: 0,
		},
		{
			name:      "export enabled",
			sync:      preferences.Sync{MarkdownEnabled: true, MarkdownPath: "/tmp/x.md"},
			wantCalls: 1,
		},
		{
			name:      "export failure keeps stored note",
			sync:      preferences.Sync{MarkdownEnabled: true, MarkdownPath: "/tmp/x.md"},
			exportErr: errors.New("disk full"),
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			exporter := &fakeExporter{err: tt.exportErr}
			svc := NewService(store, exporter, func() preferences.Sync { return tt.sync }, nil)

			err := svc.Save("<p>body</p>")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Save() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, tt.exportErr) {
				t.Errorf("Save() error = %v, want wrapped %v", err, tt.exportErr)
			}
			if len(exporter.calls) != tt.wantCalls {
				t.Errorf("export calls = %d, want %d", len(exporter.calls), tt.wantCalls)
			}

			got, err := svc.Load()
			if err != nil {
				t.Fatal(err)
			}
			if got != "<p>body</p>" {
				t.Errorf("stored note = %q, want %q", got, "<p>body</p>")
			}
		})
	}
}

func TestServiceSyncExportsStoredNote(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Write("<p>stored</p>"); err != nil {
		t.Fatal(err)
	}
	exporter := &fakeExporter{}
	svc := NewService(store, exporter, func() preferences.Sync {
		return preferences.Sync{MarkdownEnabled: true, MarkdownPath: "out.md"}
	}, nil)

	if err := svc.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(exporter.calls) != 1 || exporter.calls[0] != "out.md:<p>stored</p>" {
		t.Errorf("export calls = %v", exporter.calls)
	}
}
