package status

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
)

func TestNewIndicator(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, "note.html", true)

	if indicator.Status() != StatusIdle {
		t.Errorf("expected initial status to be StatusIdle, got %v", indicator.Status())
	}
	if indicator.writer != buf {
		t.Errorf("expected writer to be set")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output before first status, got %q", buf.String())
	}
}

func TestIndicatorSetStatus(t *testing.T) {
	saved := time.Date(2024, 1, 1, 9, 30, 15, 0, time.UTC)

	tests := []struct {
		name           string
		status         Status
		expectedOutput string
		enabled        bool
	}{
		{
			name:           "saving status",
			status:         StatusSaving,
			expectedOutput: "⟳ saving",
			enabled:        true,
		},
		{
			name:           "saved status shows time",
			status:         StatusSaved,
			expectedOutput: "✓ saved 09:30:15",
			enabled:        true,
		},
		{
			name:           "failed status",
			status:         StatusFailed,
			expectedOutput: "✗ save failed",
			enabled:        true,
		},
		{
			name:           "idle status",
			status:         StatusIdle,
			expectedOutput: "● editing",
			enabled:        true,
		},
		{
			name:    "disabled indicator shows nothing",
			status:  StatusSaved,
			enabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			indicator := NewIndicator(buf, "note.html", tt.enabled)
			indicator.now = func() time.Time { return saved }

			indicator.SetStatus(tt.status)

			output := buf.String()
			if !tt.enabled {
				if output != "" {
					t.Errorf("expected no output for disabled indicator, got %q", output)
				}
				return
			}
			if !strings.Contains(output, tt.expectedOutput) {
				t.Errorf("expected output to contain %q, got %q", tt.expectedOutput, output)
			}
			if !strings.Contains(output, "note.html") {
				t.Errorf("expected output to contain the label, got %q", output)
			}
			if !strings.HasPrefix(output, "\0337") || !strings.HasSuffix(output, "\0338") {
				t.Errorf("expected cursor save/restore around status, got %q", output)
			}
		})
	}
}

func TestIndicatorTruncatesToWidth(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, "ノート-with-a-very-long-wide-label.html", true)
	indicator.SetWidth(20)

	indicator.mu.Lock()
	line := indicator.line()
	indicator.mu.Unlock()

	plain := strings.TrimSuffix(strings.TrimPrefix(line, colorGray), colorReset)
	if w := runewidth.StringWidth(plain); w > 19 {
		t.Errorf("status width = %d, want at most 19 (%q)", w, plain)
	}
	if !strings.HasSuffix(plain, "…") {
		t.Errorf("expected truncation marker, got %q", plain)
	}
}

func TestIndicatorClear(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, "", true)

	if err := indicator.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "\0337\033[999;1H\033[2K\0338" {
		t.Errorf("Clear() wrote %q", got)
	}
}

func TestIndicatorAutoRefreshRedrawsOnScreenClear(t *testing.T) {
	buf := &syncBuffer{}
	indicator := NewIndicator(buf, "note", true)

	stop := make(chan struct{})
	indicator.StartAutoRefresh(stop)

	indicator.HandleScreenClear()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "● editing") {
		if time.Now().After(deadline) {
			t.Fatal("indicator did not redraw after screen clear")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(stop)
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusIdle:   "idle",
		StatusSaving: "saving",
		StatusSaved:  "saved",
		StatusFailed: "failed",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}
