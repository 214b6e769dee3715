package status

import (
	"bytes"
	"sync"
	"testing"
)

// syncBuffer is a bytes.Buffer safe for the refresh goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReporter(t *testing.T) {
	buf := &bytes.Buffer{}
	indicator := NewIndicator(buf, "", true)
	reporter := NewReporter(indicator)

	reporter.ReportSaving()
	if indicator.Status() != StatusSaving {
		t.Errorf("expected status to be StatusSaving, got %v", indicator.Status())
	}

	reporter.ReportSaved()
	if indicator.Status() != StatusSaved {
		t.Errorf("expected status to be StatusSaved, got %v", indicator.Status())
	}

	reporter.ReportFailure()
	if indicator.Status() != StatusFailed {
		t.Errorf("expected status to be StatusFailed, got %v", indicator.Status())
	}
}

func TestReporterWithNilIndicator(t *testing.T) {
	reporter := NewReporter(nil)

	// Should not panic
	reporter.ReportSaving()
	reporter.ReportSaved()
	reporter.ReportFailure()
}

func TestRecorder(t *testing.T) {
	var r Recorder
	if r.Status() != StatusIdle {
		t.Errorf("zero Recorder status = %v, want idle", r.Status())
	}
	r.ReportSaving()
	if r.Status() != StatusSaving {
		t.Errorf("status = %v, want saving", r.Status())
	}
	r.ReportSaved()
	if r.Status() != StatusSaved {
		t.Errorf("status = %v, want saved", r.Status())
	}
	r.ReportFailure()
	if r.Status() != StatusFailed {
		t.Errorf("status = %v, want failed", r.Status())
	}
}
