package status

import (
	"sync"

	"github.com/Veraticus/quicknote/pkg/interfaces"
)

// Reporter adapts the Indicator to implement interfaces.StatusReporter
type Reporter struct {
	indicator *Indicator
}

// NewReporter creates a new status reporter
func NewReporter(indicator *Indicator) *Reporter {
	return &Reporter{
		indicator: indicator,
	}
}

var _ interfaces.StatusReporter = (*Reporter)(nil)

// ReportSaving reports that a save started
func (r *Reporter) ReportSaving() {
	if r.indicator != nil {
		r.indicator.SetStatus(StatusSaving)
	}
}

// ReportSaved reports a completed save
func (r *Reporter) ReportSaved() {
	if r.indicator != nil {
		r.indicator.SetStatus(StatusSaved)
	}
}

// ReportFailure reports that a save failed
func (r *Reporter) ReportFailure() {
	if r.indicator != nil {
		r.indicator.SetStatus(StatusFailed)
	}
}

// Recorder remembers the last reported status without drawing anything.
type Recorder struct {
	mu     sync.Mutex
	status Status
}

var _ interfaces.StatusReporter = (*Recorder)(nil)

// ReportSaving records StatusSaving
func (r *Recorder) ReportSaving() { r.set(StatusSaving) }

// ReportSaved records StatusSaved
func (r *Recorder) ReportSaved() { r.set(StatusSaved) }

// ReportFailure records StatusFailed
func (r *Recorder) ReportFailure() { r.set(StatusFailed) }

// Status returns the last recorded status
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Recorder) set(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}
