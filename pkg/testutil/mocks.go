package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/quicknote/pkg/interfaces"
	"github.com/Veraticus/quicknote/pkg/types"
)

// MockOverlay is a thread-safe mock of the overlay window. It implements
// interfaces.WindowManager, interfaces.Surface and interfaces.Editor and
// records every call in order.
type MockOverlay struct {
	mu         sync.Mutex
	calls      []string
	visible    bool
	bounds     types.Bounds
	opacity    float64
	transition time.Duration
	hideCount  int
	showCount  int
	focusCount int
	hideErr    error
	focusErr   error
}

// Ensure MockOverlay implements the overlay interfaces
var (
	_ interfaces.WindowManager = (*MockOverlay)(nil)
	_ interfaces.Surface       = (*MockOverlay)(nil)
	_ interfaces.Editor        = (*MockOverlay)(nil)
)

// NewMockOverlay creates a hidden overlay at full opacity
func NewMockOverlay() *MockOverlay {
	return &MockOverlay{opacity: 1}
}

// Show implements interfaces.WindowManager
func (m *MockOverlay) Show(at types.Bounds) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "show")
	m.showCount++
	m.visible = true
	m.bounds = at
	return nil
}

// Hide implements interfaces.WindowManager
func (m *MockOverlay) Hide() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "hide")
	m.hideCount++
	if m.hideErr != nil {
		return m.hideErr
	}
	m.visible = false
	return nil
}

// Bounds implements interfaces.WindowManager
func (m *MockOverlay) Bounds() (types.Bounds, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds, nil
}

// SetTransition implements interfaces.Surface
func (m *MockOverlay) SetTransition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf("transition:%s", d))
	m.transition = d
}

// SetOpacity implements interfaces.Surface
func (m *MockOverlay) SetOpacity(opacity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf("opacity:%g", opacity))
	m.opacity = opacity
}

// Focus implements interfaces.Editor
func (m *MockOverlay) Focus() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "focus")
	m.focusCount++
	return m.focusErr
}

// SetHideError sets the error returned by Hide
func (m *MockOverlay) SetHideError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hideErr = err
}

// SetFocusError sets the error returned by Focus
func (m *MockOverlay) SetFocusError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focusErr = err
}

// SetBounds sets the bounds reported by Bounds
func (m *MockOverlay) SetBounds(b types.Bounds) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bounds = b
}

// GetCalls returns a copy of the recorded calls
func (m *MockOverlay) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.calls))
	copy(result, m.calls)
	return result
}

// GetHideCount returns how many times Hide was called
func (m *MockOverlay) GetHideCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hideCount
}

// GetShowCount returns how many times Show was called
func (m *MockOverlay) GetShowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showCount
}

// GetFocusCount returns how many times Focus was called
func (m *MockOverlay) GetFocusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focusCount
}

// GetOpacity returns the last opacity set
func (m *MockOverlay) GetOpacity() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opacity
}

// GetTransition returns the last transition duration set
func (m *MockOverlay) GetTransition() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition
}

// IsVisible reports whether the mock window is shown
func (m *MockOverlay) IsVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// Reset clears recorded calls and counters
func (m *MockOverlay) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.hideCount = 0
	m.showCount = 0
	m.focusCount = 0
}

// MockStatusReporter is a thread-safe mock implementation of interfaces.StatusReporter
type MockStatusReporter struct {
	mu      sync.Mutex
	reports []string
}

// Ensure MockStatusReporter implements StatusReporter
var _ interfaces.StatusReporter = (*MockStatusReporter)(nil)

// NewMockStatusReporter creates a new mock status reporter
func NewMockStatusReporter() *MockStatusReporter {
	return &MockStatusReporter{}
}

// ReportSaving implements interfaces.StatusReporter
func (m *MockStatusReporter) ReportSaving() {
	m.record("saving")
}

// ReportSaved implements interfaces.StatusReporter
func (m *MockStatusReporter) ReportSaved() {
	m.record("saved")
}

// ReportFailure implements interfaces.StatusReporter
func (m *MockStatusReporter) ReportFailure() {
	m.record("failed")
}

func (m *MockStatusReporter) record(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, s)
}

// GetReports returns a copy of the recorded reports
func (m *MockStatusReporter) GetReports() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.reports))
	copy(result, m.reports)
	return result
}

// MockCommandExecutor returns canned output for external commands
type MockCommandExecutor struct {
	mu      sync.Mutex
	outputs map[string][]byte
	errs    map[string]error
	calls   []string
}

// NewMockCommandExecutor creates an executor with no canned output
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		outputs: make(map[string][]byte),
		errs:    make(map[string]error),
	}
}

// SetOutput sets the output returned for a command line like
// "xdotool getmouselocation --shell"
func (m *MockCommandExecutor) SetOutput(cmdline string, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[cmdline] = []byte(output)
}

// SetError sets the error returned for a command line
func (m *MockCommandExecutor) SetError(cmdline string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[cmdline] = err
}

// Execute has the signature of an injectable command executor
func (m *MockCommandExecutor) Execute(name string, args ...string) ([]byte, error) {
	cmdline := name
	for _, a := range args {
		cmdline += " " + a
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cmdline)
	if err, ok := m.errs[cmdline]; ok {
		return nil, err
	}
	if out, ok := m.outputs[cmdline]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("unexpected command: %s", cmdline)
}

// GetCalls returns the executed command lines
func (m *MockCommandExecutor) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.calls))
	copy(result, m.calls)
	return result
}
