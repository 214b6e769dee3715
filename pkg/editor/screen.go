package editor

import "bytes"

// ScreenClearHandler is notified when editor output wipes the screen
type ScreenClearHandler interface {
	HandleScreenClear()
}

// Escape sequences that erase the status line
var screenClearSequences = [][]byte{
	[]byte("\033[2J"),     // Clear entire screen
	[]byte("\033[3J"),     // Clear screen and scrollback
	[]byte("\033[0J"),     // Clear to end of screen
	[]byte("\033[J"),      // Same, parameter omitted
	[]byte("\033c"),       // Reset terminal
	[]byte("\033[?1049h"), // Enter alternate screen
	[]byte("\033[?1049l"), // Leave alternate screen
}

// Bytes kept between chunks so a split sequence is still found
const carryLen = 7

// ScreenClearDetector watches editor output for screen clears so the status
// line can be redrawn.
type ScreenClearDetector struct {
	handler ScreenClearHandler
	buffer  []byte
}

// NewScreenClearDetector creates a detector reporting to handler
func NewScreenClearDetector(handler ScreenClearHandler) *ScreenClearDetector {
	return &ScreenClearDetector{
		handler: handler,
		buffer:  make([]byte, 0, 256),
	}
}

// Observe scans one output chunk. It notifies at most once per chunk.
func (d *ScreenClearDetector) Observe(data []byte) {
	if d.handler == nil {
		return
	}

	d.buffer = append(d.buffer, data...)

	found := -1
	for _, seq := range screenClearSequences {
		if i := bytes.LastIndex(d.buffer, seq); i >= 0 && i+len(seq) > found {
			found = i + len(seq)
		}
	}

	if found >= 0 {
		d.handler.HandleScreenClear()
		d.buffer = append(d.buffer[:0], d.buffer[found:]...)
	}

	if len(d.buffer) > carryLen {
		d.buffer = append(d.buffer[:0], d.buffer[len(d.buffer)-carryLen:]...)
	}
}
