package idle

import (
	"sync"

	"github.com/Veraticus/quicknote/pkg/interfaces"
	"github.com/Veraticus/quicknote/pkg/types"
)

// Hub fans input events out to every subscriber in subscription order.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	handlers []hubHandler
}

type hubHandler struct {
	id int
	fn func(types.InputEvent)
}

// Ensure Hub implements InputSource
var _ interfaces.InputSource = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers fn. The returned function removes it and may be called
// more than once.
func (h *Hub) Subscribe(fn func(types.InputEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.handlers = append(h.handlers, hubHandler{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, hd := range h.handlers {
			if hd.id == id {
				h.handlers = append(h.handlers[:i], h.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to all current subscribers. Handlers run without the
// hub's lock held.
func (h *Hub) Publish(ev types.InputEvent) {
	h.mu.Lock()
	handlers := make([]hubHandler, len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.Unlock()

	for _, hd := range handlers {
		hd.fn(ev)
	}
}

// Subscribers returns the number of registered handlers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers)
}
