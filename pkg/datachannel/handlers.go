package datachannel

import (
	"sync"
)

// handlers is a copy-on-write list of event handlers. Handlers run in
// registration order on the thread that delivered the event.
type handlers[F any] struct {
	mu   sync.Mutex
	next uint64
	list []handler[F]
}

type handler[F any] struct {
	id uint64
	fn F
}

// add appends fn and returns a function removing it. Removing twice is a
// no-op.
func (h *handlers[F]) add(fn F) (remove func()) {
	h.mu.Lock()
	h.next++
	id := h.next
	list := make([]handler[F], len(h.list), len(h.list)+1)
	copy(list, h.list)
	h.list = append(list, handler[F]{id: id, fn: fn})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, e := range h.list {
			if e.id == id {
				list := make([]handler[F], 0, len(h.list)-1)
				list = append(list, h.list[:i]...)
				h.list = append(list, h.list[i+1:]...)
				return
			}
		}
	}
}

// each calls call with every handler registered at the time of the call.
func (h *handlers[F]) each(call func(F)) {
	h.mu.Lock()
	list := h.list
	h.mu.Unlock()
	for _, e := range list {
		call(e.fn)
	}
}

func (h *handlers[F]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.list)
}

func (h *handlers[F]) clear() {
	h.mu.Lock()
	h.list = nil
	h.mu.Unlock()
}
