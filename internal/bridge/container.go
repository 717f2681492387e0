package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Container binds one native handle to a strong reference on its listener.
// The engine only ever stores Ptr(), a table id, in the handle's user-data
// slot.
type Container struct {
	rt     *Runtime
	handle int32
	ref    Ref
	id     uintptr

	destroyed atomic.Bool
}

// NewContainer reserves a table slot and takes a strong reference on
// listener. When the slot cannot be reserved no reference is taken.
func NewContainer(rt *Runtime, handle int32, listener Listener) (*Container, error) {
	if rt == nil {
		return nil, ErrUnavailable
	}
	id, err := rt.containers.reserve()
	if err != nil {
		return nil, fmt.Errorf("bridge: container for handle %d: %w", handle, err)
	}
	ref, err := rt.host.NewGlobalRef(listener)
	if err != nil {
		rt.containers.release(id)
		return nil, fmt.Errorf("bridge: global ref for handle %d: %w: %w", handle, ErrAllocation, err)
	}
	c := &Container{rt: rt, handle: handle, ref: ref, id: id}
	rt.containers.fill(id, c)
	return c, nil
}

// Handle returns the handle that owns the container.
func (c *Container) Handle() int32 {
	return c.handle
}

// Ptr returns the user-data value identifying the container.
func (c *Container) Ptr() uintptr {
	return c.id
}

// Listener dereferences the strong reference.
func (c *Container) Listener() (Listener, bool) {
	obj, ok := c.rt.host.Deref(c.ref)
	if !ok {
		return nil, false
	}
	l, ok := obj.(Listener)
	return l, ok
}

// Destroy releases the strong reference, then the table slot. Containers
// have a single owner; a second call is logged and ignored.
func (c *Container) Destroy() {
	if !c.destroyed.CompareAndSwap(false, true) {
		Logger().Warn("container destroyed twice", zap.Int32("handle", c.handle))
		return
	}
	c.rt.host.DeleteGlobalRef(c.ref)
	c.rt.containers.release(c.id)
}

// Lookup resolves a user-data value. It returns nil for zero, unknown or
// destroyed containers.
func (rt *Runtime) Lookup(ptr uintptr) *Container {
	if rt == nil || ptr == 0 {
		return nil
	}
	return rt.containers.get(ptr)
}

// containerTable hands out ids that are never reused, so a stale user-data
// value can not resolve to a newer container.
type containerTable struct {
	mu    sync.RWMutex
	next  uintptr
	max   int
	slots map[uintptr]*Container
}

func newContainerTable(max int) *containerTable {
	return &containerTable{max: max, slots: make(map[uintptr]*Container)}
}

func (t *containerTable) reserve() (uintptr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.max > 0 && len(t.slots) >= t.max {
		return 0, ErrAllocation
	}
	t.next++
	t.slots[t.next] = nil
	return t.next, nil
}

func (t *containerTable) fill(id uintptr, c *Container) {
	t.mu.Lock()
	t.slots[id] = c
	t.mu.Unlock()
}

func (t *containerTable) release(id uintptr) {
	t.mu.Lock()
	delete(t.slots, id)
	t.mu.Unlock()
}

func (t *containerTable) get(id uintptr) *Container {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots[id]
}

func (t *containerTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}
