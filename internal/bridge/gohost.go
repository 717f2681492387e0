package bridge

import (
	"runtime"
	"sync"
)

// GoHost is the Host used in production. Strong references live in a table
// keyed by Ref, which is the only form the native side ever sees.
type GoHost struct {
	refMu   sync.Mutex
	nextRef Ref
	refs    map[Ref]any

	threadMu sync.Mutex
	threads  map[uint64]*ThreadContext
}

// NewGoHost returns an empty host.
func NewGoHost() *GoHost {
	return &GoHost{
		refs:    make(map[Ref]any),
		threads: make(map[uint64]*ThreadContext),
	}
}

func (h *GoHost) NewGlobalRef(obj any) (Ref, error) {
	h.refMu.Lock()
	defer h.refMu.Unlock()
	h.nextRef++
	h.refs[h.nextRef] = obj
	return h.nextRef, nil
}

func (h *GoHost) DeleteGlobalRef(ref Ref) {
	h.refMu.Lock()
	delete(h.refs, ref)
	h.refMu.Unlock()
}

func (h *GoHost) Deref(ref Ref) (any, bool) {
	h.refMu.Lock()
	defer h.refMu.Unlock()
	obj, ok := h.refs[ref]
	return obj, ok
}

// LiveRefs returns the number of outstanding strong references.
func (h *GoHost) LiveRefs() int {
	h.refMu.Lock()
	defer h.refMu.Unlock()
	return len(h.refs)
}

func (h *GoHost) CurrentThread() (*ThreadContext, bool) {
	id, ok := currentThreadID()
	if !ok {
		return nil, false
	}
	h.threadMu.Lock()
	defer h.threadMu.Unlock()
	tc, ok := h.threads[id]
	return tc, ok
}

// AttachCurrentThreadAsDaemon pins the calling goroutine to its OS thread
// until DetachCurrentThread. Threads whose id cannot be determined get a
// context that is never found again by CurrentThread.
func (h *GoHost) AttachCurrentThreadAsDaemon() (*ThreadContext, error) {
	runtime.LockOSThread()
	id, ok := currentThreadID()
	tc := NewThreadContext(id)
	if ok {
		h.threadMu.Lock()
		h.threads[id] = tc
		h.threadMu.Unlock()
	}
	return tc, nil
}

func (h *GoHost) DetachCurrentThread(tc *ThreadContext) error {
	if tc != nil && tc.ID != 0 {
		h.threadMu.Lock()
		if h.threads[tc.ID] == tc {
			delete(h.threads, tc.ID)
		}
		h.threadMu.Unlock()
	}
	runtime.UnlockOSThread()
	return nil
}

// AttachedThreads returns the number of currently attached threads.
func (h *GoHost) AttachedThreads() int {
	h.threadMu.Lock()
	defer h.threadMu.Unlock()
	return len(h.threads)
}
