package bridge

import "sync"

// Ref is a strong reference issued by a Host. The zero Ref is invalid.
type Ref uint64

// Host is the managed side of the bridge: it keeps listener objects alive
// through strong references and tracks which native threads are attached.
type Host interface {
	NewGlobalRef(obj any) (Ref, error)
	DeleteGlobalRef(ref Ref)
	Deref(ref Ref) (any, bool)

	// CurrentThread returns the context of an already attached thread.
	CurrentThread() (*ThreadContext, bool)
	// AttachCurrentThreadAsDaemon attaches the calling thread without
	// blocking host shutdown.
	AttachCurrentThreadAsDaemon() (*ThreadContext, error)
	DetachCurrentThread(tc *ThreadContext) error
}

// ThreadContext is the per-thread state of an attached thread. It carries
// the error raised during the current delivery, if any.
type ThreadContext struct {
	ID uint64

	mu      sync.Mutex
	pending error
}

// NewThreadContext returns a context for the thread identified by id.
func NewThreadContext(id uint64) *ThreadContext {
	return &ThreadContext{ID: id}
}

// Raise sets err pending. An error already pending is kept.
func (tc *ThreadContext) Raise(err error) {
	if err == nil {
		return
	}
	tc.mu.Lock()
	if tc.pending == nil {
		tc.pending = err
	}
	tc.mu.Unlock()
}

// Pending returns the pending error without clearing it.
func (tc *ThreadContext) Pending() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.pending
}

// TakePending returns and clears the pending error.
func (tc *ThreadContext) TakePending() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	err := tc.pending
	tc.pending = nil
	return err
}
