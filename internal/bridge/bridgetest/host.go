package bridgetest

import (
	"sync"
	"sync/atomic"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// FakeHost is a bridge.Host that counts references and attachments and can
// be told to fail.
type FakeHost struct {
	mu      sync.Mutex
	nextRef bridge.Ref
	refs    map[bridge.Ref]any
	created int
	deleted int

	// Resident, when set, is returned by CurrentThread to emulate a thread
	// that is already attached.
	Resident *bridge.ThreadContext

	FailRef    error
	FailAttach error
	FailDetach error

	attaches atomic.Int64
	detaches atomic.Int64
	nextTID  atomic.Uint64
}

// NewFakeHost returns a host with no references.
func NewFakeHost() *FakeHost {
	return &FakeHost{refs: make(map[bridge.Ref]any)}
}

func (h *FakeHost) NewGlobalRef(obj any) (bridge.Ref, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailRef != nil {
		return 0, h.FailRef
	}
	h.nextRef++
	h.refs[h.nextRef] = obj
	h.created++
	return h.nextRef, nil
}

func (h *FakeHost) DeleteGlobalRef(ref bridge.Ref) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.refs[ref]; ok {
		delete(h.refs, ref)
		h.deleted++
	}
}

func (h *FakeHost) Deref(ref bridge.Ref) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	obj, ok := h.refs[ref]
	return obj, ok
}

func (h *FakeHost) CurrentThread() (*bridge.ThreadContext, bool) {
	if h.Resident != nil {
		return h.Resident, true
	}
	return nil, false
}

func (h *FakeHost) AttachCurrentThreadAsDaemon() (*bridge.ThreadContext, error) {
	if h.FailAttach != nil {
		return nil, h.FailAttach
	}
	h.attaches.Add(1)
	return bridge.NewThreadContext(h.nextTID.Add(1)), nil
}

func (h *FakeHost) DetachCurrentThread(*bridge.ThreadContext) error {
	h.detaches.Add(1)
	return h.FailDetach
}

// LiveRefs returns the number of outstanding references.
func (h *FakeHost) LiveRefs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.refs)
}

// RefCounts returns how many references were created and deleted.
func (h *FakeHost) RefCounts() (created, deleted int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.created, h.deleted
}

// Attaches returns the number of thread attachments.
func (h *FakeHost) Attaches() int64 {
	return h.attaches.Load()
}

// Detaches returns the number of thread detachments.
func (h *FakeHost) Detaches() int64 {
	return h.detaches.Load()
}

var _ bridge.Host = (*FakeHost)(nil)
