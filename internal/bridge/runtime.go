// Package bridge delivers libdatachannel callbacks, which arrive on native
// threads, to Go listeners. It owns the process-wide runtime, the
// reference containers stored in native user-data slots, the
// attach/dispatch/detach protocol and the translation of native result
// codes into errors.
package bridge

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Options configures Init.
type Options struct {
	Engine Engine
	// Host defaults to NewGoHost().
	Host       Host
	DropPolicy DropPolicy
	// LogLevel is the native logger level. LogNone leaves the native
	// logger uninstalled.
	LogLevel int32
	// MaxContainers bounds the container table. Zero means unbounded.
	MaxContainers int
}

// Runtime is the process-wide bridge state between Init and Teardown.
type Runtime struct {
	engine     Engine
	host       Host
	policy     DropPolicy
	containers *containerTable
	stats      counters

	pinMu   sync.Mutex
	pinDone *sync.Cond
	pins    int
}

var (
	current     atomic.Pointer[Runtime]
	lifecycleMu sync.Mutex
)

// Init creates the runtime singleton, installs the native logger and
// preloads the engine.
func Init(opts Options) (*Runtime, error) {
	if opts.Engine == nil {
		return nil, errors.New("bridge: nil engine")
	}
	if opts.Host == nil {
		opts.Host = NewGoHost()
	}

	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()

	if current.Load() != nil {
		return nil, ErrAlreadyInitialized
	}

	rt := &Runtime{
		engine:     opts.Engine,
		host:       opts.Host,
		policy:     opts.DropPolicy,
		containers: newContainerTable(opts.MaxContainers),
	}
	rt.pinDone = sync.NewCond(&rt.pinMu)
	current.Store(rt)

	if opts.LogLevel != LogNone {
		rt.engine.InitLogger(opts.LogLevel)
	}
	rt.engine.Preload()
	return rt, nil
}

// Teardown clears the singleton, waits for pinned callers and then cleans
// up the engine. Deliveries that start after the singleton is cleared are
// dropped.
func Teardown() {
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()

	rt := current.Swap(nil)
	if rt == nil {
		return
	}
	if n := rt.containers.len(); n > 0 {
		Logger().Debug("teardown with live containers", zap.Int("containers", n))
	}
	rt.pinMu.Lock()
	for rt.pins > 0 {
		rt.pinDone.Wait()
	}
	rt.pinMu.Unlock()
	rt.engine.Cleanup()
}

// Pin reports whether rt is the live runtime and, if so, holds off its
// Teardown until Unpin. Pin does not block on a Teardown in progress, so
// it is safe inside a delivery.
func (rt *Runtime) Pin() bool {
	if rt == nil {
		return false
	}
	rt.pinMu.Lock()
	defer rt.pinMu.Unlock()
	if current.Load() != rt {
		return false
	}
	rt.pins++
	return true
}

// Unpin releases a successful Pin.
func (rt *Runtime) Unpin() {
	rt.pinMu.Lock()
	defer rt.pinMu.Unlock()
	rt.pins--
	if rt.pins == 0 {
		rt.pinDone.Broadcast()
	}
}

// Current returns the live runtime or nil.
func Current() *Runtime {
	return current.Load()
}

// ResolveCurrentThread resolves the calling thread against the live runtime.
func ResolveCurrentThread() (*ThreadContext, bool, error) {
	return Current().ResolveCurrentThread()
}

// ResolveCurrentThread returns the calling thread's context. attached is
// true when the thread was attached by this call and must be detached by
// the caller.
func (rt *Runtime) ResolveCurrentThread() (tc *ThreadContext, attached bool, err error) {
	if rt == nil {
		return nil, false, ErrUnavailable
	}
	if tc, ok := rt.host.CurrentThread(); ok {
		return tc, false, nil
	}
	tc, err = rt.host.AttachCurrentThreadAsDaemon()
	if err != nil {
		return nil, false, err
	}
	rt.stats.attached.Add(1)
	return tc, true, nil
}

func (rt *Runtime) Engine() Engine {
	return rt.engine
}

func (rt *Runtime) Host() Host {
	return rt.host
}

func (rt *Runtime) DropPolicy() DropPolicy {
	return rt.policy
}

// Stats returns a snapshot of the delivery counters.
func (rt *Runtime) Stats() Stats {
	return rt.stats.snapshot()
}

// Containers returns the number of live containers.
func (rt *Runtime) Containers() int {
	return rt.containers.len()
}
