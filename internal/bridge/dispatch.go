package bridge

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrorHandler observes errors raised while delivering an event.
type ErrorHandler func(kind EventKind, handle int32, err error)

var errorHandler atomic.Pointer[ErrorHandler]

// SetErrorHandler installs h for every runtime. Nil removes it.
func SetErrorHandler(h ErrorHandler) {
	if h == nil {
		errorHandler.Store(nil)
		return
	}
	errorHandler.Store(&h)
}

type invokeFunc func(rt *Runtime, tc *ThreadContext, l Listener)

// deliver runs one event: resolve runtime, resolve thread, resolve
// container, invoke, detach. It never panics back into the caller.
func deliver(kind EventKind, handle int32, ptr uintptr, invoke invokeFunc) {
	rt := Current()
	if rt == nil {
		return
	}

	tc, attached, err := rt.ResolveCurrentThread()
	if err != nil {
		rt.drop(kind, handle, "attach failed")
		Logger().Warn("thread attach failed", zap.String("kind", kind.String()), zap.Int32("handle", handle), zap.Error(err))
		return
	}
	defer rt.finish(tc, attached, kind, handle)

	c := rt.Lookup(ptr)
	if c == nil {
		rt.drop(kind, handle, "no container")
		return
	}
	l, ok := c.Listener()
	if !ok {
		rt.drop(kind, handle, "listener released")
		return
	}

	rt.invoke(tc, kind, handle, func() { invoke(rt, tc, l) })
}

func (rt *Runtime) invoke(tc *ThreadContext, kind EventKind, handle int32, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			tc.Raise(fmt.Errorf("bridge: %s listener for handle %d panicked: %v", kind, handle, r))
		}
	}()
	rt.stats.delivered.Add(1)
	fn()
}

// finish takes the pending error before detaching so that detach can
// neither clear nor replace it.
func (rt *Runtime) finish(tc *ThreadContext, attached bool, kind EventKind, handle int32) {
	err := tc.TakePending()
	if attached {
		if derr := rt.host.DetachCurrentThread(tc); derr != nil {
			Logger().Warn("thread detach failed", zap.Int32("handle", handle), zap.Error(derr))
		}
	}
	if err == nil {
		return
	}
	rt.stats.raised.Add(1)
	Logger().Error("event delivery raised",
		zap.String("kind", kind.String()),
		zap.Int32("handle", handle),
		zap.Error(err))
	if h := errorHandler.Load(); h != nil {
		(*h)(kind, handle, err)
	}
}

func (rt *Runtime) drop(kind EventKind, handle int32, reason string) {
	rt.stats.dropped.Add(1)
	if rt.policy == DropAndLog {
		Logger().Debug("event dropped",
			zap.String("kind", kind.String()),
			zap.Int32("handle", handle),
			zap.String("reason", reason))
	}
}

func HandleLocalDescription(pc int32, sdp, typ string, ptr uintptr) {
	deliver(KindLocalDescription, pc, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnLocalDescription(pc, sdp, typ)
	})
}

func HandleLocalCandidate(pc int32, candidate, mid string, ptr uintptr) {
	deliver(KindLocalCandidate, pc, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnLocalCandidate(pc, candidate, mid)
	})
}

func HandleStateChange(pc, state int32, ptr uintptr) {
	deliver(KindStateChange, pc, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnStateChange(pc, state)
	})
}

func HandleIceStateChange(pc, state int32, ptr uintptr) {
	deliver(KindIceStateChange, pc, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnIceStateChange(pc, state)
	})
}

func HandleGatheringStateChange(pc, state int32, ptr uintptr) {
	deliver(KindGatheringStateChange, pc, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnGatheringStateChange(pc, state)
	})
}

func HandleSignalingStateChange(pc, state int32, ptr uintptr) {
	deliver(KindSignalingStateChange, pc, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnSignalingStateChange(pc, state)
	})
}

// HandleDataChannel makes the new channel inherit the peer's container and
// registers its callbacks before the listener sees it.
func HandleDataChannel(pc, dc int32, ptr uintptr) {
	deliver(KindDataChannel, pc, ptr, func(rt *Runtime, tc *ThreadContext, l Listener) {
		adoptChild(rt, tc, dc, ptr)
		l.OnDataChannel(pc, dc)
	})
}

// HandleTrack is HandleDataChannel for media tracks.
func HandleTrack(pc, tr int32, ptr uintptr) {
	deliver(KindTrack, pc, ptr, func(rt *Runtime, tc *ThreadContext, l Listener) {
		adoptChild(rt, tc, tr, ptr)
		l.OnTrack(pc, tr)
	})
}

// adoptChild is Adopt with ChildKinds inside a delivery. A rejected
// registration is raised on tc and leaves the child without callbacks.
func adoptChild(rt *Runtime, tc *ThreadContext, child int32, ptr uintptr) {
	rt.engine.SetUserPointer(child, ptr)
	if op, code := register(rt.engine, child, ChildKinds); RaiseOn(tc, op, code) == ExceptionThrown {
		rt.engine.SetUserPointer(child, 0)
	}
}

func HandleOpen(id int32, ptr uintptr) {
	deliver(KindOpen, id, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnOpen(id)
	})
}

func HandleClosed(id int32, ptr uintptr) {
	deliver(KindClosed, id, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnClosed(id)
	})
}

func HandleError(id int32, message string, ptr uintptr) {
	deliver(KindError, id, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnError(id, message)
	})
}

// HandleMessage delivers a message already copied out of native memory.
func HandleMessage(id int32, data []byte, text bool, ptr uintptr) {
	deliver(KindMessage, id, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		if text {
			l.OnTextMessage(id, string(data))
			return
		}
		l.OnBinaryMessage(id, data)
	})
}

func HandleBufferedAmountLow(id int32, ptr uintptr) {
	deliver(KindBufferedAmountLow, id, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnBufferedAmountLow(id)
	})
}

func HandleAvailable(id int32, ptr uintptr) {
	deliver(KindAvailable, id, ptr, func(_ *Runtime, _ *ThreadContext, l Listener) {
		l.OnAvailable(id)
	})
}
