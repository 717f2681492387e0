package ffi

import (
	"sync"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// safeCallback wraps a callback invocation with panic recovery.
// This prevents panics from unwinding through C stack frames,
// which would cause undefined behavior.
func safeCallback(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			bridge.Logger().Error("panic recovered in native callback",
				zap.String("kind", kind), zap.Any("panic", r))
		}
	}()
	fn()
}

// purego callbacks are a finite resource and can never be freed, so there
// is exactly one trampoline per event kind, shared by every handle. The
// handle and user pointer passed by libdatachannel tell them apart.
var (
	callbackInitMu sync.Mutex
	trampolines    = make(map[bridge.EventKind]uintptr)
	loggerCallback uintptr
)

// trampoline returns the native function pointer for kind.
//
//go:nocheckptr
func trampoline(kind bridge.EventKind) uintptr {
	callbackInitMu.Lock()
	defer callbackInitMu.Unlock()

	if p, ok := trampolines[kind]; ok {
		return p
	}
	p := newTrampoline(kind)
	if p != 0 {
		trampolines[kind] = p
	}
	return p
}

func newTrampoline(kind bridge.EventKind) uintptr {
	name := kind.String()
	switch kind {
	case bridge.KindLocalDescription:
		// void(int pc, const char *sdp, const char *type, void *ptr)
		return purego.NewCallback(func(pc int32, sdp, typ, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleLocalDescription(pc, GoString(sdp), GoString(typ), ptr) })
		})
	case bridge.KindLocalCandidate:
		// void(int pc, const char *cand, const char *mid, void *ptr)
		return purego.NewCallback(func(pc int32, cand, mid, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleLocalCandidate(pc, GoString(cand), GoString(mid), ptr) })
		})
	case bridge.KindStateChange:
		return purego.NewCallback(func(pc, state int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleStateChange(pc, state, ptr) })
		})
	case bridge.KindIceStateChange:
		return purego.NewCallback(func(pc, state int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleIceStateChange(pc, state, ptr) })
		})
	case bridge.KindGatheringStateChange:
		return purego.NewCallback(func(pc, state int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleGatheringStateChange(pc, state, ptr) })
		})
	case bridge.KindSignalingStateChange:
		return purego.NewCallback(func(pc, state int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleSignalingStateChange(pc, state, ptr) })
		})
	case bridge.KindDataChannel:
		return purego.NewCallback(func(pc, dc int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleDataChannel(pc, dc, ptr) })
		})
	case bridge.KindTrack:
		return purego.NewCallback(func(pc, tr int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleTrack(pc, tr, ptr) })
		})
	case bridge.KindOpen:
		return purego.NewCallback(func(id int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleOpen(id, ptr) })
		})
	case bridge.KindClosed:
		return purego.NewCallback(func(id int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleClosed(id, ptr) })
		})
	case bridge.KindError:
		return purego.NewCallback(func(id int32, msg, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleError(id, GoString(msg), ptr) })
		})
	case bridge.KindMessage:
		// void(int id, const char *message, int size, void *ptr)
		return purego.NewCallback(func(id int32, msg uintptr, size int32, ptr uintptr) {
			onMessage(name, id, msg, size, ptr)
		})
	case bridge.KindBufferedAmountLow:
		return purego.NewCallback(func(id int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleBufferedAmountLow(id, ptr) })
		})
	case bridge.KindAvailable:
		return purego.NewCallback(func(id int32, ptr uintptr) {
			safeCallback(name, func() { bridge.HandleAvailable(id, ptr) })
		})
	default:
		return 0
	}
}

var messageDecoder = decodeMessage

// onMessage copies the payload out of the libdatachannel-owned buffer and
// delivers it, both under the panic guard.
func onMessage(name string, id int32, msg uintptr, size int32, ptr uintptr) {
	safeCallback(name, func() {
		data, text := messageDecoder(msg, size)
		bridge.HandleMessage(id, data, text, ptr)
	})
}

// logTrampoline returns the rtcLogCallbackFunc.
func logTrampoline() uintptr {
	callbackInitMu.Lock()
	defer callbackInitMu.Unlock()

	if loggerCallback == 0 {
		// void(rtcLogLevel level, const char *message)
		loggerCallback = purego.NewCallback(func(level int32, msg uintptr) {
			safeCallback("log", func() { bridge.HandleLog(level, GoString(msg)) })
		})
	}
	return loggerCallback
}
