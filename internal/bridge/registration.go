package bridge

// CallbackOp returns the native registration function for kind.
func CallbackOp(kind EventKind) string {
	switch kind {
	case KindLocalDescription:
		return "rtcSetLocalDescriptionCallback"
	case KindLocalCandidate:
		return "rtcSetLocalCandidateCallback"
	case KindStateChange:
		return "rtcSetStateChangeCallback"
	case KindIceStateChange:
		return "rtcSetIceStateChangeCallback"
	case KindGatheringStateChange:
		return "rtcSetGatheringStateChangeCallback"
	case KindSignalingStateChange:
		return "rtcSetSignalingStateChangeCallback"
	case KindDataChannel:
		return "rtcSetDataChannelCallback"
	case KindTrack:
		return "rtcSetTrackCallback"
	case KindOpen:
		return "rtcSetOpenCallback"
	case KindClosed:
		return "rtcSetClosedCallback"
	case KindError:
		return "rtcSetErrorCallback"
	case KindMessage:
		return "rtcSetMessageCallback"
	case KindBufferedAmountLow:
		return "rtcSetBufferedAmountLowCallback"
	case KindAvailable:
		return "rtcSetAvailableCallback"
	default:
		return "rtcSetCallback"
	}
}

// Install creates a container for handle, stores it in the handle's
// user-data slot and only then registers the trampolines for kinds. On
// failure everything done so far is undone.
func Install(rt *Runtime, handle int32, listener Listener, kinds []EventKind) (*Container, error) {
	c, err := NewContainer(rt, handle, listener)
	if err != nil {
		return nil, err
	}
	rt.engine.SetUserPointer(handle, c.Ptr())
	if op, code := register(rt.engine, handle, kinds); code < 0 {
		rt.engine.SetUserPointer(handle, 0)
		c.Destroy()
		return nil, Check(op, code)
	}
	return c, nil
}

// Adopt points a child handle (data channel or track) at an existing
// container and registers kinds on it.
func Adopt(rt *Runtime, handle int32, ptr uintptr, kinds []EventKind) error {
	if rt == nil {
		return ErrUnavailable
	}
	rt.engine.SetUserPointer(handle, ptr)
	if op, code := register(rt.engine, handle, kinds); code < 0 {
		rt.engine.SetUserPointer(handle, 0)
		return Check(op, code)
	}
	return nil
}

// Release clears the callbacks and user-data slot of handle and destroys
// the container if handle owns it. It must run before the native delete.
func Release(rt *Runtime, handle int32, kinds []EventKind) {
	if rt == nil {
		return
	}
	ptr := rt.engine.GetUserPointer(handle)
	for _, k := range kinds {
		_ = rt.engine.SetCallback(handle, k, false)
	}
	rt.engine.SetUserPointer(handle, 0)
	if c := rt.Lookup(ptr); c != nil && c.Handle() == handle {
		c.Destroy()
	}
}

// register enables kinds on handle. When one is rejected the kinds already
// enabled are disabled again and the rejected operation and code returned.
func register(e Engine, handle int32, kinds []EventKind) (op string, code int) {
	for i, k := range kinds {
		if code := e.SetCallback(handle, k, true); code < 0 {
			for _, done := range kinds[:i] {
				_ = e.SetCallback(handle, done, false)
			}
			return CallbackOp(k), code
		}
	}
	return "", CodeSuccess
}
