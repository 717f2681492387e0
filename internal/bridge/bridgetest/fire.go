package bridgetest

import "github.com/thesyncim/libgodatachannel/internal/bridge"

// registered returns the user pointer of handle when kind is registered.
func (e *FakeEngine) registered(handle int32, kind bridge.EventKind) (uintptr, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(handle) || !e.callbacks[handle][kind] {
		return 0, false
	}
	return e.userPtrs[handle], true
}

// FireLocalDescription emulates the local description callback. It
// reports whether a trampoline was registered.
func (e *FakeEngine) FireLocalDescription(pc int32, sdp, typ string) bool {
	ptr, ok := e.registered(pc, bridge.KindLocalDescription)
	if ok {
		bridge.HandleLocalDescription(pc, sdp, typ, ptr)
	}
	return ok
}

func (e *FakeEngine) FireLocalCandidate(pc int32, candidate, mid string) bool {
	ptr, ok := e.registered(pc, bridge.KindLocalCandidate)
	if ok {
		bridge.HandleLocalCandidate(pc, candidate, mid, ptr)
	}
	return ok
}

func (e *FakeEngine) FireStateChange(pc, state int32) bool {
	ptr, ok := e.registered(pc, bridge.KindStateChange)
	if ok {
		bridge.HandleStateChange(pc, state, ptr)
	}
	return ok
}

func (e *FakeEngine) FireIceStateChange(pc, state int32) bool {
	ptr, ok := e.registered(pc, bridge.KindIceStateChange)
	if ok {
		bridge.HandleIceStateChange(pc, state, ptr)
	}
	return ok
}

func (e *FakeEngine) FireGatheringStateChange(pc, state int32) bool {
	ptr, ok := e.registered(pc, bridge.KindGatheringStateChange)
	if ok {
		bridge.HandleGatheringStateChange(pc, state, ptr)
	}
	return ok
}

func (e *FakeEngine) FireSignalingStateChange(pc, state int32) bool {
	ptr, ok := e.registered(pc, bridge.KindSignalingStateChange)
	if ok {
		bridge.HandleSignalingStateChange(pc, state, ptr)
	}
	return ok
}

// FireDataChannel emulates the remote peer opening a channel. It returns
// the new channel handle, or 0 when no trampoline was registered.
func (e *FakeEngine) FireDataChannel(pc int32, label, protocol string) int32 {
	return e.FireDataChannelWith(pc, label, protocol)
}

// FireDataChannelWith is FireDataChannel for a channel whose queued
// messages arrived before the data channel callback runs. Like an incoming
// libdatachannel channel, it is already open when announced.
func (e *FakeEngine) FireDataChannelWith(pc int32, label, protocol string, queued ...Message) int32 {
	ptr, ok := e.registered(pc, bridge.KindDataChannel)
	if !ok {
		return 0
	}
	e.mu.Lock()
	dc := e.newHandleLocked()
	e.channels[dc] = channelInfo{peer: pc, label: label, init: bridge.ChannelInit{Protocol: protocol}}
	e.setChannelOutputsLocked(dc, label, protocol)
	e.open[dc] = true
	for _, m := range queued {
		e.inbox[dc] = append(e.inbox[dc], Message{Data: append([]byte(nil), m.Data...), Text: m.Text})
	}
	e.mu.Unlock()

	bridge.HandleDataChannel(pc, dc, ptr)
	return dc
}

// FireTrack emulates the remote peer adding a track.
func (e *FakeEngine) FireTrack(pc int32, mid string) int32 {
	ptr, ok := e.registered(pc, bridge.KindTrack)
	if !ok {
		return 0
	}
	e.mu.Lock()
	tr := e.newHandleLocked()
	e.channels[tr] = channelInfo{peer: pc, track: true, trackInit: bridge.TrackInit{Direction: 2, Mid: mid}}
	e.outputs[tr] = map[bridge.OutputField]string{bridge.FieldTrackMid: mid}
	e.mu.Unlock()

	bridge.HandleTrack(pc, tr, ptr)
	return tr
}

// FireOpen marks id open and emulates the open callback.
func (e *FakeEngine) FireOpen(id int32) bool {
	e.mu.Lock()
	e.open[id] = true
	e.mu.Unlock()
	ptr, ok := e.registered(id, bridge.KindOpen)
	if ok {
		bridge.HandleOpen(id, ptr)
	}
	return ok
}

// FireClosed marks id closed and emulates the closed callback.
func (e *FakeEngine) FireClosed(id int32) bool {
	e.mu.Lock()
	e.open[id] = false
	e.closed[id] = true
	e.mu.Unlock()
	ptr, ok := e.registered(id, bridge.KindClosed)
	if ok {
		bridge.HandleClosed(id, ptr)
	}
	return ok
}

func (e *FakeEngine) FireError(id int32, message string) bool {
	ptr, ok := e.registered(id, bridge.KindError)
	if ok {
		bridge.HandleError(id, message, ptr)
	}
	return ok
}

func (e *FakeEngine) FireMessage(id int32, data []byte, text bool) bool {
	ptr, ok := e.registered(id, bridge.KindMessage)
	if ok {
		bridge.HandleMessage(id, append([]byte(nil), data...), text, ptr)
	}
	return ok
}

func (e *FakeEngine) FireBufferedAmountLow(id int32) bool {
	ptr, ok := e.registered(id, bridge.KindBufferedAmountLow)
	if ok {
		bridge.HandleBufferedAmountLow(id, ptr)
	}
	return ok
}

func (e *FakeEngine) FireAvailable(id int32) bool {
	ptr, ok := e.registered(id, bridge.KindAvailable)
	if ok {
		bridge.HandleAvailable(id, ptr)
	}
	return ok
}

// FireRaw delivers a state change with an arbitrary user pointer,
// bypassing registration. It emulates a stale or foreign pointer.
func FireRaw(pc, state int32, ptr uintptr) {
	bridge.HandleStateChange(pc, state, ptr)
}
