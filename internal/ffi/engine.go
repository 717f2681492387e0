package ffi

import (
	"runtime"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// Lib drives the loaded libdatachannel. It implements bridge.Engine.
type Lib struct{}

var _ bridge.Engine = (*Lib)(nil)

// NewEngine returns the engine for the loaded library.
func NewEngine() (*Lib, error) {
	if !libLoaded.Load() {
		return nil, ErrLibraryNotLoaded
	}
	return &Lib{}, nil
}

func (*Lib) Preload() { rtcPreload() }

func (*Lib) Cleanup() { rtcCleanup() }

func (*Lib) InitLogger(level int32) {
	rtcInitLogger(level, logTrampoline())
}

func (*Lib) SetUserPointer(handle int32, ptr uintptr) {
	rtcSetUserPointer(handle, ptr)
}

func (*Lib) GetUserPointer(handle int32) uintptr {
	return rtcGetUserPointer(handle)
}

func (*Lib) SetCallback(handle int32, kind bridge.EventKind, enabled bool) int {
	set := setterFor(kind)
	if set == nil {
		return bridge.CodeInvalid
	}
	var cb uintptr
	if enabled {
		if cb = trampoline(kind); cb == 0 {
			return bridge.CodeFailure
		}
	}
	return int(set(handle, cb))
}

func setterFor(kind bridge.EventKind) func(int32, uintptr) int32 {
	switch kind {
	case bridge.KindLocalDescription:
		return rtcSetLocalDescriptionCallback
	case bridge.KindLocalCandidate:
		return rtcSetLocalCandidateCallback
	case bridge.KindStateChange:
		return rtcSetStateChangeCallback
	case bridge.KindIceStateChange:
		return rtcSetIceStateChangeCallback
	case bridge.KindGatheringStateChange:
		return rtcSetGatheringStateChangeCallback
	case bridge.KindSignalingStateChange:
		return rtcSetSignalingStateChangeCallback
	case bridge.KindDataChannel:
		return rtcSetDataChannelCallback
	case bridge.KindTrack:
		return rtcSetTrackCallback
	case bridge.KindOpen:
		return rtcSetOpenCallback
	case bridge.KindClosed:
		return rtcSetClosedCallback
	case bridge.KindError:
		return rtcSetErrorCallback
	case bridge.KindMessage:
		return rtcSetMessageCallback
	case bridge.KindBufferedAmountLow:
		return rtcSetBufferedAmountLowCallback
	case bridge.KindAvailable:
		return rtcSetAvailableCallback
	default:
		return nil
	}
}

func getterFor(field bridge.OutputField) func(int32, uintptr, int32) int32 {
	switch field {
	case bridge.FieldLocalDescription:
		return rtcGetLocalDescription
	case bridge.FieldLocalDescriptionType:
		return rtcGetLocalDescriptionType
	case bridge.FieldRemoteDescription:
		return rtcGetRemoteDescription
	case bridge.FieldRemoteDescriptionType:
		return rtcGetRemoteDescriptionType
	case bridge.FieldLocalAddress:
		return rtcGetLocalAddress
	case bridge.FieldRemoteAddress:
		return rtcGetRemoteAddress
	case bridge.FieldChannelLabel:
		return rtcGetDataChannelLabel
	case bridge.FieldChannelProtocol:
		return rtcGetDataChannelProtocol
	case bridge.FieldTrackDescription:
		return rtcGetTrackDescription
	case bridge.FieldTrackMid:
		return rtcGetTrackMid
	default:
		return nil
	}
}

func (*Lib) QueryOutput(handle int32, field bridge.OutputField, buf []byte, size int) int {
	get := getterFor(field)
	if get == nil {
		return bridge.CodeInvalid
	}
	ret := get(handle, ByteSlicePtr(buf), int32(size))
	runtime.KeepAlive(buf)
	return int(ret)
}

func (*Lib) CreatePeerConnection(cfg *bridge.PeerConfig) int {
	var a cArena
	c := newConfiguration(&a, cfg)
	ret := rtcCreatePeerConnection(c.Ptr())
	runtime.KeepAlive(c)
	runtime.KeepAlive(&a)
	return int(ret)
}

func (*Lib) ClosePeerConnection(pc int32) int { return int(rtcClosePeerConnection(pc)) }

func (*Lib) DeletePeerConnection(pc int32) int { return int(rtcDeletePeerConnection(pc)) }

func (*Lib) SetLocalDescription(pc int32, typ string) int {
	var a cArena
	ret := rtcSetLocalDescription(pc, a.str(typ))
	runtime.KeepAlive(&a)
	return int(ret)
}

func (*Lib) SetRemoteDescription(pc int32, sdp, typ string) int {
	var a cArena
	ret := rtcSetRemoteDescription(pc, a.mustStr(sdp), a.str(typ))
	runtime.KeepAlive(&a)
	return int(ret)
}

func (*Lib) AddRemoteCandidate(pc int32, candidate, mid string) int {
	var a cArena
	ret := rtcAddRemoteCandidate(pc, a.mustStr(candidate), a.str(mid))
	runtime.KeepAlive(&a)
	return int(ret)
}

func (*Lib) SelectedCandidatePair(pc int32, local, remote []byte, size int) int {
	ret := rtcGetSelectedCandidatePair(pc, ByteSlicePtr(local), int32(size), ByteSlicePtr(remote), int32(size))
	runtime.KeepAlive(local)
	runtime.KeepAlive(remote)
	return int(ret)
}

func (*Lib) MaxDataChannelStream(pc int32) int { return int(rtcGetMaxDataChannelStream(pc)) }

func (*Lib) RemoteMaxMessageSize(pc int32) int { return int(rtcGetRemoteMaxMessageSize(pc)) }

func (*Lib) CreateDataChannel(pc int32, label string, init *bridge.ChannelInit) int {
	var a cArena
	d := newDataChannelInit(&a, init)
	ret := rtcCreateDataChannelEx(pc, a.mustStr(label), d.Ptr())
	runtime.KeepAlive(d)
	runtime.KeepAlive(&a)
	return int(ret)
}

func (*Lib) DeleteDataChannel(dc int32) int { return int(rtcDeleteDataChannel(dc)) }

func (*Lib) DataChannelStream(dc int32) int { return int(rtcGetDataChannelStream(dc)) }

func (*Lib) DataChannelReliability(dc int32, out *bridge.Reliability) int {
	var r Reliability
	ret := rtcGetDataChannelReliability(dc, r.Ptr())
	if ret >= 0 && out != nil {
		*out = r.toBridge()
	}
	return int(ret)
}

func (*Lib) AddTrack(pc int32, mediaDescription string) int {
	var a cArena
	ret := rtcAddTrack(pc, a.mustStr(mediaDescription))
	runtime.KeepAlive(&a)
	return int(ret)
}

func (*Lib) AddTrackEx(pc int32, init *bridge.TrackInit) int {
	if init == nil {
		return bridge.CodeInvalid
	}
	var a cArena
	t := newTrackInit(&a, init)
	ret := rtcAddTrackEx(pc, t.Ptr())
	runtime.KeepAlive(t)
	runtime.KeepAlive(&a)
	return int(ret)
}

func (*Lib) DeleteTrack(tr int32) int { return int(rtcDeleteTrack(tr)) }

func (*Lib) TrackDirection(tr int32, out *int32) int {
	var dir int32
	ret := rtcGetTrackDirection(tr, Int32Ptr(&dir))
	if ret >= 0 && out != nil {
		*out = dir
	}
	return int(ret)
}

// SendMessage passes text as a null-terminated string with a negative
// size, which is how rtcSendMessage tells text from binary.
func (*Lib) SendMessage(id int32, data []byte, text bool) int {
	if text {
		b := CString(string(data))
		ret := rtcSendMessage(id, ByteSlicePtr(b), -1)
		runtime.KeepAlive(b)
		return int(ret)
	}
	ret := rtcSendMessage(id, ByteSlicePtr(data), int32(len(data)))
	runtime.KeepAlive(data)
	return int(ret)
}

func (*Lib) ReceiveMessage(id int32, buf []byte, size *int32) int {
	ret := rtcReceiveMessage(id, ByteSlicePtr(buf), Int32Ptr(size))
	runtime.KeepAlive(buf)
	return int(ret)
}

func (*Lib) Close(id int32) int { return int(rtcClose(id)) }

func (*Lib) Delete(id int32) int { return int(rtcDelete(id)) }

func (*Lib) IsOpen(id int32) bool { return rtcIsOpen(id) }

func (*Lib) IsClosed(id int32) bool { return rtcIsClosed(id) }

func (*Lib) MaxMessageSize(id int32) int { return int(rtcMaxMessageSize(id)) }

func (*Lib) BufferedAmount(id int32) int { return int(rtcGetBufferedAmount(id)) }

func (*Lib) SetBufferedAmountLowThreshold(id int32, amount int) int {
	return int(rtcSetBufferedAmountLowThreshold(id, int32(amount)))
}

func (*Lib) AvailableAmount(id int32) int { return int(rtcGetAvailableAmount(id)) }
