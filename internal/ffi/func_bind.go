package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"
)

type binding struct {
	fptr any
	name string
}

func bindings() []binding {
	return []binding{
		{&rtcInitLogger, "rtcInitLogger"},
		{&rtcPreload, "rtcPreload"},
		{&rtcCleanup, "rtcCleanup"},
		{&rtcSetUserPointer, "rtcSetUserPointer"},
		{&rtcGetUserPointer, "rtcGetUserPointer"},

		{&rtcCreatePeerConnection, "rtcCreatePeerConnection"},
		{&rtcClosePeerConnection, "rtcClosePeerConnection"},
		{&rtcDeletePeerConnection, "rtcDeletePeerConnection"},
		{&rtcSetLocalDescriptionCallback, "rtcSetLocalDescriptionCallback"},
		{&rtcSetLocalCandidateCallback, "rtcSetLocalCandidateCallback"},
		{&rtcSetStateChangeCallback, "rtcSetStateChangeCallback"},
		{&rtcSetIceStateChangeCallback, "rtcSetIceStateChangeCallback"},
		{&rtcSetGatheringStateChangeCallback, "rtcSetGatheringStateChangeCallback"},
		{&rtcSetSignalingStateChangeCallback, "rtcSetSignalingStateChangeCallback"},
		{&rtcSetDataChannelCallback, "rtcSetDataChannelCallback"},
		{&rtcSetTrackCallback, "rtcSetTrackCallback"},
		{&rtcSetLocalDescription, "rtcSetLocalDescription"},
		{&rtcSetRemoteDescription, "rtcSetRemoteDescription"},
		{&rtcAddRemoteCandidate, "rtcAddRemoteCandidate"},
		{&rtcGetLocalDescription, "rtcGetLocalDescription"},
		{&rtcGetRemoteDescription, "rtcGetRemoteDescription"},
		{&rtcGetLocalDescriptionType, "rtcGetLocalDescriptionType"},
		{&rtcGetRemoteDescriptionType, "rtcGetRemoteDescriptionType"},
		{&rtcGetLocalAddress, "rtcGetLocalAddress"},
		{&rtcGetRemoteAddress, "rtcGetRemoteAddress"},
		{&rtcGetSelectedCandidatePair, "rtcGetSelectedCandidatePair"},
		{&rtcGetMaxDataChannelStream, "rtcGetMaxDataChannelStream"},
		{&rtcGetRemoteMaxMessageSize, "rtcGetRemoteMaxMessageSize"},

		{&rtcSetOpenCallback, "rtcSetOpenCallback"},
		{&rtcSetClosedCallback, "rtcSetClosedCallback"},
		{&rtcSetErrorCallback, "rtcSetErrorCallback"},
		{&rtcSetMessageCallback, "rtcSetMessageCallback"},
		{&rtcSetBufferedAmountLowCallback, "rtcSetBufferedAmountLowCallback"},
		{&rtcSetAvailableCallback, "rtcSetAvailableCallback"},
		{&rtcSendMessage, "rtcSendMessage"},
		{&rtcReceiveMessage, "rtcReceiveMessage"},
		{&rtcClose, "rtcClose"},
		{&rtcDelete, "rtcDelete"},
		{&rtcIsOpen, "rtcIsOpen"},
		{&rtcIsClosed, "rtcIsClosed"},
		{&rtcMaxMessageSize, "rtcMaxMessageSize"},
		{&rtcGetBufferedAmount, "rtcGetBufferedAmount"},
		{&rtcSetBufferedAmountLowThreshold, "rtcSetBufferedAmountLowThreshold"},
		{&rtcGetAvailableAmount, "rtcGetAvailableAmount"},

		{&rtcCreateDataChannelEx, "rtcCreateDataChannelEx"},
		{&rtcDeleteDataChannel, "rtcDeleteDataChannel"},
		{&rtcGetDataChannelStream, "rtcGetDataChannelStream"},
		{&rtcGetDataChannelLabel, "rtcGetDataChannelLabel"},
		{&rtcGetDataChannelProtocol, "rtcGetDataChannelProtocol"},
		{&rtcGetDataChannelReliability, "rtcGetDataChannelReliability"},

		{&rtcAddTrack, "rtcAddTrack"},
		{&rtcAddTrackEx, "rtcAddTrackEx"},
		{&rtcDeleteTrack, "rtcDeleteTrack"},
		{&rtcGetTrackDescription, "rtcGetTrackDescription"},
		{&rtcGetTrackMid, "rtcGetTrackMid"},
		{&rtcGetTrackDirection, "rtcGetTrackDirection"},
	}
}

// registerFunctions resolves every symbol before binding any, so a library
// missing one export leaves the function table untouched.
func registerFunctions(handle uintptr) error {
	bs := bindings()
	addrs := make([]uintptr, len(bs))
	for i, b := range bs {
		addr, err := symbol(handle, b.name)
		if err != nil {
			return fmt.Errorf("missing symbol %s: %w", b.name, err)
		}
		addrs[i] = addr
	}
	for i, b := range bs {
		purego.RegisterFunc(b.fptr, addrs[i])
	}
	return nil
}
