package ffi

// Function pointers into libdatachannel, populated by registerFunctions.
// C int maps to int32, pointers and char* to uintptr.
var (
	rtcInitLogger func(level int32, cb uintptr)
	rtcPreload    func()
	rtcCleanup    func()

	rtcSetUserPointer func(id int32, ptr uintptr)
	rtcGetUserPointer func(id int32) uintptr

	rtcCreatePeerConnection func(config uintptr) int32
	rtcClosePeerConnection  func(pc int32) int32
	rtcDeletePeerConnection func(pc int32) int32

	rtcSetLocalDescriptionCallback     func(pc int32, cb uintptr) int32
	rtcSetLocalCandidateCallback       func(pc int32, cb uintptr) int32
	rtcSetStateChangeCallback          func(pc int32, cb uintptr) int32
	rtcSetIceStateChangeCallback       func(pc int32, cb uintptr) int32
	rtcSetGatheringStateChangeCallback func(pc int32, cb uintptr) int32
	rtcSetSignalingStateChangeCallback func(pc int32, cb uintptr) int32
	rtcSetDataChannelCallback          func(pc int32, cb uintptr) int32
	rtcSetTrackCallback                func(pc int32, cb uintptr) int32

	rtcSetLocalDescription  func(pc int32, typ uintptr) int32
	rtcSetRemoteDescription func(pc int32, sdp, typ uintptr) int32
	rtcAddRemoteCandidate   func(pc int32, cand, mid uintptr) int32

	rtcGetLocalDescription      func(pc int32, buf uintptr, size int32) int32
	rtcGetRemoteDescription     func(pc int32, buf uintptr, size int32) int32
	rtcGetLocalDescriptionType  func(pc int32, buf uintptr, size int32) int32
	rtcGetRemoteDescriptionType func(pc int32, buf uintptr, size int32) int32
	rtcGetLocalAddress          func(pc int32, buf uintptr, size int32) int32
	rtcGetRemoteAddress         func(pc int32, buf uintptr, size int32) int32
	rtcGetSelectedCandidatePair func(pc int32, local uintptr, localSize int32, remote uintptr, remoteSize int32) int32
	rtcGetMaxDataChannelStream  func(pc int32) int32
	rtcGetRemoteMaxMessageSize  func(pc int32) int32

	rtcSetOpenCallback              func(id int32, cb uintptr) int32
	rtcSetClosedCallback            func(id int32, cb uintptr) int32
	rtcSetErrorCallback             func(id int32, cb uintptr) int32
	rtcSetMessageCallback           func(id int32, cb uintptr) int32
	rtcSetBufferedAmountLowCallback func(id int32, cb uintptr) int32
	rtcSetAvailableCallback         func(id int32, cb uintptr) int32

	rtcSendMessage                   func(id int32, data uintptr, size int32) int32
	rtcReceiveMessage                func(id int32, buf uintptr, size uintptr) int32
	rtcClose                         func(id int32) int32
	rtcDelete                        func(id int32) int32
	rtcIsOpen                        func(id int32) bool
	rtcIsClosed                      func(id int32) bool
	rtcMaxMessageSize                func(id int32) int32
	rtcGetBufferedAmount             func(id int32) int32
	rtcSetBufferedAmountLowThreshold func(id int32, amount int32) int32
	rtcGetAvailableAmount            func(id int32) int32

	rtcCreateDataChannelEx       func(pc int32, label uintptr, init uintptr) int32
	rtcDeleteDataChannel         func(dc int32) int32
	rtcGetDataChannelStream      func(dc int32) int32
	rtcGetDataChannelLabel       func(dc int32, buf uintptr, size int32) int32
	rtcGetDataChannelProtocol    func(dc int32, buf uintptr, size int32) int32
	rtcGetDataChannelReliability func(dc int32, reliability uintptr) int32

	rtcAddTrack            func(pc int32, mediaDescription uintptr) int32
	rtcAddTrackEx          func(pc int32, init uintptr) int32
	rtcDeleteTrack         func(tr int32) int32
	rtcGetTrackDescription func(tr int32, buf uintptr, size int32) int32
	rtcGetTrackMid         func(tr int32, buf uintptr, size int32) int32
	rtcGetTrackDirection   func(tr int32, direction uintptr) int32
)
