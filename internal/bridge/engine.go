package bridge

// Native result codes returned by libdatachannel (int to match C int).
const (
	CodeSuccess  = 0
	CodeInvalid  = -1
	CodeFailure  = -2
	CodeNotAvail = -3
	CodeTooSmall = -4
)

// ExceptionThrown is returned by Translate alongside an error. It never
// collides with a handle or size because the engine only produces
// non-negative values and the small negative codes above.
const ExceptionThrown = -999

// EventKind identifies one native callback source.
type EventKind int

const (
	KindLocalDescription EventKind = iota
	KindLocalCandidate
	KindStateChange
	KindIceStateChange
	KindGatheringStateChange
	KindSignalingStateChange
	KindDataChannel
	KindTrack
	KindOpen
	KindClosed
	KindError
	KindMessage
	KindBufferedAmountLow
	KindAvailable
)

func (k EventKind) String() string {
	switch k {
	case KindLocalDescription:
		return "local-description"
	case KindLocalCandidate:
		return "local-candidate"
	case KindStateChange:
		return "state-change"
	case KindIceStateChange:
		return "ice-state-change"
	case KindGatheringStateChange:
		return "gathering-state-change"
	case KindSignalingStateChange:
		return "signaling-state-change"
	case KindDataChannel:
		return "data-channel"
	case KindTrack:
		return "track"
	case KindOpen:
		return "open"
	case KindClosed:
		return "closed"
	case KindError:
		return "error"
	case KindMessage:
		return "message"
	case KindBufferedAmountLow:
		return "buffered-amount-low"
	case KindAvailable:
		return "available"
	default:
		return "unknown"
	}
}

// PeerKinds are the callbacks registered on a peer connection handle.
var PeerKinds = []EventKind{
	KindLocalDescription,
	KindLocalCandidate,
	KindStateChange,
	KindIceStateChange,
	KindGatheringStateChange,
	KindSignalingStateChange,
	KindDataChannel,
	KindTrack,
}

// ChannelKinds are the callbacks a data channel or track handle can carry.
var ChannelKinds = []EventKind{
	KindOpen,
	KindClosed,
	KindError,
	KindMessage,
	KindBufferedAmountLow,
	KindAvailable,
}

// ChildKinds are registered when a channel or track is adopted. They leave
// out KindMessage: libdatachannel flushes queued messages into the message
// callback as soon as it is set, so the owner sets it once it can route
// them. Until then messages stay queued for rtcReceiveMessage.
var ChildKinds = []EventKind{
	KindOpen,
	KindClosed,
	KindError,
	KindBufferedAmountLow,
	KindAvailable,
}

// OutputField selects a variable-length native output.
type OutputField int

const (
	FieldLocalDescription OutputField = iota
	FieldLocalDescriptionType
	FieldRemoteDescription
	FieldRemoteDescriptionType
	FieldLocalAddress
	FieldRemoteAddress
	FieldChannelLabel
	FieldChannelProtocol
	FieldTrackDescription
	FieldTrackMid
)

// Op returns the native function name that produces the field.
func (f OutputField) Op() string {
	switch f {
	case FieldLocalDescription:
		return "rtcGetLocalDescription"
	case FieldLocalDescriptionType:
		return "rtcGetLocalDescriptionType"
	case FieldRemoteDescription:
		return "rtcGetRemoteDescription"
	case FieldRemoteDescriptionType:
		return "rtcGetRemoteDescriptionType"
	case FieldLocalAddress:
		return "rtcGetLocalAddress"
	case FieldRemoteAddress:
		return "rtcGetRemoteAddress"
	case FieldChannelLabel:
		return "rtcGetDataChannelLabel"
	case FieldChannelProtocol:
		return "rtcGetDataChannelProtocol"
	case FieldTrackDescription:
		return "rtcGetTrackDescription"
	case FieldTrackMid:
		return "rtcGetTrackMid"
	default:
		return "unknown"
	}
}

// PeerConfig is the Go form of rtcConfiguration.
type PeerConfig struct {
	ICEServers             []string
	ProxyServer            string
	BindAddress            string
	CertificateType        int32
	ICETransportPolicy     int32
	EnableICETCP           bool
	EnableICEUDPMux        bool
	DisableAutoNegotiation bool
	ForceMediaTransport    bool
	PortRangeBegin         uint16
	PortRangeEnd           uint16
	MTU                    int32
	MaxMessageSize         int32
}

// Reliability is the Go form of rtcReliability.
type Reliability struct {
	Unordered         bool
	Unreliable        bool
	MaxPacketLifeTime uint32
	MaxRetransmits    uint32
}

// ChannelInit is the Go form of rtcDataChannelInit.
type ChannelInit struct {
	Reliability  Reliability
	Protocol     string
	Negotiated   bool
	ManualStream bool
	Stream       uint16
}

// TrackInit is the Go form of rtcTrackInit.
type TrackInit struct {
	Direction   int32
	Codec       int32
	PayloadType int32
	SSRC        uint32
	Mid         string
	Name        string
	MSID        string
	TrackID     string
	Profile     string
}

// Engine is the handle-based native API the bridge drives. Every method
// returning int follows the engine convention: non-negative is a value,
// negative is one of the Code* constants.
type Engine interface {
	Preload()
	Cleanup()
	InitLogger(level int32)

	SetUserPointer(handle int32, ptr uintptr)
	GetUserPointer(handle int32) uintptr
	// SetCallback installs (enabled) or clears the trampoline for kind.
	SetCallback(handle int32, kind EventKind, enabled bool) int
	// QueryOutput is the two-phase accessor: a nil buf with size -1 asks
	// for the required size including the terminator.
	QueryOutput(handle int32, field OutputField, buf []byte, size int) int

	CreatePeerConnection(cfg *PeerConfig) int
	ClosePeerConnection(pc int32) int
	DeletePeerConnection(pc int32) int
	SetLocalDescription(pc int32, typ string) int
	SetRemoteDescription(pc int32, sdp, typ string) int
	AddRemoteCandidate(pc int32, candidate, mid string) int
	SelectedCandidatePair(pc int32, local, remote []byte, size int) int
	MaxDataChannelStream(pc int32) int
	RemoteMaxMessageSize(pc int32) int

	CreateDataChannel(pc int32, label string, init *ChannelInit) int
	DeleteDataChannel(dc int32) int
	DataChannelStream(dc int32) int
	DataChannelReliability(dc int32, out *Reliability) int

	AddTrack(pc int32, mediaDescription string) int
	AddTrackEx(pc int32, init *TrackInit) int
	DeleteTrack(tr int32) int
	TrackDirection(tr int32, out *int32) int

	// SendMessage sends data; text messages are sent null-terminated.
	SendMessage(id int32, data []byte, text bool) int
	// ReceiveMessage follows rtcReceiveMessage: size is in/out and is
	// negative on return for text messages.
	ReceiveMessage(id int32, buf []byte, size *int32) int
	Close(id int32) int
	Delete(id int32) int
	IsOpen(id int32) bool
	IsClosed(id int32) bool
	MaxMessageSize(id int32) int
	BufferedAmount(id int32) int
	SetBufferedAmountLowThreshold(id int32, amount int) int
	AvailableAmount(id int32) int
}
