package datachannel

import (
	"fmt"
	"strings"
)

// PeerState is the overall connection state (rtcState).
type PeerState int32

const (
	PeerStateNew PeerState = iota
	PeerStateConnecting
	PeerStateConnected
	PeerStateDisconnected
	PeerStateFailed
	PeerStateClosed
)

func (s PeerState) String() string {
	switch s {
	case PeerStateNew:
		return "new"
	case PeerStateConnecting:
		return "connecting"
	case PeerStateConnected:
		return "connected"
	case PeerStateDisconnected:
		return "disconnected"
	case PeerStateFailed:
		return "failed"
	case PeerStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// IceState is the ICE transport state (rtcIceState).
type IceState int32

const (
	IceStateNew IceState = iota
	IceStateChecking
	IceStateConnected
	IceStateCompleted
	IceStateFailed
	IceStateDisconnected
	IceStateClosed
)

func (s IceState) String() string {
	switch s {
	case IceStateNew:
		return "new"
	case IceStateChecking:
		return "checking"
	case IceStateConnected:
		return "connected"
	case IceStateCompleted:
		return "completed"
	case IceStateFailed:
		return "failed"
	case IceStateDisconnected:
		return "disconnected"
	case IceStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// GatheringState is the ICE gathering state (rtcGatheringState).
type GatheringState int32

const (
	GatheringStateNew GatheringState = iota
	GatheringStateInProgress
	GatheringStateComplete
)

func (s GatheringState) String() string {
	switch s {
	case GatheringStateNew:
		return "new"
	case GatheringStateInProgress:
		return "in-progress"
	case GatheringStateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// SignalingState is the offer/answer state (rtcSignalingState).
type SignalingState int32

const (
	SignalingStateStable SignalingState = iota
	SignalingStateHaveLocalOffer
	SignalingStateHaveRemoteOffer
	SignalingStateHaveLocalPranswer
	SignalingStateHaveRemotePranswer
)

func (s SignalingState) String() string {
	switch s {
	case SignalingStateStable:
		return "stable"
	case SignalingStateHaveLocalOffer:
		return "have-local-offer"
	case SignalingStateHaveRemoteOffer:
		return "have-remote-offer"
	case SignalingStateHaveLocalPranswer:
		return "have-local-pranswer"
	case SignalingStateHaveRemotePranswer:
		return "have-remote-pranswer"
	default:
		return "unknown"
	}
}

// Direction is a media track direction (rtcDirection).
type Direction int32

const (
	DirectionUnknown Direction = iota
	DirectionSendOnly
	DirectionRecvOnly
	DirectionSendRecv
	DirectionInactive
)

func (d Direction) String() string {
	switch d {
	case DirectionSendOnly:
		return "sendonly"
	case DirectionRecvOnly:
		return "recvonly"
	case DirectionSendRecv:
		return "sendrecv"
	case DirectionInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Codec is a media codec (rtcCodec).
type Codec int32

const (
	CodecH264 Codec = 0
	CodecVP8  Codec = 1
	CodecVP9  Codec = 2
	CodecH265 Codec = 3
	CodecAV1  Codec = 4

	CodecOpus Codec = 128
	CodecPCMU Codec = 129
	CodecPCMA Codec = 130
	CodecAAC  Codec = 131
	CodecG722 Codec = 132
)

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "H264"
	case CodecVP8:
		return "VP8"
	case CodecVP9:
		return "VP9"
	case CodecH265:
		return "H265"
	case CodecAV1:
		return "AV1"
	case CodecOpus:
		return "opus"
	case CodecPCMU:
		return "PCMU"
	case CodecPCMA:
		return "PCMA"
	case CodecAAC:
		return "AAC"
	case CodecG722:
		return "G722"
	default:
		return "unknown"
	}
}

// IsAudio reports whether c is an audio codec.
func (c Codec) IsAudio() bool {
	return c >= CodecOpus
}

// MimeType returns the MIME type used in pion codec capabilities, for
// example "video/H264". Unknown codecs return "".
func (c Codec) MimeType() string {
	switch c {
	case CodecH264, CodecVP8, CodecVP9, CodecH265, CodecAV1:
		return "video/" + c.String()
	case CodecOpus, CodecPCMU, CodecPCMA, CodecG722:
		return "audio/" + c.String()
	case CodecAAC:
		return "audio/mpeg4-generic"
	default:
		return ""
	}
}

// ClockRate returns the RTP clock rate for the codec.
func (c Codec) ClockRate() uint32 {
	switch c {
	case CodecH264, CodecVP8, CodecVP9, CodecH265, CodecAV1:
		return 90000
	case CodecOpus, CodecAAC:
		return 48000
	case CodecPCMU, CodecPCMA, CodecG722:
		// G.722 keeps the 8 kHz RTP clock of RFC 3551.
		return 8000
	default:
		return 0
	}
}

// CertificateType selects the DTLS certificate key type.
type CertificateType int32

const (
	CertificateDefault CertificateType = iota
	CertificateECDSA
	CertificateRSA
)

func (t CertificateType) String() string {
	switch t {
	case CertificateDefault:
		return "default"
	case CertificateECDSA:
		return "ecdsa"
	case CertificateRSA:
		return "rsa"
	default:
		return "unknown"
	}
}

func (t CertificateType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *CertificateType) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "default":
		*t = CertificateDefault
	case "ecdsa":
		*t = CertificateECDSA
	case "rsa":
		*t = CertificateRSA
	default:
		return fmt.Errorf("certificate type %q: %w", b, ErrInvalid)
	}
	return nil
}

// TransportPolicy restricts the ICE candidates used.
type TransportPolicy int32

const (
	TransportPolicyAll TransportPolicy = iota
	TransportPolicyRelay
)

func (p TransportPolicy) String() string {
	switch p {
	case TransportPolicyAll:
		return "all"
	case TransportPolicyRelay:
		return "relay"
	default:
		return "unknown"
	}
}

func (p TransportPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *TransportPolicy) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "all":
		*p = TransportPolicyAll
	case "relay":
		*p = TransportPolicyRelay
	default:
		return fmt.Errorf("transport policy %q: %w", b, ErrInvalid)
	}
	return nil
}

// LogLevel is a native logger level (rtcLogLevel).
type LogLevel int32

const (
	LogNone LogLevel = iota
	LogFatal
	LogError
	LogWarning
	LogInfo
	LogDebug
	LogVerbose
)

func (l LogLevel) String() string {
	switch l {
	case LogNone:
		return "none"
	case LogFatal:
		return "fatal"
	case LogError:
		return "error"
	case LogWarning:
		return "warning"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	case LogVerbose:
		return "verbose"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses the String form. "warn" is accepted for warning.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return LogNone, nil
	case "fatal":
		return LogFatal, nil
	case "error":
		return LogError, nil
	case "warning", "warn":
		return LogWarning, nil
	case "info":
		return LogInfo, nil
	case "debug":
		return LogDebug, nil
	case "verbose":
		return LogVerbose, nil
	default:
		return LogNone, fmt.Errorf("log level %q: %w", s, ErrInvalid)
	}
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *LogLevel) UnmarshalText(b []byte) error {
	v, err := ParseLogLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// DescriptionType is the type of a session description. The zero value
// lets libdatachannel pick the type.
type DescriptionType int

const (
	DescriptionTypeUnspecified DescriptionType = iota
	DescriptionTypeOffer
	DescriptionTypeAnswer
	DescriptionTypePranswer
	DescriptionTypeRollback
)

func (t DescriptionType) String() string {
	switch t {
	case DescriptionTypeUnspecified:
		return "unspecified"
	case DescriptionTypeOffer:
		return "offer"
	case DescriptionTypeAnswer:
		return "answer"
	case DescriptionTypePranswer:
		return "pranswer"
	case DescriptionTypeRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// wire returns the string libdatachannel expects; empty means NULL.
func (t DescriptionType) wire() string {
	if t == DescriptionTypeUnspecified {
		return ""
	}
	return t.String()
}

// ParseDescriptionType parses the libdatachannel type string. Matching is
// case-insensitive; empty input is DescriptionTypeUnspecified.
func ParseDescriptionType(s string) (DescriptionType, error) {
	switch strings.ToLower(s) {
	case "":
		return DescriptionTypeUnspecified, nil
	case "offer":
		return DescriptionTypeOffer, nil
	case "answer":
		return DescriptionTypeAnswer, nil
	case "pranswer":
		return DescriptionTypePranswer, nil
	case "rollback":
		return DescriptionTypeRollback, nil
	default:
		return DescriptionTypeUnspecified, fmt.Errorf("description type %q: %w", s, ErrInvalid)
	}
}
