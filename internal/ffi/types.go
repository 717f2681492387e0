package ffi

import (
	"unsafe"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// Configuration matches rtcConfiguration in rtc.h
type Configuration struct {
	IceServers             uintptr // const char **
	IceServersCount        int32
	ProxyServer            uintptr
	BindAddress            uintptr
	CertificateType        int32
	IceTransportPolicy     int32
	EnableIceTcp           uint8
	EnableIceUdpMux        uint8
	DisableAutoNegotiation uint8
	ForceMediaTransport    uint8
	PortRangeBegin         uint16
	PortRangeEnd           uint16
	Mtu                    int32
	MaxMessageSize         int32
}

// Reliability matches rtcReliability in rtc.h
type Reliability struct {
	Unordered         uint8
	Unreliable        uint8
	_                 [2]byte // padding
	MaxPacketLifeTime uint32
	MaxRetransmits    uint32
}

// DataChannelInit matches rtcDataChannelInit in rtc.h
type DataChannelInit struct {
	Reliability  Reliability
	Protocol     uintptr
	Negotiated   uint8
	ManualStream uint8
	Stream       uint16
}

// TrackInit matches rtcTrackInit in rtc.h
type TrackInit struct {
	Direction   int32
	Codec       int32
	PayloadType int32
	SSRC        uint32
	Mid         uintptr
	Name        uintptr
	Msid        uintptr
	TrackId     uintptr
	Profile     uintptr
}

// Ptr returns a pointer to the config as uintptr for FFI calls.
func (c *Configuration) Ptr() uintptr {
	return uintptr(unsafe.Pointer(c))
}

// Ptr returns a pointer to the reliability as uintptr for FFI calls.
func (r *Reliability) Ptr() uintptr {
	return uintptr(unsafe.Pointer(r))
}

// Ptr returns a pointer to the init as uintptr for FFI calls.
func (d *DataChannelInit) Ptr() uintptr {
	return uintptr(unsafe.Pointer(d))
}

// Ptr returns a pointer to the init as uintptr for FFI calls.
func (t *TrackInit) Ptr() uintptr {
	return uintptr(unsafe.Pointer(t))
}

// cArena keeps the Go memory behind C pointers reachable for the duration
// of a call. Go's collector does not move heap objects, so keeping them
// referenced is enough.
type cArena struct {
	strs [][]byte
	ptrs [][]uintptr
}

// str returns a C string pointer, or 0 for the empty string.
func (a *cArena) str(s string) uintptr {
	if s == "" {
		return 0
	}
	b := CString(s)
	a.strs = append(a.strs, b)
	return ByteSlicePtr(b)
}

// mustStr is str that always returns a valid pointer.
func (a *cArena) mustStr(s string) uintptr {
	b := CString(s)
	a.strs = append(a.strs, b)
	return ByteSlicePtr(b)
}

// strArray returns a const char ** for ss.
func (a *cArena) strArray(ss []string) uintptr {
	if len(ss) == 0 {
		return 0
	}
	arr := make([]uintptr, len(ss))
	for i, s := range ss {
		arr[i] = a.mustStr(s)
	}
	a.ptrs = append(a.ptrs, arr)
	return uintptr(unsafe.Pointer(&arr[0]))
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// newConfiguration converts cfg. The arena must outlive the native call.
func newConfiguration(a *cArena, cfg *bridge.PeerConfig) *Configuration {
	c := &Configuration{}
	if cfg == nil {
		return c
	}
	c.IceServers = a.strArray(cfg.ICEServers)
	c.IceServersCount = int32(len(cfg.ICEServers))
	c.ProxyServer = a.str(cfg.ProxyServer)
	c.BindAddress = a.str(cfg.BindAddress)
	c.CertificateType = cfg.CertificateType
	c.IceTransportPolicy = cfg.ICETransportPolicy
	c.EnableIceTcp = boolByte(cfg.EnableICETCP)
	c.EnableIceUdpMux = boolByte(cfg.EnableICEUDPMux)
	c.DisableAutoNegotiation = boolByte(cfg.DisableAutoNegotiation)
	c.ForceMediaTransport = boolByte(cfg.ForceMediaTransport)
	c.PortRangeBegin = cfg.PortRangeBegin
	c.PortRangeEnd = cfg.PortRangeEnd
	c.Mtu = cfg.MTU
	c.MaxMessageSize = cfg.MaxMessageSize
	return c
}

func newReliability(r bridge.Reliability) Reliability {
	return Reliability{
		Unordered:         boolByte(r.Unordered),
		Unreliable:        boolByte(r.Unreliable),
		MaxPacketLifeTime: r.MaxPacketLifeTime,
		MaxRetransmits:    r.MaxRetransmits,
	}
}

func (r Reliability) toBridge() bridge.Reliability {
	return bridge.Reliability{
		Unordered:         r.Unordered != 0,
		Unreliable:        r.Unreliable != 0,
		MaxPacketLifeTime: r.MaxPacketLifeTime,
		MaxRetransmits:    r.MaxRetransmits,
	}
}

func newDataChannelInit(a *cArena, init *bridge.ChannelInit) *DataChannelInit {
	d := &DataChannelInit{}
	if init == nil {
		return d
	}
	d.Reliability = newReliability(init.Reliability)
	d.Protocol = a.str(init.Protocol)
	d.Negotiated = boolByte(init.Negotiated)
	d.ManualStream = boolByte(init.ManualStream)
	d.Stream = init.Stream
	return d
}

func newTrackInit(a *cArena, init *bridge.TrackInit) *TrackInit {
	return &TrackInit{
		Direction:   init.Direction,
		Codec:       init.Codec,
		PayloadType: init.PayloadType,
		SSRC:        init.SSRC,
		Mid:         a.str(init.Mid),
		Name:        a.str(init.Name),
		Msid:        a.str(init.MSID),
		TrackId:     a.str(init.TrackID),
		Profile:     a.str(init.Profile),
	}
}

// ByteSlicePtr returns a uintptr to the first element of a byte slice.
// Returns 0 if the slice is empty.
func ByteSlicePtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// Int32Ptr returns a uintptr to an int32 variable.
func Int32Ptr(p *int32) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// CString allocates a null-terminated C string from a Go string.
// The caller is responsible for keeping the returned byte slice alive
// for as long as the C code needs it.
func CString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// GoString copies a null-terminated C string. A zero pointer yields "".
//
//go:nocheckptr
func GoString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}

// GoBytes copies size bytes of C memory.
//
//go:nocheckptr
func GoBytes(p uintptr, size int) []byte {
	if p == 0 || size <= 0 {
		return []byte{}
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(p)), size))
	return out
}

// decodeMessage converts a message callback payload. A negative size
// marks a null-terminated text message.
func decodeMessage(p uintptr, size int32) ([]byte, bool) {
	if size < 0 {
		return []byte(GoString(p)), true
	}
	return GoBytes(p, int(size)), false
}
