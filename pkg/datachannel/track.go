package datachannel

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/sdp/v3"
	"go.uber.org/zap"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// TrackInit describes a media track for AddTrackWithInit.
type TrackInit struct {
	Direction   Direction
	Codec       Codec
	PayloadType uint8
	SSRC        uint32
	Mid         string
	Name        string
	MSID        string
	TrackID     string
	// Profile is the codec fmtp line, for example
	// "profile-level-id=42e01f;packetization-mode=1".
	Profile string
}

func (i *TrackInit) toBridge() *bridge.TrackInit {
	return &bridge.TrackInit{
		Direction:   int32(i.Direction),
		Codec:       int32(i.Codec),
		PayloadType: int32(i.PayloadType),
		SSRC:        i.SSRC,
		Mid:         i.Mid,
		Name:        i.Name,
		MSID:        i.MSID,
		TrackID:     i.TrackID,
		Profile:     i.Profile,
	}
}

// Track wraps a libdatachannel media track. Without a media handler
// attached natively, a track carries raw RTP and RTCP packets.
type Track struct {
	pc     *PeerConnection
	handle int32

	onOpen    handlers[func()]
	onClosed  handlers[func()]
	onError   handlers[func(string)]
	onMessage handlers[func([]byte)]
	onPacket  handlers[func(*rtp.Packet)]

	msgMu  sync.Mutex
	closed atomic.Bool
}

func newTrack(pc *PeerConnection, handle int32) *Track {
	return &Track{pc: pc, handle: handle}
}

// Handle returns the native track id.
func (t *Track) Handle() int32 { return t.handle }

func (t *Track) engine() (bridge.Engine, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	return t.pc.engine()
}

func (t *Track) OnOpen(fn func()) func() { return t.onOpen.add(fn) }

func (t *Track) OnClosed(fn func()) func() { return t.onClosed.add(fn) }

func (t *Track) OnError(fn func(message string)) func() { return t.onError.add(fn) }

// OnMessage registers fn for every packet received on the track, RTP or
// RTCP, as raw bytes.
func (t *Track) OnMessage(fn func([]byte)) func() {
	return t.addReceiver(func() func() { return t.onMessage.add(fn) })
}

// OnPacket registers fn for received RTP packets. Packets that do not
// parse as RTP, such as RTCP, are skipped.
func (t *Track) OnPacket(fn func(*rtp.Packet)) func() {
	return t.addReceiver(func() func() { return t.onPacket.add(fn) })
}

// addReceiver keeps the native message callback set while any message or
// packet handler exists.
func (t *Track) addReceiver(add func() func()) func() {
	t.msgMu.Lock()
	defer t.msgMu.Unlock()
	remove := add()
	if t.receivers() == 1 {
		t.pc.switchMessages(t.handle, true)
	}
	return func() {
		t.msgMu.Lock()
		defer t.msgMu.Unlock()
		remove()
		if t.receivers() == 0 {
			t.pc.switchMessages(t.handle, false)
		}
	}
}

func (t *Track) receivers() int {
	return t.onMessage.len() + t.onPacket.len()
}

// deliver runs the message and packet handlers for one received packet.
// deliver hands data to OnMessage handlers and, for RTP, a parsed packet to
// OnPacket handlers. The packet's payload is parsed from a private copy, so
// OnMessage handlers may keep or modify data.
func (t *Track) deliver(data []byte) {
	var pkt *rtp.Packet
	if t.onPacket.len() > 0 && !isRTCP(data) {
		var err error
		if pkt, err = ParsePacket(bytes.Clone(data)); err != nil {
			bridge.Logger().Debug("track packet is not RTP", zap.Int32("handle", t.handle), zap.Error(err))
		}
	}
	t.onMessage.each(func(fn func([]byte)) { fn(data) })
	if pkt != nil {
		t.onPacket.each(func(fn func(*rtp.Packet)) { fn(pkt) })
	}
}

// ParsePacket decodes an RTP packet received on a track. RTCP packets
// are rejected.
func ParsePacket(data []byte) (*rtp.Packet, error) {
	if isRTCP(data) {
		return nil, fmt.Errorf("datachannel: rtcp packet type %d", data[1])
	}
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("datachannel: unmarshal rtp: %w", err)
	}
	return pkt, nil
}

// isRTCP applies the RFC 5761 payload type rule for demultiplexing RTP and
// RTCP on one transport.
func isRTCP(data []byte) bool {
	return len(data) >= 2 && data[1] >= 192 && data[1] <= 223
}

// Send sends one raw packet.
func (t *Track) Send(data []byte) error {
	e, err := t.engine()
	if err != nil {
		return err
	}
	return bridge.Check("rtcSendMessage", e.SendMessage(t.handle, data, false))
}

// WritePacket marshals and sends an RTP packet.
func (t *Track) WritePacket(pkt *rtp.Packet) error {
	data, err := pkt.Marshal()
	if err != nil {
		return fmt.Errorf("datachannel: marshal rtp: %w", err)
	}
	return t.Send(data)
}

// WriteRTP sends an RTP packet built from header and payload.
func (t *Track) WriteRTP(header *rtp.Header, payload []byte) error {
	return t.WritePacket(&rtp.Packet{Header: *header, Payload: payload})
}

// Description returns the SDP media description of the track.
func (t *Track) Description() (string, error) {
	e, err := t.engine()
	if err != nil {
		return "", err
	}
	return bridge.QueryString(e, t.handle, bridge.FieldTrackDescription)
}

// MediaDescription parses Description.
func (t *Track) MediaDescription() (*sdp.MediaDescription, error) {
	desc, err := t.Description()
	if err != nil {
		return nil, err
	}
	return parseMediaSection(desc)
}

// Mid returns the media identifier.
func (t *Track) Mid() (string, error) {
	e, err := t.engine()
	if err != nil {
		return "", err
	}
	return bridge.QueryString(e, t.handle, bridge.FieldTrackMid)
}

func (t *Track) Direction() (Direction, error) {
	e, err := t.engine()
	if err != nil {
		return DirectionUnknown, err
	}
	var dir int32
	if err := bridge.Check("rtcGetTrackDirection", e.TrackDirection(t.handle, &dir)); err != nil {
		return DirectionUnknown, err
	}
	return Direction(dir), nil
}

func (t *Track) IsOpen() bool {
	e, err := t.engine()
	return err == nil && e.IsOpen(t.handle)
}

func (t *Track) IsClosed() bool {
	e, err := t.engine()
	return err == nil && e.IsClosed(t.handle)
}

// Close closes and deletes the track.
func (t *Track) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer t.clearHandlers()
	t.pc.dropTrack(t.handle)

	if !t.pc.rt.Pin() {
		return nil
	}
	defer t.pc.rt.Unpin()
	e := t.pc.rt.Engine()
	code := e.Close(t.handle)
	bridge.Release(t.pc.rt, t.handle, bridge.ChannelKinds)
	if code == bridge.CodeInvalid {
		return nil
	}
	return bridge.Check("rtcDeleteTrack", e.DeleteTrack(t.handle))
}

func (t *Track) clearHandlers() {
	t.onOpen.clear()
	t.onClosed.clear()
	t.onError.clear()
	t.onMessage.clear()
	t.onPacket.clear()
}
