// Package track sends and receives encoded media samples on libdatachannel
// tracks, using the pion media.Sample type.
package track

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
	"github.com/thesyncim/libgodatachannel/pkg/packetizer"
)

// Errors
var (
	ErrTrackClosed   = errors.New("track is closed")
	ErrInvalidConfig = errors.New("invalid config")
)

// LocalConfig configures a local track.
type LocalConfig struct {
	ID       string
	StreamID string
	Codec    datachannel.Codec
	// PayloadType zero uses the conventional payload type of Codec.
	PayloadType uint8
	// SSRC zero picks a random one.
	SSRC uint32
	// Mid defaults to ID.
	Mid     string
	Profile string
	MTU     uint16 // RTP MTU (default 1200)
	// Direction defaults to sendonly.
	Direction datachannel.Direction
}

// Local sends encoded samples on a libdatachannel track.
type Local struct {
	config LocalConfig
	w      packetizer.PacketWriter
	track  *datachannel.Track
	pk     *packetizer.Packetizer

	mu      sync.Mutex
	packets atomic.Uint64
	closed  atomic.Bool
}

// NewLocal adds a track for cfg to pc.
func NewLocal(pc *datachannel.PeerConnection, cfg LocalConfig) (*Local, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	tr, err := pc.AddTrackWithInit(cfg.trackInit())
	if err != nil {
		return nil, err
	}
	l, err := newLocal(tr, cfg)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	l.track = tr
	return l, nil
}

func newLocal(w packetizer.PacketWriter, cfg LocalConfig) (*Local, error) {
	pcfg := packetizer.ConfigFor(cfg.trackInit())
	pcfg.MTU = cfg.MTU
	pk, err := packetizer.New(pcfg)
	if err != nil {
		return nil, err
	}
	return &Local{config: cfg, w: w, pk: pk}, nil
}

func (c LocalConfig) withDefaults() (LocalConfig, error) {
	if c.ID == "" {
		return c, fmt.Errorf("%w: empty track id", ErrInvalidConfig)
	}
	if c.Codec.ClockRate() == 0 {
		return c, fmt.Errorf("%w: codec %s", ErrInvalidConfig, c.Codec)
	}
	if c.StreamID == "" {
		c.StreamID = c.ID
	}
	if c.Mid == "" {
		c.Mid = c.ID
	}
	if c.PayloadType == 0 {
		c.PayloadType = DefaultPayloadType(c.Codec)
	}
	if c.SSRC == 0 {
		c.SSRC = rand.Uint32() | 1
	}
	if c.MTU == 0 {
		c.MTU = packetizer.DefaultMTU
	}
	if c.Direction == datachannel.DirectionUnknown {
		c.Direction = datachannel.DirectionSendOnly
	}
	return c, nil
}

func (c LocalConfig) trackInit() *datachannel.TrackInit {
	return &datachannel.TrackInit{
		Direction:   c.Direction,
		Codec:       c.Codec,
		PayloadType: c.PayloadType,
		SSRC:        c.SSRC,
		Mid:         c.Mid,
		Name:        c.ID,
		MSID:        c.StreamID,
		TrackID:     c.ID,
		Profile:     c.Profile,
	}
}

// DefaultPayloadType returns the payload type browsers commonly offer for
// c. Static RFC 3551 types are used for G.711 and G.722.
func DefaultPayloadType(c datachannel.Codec) uint8 {
	switch c {
	case datachannel.CodecVP8:
		return 96
	case datachannel.CodecVP9:
		return 98
	case datachannel.CodecH264:
		return 102
	case datachannel.CodecAV1:
		return 45
	case datachannel.CodecH265:
		return 49
	case datachannel.CodecOpus:
		return 111
	case datachannel.CodecPCMU:
		return 0
	case datachannel.CodecPCMA:
		return 8
	case datachannel.CodecG722:
		return 9
	default:
		return 96
	}
}

// ID returns the track ID.
func (l *Local) ID() string { return l.config.ID }

// StreamID returns the stream ID.
func (l *Local) StreamID() string { return l.config.StreamID }

// Config returns the configuration with defaults applied.
func (l *Local) Config() LocalConfig { return l.config }

// Track returns the underlying libdatachannel track.
func (l *Local) Track() *datachannel.Track { return l.track }

// PacketsSent returns the number of RTP packets written.
func (l *Local) PacketsSent() uint64 { return l.packets.Load() }

// WriteSample packetizes one encoded sample. Sample.Duration advances the
// RTP timestamp; PrevDroppedPackets skips that many sample durations first.
func (l *Local) WriteSample(s media.Sample) error {
	if l.closed.Load() {
		return ErrTrackClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for range s.PrevDroppedPackets {
		l.pk.Skip(s.Duration)
	}
	packets, err := l.pk.Packetize(s.Data, s.Duration)
	if err != nil {
		return err
	}
	for _, pkt := range packets {
		if err := l.w.WritePacket(pkt); err != nil {
			return err
		}
		l.packets.Add(1)
	}
	return nil
}

// WriteEncodedData writes data as one sample lasting duration.
func (l *Local) WriteEncodedData(data []byte, duration time.Duration) error {
	return l.WriteSample(media.Sample{Data: data, Duration: duration})
}

// WriteRTP sends a prepared packet unchanged.
func (l *Local) WriteRTP(pkt *rtp.Packet) error {
	if l.closed.Load() {
		return ErrTrackClosed
	}
	if err := l.w.WritePacket(pkt); err != nil {
		return err
	}
	l.packets.Add(1)
	return nil
}

// Close closes the underlying track.
func (l *Local) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	if l.track != nil {
		return l.track.Close()
	}
	return nil
}
