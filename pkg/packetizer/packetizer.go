// Package packetizer splits encoded media frames into RTP packets for a
// libdatachannel track. Payload formats come from pion/rtp/codecs.
package packetizer

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"

	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
)

// DefaultMTU leaves room for SRTP and TURN overhead on a 1280 byte path.
const DefaultMTU = 1200

// Errors
var (
	ErrUnsupportedCodec = errors.New("packetizer: unsupported codec")
	ErrInvalidData      = errors.New("packetizer: empty frame")
)

// Config configures a Packetizer.
type Config struct {
	Codec       datachannel.Codec
	SSRC        uint32
	PayloadType uint8
	MTU         uint16 // Maximum RTP packet size; zero means DefaultMTU
	ClockRate   uint32 // Zero uses Codec.ClockRate
	// InitialSequence fixes the first sequence number. Nil picks a
	// random one.
	InitialSequence *uint16
}

// ConfigFor returns a Config matching the track init, so packets carry
// the payload type and SSRC the track announced.
func ConfigFor(ti *datachannel.TrackInit) Config {
	return Config{
		Codec:       ti.Codec,
		SSRC:        ti.SSRC,
		PayloadType: ti.PayloadType,
	}
}

// PacketWriter sends RTP packets. *datachannel.Track implements it.
type PacketWriter interface {
	WritePacket(pkt *rtp.Packet) error
}

// Packetizer converts encoded frames into RTP packets. It is safe for
// concurrent use; frames are numbered in call order.
type Packetizer struct {
	config Config

	mu sync.Mutex
	p  rtp.Packetizer
}

// New creates a packetizer for cfg.Codec.
func New(cfg Config) (*Packetizer, error) {
	payloader, err := Payloader(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if cfg.MTU == 0 {
		cfg.MTU = DefaultMTU
	}
	if cfg.ClockRate == 0 {
		cfg.ClockRate = cfg.Codec.ClockRate()
	}
	sequencer := rtp.NewRandomSequencer()
	if cfg.InitialSequence != nil {
		sequencer = rtp.NewFixedSequencer(*cfg.InitialSequence)
	}
	return &Packetizer{
		config: cfg,
		p:      rtp.NewPacketizer(cfg.MTU, cfg.PayloadType, cfg.SSRC, payloader, sequencer, cfg.ClockRate),
	}, nil
}

// Payloader returns the RTP payload format for c.
func Payloader(c datachannel.Codec) (rtp.Payloader, error) {
	switch c {
	case datachannel.CodecH264:
		return &codecs.H264Payloader{}, nil
	case datachannel.CodecH265:
		return &codecs.H265Payloader{}, nil
	case datachannel.CodecVP8:
		return &codecs.VP8Payloader{EnablePictureID: true}, nil
	case datachannel.CodecVP9:
		return &codecs.VP9Payloader{}, nil
	case datachannel.CodecAV1:
		return &codecs.AV1Payloader{}, nil
	case datachannel.CodecOpus:
		return &codecs.OpusPayloader{}, nil
	case datachannel.CodecPCMU, datachannel.CodecPCMA:
		return &codecs.G711Payloader{}, nil
	case datachannel.CodecG722:
		return &codecs.G722Payloader{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, c)
	}
}

// Config returns the configuration with defaults applied.
func (p *Packetizer) Config() Config { return p.config }

// Samples converts a frame duration into RTP clock ticks.
func (p *Packetizer) Samples(d time.Duration) uint32 {
	return uint32(math.Round(d.Seconds() * float64(p.config.ClockRate)))
}

// Packetize splits one encoded frame into packets sharing a timestamp.
// The timestamp of the next frame advances by duration.
func (p *Packetizer) Packetize(frame []byte, duration time.Duration) ([]*rtp.Packet, error) {
	if len(frame) == 0 {
		return nil, ErrInvalidData
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.p.Packetize(frame, p.Samples(duration)), nil
}

// WriteFrame packetizes frame and writes every packet to w, stopping at
// the first write error.
func (p *Packetizer) WriteFrame(w PacketWriter, frame []byte, duration time.Duration) error {
	packets, err := p.Packetize(frame, duration)
	if err != nil {
		return err
	}
	for _, pkt := range packets {
		if err := w.WritePacket(pkt); err != nil {
			return err
		}
	}
	return nil
}

// Skip advances the timestamp without sending, for dropped frames.
func (p *Packetizer) Skip(duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.p.SkipSamples(p.Samples(duration))
}

// MaxPackets returns an upper bound on the packets a frame of frameSize
// bytes produces.
func (p *Packetizer) MaxPackets(frameSize int) int {
	// Worst case: RTP header plus ~100 bytes of payload descriptor and
	// fragmentation headers per packet.
	payloadPerPacket := int(p.config.MTU) - 100
	if payloadPerPacket <= 0 {
		payloadPerPacket = 1000
	}
	return (frameSize + payloadPerPacket - 1) / payloadPerPacket
}
