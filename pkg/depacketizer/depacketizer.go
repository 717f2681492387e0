// Package depacketizer reassembles encoded media frames from RTP packets
// received on a libdatachannel track.
package depacketizer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"

	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
)

// Errors
var (
	ErrUnsupportedCodec = errors.New("depacketizer: unsupported codec")
)

// Frame is a reassembled frame.
type Frame struct {
	Data      []byte
	Timestamp uint32
	// Packets is the number of RTP packets the frame arrived in.
	Packets int
}

// Stats counts reassembly outcomes.
type Stats struct {
	Frames  uint64
	Dropped uint64 // partial frames discarded on loss or reordering
}

// Depacketizer reassembles frames from in-order RTP packets. A sequence
// gap or a timestamp change inside a frame discards the partial frame and
// waits for the next partition head. It is safe for concurrent use.
type Depacketizer struct {
	codec datachannel.Codec

	mu      sync.Mutex
	d       rtp.Depacketizer
	buf     []byte
	packets int
	ts      uint32
	lastSeq uint16
	started bool
	seen    bool
	stats   Stats
}

// New creates a depacketizer for c.
func New(c datachannel.Codec) (*Depacketizer, error) {
	d, err := payloadFormat(c)
	if err != nil {
		return nil, err
	}
	return &Depacketizer{codec: c, d: d}, nil
}

func payloadFormat(c datachannel.Codec) (rtp.Depacketizer, error) {
	switch c {
	case datachannel.CodecH264:
		return &codecs.H264Packet{}, nil
	case datachannel.CodecH265:
		return &codecs.H265Packet{}, nil
	case datachannel.CodecVP8:
		return &codecs.VP8Packet{}, nil
	case datachannel.CodecVP9:
		return &codecs.VP9Packet{}, nil
	case datachannel.CodecAV1:
		return &codecs.AV1Depacketizer{}, nil
	case datachannel.CodecOpus:
		return &codecs.OpusPacket{}, nil
	case datachannel.CodecPCMU, datachannel.CodecPCMA, datachannel.CodecG722:
		return rawAudio{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, c)
	}
}

// rawAudio is the payload format of codecs without a payload header:
// every packet is a complete frame.
type rawAudio struct{}

func (rawAudio) Unmarshal(payload []byte) ([]byte, error) { return payload, nil }
func (rawAudio) IsPartitionHead([]byte) bool             { return true }
func (rawAudio) IsPartitionTail(bool, []byte) bool       { return true }

// Codec returns the codec the depacketizer was created for.
func (d *Depacketizer) Codec() datachannel.Codec { return d.codec }

// Push adds one packet. It returns the frame the packet completes, if
// any. Packets that fail to parse drop the current frame and return the
// parse error.
func (d *Depacketizer) Push(pkt *rtp.Packet) (Frame, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(pkt.Payload) == 0 {
		return Frame{}, false, nil
	}

	if d.started && ((d.seen && pkt.SequenceNumber != d.lastSeq+1) || pkt.Timestamp != d.ts) {
		d.reset(true)
	}
	d.lastSeq = pkt.SequenceNumber
	d.seen = true

	if !d.started {
		if !d.d.IsPartitionHead(pkt.Payload) {
			return Frame{}, false, nil
		}
		d.started = true
		d.ts = pkt.Timestamp
	}

	data, err := d.d.Unmarshal(pkt.Payload)
	if err != nil {
		d.reset(true)
		return Frame{}, false, fmt.Errorf("depacketizer: %s: %w", d.codec, err)
	}
	d.buf = append(d.buf, data...)
	d.packets++

	if !d.d.IsPartitionTail(pkt.Marker, pkt.Payload) {
		return Frame{}, false, nil
	}
	f := Frame{Data: d.buf, Timestamp: d.ts, Packets: d.packets}
	d.buf = nil
	d.reset(false)
	d.stats.Frames++
	return f, true, nil
}

// reset drops the partial frame. After a drop the payload format is
// recreated, since fragment buffers inside it may hold stale data.
func (d *Depacketizer) reset(dropped bool) {
	if dropped && d.started {
		d.stats.Dropped++
		d.d, _ = payloadFormat(d.codec)
	}
	d.buf = d.buf[:0]
	d.packets = 0
	d.started = false
}

// Stats returns the reassembly counters.
func (d *Depacketizer) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Attach feeds every RTP packet received on tr into d and calls fn for each
// completed frame. The returned function detaches.
func (d *Depacketizer) Attach(tr *datachannel.Track, fn func(Frame)) func() {
	return tr.OnPacket(func(pkt *rtp.Packet) {
		f, ok, err := d.Push(pkt)
		if err != nil || !ok {
			return
		}
		fn(f)
	})
}
