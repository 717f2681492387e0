package track

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
	"github.com/thesyncim/libgodatachannel/pkg/depacketizer"
)

// Remote reassembles samples received on a libdatachannel track.
type Remote struct {
	codec     datachannel.Codec
	clockRate uint32
	d         *depacketizer.Depacketizer

	mu     sync.Mutex
	lastTS uint32
	seen   bool
	detach func()
}

// NewRemote reassembles samples of codec c arriving on tr and passes them to
// fn. Call Close to stop.
func NewRemote(tr *datachannel.Track, c datachannel.Codec, fn func(media.Sample)) (*Remote, error) {
	r, err := newRemote(c)
	if err != nil {
		return nil, err
	}
	r.detach = r.d.Attach(tr, func(f depacketizer.Frame) { fn(r.sample(f)) })
	return r, nil
}

func newRemote(c datachannel.Codec) (*Remote, error) {
	d, err := depacketizer.New(c)
	if err != nil {
		return nil, err
	}
	return &Remote{codec: c, clockRate: c.ClockRate(), d: d}, nil
}

// sample converts a frame. The duration is the timestamp distance to the
// previous frame, zero for the first one.
func (r *Remote) sample(f depacketizer.Frame) media.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := media.Sample{
		Data:            f.Data,
		Timestamp:       time.Now(),
		PacketTimestamp: f.Timestamp,
	}
	if r.seen && r.clockRate > 0 {
		ticks := f.Timestamp - r.lastTS
		s.Duration = time.Duration(ticks) * time.Second / time.Duration(r.clockRate)
	}
	r.lastTS = f.Timestamp
	r.seen = true
	return s
}

// Codec returns the codec being reassembled.
func (r *Remote) Codec() datachannel.Codec { return r.codec }

// Stats returns the reassembly counters.
func (r *Remote) Stats() depacketizer.Stats { return r.d.Stats() }

// Close stops delivering samples.
func (r *Remote) Close() error {
	if r.detach != nil {
		r.detach()
		r.detach = nil
	}
	return nil
}
