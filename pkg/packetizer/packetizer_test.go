package packetizer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
)

func h264Frame(size int) []byte {
	frame := []byte{0, 0, 0, 1, 0x65}
	return append(frame, bytes.Repeat([]byte{0xab}, size)...)
}

func newH264(t *testing.T) *Packetizer {
	t.Helper()
	seq := uint16(100)
	p, err := New(Config{Codec: datachannel.CodecH264, SSRC: 7, PayloadType: 102, InitialSequence: &seq})
	require.NoError(t, err)
	return p
}

func TestDefaults(t *testing.T) {
	p := newH264(t)
	assert.Equal(t, uint16(DefaultMTU), p.Config().MTU)
	assert.Equal(t, uint32(90000), p.Config().ClockRate)
	assert.Equal(t, uint32(3000), p.Samples(time.Second/30))
}

func TestPacketizeFragmentsLargeFrame(t *testing.T) {
	p := newH264(t)

	first, err := p.Packetize(h264Frame(3000), time.Second/30)
	require.NoError(t, err)
	require.Greater(t, len(first), 1)
	assert.LessOrEqual(t, len(first), p.MaxPackets(3005))

	for i, pkt := range first {
		assert.Equal(t, uint16(100+i), pkt.SequenceNumber)
		assert.Equal(t, uint8(102), pkt.PayloadType)
		assert.Equal(t, uint32(7), pkt.SSRC)
		assert.Equal(t, first[0].Timestamp, pkt.Timestamp)
		assert.Equal(t, i == len(first)-1, pkt.Marker)
		raw, err := pkt.Marshal()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(raw), DefaultMTU)
	}

	second, err := p.Packetize(h264Frame(10), time.Second/30)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Timestamp+3000, second[0].Timestamp)
	assert.Equal(t, first[len(first)-1].SequenceNumber+1, second[0].SequenceNumber)
}

func TestSkipAdvancesTimestamp(t *testing.T) {
	p := newH264(t)
	a, err := p.Packetize(h264Frame(10), time.Second/30)
	require.NoError(t, err)
	p.Skip(time.Second / 30)
	b, err := p.Packetize(h264Frame(10), time.Second/30)
	require.NoError(t, err)
	assert.Equal(t, a[0].Timestamp+6000, b[0].Timestamp)
}

func TestPacketizeErrors(t *testing.T) {
	p := newH264(t)
	_, err := p.Packetize(nil, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = New(Config{Codec: datachannel.CodecAAC})
	assert.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestPayloaderPerCodec(t *testing.T) {
	for _, c := range []datachannel.Codec{
		datachannel.CodecH264, datachannel.CodecH265, datachannel.CodecVP8, datachannel.CodecVP9,
		datachannel.CodecAV1, datachannel.CodecOpus, datachannel.CodecPCMU, datachannel.CodecPCMA,
		datachannel.CodecG722,
	} {
		pl, err := Payloader(c)
		require.NoError(t, err, c.String())
		assert.NotNil(t, pl, c.String())
	}
}

type recorder struct {
	packets []*rtp.Packet
	failAt  int
}

func (r *recorder) WritePacket(pkt *rtp.Packet) error {
	if r.failAt > 0 && len(r.packets) == r.failAt {
		return errors.New("write failed")
	}
	r.packets = append(r.packets, pkt)
	return nil
}

func TestWriteFrame(t *testing.T) {
	p := newH264(t)
	w := &recorder{}
	require.NoError(t, p.WriteFrame(w, h264Frame(2500), 40*time.Millisecond))
	assert.Greater(t, len(w.packets), 1)

	failing := &recorder{failAt: 1}
	assert.EqualError(t, p.WriteFrame(failing, h264Frame(2500), 40*time.Millisecond), "write failed")
	assert.Len(t, failing.packets, 1)
}

func TestConfigFor(t *testing.T) {
	cfg := ConfigFor(&datachannel.TrackInit{Codec: datachannel.CodecOpus, SSRC: 9, PayloadType: 111})
	assert.Equal(t, Config{Codec: datachannel.CodecOpus, SSRC: 9, PayloadType: 111}, cfg)

	p, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint32(960), p.Samples(20*time.Millisecond))
}
