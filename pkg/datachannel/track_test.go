package datachannel

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

func testPacket(seq uint16) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    96,
			SequenceNumber: seq,
			Timestamp:      90000,
			SSRC:           0x1234abcd,
			Marker:         true,
		},
		Payload: []byte{0x65, 0x88, 0x84, 0x00},
	}
}

func TestAddTrackFromMediaDescription(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)

	tr, err := pc.AddTrack(videoSection)
	require.NoError(t, err)
	assert.ElementsMatch(t, bridge.ChildKinds, f.engine.Callbacks(tr.Handle()))
	assert.Equal(t, []*Track{tr}, pc.Tracks())

	desc, err := tr.Description()
	require.NoError(t, err)
	assert.Equal(t, videoSection, desc)

	md, err := tr.MediaDescription()
	require.NoError(t, err)
	assert.Equal(t, "video", md.MediaName.Media)
	mid, ok := md.Attribute("mid")
	require.True(t, ok)
	assert.Equal(t, "video", mid)

	dir, err := tr.Direction()
	require.NoError(t, err)
	assert.Equal(t, DirectionSendRecv, dir)

	_, err = pc.AddTrack("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAddTrackWithInit(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)

	tr, err := pc.AddTrackWithInit(&TrackInit{
		Direction:   DirectionSendOnly,
		Codec:       CodecOpus,
		PayloadType: 111,
		SSRC:        42,
		Mid:         "audio",
		Name:        "mic",
		MSID:        "stream",
		TrackID:     "mic-1",
	})
	require.NoError(t, err)

	mid, err := tr.Mid()
	require.NoError(t, err)
	assert.Equal(t, "audio", mid)

	dir, err := tr.Direction()
	require.NoError(t, err)
	assert.Equal(t, DirectionSendOnly, dir)

	_, err = pc.AddTrackWithInit(nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTrackWritePacket(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	tr, err := pc.AddTrack(videoSection)
	require.NoError(t, err)

	pkt := testPacket(7)
	require.NoError(t, tr.WritePacket(pkt))
	require.NoError(t, tr.WriteRTP(&pkt.Header, pkt.Payload))

	want, err := pkt.Marshal()
	require.NoError(t, err)
	sent := f.engine.Sent(tr.Handle())
	require.Len(t, sent, 2)
	for _, m := range sent {
		assert.Equal(t, want, m.Data)
		assert.False(t, m.Text)
	}
}

func TestTrackOnPacket(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	tr, err := pc.AddTrack(videoSection)
	require.NoError(t, err)
	id := tr.Handle()

	var raw int
	var packets []*rtp.Packet
	removeRaw := tr.OnMessage(func([]byte) { raw++ })
	removePackets := tr.OnPacket(func(p *rtp.Packet) { packets = append(packets, p) })
	assert.Contains(t, f.engine.Callbacks(id), bridge.KindMessage)

	data, err := testPacket(9).Marshal()
	require.NoError(t, err)
	require.True(t, f.engine.FireMessage(id, data, false))

	// RTCP sender report header, demultiplexed away from OnPacket.
	rtcp := []byte{0x80, 200, 0x00, 0x06, 0, 0, 0, 1}
	require.True(t, f.engine.FireMessage(id, rtcp, false))

	assert.Equal(t, 2, raw)
	require.Len(t, packets, 1)
	assert.Equal(t, uint16(9), packets[0].SequenceNumber)
	assert.Equal(t, uint32(0x1234abcd), packets[0].SSRC)
	assert.Equal(t, []byte{0x65, 0x88, 0x84, 0x00}, packets[0].Payload)

	removeRaw()
	assert.Contains(t, f.engine.Callbacks(id), bridge.KindMessage)
	removePackets()
	assert.NotContains(t, f.engine.Callbacks(id), bridge.KindMessage)
}

func TestTrackPacketSurvivesMessageHandler(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	tr, err := pc.AddTrack(videoSection)
	require.NoError(t, err)

	var payload []byte
	tr.OnMessage(func(b []byte) {
		for i := range b {
			b[i] = 0xff
		}
	})
	tr.OnPacket(func(p *rtp.Packet) { payload = p.Payload })

	data, err := testPacket(4).Marshal()
	require.NoError(t, err)
	require.True(t, f.engine.FireMessage(tr.Handle(), data, false))

	assert.Equal(t, []byte{0x65, 0x88, 0x84, 0x00}, payload)
}

func TestIsRTCP(t *testing.T) {
	assert.True(t, isRTCP([]byte{0x80, 200}))
	assert.True(t, isRTCP([]byte{0x81, 201}))
	assert.False(t, isRTCP([]byte{0x80, 96}))
	assert.False(t, isRTCP([]byte{0x80, 0xe0}))
	assert.False(t, isRTCP([]byte{0x80}))
}

func TestParsePacket(t *testing.T) {
	data, err := testPacket(3).Marshal()
	require.NoError(t, err)
	pkt, err := ParsePacket(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), pkt.SequenceNumber)

	_, err = ParsePacket([]byte{0x80, 201, 0, 1, 0, 0, 0, 0})
	assert.ErrorContains(t, err, "rtcp")
	_, err = ParsePacket([]byte{0x80})
	assert.Error(t, err)
}

func TestTrackClose(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	tr, err := pc.AddTrack(videoSection)
	require.NoError(t, err)
	id := tr.Handle()

	require.NoError(t, tr.Close())
	assert.False(t, f.engine.Alive(id))
	assert.Empty(t, pc.Tracks())
	assert.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send([]byte{1}), ErrClosed)
	assert.False(t, tr.IsClosed())
}
