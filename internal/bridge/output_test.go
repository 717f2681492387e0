package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
	"github.com/thesyncim/libgodatachannel/internal/bridge/bridgetest"
)

func TestQueryStringRoundTrip(t *testing.T) {
	e := bridgetest.NewFakeEngine()
	pc := int32(e.CreatePeerConnection(nil))

	for _, value := range []string{"x", "v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\n", "192.168.1.10:5000"} {
		e.SetOutput(pc, bridge.FieldLocalDescription, value)

		n := e.QueryOutput(pc, bridge.FieldLocalDescription, nil, -1)
		require.Equal(t, len(value)+1, n)

		got, err := bridge.QueryString(e, pc, bridge.FieldLocalDescription)
		require.NoError(t, err)
		assert.Equal(t, value, got)
		assert.Len(t, got, n-1)
	}
}

func TestQueryStringErrors(t *testing.T) {
	e := bridgetest.NewFakeEngine()
	pc := int32(e.CreatePeerConnection(nil))

	_, err := bridge.QueryString(e, pc, bridge.FieldRemoteDescription)
	assert.ErrorIs(t, err, bridge.ErrNotAvailable)
	assert.Contains(t, err.Error(), "rtcGetRemoteDescription")

	e.DeletePeerConnection(pc)
	_, err = bridge.QueryString(e, pc, bridge.FieldLocalDescription)
	assert.ErrorIs(t, err, bridge.ErrInvalid)
}

// deletingEngine deletes the handle between the size query and the fill.
type deletingEngine struct {
	*bridgetest.FakeEngine
}

func (d deletingEngine) QueryOutput(handle int32, field bridge.OutputField, buf []byte, size int) int {
	if buf != nil {
		d.DeletePeerConnection(handle)
	}
	return d.FakeEngine.QueryOutput(handle, field, buf, size)
}

func TestQueryStringDeletedBetweenPhases(t *testing.T) {
	e := bridgetest.NewFakeEngine()
	pc := int32(e.CreatePeerConnection(nil))
	e.SetOutput(pc, bridge.FieldLocalAddress, "10.0.0.1:4000")

	_, err := bridge.QueryString(deletingEngine{e}, pc, bridge.FieldLocalAddress)
	assert.ErrorIs(t, err, bridge.ErrInvalid)
}

func TestQueryOptionalString(t *testing.T) {
	e := bridgetest.NewFakeEngine()
	pc := int32(e.CreatePeerConnection(nil))

	s, ok, err := bridge.QueryOptionalString(e, pc, bridge.FieldRemoteDescription)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s)

	e.SetOutput(pc, bridge.FieldRemoteDescription, "v=0")
	s, ok, err = bridge.QueryOptionalString(e, pc, bridge.FieldRemoteDescription)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v=0", s)

	e.DeletePeerConnection(pc)
	_, _, err = bridge.QueryOptionalString(e, pc, bridge.FieldRemoteDescription)
	assert.ErrorIs(t, err, bridge.ErrInvalid)
}

func TestSelectedCandidatePair(t *testing.T) {
	e := bridgetest.NewFakeEngine()
	pc := int32(e.CreatePeerConnection(nil))

	_, _, err := bridge.SelectedCandidatePair(e, pc)
	assert.ErrorIs(t, err, bridge.ErrNotAvailable)

	local := "a=candidate:1 1 UDP 2122317823 192.168.1.2 50000 typ host"
	remote := "a=candidate:2 1 UDP 1686052607 203.0.113.9 61000 typ srflx raddr 0.0.0.0 rport 0"
	e.SetCandidatePair(pc, local, remote)

	l, r, err := bridge.SelectedCandidatePair(e, pc)
	require.NoError(t, err)
	assert.Equal(t, local, l)
	assert.Equal(t, remote, r)
}

func TestReceive(t *testing.T) {
	e := bridgetest.NewFakeEngine()
	pc := int32(e.CreatePeerConnection(nil))
	dc := int32(e.CreateDataChannel(pc, "chat", nil))

	_, _, ok, err := bridge.Receive(e, dc)
	require.NoError(t, err)
	assert.False(t, ok)

	e.QueueMessage(dc, []byte("hello"), true)
	e.QueueMessage(dc, []byte{1, 2, 3}, false)
	e.QueueMessage(dc, nil, false)

	data, text, ok, err := bridge.Receive(e, dc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, text)
	assert.Equal(t, []byte("hello"), data)

	data, text, ok, err = bridge.Receive(e, dc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, text)
	assert.Equal(t, []byte{1, 2, 3}, data)

	data, text, ok, err = bridge.Receive(e, dc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, text)
	assert.Empty(t, data)

	_, _, ok, err = bridge.Receive(e, dc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReceiveInto(t *testing.T) {
	e := bridgetest.NewFakeEngine()
	pc := int32(e.CreatePeerConnection(nil))
	dc := int32(e.CreateDataChannel(pc, "chat", nil))

	buf := make([]byte, 4)
	_, _, ok, err := bridge.ReceiveInto(e, dc, buf)
	require.NoError(t, err)
	assert.False(t, ok)

	e.QueueMessage(dc, []byte("abcdef"), false)
	n, _, ok, err := bridge.ReceiveInto(e, dc, buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -6, n)

	// Still queued.
	big := make([]byte, 16)
	n, text, ok, err := bridge.ReceiveInto(e, dc, big)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, text)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte("abcdef"), big[:n])

	e.QueueMessage(dc, []byte("hey"), true)
	n, text, ok, err = bridge.ReceiveInto(e, dc, big)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, text)
	assert.Equal(t, "hey", string(big[:n]))
}

func TestReceiveOnDeletedChannel(t *testing.T) {
	e := bridgetest.NewFakeEngine()
	pc := int32(e.CreatePeerConnection(nil))
	dc := int32(e.CreateDataChannel(pc, "chat", nil))
	e.DeleteDataChannel(dc)

	_, _, _, err := bridge.Receive(e, dc)
	assert.ErrorIs(t, err, bridge.ErrInvalid)
}
