package signaling

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMessageRoundTrip(t *testing.T) {
	in := &Message{Type: TypeCandidate, Candidate: "a=candidate:1 1 UDP 1 10.0.0.1 5000 typ host", Mid: "0"}
	data, err := Marshal(in)
	require.NoError(t, err)

	again, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, (&Message{Type: TypePeer}).Validate())
	assert.NoError(t, (&Message{Type: TypeOffer, SDP: "v=0"}).Validate())
	assert.ErrorIs(t, (&Message{Type: TypeAnswer}).Validate(), ErrMalformed)
	assert.ErrorIs(t, (&Message{Type: TypeCandidate, Mid: "0"}).Validate(), ErrMalformed)
	assert.ErrorIs(t, (&Message{}).Validate(), ErrMalformed)
	assert.ErrorIs(t, (&Message{Type: 99}).Validate(), ErrMalformed)

	_, err := Marshal(&Message{Type: TypeOffer})
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Unmarshal([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "offer", TypeOffer.String())
	assert.Equal(t, "bye", TypeBye.String())
	assert.Equal(t, "type(42)", Type(42).String())
}

type harness struct {
	server *Server
	url    string
	logs   *observer.ObservedLogs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	s := NewServer(zap.New(core))
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return &harness{server: s, url: "ws" + strings.TrimPrefix(srv.URL, "http"), logs: logs}
}

func (h *harness) dial(t *testing.T, room string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, h.url+"/"+room)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := c.Receive(ctx)
	require.NoError(t, err)
	return m
}

func send(t *testing.T, c *Client, m *Message) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Send(ctx, m))
}

func TestRelay(t *testing.T) {
	h := newHarness(t)
	a := h.dial(t, "room1")
	b := h.dial(t, "room1")

	assert.Equal(t, TypePeer, receive(t, a).Type)
	assert.Equal(t, TypePeer, receive(t, b).Type)

	offer := &Message{Type: TypeOffer, SDP: "v=0\r\n"}
	send(t, a, offer)
	assert.Equal(t, offer, receive(t, b))

	cand := &Message{Type: TypeCandidate, Candidate: "candidate:1 1 UDP 1 10.0.0.2 5000 typ host", Mid: "0"}
	send(t, b, &Message{Type: TypeAnswer, SDP: "v=0\r\n"})
	send(t, b, cand)
	assert.Equal(t, TypeAnswer, receive(t, a).Type)
	assert.Equal(t, cand, receive(t, a))

	assert.Equal(t, 1, h.server.Rooms())
	assert.Equal(t, 1, h.logs.FilterMessage("room complete").Len())
}

func TestRoomFull(t *testing.T) {
	h := newHarness(t)
	h.dial(t, "busy")
	h.dial(t, "busy")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Dial(ctx, h.url+"/busy")
	assert.ErrorIs(t, err, ErrRoomFull)

	_, err = Dial(ctx, h.url+"/")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRoomFull)
}

func TestByeWhenPartnerLeaves(t *testing.T) {
	h := newHarness(t)
	a := h.dial(t, "r")
	b := h.dial(t, "r")
	receive(t, a)
	receive(t, b)

	require.NoError(t, a.Close())
	assert.Equal(t, TypeBye, receive(t, b).Type)

	require.NoError(t, b.Close())
	require.Eventually(t, func() bool { return h.server.Rooms() == 0 }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := b.Receive(ctx)
	assert.Error(t, err)
}

func TestSlotFreedForRejoin(t *testing.T) {
	h := newHarness(t)
	a := h.dial(t, "again")
	b := h.dial(t, "again")
	receive(t, a)
	receive(t, b)

	require.NoError(t, b.Close())
	assert.Equal(t, TypeBye, receive(t, a).Type)

	c := h.dial(t, "again")
	assert.Equal(t, TypePeer, receive(t, a).Type)
	assert.Equal(t, TypePeer, receive(t, c).Type)
}

func TestMalformedFrameDropsMember(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, h.url+"/bad", nil)
	require.NoError(t, err)
	defer ws.CloseNow()

	require.NoError(t, ws.Write(ctx, websocket.MessageBinary, []byte{0xa1, 0x01, 0x63}))
	_, _, err = ws.Read(ctx)
	assert.Equal(t, websocket.StatusUnsupportedData, websocket.CloseStatus(err))
}
