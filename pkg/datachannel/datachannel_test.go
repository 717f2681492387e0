package datachannel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
	"github.com/thesyncim/libgodatachannel/internal/bridge/bridgetest"
)

func TestCreateDataChannel(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)

	stream := uint16(7)
	dc, err := pc.CreateDataChannel("telemetry", &DataChannelInit{
		Reliability: Reliability{Unordered: true, Unreliable: true, MaxPacketLifeTime: 1500 * time.Millisecond},
		Protocol:    "cbor",
		Negotiated:  true,
		Stream:      &stream,
	})
	require.NoError(t, err)

	assert.Equal(t, "telemetry", dc.Label())
	assert.Equal(t, "cbor", dc.Protocol())
	assert.ElementsMatch(t, bridge.ChildKinds, f.engine.Callbacks(dc.Handle()))
	assert.Equal(t, f.engine.GetUserPointer(pc.Handle()), f.engine.GetUserPointer(dc.Handle()))
	assert.Equal(t, []*DataChannel{dc}, pc.Channels())

	got, err := dc.Stream()
	require.NoError(t, err)
	assert.Equal(t, stream, got)

	rel, err := dc.Reliability()
	require.NoError(t, err)
	assert.Equal(t, Reliability{Unordered: true, Unreliable: true, MaxPacketLifeTime: 1500 * time.Millisecond}, rel)
}

func TestCreateDataChannelRegistrationFailure(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	f.engine.FailCallback(bridge.KindAvailable, bridge.CodeFailure)

	_, err := pc.CreateDataChannel("chat", nil)
	require.ErrorIs(t, err, ErrFailure)
	assert.Empty(t, pc.Channels())
	assert.False(t, f.engine.Alive(pc.Handle()+1))
}

func TestSend(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	dc, err := pc.CreateDataChannel("chat", nil)
	require.NoError(t, err)

	require.NoError(t, dc.Send([]byte{1, 2, 3}))
	require.NoError(t, dc.SendText("hello"))
	assert.Equal(t, []bridgetest.Message{
		{Data: []byte{1, 2, 3}},
		{Data: []byte("hello"), Text: true},
	}, f.engine.Sent(dc.Handle()))

	f.engine.FailSend(bridge.CodeFailure)
	err = dc.Send([]byte{4})
	require.ErrorIs(t, err, ErrFailure)
	assert.ErrorContains(t, err, "rtcSendMessage")
}

func TestReceiveQueuedMessages(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	dc, err := pc.CreateDataChannel("chat", nil)
	require.NoError(t, err)

	_, ok, err := dc.Receive()
	require.NoError(t, err)
	assert.False(t, ok)

	f.engine.QueueMessage(dc.Handle(), []byte("text"), true)
	f.engine.QueueMessage(dc.Handle(), []byte{0xde, 0xad}, false)
	f.engine.QueueMessage(dc.Handle(), nil, false)

	avail, err := dc.AvailableAmount()
	require.NoError(t, err)
	assert.Equal(t, 6, avail)

	msg, ok, err := dc.Receive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Message{Data: []byte("text"), IsString: true}, msg)
	assert.Equal(t, "text", msg.Text())

	msg, ok, err = dc.Receive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Message{Data: []byte{0xde, 0xad}}, msg)

	msg, ok, err = dc.Receive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, msg.Data)
	assert.False(t, msg.IsString)
}

func TestReceiveInto(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	dc, err := pc.CreateDataChannel("chat", nil)
	require.NoError(t, err)

	f.engine.QueueMessage(dc.Handle(), []byte("0123456789"), false)

	small := make([]byte, 4)
	n, _, ok, err := dc.ReceiveInto(small)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -10, n)

	buf := make([]byte, 16)
	n, isString, ok, err := dc.ReceiveInto(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, isString)
	assert.Equal(t, "0123456789", string(buf[:n]))

	_, _, ok, err = dc.ReceiveInto(buf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOnMessageSwitchesNativeCallback(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	dc, err := pc.CreateDataChannel("chat", nil)
	require.NoError(t, err)
	id := dc.Handle()

	assert.NotContains(t, f.engine.Callbacks(id), bridge.KindMessage)
	assert.False(t, f.engine.FireMessage(id, []byte("lost"), true))

	var got []Message
	removeFirst := dc.OnMessage(func(m Message) { got = append(got, m) })
	removeSecond := dc.OnMessage(func(Message) {})
	assert.Contains(t, f.engine.Callbacks(id), bridge.KindMessage)

	require.True(t, f.engine.FireMessage(id, []byte("hi"), true))
	require.True(t, f.engine.FireMessage(id, []byte{9}, false))
	assert.Equal(t, []Message{
		{Data: []byte("hi"), IsString: true},
		{Data: []byte{9}},
	}, got)

	removeFirst()
	assert.Contains(t, f.engine.Callbacks(id), bridge.KindMessage)
	removeSecond()
	removeSecond()
	assert.NotContains(t, f.engine.Callbacks(id), bridge.KindMessage)
}

func TestRemoteChannelMessages(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)

	var got []string
	pc.OnDataChannel(func(dc *DataChannel) {
		dc.OnMessage(func(m Message) { got = append(got, m.Text()) })
	})
	id := f.engine.FireDataChannel(pc.Handle(), "chat", "")
	require.NotZero(t, id)

	require.True(t, f.engine.FireMessage(id, []byte("ping"), true))
	assert.Equal(t, []string{"ping"}, got)
}

func TestRemoteChannelEarlyMessagesReachHandler(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)

	var got []Message
	pc.OnDataChannel(func(dc *DataChannel) {
		dc.OnMessage(func(m Message) { got = append(got, m) })
	})
	id := f.engine.FireDataChannelWith(pc.Handle(), "chat", "",
		bridgetest.Message{Data: []byte("first"), Text: true},
		bridgetest.Message{Data: []byte{1, 2}})
	require.NotZero(t, id)

	assert.Equal(t, []Message{
		{Data: []byte("first"), IsString: true},
		{Data: []byte{1, 2}},
	}, got)
	assert.Contains(t, f.engine.Callbacks(id), bridge.KindMessage)

	_, ok, err := pc.Channels()[0].Receive()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoteChannelEarlyMessagesStayReceivable(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)

	var dc *DataChannel
	pc.OnDataChannel(func(ch *DataChannel) { dc = ch })
	id := f.engine.FireDataChannelWith(pc.Handle(), "chat", "",
		bridgetest.Message{Data: []byte("queued"), Text: true})
	require.NotZero(t, id)
	require.NotNil(t, dc)
	assert.NotContains(t, f.engine.Callbacks(id), bridge.KindMessage)

	msg, ok, err := dc.Receive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "queued", msg.Text())
}

func TestChannelEvents(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	dc, err := pc.CreateDataChannel("chat", nil)
	require.NoError(t, err)
	id := dc.Handle()

	var events []string
	dc.OnOpen(func() { events = append(events, "open") })
	dc.OnError(func(msg string) { events = append(events, "error:"+msg) })
	dc.OnBufferedAmountLow(func() { events = append(events, "low") })
	dc.OnAvailable(func() { events = append(events, "available") })
	dc.OnClosed(func() { events = append(events, "closed") })

	require.True(t, f.engine.FireOpen(id))
	require.True(t, f.engine.FireError(id, "boom"))
	require.True(t, f.engine.FireBufferedAmountLow(id))
	require.True(t, f.engine.FireAvailable(id))
	require.True(t, f.engine.FireClosed(id))

	assert.Equal(t, []string{"open", "error:boom", "low", "available", "closed"}, events)
	assert.True(t, dc.IsClosed())
	assert.False(t, dc.IsOpen())
}

func TestBufferedAmount(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	dc, err := pc.CreateDataChannel("bulk", nil)
	require.NoError(t, err)

	f.engine.SetBufferedAmount(dc.Handle(), 4096)
	n, err := dc.BufferedAmount()
	require.NoError(t, err)
	assert.Equal(t, 4096, n)

	require.NoError(t, dc.SetBufferedAmountLowThreshold(1024))
	assert.Equal(t, 1024, f.engine.Threshold(dc.Handle()))
	assert.ErrorIs(t, dc.SetBufferedAmountLowThreshold(-1), ErrInvalid)

	size, err := dc.MaxMessageSize()
	require.NoError(t, err)
	assert.Equal(t, 262144, size)
}

func TestDataChannelClose(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	dc, err := pc.CreateDataChannel("chat", nil)
	require.NoError(t, err)
	id := dc.Handle()

	var opened int
	dc.OnOpen(func() { opened++ })

	require.NoError(t, dc.Close())
	assert.False(t, f.engine.Alive(id))
	assert.Empty(t, f.engine.Callbacks(id))
	assert.Empty(t, pc.Channels())
	assert.Equal(t, 1, f.host.LiveRefs())

	assert.False(t, f.engine.FireOpen(id))
	assert.Zero(t, opened)

	assert.NoError(t, dc.Close())
	_, _, err = dc.Receive()
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, dc.IsOpen())
}

func TestCloseChannelsKeepsPeer(t *testing.T) {
	f := setup(t)
	pc := f.peer(t)
	a, err := pc.CreateDataChannel("a", nil)
	require.NoError(t, err)
	b, err := pc.CreateDataChannel("b", nil)
	require.NoError(t, err)

	require.NoError(t, pc.CloseChannels())
	assert.False(t, f.engine.Alive(a.Handle()))
	assert.False(t, f.engine.Alive(b.Handle()))
	assert.True(t, f.engine.Alive(pc.Handle()))

	c, err := pc.CreateDataChannel("c", nil)
	require.NoError(t, err)
	assert.Equal(t, []*DataChannel{c}, pc.Channels())
}

func TestReliabilityConversion(t *testing.T) {
	r := Reliability{Unreliable: true, MaxRetransmits: 3}
	b := r.toBridge()
	assert.Equal(t, uint32(3), b.MaxRetransmits)
	assert.Equal(t, r, reliabilityFromBridge(b))

	assert.Equal(t, uint32(0), Reliability{MaxRetransmits: -2}.toBridge().MaxRetransmits)

	var init *DataChannelInit
	assert.Nil(t, init.toBridge())
	assert.Empty(t, init.protocol())
}
