package datachannel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// Reliability configures retransmission of a data channel. At most one of
// MaxPacketLifeTime and MaxRetransmits applies when Unreliable is set.
type Reliability struct {
	Unordered         bool
	Unreliable        bool
	MaxPacketLifeTime time.Duration
	MaxRetransmits    int
}

func (r Reliability) toBridge() bridge.Reliability {
	return bridge.Reliability{
		Unordered:         r.Unordered,
		Unreliable:        r.Unreliable,
		MaxPacketLifeTime: uint32(r.MaxPacketLifeTime / time.Millisecond),
		MaxRetransmits:    uint32(max(r.MaxRetransmits, 0)),
	}
}

func reliabilityFromBridge(r bridge.Reliability) Reliability {
	return Reliability{
		Unordered:         r.Unordered,
		Unreliable:        r.Unreliable,
		MaxPacketLifeTime: time.Duration(r.MaxPacketLifeTime) * time.Millisecond,
		MaxRetransmits:    int(r.MaxRetransmits),
	}
}

// DataChannelInit configures CreateDataChannel.
type DataChannelInit struct {
	Reliability Reliability
	Protocol    string
	// Negotiated channels are not announced to the remote peer, which must
	// create a channel with the same stream id.
	Negotiated bool
	// Stream, when set, selects the SCTP stream id instead of letting
	// libdatachannel pick one.
	Stream *uint16
}

func (i *DataChannelInit) toBridge() *bridge.ChannelInit {
	if i == nil {
		return nil
	}
	out := &bridge.ChannelInit{
		Reliability: i.Reliability.toBridge(),
		Protocol:    i.Protocol,
		Negotiated:  i.Negotiated,
	}
	if i.Stream != nil {
		out.ManualStream = true
		out.Stream = *i.Stream
	}
	return out
}

func (i *DataChannelInit) protocol() string {
	if i == nil {
		return ""
	}
	return i.Protocol
}

// Message is a received data channel message.
type Message struct {
	Data     []byte
	IsString bool
}

// Text returns the message as a string.
func (m Message) Text() string { return string(m.Data) }

// DataChannel wraps a libdatachannel data channel handle.
type DataChannel struct {
	pc       *PeerConnection
	handle   int32
	label    string
	protocol string

	onOpen              handlers[func()]
	onClosed            handlers[func()]
	onError             handlers[func(string)]
	onMessage           handlers[func(Message)]
	onBufferedAmountLow handlers[func()]
	onAvailable         handlers[func()]

	// msgMu orders message handler changes with the native callback switch.
	msgMu sync.Mutex

	closed atomic.Bool
}

func newDataChannel(pc *PeerConnection, handle int32, label, protocol string) *DataChannel {
	return &DataChannel{pc: pc, handle: handle, label: label, protocol: protocol}
}

// Handle returns the native channel id.
func (dc *DataChannel) Handle() int32 { return dc.handle }

// PeerConnection returns the owning peer connection.
func (dc *DataChannel) PeerConnection() *PeerConnection { return dc.pc }

// Label returns the channel label.
func (dc *DataChannel) Label() string { return dc.label }

// Protocol returns the channel sub-protocol.
func (dc *DataChannel) Protocol() string { return dc.protocol }

func (dc *DataChannel) engine() (bridge.Engine, error) {
	if dc.closed.Load() {
		return nil, ErrClosed
	}
	return dc.pc.engine()
}

func (dc *DataChannel) OnOpen(fn func()) func() { return dc.onOpen.add(fn) }

func (dc *DataChannel) OnClosed(fn func()) func() { return dc.onClosed.add(fn) }

func (dc *DataChannel) OnError(fn func(message string)) func() { return dc.onError.add(fn) }

// OnMessage registers fn for incoming messages. While at least one
// message handler is registered, messages are delivered to handlers
// instead of being queued for Receive.
func (dc *DataChannel) OnMessage(fn func(Message)) func() {
	dc.msgMu.Lock()
	defer dc.msgMu.Unlock()
	remove := dc.onMessage.add(fn)
	if dc.onMessage.len() == 1 {
		dc.pc.switchMessages(dc.handle, true)
	}
	return func() {
		dc.msgMu.Lock()
		defer dc.msgMu.Unlock()
		remove()
		if dc.onMessage.len() == 0 {
			dc.pc.switchMessages(dc.handle, false)
		}
	}
}

// OnBufferedAmountLow registers fn for the buffered amount dropping to
// the threshold set with SetBufferedAmountLowThreshold.
func (dc *DataChannel) OnBufferedAmountLow(fn func()) func() {
	return dc.onBufferedAmountLow.add(fn)
}

// OnAvailable registers fn for messages becoming available to Receive.
func (dc *DataChannel) OnAvailable(fn func()) func() { return dc.onAvailable.add(fn) }

// Send sends a binary message.
func (dc *DataChannel) Send(data []byte) error {
	e, err := dc.engine()
	if err != nil {
		return err
	}
	return bridge.Check("rtcSendMessage", e.SendMessage(dc.handle, data, false))
}

// SendText sends a text message.
func (dc *DataChannel) SendText(s string) error {
	e, err := dc.engine()
	if err != nil {
		return err
	}
	return bridge.Check("rtcSendMessage", e.SendMessage(dc.handle, []byte(s), true))
}

// Receive pops the next queued message. ok is false when none is queued.
func (dc *DataChannel) Receive() (msg Message, ok bool, err error) {
	e, err := dc.engine()
	if err != nil {
		return Message{}, false, err
	}
	data, text, ok, err := bridge.Receive(e, dc.handle)
	if err != nil || !ok {
		return Message{}, false, err
	}
	return Message{Data: data, IsString: text}, true, nil
}

// ReceiveInto pops the next queued message into buf and returns its
// length. ok is false when none is queued. When buf is too small, n is the
// negated size required and the message stays queued.
func (dc *DataChannel) ReceiveInto(buf []byte) (n int, isString bool, ok bool, err error) {
	e, err := dc.engine()
	if err != nil {
		return 0, false, false, err
	}
	return bridge.ReceiveInto(e, dc.handle, buf)
}

// IsOpen reports whether the channel exists and is open.
func (dc *DataChannel) IsOpen() bool {
	e, err := dc.engine()
	return err == nil && e.IsOpen(dc.handle)
}

// IsClosed reports whether the channel exists and is closed.
func (dc *DataChannel) IsClosed() bool {
	e, err := dc.engine()
	return err == nil && e.IsClosed(dc.handle)
}

// MaxMessageSize returns the largest message Send accepts.
func (dc *DataChannel) MaxMessageSize() (int, error) {
	e, err := dc.engine()
	if err != nil {
		return 0, err
	}
	return translate("rtcMaxMessageSize", e.MaxMessageSize(dc.handle))
}

// BufferedAmount returns the bytes queued for sending.
func (dc *DataChannel) BufferedAmount() (int, error) {
	e, err := dc.engine()
	if err != nil {
		return 0, err
	}
	return translate("rtcGetBufferedAmount", e.BufferedAmount(dc.handle))
}

func (dc *DataChannel) SetBufferedAmountLowThreshold(amount int) error {
	e, err := dc.engine()
	if err != nil {
		return err
	}
	return bridge.Check("rtcSetBufferedAmountLowThreshold", e.SetBufferedAmountLowThreshold(dc.handle, amount))
}

// AvailableAmount returns the bytes queued for Receive.
func (dc *DataChannel) AvailableAmount() (int, error) {
	e, err := dc.engine()
	if err != nil {
		return 0, err
	}
	return translate("rtcGetAvailableAmount", e.AvailableAmount(dc.handle))
}

// Stream returns the SCTP stream id.
func (dc *DataChannel) Stream() (uint16, error) {
	e, err := dc.engine()
	if err != nil {
		return 0, err
	}
	v, err := translate("rtcGetDataChannelStream", e.DataChannelStream(dc.handle))
	return uint16(v), err
}

func (dc *DataChannel) Reliability() (Reliability, error) {
	e, err := dc.engine()
	if err != nil {
		return Reliability{}, err
	}
	var r bridge.Reliability
	if err := bridge.Check("rtcGetDataChannelReliability", e.DataChannelReliability(dc.handle, &r)); err != nil {
		return Reliability{}, err
	}
	return reliabilityFromBridge(r), nil
}

// Close closes and deletes the channel. No handler runs after Close
// returns, except one that is running when Close is called.
func (dc *DataChannel) Close() error {
	if !dc.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer dc.clearHandlers()
	dc.pc.dropChannel(dc.handle)

	if !dc.pc.rt.Pin() {
		return nil
	}
	defer dc.pc.rt.Unpin()
	e := dc.pc.rt.Engine()
	code := e.Close(dc.handle)
	bridge.Release(dc.pc.rt, dc.handle, bridge.ChannelKinds)
	if code == bridge.CodeInvalid {
		// Already deleted along with its peer connection.
		return nil
	}
	return bridge.Check("rtcDeleteDataChannel", e.DeleteDataChannel(dc.handle))
}

func (dc *DataChannel) clearHandlers() {
	dc.onOpen.clear()
	dc.onClosed.clear()
	dc.onError.clear()
	dc.onMessage.clear()
	dc.onBufferedAmountLow.clear()
	dc.onAvailable.clear()
}
