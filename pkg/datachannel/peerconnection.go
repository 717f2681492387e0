package datachannel

import (
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// PeerConnection wraps a libdatachannel peer connection handle.
//
// A PeerConnection holds native resources and stays reachable through the
// event bridge until Close is called.
type PeerConnection struct {
	rt     *bridge.Runtime
	handle int32
	ptr    uintptr

	state          atomic.Int32
	iceState       atomic.Int32
	gatheringState atomic.Int32
	signalingState atomic.Int32

	mu       sync.RWMutex
	channels map[int32]*DataChannel
	tracks   map[int32]*Track

	onLocalDescription     handlers[func(Description)]
	onLocalCandidate       handlers[func(Candidate)]
	onStateChange          handlers[func(PeerState)]
	onIceStateChange       handlers[func(IceState)]
	onGatheringStateChange handlers[func(GatheringState)]
	onSignalingStateChange handlers[func(SignalingState)]
	onDataChannel          handlers[func(*DataChannel)]
	onTrack                handlers[func(*Track)]

	closed atomic.Bool
}

// NewPeerConnection creates a peer connection. A nil cfg uses the
// libdatachannel defaults.
func NewPeerConnection(cfg *Configuration) (*PeerConnection, error) {
	rt, err := liveRuntime()
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("datachannel: configuration: %w", err)
		}
	}

	e := rt.Engine()
	h, err := bridge.Translate("rtcCreatePeerConnection", e.CreatePeerConnection(cfg.toBridge()))
	if err != nil {
		return nil, err
	}

	pc := &PeerConnection{
		rt:       rt,
		handle:   int32(h),
		channels: make(map[int32]*DataChannel),
		tracks:   make(map[int32]*Track),
	}
	c, err := bridge.Install(rt, pc.handle, &peerListener{pc: pc}, bridge.PeerKinds)
	if err != nil {
		_ = e.DeletePeerConnection(pc.handle)
		return nil, err
	}
	pc.ptr = c.Ptr()
	return pc, nil
}

// Handle returns the native peer connection id.
func (pc *PeerConnection) Handle() int32 { return pc.handle }

// engine returns the engine while pc is usable.
func (pc *PeerConnection) engine() (bridge.Engine, error) {
	if pc.closed.Load() {
		return nil, ErrClosed
	}
	if bridge.Current() != pc.rt {
		return nil, ErrNotLoaded
	}
	return pc.rt.Engine(), nil
}

// State returns the last reported connection state.
func (pc *PeerConnection) State() PeerState { return PeerState(pc.state.Load()) }

// IceState returns the last reported ICE state.
func (pc *PeerConnection) IceState() IceState { return IceState(pc.iceState.Load()) }

// GatheringState returns the last reported gathering state.
func (pc *PeerConnection) GatheringState() GatheringState {
	return GatheringState(pc.gatheringState.Load())
}

// SignalingState returns the last reported signaling state.
func (pc *PeerConnection) SignalingState() SignalingState {
	return SignalingState(pc.signalingState.Load())
}

// OnLocalDescription registers fn for local descriptions, which must be
// sent to the remote peer. The returned function removes fn.
func (pc *PeerConnection) OnLocalDescription(fn func(Description)) func() {
	return pc.onLocalDescription.add(fn)
}

// OnLocalCandidate registers fn for gathered local candidates.
func (pc *PeerConnection) OnLocalCandidate(fn func(Candidate)) func() {
	return pc.onLocalCandidate.add(fn)
}

func (pc *PeerConnection) OnStateChange(fn func(PeerState)) func() {
	return pc.onStateChange.add(fn)
}

func (pc *PeerConnection) OnIceStateChange(fn func(IceState)) func() {
	return pc.onIceStateChange.add(fn)
}

func (pc *PeerConnection) OnGatheringStateChange(fn func(GatheringState)) func() {
	return pc.onGatheringStateChange.add(fn)
}

func (pc *PeerConnection) OnSignalingStateChange(fn func(SignalingState)) func() {
	return pc.onSignalingStateChange.add(fn)
}

// OnDataChannel registers fn for channels opened by the remote peer.
func (pc *PeerConnection) OnDataChannel(fn func(*DataChannel)) func() {
	return pc.onDataChannel.add(fn)
}

// OnTrack registers fn for tracks added by the remote peer.
func (pc *PeerConnection) OnTrack(fn func(*Track)) func() {
	return pc.onTrack.add(fn)
}

// SetLocalDescription starts negotiation. It is implicit after
// SetRemoteDescription and CreateDataChannel unless auto-negotiation is
// disabled.
func (pc *PeerConnection) SetLocalDescription(typ DescriptionType) error {
	e, err := pc.engine()
	if err != nil {
		return err
	}
	return bridge.Check("rtcSetLocalDescription", e.SetLocalDescription(pc.handle, typ.wire()))
}

// LocalDescription returns the local SDP. ErrNotAvailable is returned
// before one is set.
func (pc *PeerConnection) LocalDescription() (string, error) {
	return pc.query(bridge.FieldLocalDescription)
}

func (pc *PeerConnection) LocalDescriptionType() (DescriptionType, error) {
	s, err := pc.query(bridge.FieldLocalDescriptionType)
	if err != nil {
		return DescriptionTypeUnspecified, err
	}
	return ParseDescriptionType(s)
}

// SetRemoteDescription applies the description received from the remote
// peer. An unspecified type lets libdatachannel infer it.
func (pc *PeerConnection) SetRemoteDescription(sdp string, typ DescriptionType) error {
	e, err := pc.engine()
	if err != nil {
		return err
	}
	return bridge.Check("rtcSetRemoteDescription", e.SetRemoteDescription(pc.handle, sdp, typ.wire()))
}

func (pc *PeerConnection) RemoteDescription() (string, error) {
	return pc.query(bridge.FieldRemoteDescription)
}

func (pc *PeerConnection) RemoteDescriptionType() (DescriptionType, error) {
	s, err := pc.query(bridge.FieldRemoteDescriptionType)
	if err != nil {
		return DescriptionTypeUnspecified, err
	}
	return ParseDescriptionType(s)
}

// CurrentLocalDescription returns the local description, or nil before
// negotiation has produced one.
func (pc *PeerConnection) CurrentLocalDescription() (*Description, error) {
	return pc.currentDescription(bridge.FieldLocalDescription, bridge.FieldLocalDescriptionType)
}

// CurrentRemoteDescription returns the remote description, or nil before
// SetRemoteDescription.
func (pc *PeerConnection) CurrentRemoteDescription() (*Description, error) {
	return pc.currentDescription(bridge.FieldRemoteDescription, bridge.FieldRemoteDescriptionType)
}

func (pc *PeerConnection) currentDescription(sdpField, typeField bridge.OutputField) (*Description, error) {
	e, err := pc.engine()
	if err != nil {
		return nil, err
	}
	sdp, ok, err := bridge.QueryOptionalString(e, pc.handle, sdpField)
	if err != nil || !ok {
		return nil, err
	}
	d := &Description{SDP: sdp}
	typ, ok, err := bridge.QueryOptionalString(e, pc.handle, typeField)
	if err != nil {
		return nil, err
	}
	if ok {
		if d.Type, err = ParseDescriptionType(typ); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// AddRemoteCandidate adds a candidate received from the remote peer. mid
// may be empty, in which case libdatachannel matches the first media.
func (pc *PeerConnection) AddRemoteCandidate(candidate, mid string) error {
	e, err := pc.engine()
	if err != nil {
		return err
	}
	return bridge.Check("rtcAddRemoteCandidate", e.AddRemoteCandidate(pc.handle, candidate, mid))
}

// LocalAddress returns the local address of the connected ICE transport.
func (pc *PeerConnection) LocalAddress() (netip.AddrPort, error) {
	return pc.address(bridge.FieldLocalAddress)
}

// RemoteAddress returns the remote address of the connected ICE transport.
func (pc *PeerConnection) RemoteAddress() (netip.AddrPort, error) {
	return pc.address(bridge.FieldRemoteAddress)
}

func (pc *PeerConnection) address(field bridge.OutputField) (netip.AddrPort, error) {
	s, err := pc.query(field)
	if err != nil {
		return netip.AddrPort{}, err
	}
	ap, err := parseAddrPort(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%s: %w", field.Op(), err)
	}
	return ap, nil
}

// SelectedCandidatePair returns the candidates ICE selected.
// ErrNotAvailable is returned until the transport is connected.
func (pc *PeerConnection) SelectedCandidatePair() (CandidatePair, error) {
	e, err := pc.engine()
	if err != nil {
		return CandidatePair{}, err
	}
	local, remote, err := bridge.SelectedCandidatePair(e, pc.handle)
	if err != nil {
		return CandidatePair{}, err
	}
	return parseCandidatePair(local, remote)
}

// MaxDataChannelStream returns the highest usable stream id.
func (pc *PeerConnection) MaxDataChannelStream() (int, error) {
	e, err := pc.engine()
	if err != nil {
		return 0, err
	}
	return translate("rtcGetMaxDataChannelStream", e.MaxDataChannelStream(pc.handle))
}

// RemoteMaxMessageSize returns the largest message the remote peer accepts.
func (pc *PeerConnection) RemoteMaxMessageSize() (int, error) {
	e, err := pc.engine()
	if err != nil {
		return 0, err
	}
	return translate("rtcGetRemoteMaxMessageSize", e.RemoteMaxMessageSize(pc.handle))
}

// CreateDataChannel opens a channel. A nil init creates a reliable,
// ordered channel with an automatic stream id.
func (pc *PeerConnection) CreateDataChannel(label string, init *DataChannelInit) (*DataChannel, error) {
	e, err := pc.engine()
	if err != nil {
		return nil, err
	}
	id, err := bridge.Translate("rtcCreateDataChannelEx", e.CreateDataChannel(pc.handle, label, init.toBridge()))
	if err != nil {
		return nil, err
	}

	dc := newDataChannel(pc, int32(id), label, init.protocol())
	pc.mu.Lock()
	pc.channels[dc.handle] = dc
	pc.mu.Unlock()

	if err := bridge.Adopt(pc.rt, dc.handle, pc.ptr, bridge.ChildKinds); err != nil {
		pc.dropChannel(dc.handle)
		_ = e.DeleteDataChannel(dc.handle)
		return nil, err
	}
	return dc, nil
}

// AddTrack adds a media track from an SDP media description
// ("m=video 9 UDP/TLS/RTP/SAVPF 96 ...").
func (pc *PeerConnection) AddTrack(mediaDescription string) (*Track, error) {
	e, err := pc.engine()
	if err != nil {
		return nil, err
	}
	id, err := bridge.Translate("rtcAddTrack", e.AddTrack(pc.handle, mediaDescription))
	if err != nil {
		return nil, err
	}
	return pc.adoptTrack(e, int32(id))
}

// AddTrackWithInit adds a media track described by init.
func (pc *PeerConnection) AddTrackWithInit(init *TrackInit) (*Track, error) {
	if init == nil {
		return nil, fmt.Errorf("datachannel: nil track init: %w", ErrInvalid)
	}
	e, err := pc.engine()
	if err != nil {
		return nil, err
	}
	id, err := bridge.Translate("rtcAddTrackEx", e.AddTrackEx(pc.handle, init.toBridge()))
	if err != nil {
		return nil, err
	}
	return pc.adoptTrack(e, int32(id))
}

func (pc *PeerConnection) adoptTrack(e bridge.Engine, id int32) (*Track, error) {
	tr := newTrack(pc, id)
	pc.mu.Lock()
	pc.tracks[id] = tr
	pc.mu.Unlock()

	if err := bridge.Adopt(pc.rt, id, pc.ptr, bridge.ChildKinds); err != nil {
		pc.dropTrack(id)
		_ = e.DeleteTrack(id)
		return nil, err
	}
	return tr, nil
}

// Channels returns the open data channels.
func (pc *PeerConnection) Channels() []*DataChannel {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	out := make([]*DataChannel, 0, len(pc.channels))
	for _, dc := range pc.channels {
		out = append(out, dc)
	}
	return out
}

// Tracks returns the live tracks.
func (pc *PeerConnection) Tracks() []*Track {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	out := make([]*Track, 0, len(pc.tracks))
	for _, tr := range pc.tracks {
		out = append(out, tr)
	}
	return out
}

// CloseChannels closes every data channel. All channels are closed even
// when some fail; the errors are combined.
func (pc *PeerConnection) CloseChannels() error {
	pc.mu.Lock()
	channels := pc.channels
	pc.channels = make(map[int32]*DataChannel)
	pc.mu.Unlock()

	var err error
	for _, dc := range channels {
		err = multierr.Append(err, dc.Close())
	}
	return err
}

func (pc *PeerConnection) closeTracks() error {
	pc.mu.Lock()
	tracks := pc.tracks
	pc.tracks = make(map[int32]*Track)
	pc.mu.Unlock()

	var err error
	for _, tr := range tracks {
		err = multierr.Append(err, tr.Close())
	}
	return err
}

// Close closes the channels, tracks and the connection, then deletes the
// native peer connection. No handler runs after Close returns, except one
// that is running when Close is called. Calling Close again is a no-op.
func (pc *PeerConnection) Close() error {
	if pc.closed.Load() {
		return nil
	}
	err := multierr.Combine(pc.CloseChannels(), pc.closeTracks())
	if !pc.closed.CompareAndSwap(false, true) {
		return err
	}
	defer pc.clearHandlers()

	if !pc.rt.Pin() {
		// rtcCleanup already deleted every handle.
		return err
	}
	defer pc.rt.Unpin()
	e := pc.rt.Engine()
	if code := e.ClosePeerConnection(pc.handle); code != bridge.CodeInvalid {
		err = multierr.Append(err, bridge.Check("rtcClosePeerConnection", code))
	}
	bridge.Release(pc.rt, pc.handle, bridge.PeerKinds)
	return multierr.Append(err, bridge.Check("rtcDeletePeerConnection", e.DeletePeerConnection(pc.handle)))
}

func (pc *PeerConnection) clearHandlers() {
	pc.onLocalDescription.clear()
	pc.onLocalCandidate.clear()
	pc.onStateChange.clear()
	pc.onIceStateChange.clear()
	pc.onGatheringStateChange.clear()
	pc.onSignalingStateChange.clear()
	pc.onDataChannel.clear()
	pc.onTrack.clear()
}

func (pc *PeerConnection) query(field bridge.OutputField) (string, error) {
	e, err := pc.engine()
	if err != nil {
		return "", err
	}
	return bridge.QueryString(e, pc.handle, field)
}

func (pc *PeerConnection) channel(id int32) *DataChannel {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.channels[id]
}

func (pc *PeerConnection) track(id int32) *Track {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.tracks[id]
}

func (pc *PeerConnection) dropChannel(id int32) {
	pc.mu.Lock()
	delete(pc.channels, id)
	pc.mu.Unlock()
}

func (pc *PeerConnection) dropTrack(id int32) {
	pc.mu.Lock()
	delete(pc.tracks, id)
	pc.mu.Unlock()
}

// switchMessages sets or clears the message callback of a child handle.
// Pending messages are flushed to the callback when it is set.
func (pc *PeerConnection) switchMessages(id int32, enabled bool) {
	e, err := pc.engine()
	if err != nil {
		return
	}
	if code := e.SetCallback(id, bridge.KindMessage, enabled); code != bridge.CodeSuccess {
		bridge.Logger().Warn("message callback switch failed",
			zap.Int32("handle", id),
			zap.Bool("enabled", enabled),
			zap.Error(bridge.Check(bridge.CallbackOp(bridge.KindMessage), code)))
	}
}

// translate is bridge.Translate for integer results.
func translate(op string, code int) (int, error) {
	v, err := bridge.Translate(op, code)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// peerListener receives the bridge events of one peer connection and of
// the channels and tracks that share its container.
type peerListener struct {
	pc *PeerConnection
}

var _ bridge.Listener = (*peerListener)(nil)

func (l *peerListener) OnLocalDescription(_ int32, sdp, typ string) {
	t, err := ParseDescriptionType(typ)
	if err != nil {
		bridge.Logger().Warn("unknown local description type", zap.String("type", typ))
	}
	d := Description{SDP: sdp, Type: t}
	l.pc.onLocalDescription.each(func(fn func(Description)) { fn(d) })
}

func (l *peerListener) OnLocalCandidate(_ int32, candidate, mid string) {
	c := Candidate{Candidate: candidate, Mid: mid}
	l.pc.onLocalCandidate.each(func(fn func(Candidate)) { fn(c) })
}

func (l *peerListener) OnStateChange(_ int32, state int32) {
	l.pc.state.Store(state)
	s := PeerState(state)
	l.pc.onStateChange.each(func(fn func(PeerState)) { fn(s) })
}

func (l *peerListener) OnIceStateChange(_ int32, state int32) {
	l.pc.iceState.Store(state)
	s := IceState(state)
	l.pc.onIceStateChange.each(func(fn func(IceState)) { fn(s) })
}

func (l *peerListener) OnGatheringStateChange(_ int32, state int32) {
	l.pc.gatheringState.Store(state)
	s := GatheringState(state)
	l.pc.onGatheringStateChange.each(func(fn func(GatheringState)) { fn(s) })
}

func (l *peerListener) OnSignalingStateChange(_ int32, state int32) {
	l.pc.signalingState.Store(state)
	s := SignalingState(state)
	l.pc.onSignalingStateChange.each(func(fn func(SignalingState)) { fn(s) })
}

// OnDataChannel wraps a channel opened by the remote peer. The bridge has
// already registered the child callbacks; the message callback stays off
// until a message handler is added, so nothing queued is lost before the
// channel is in pc.channels.
func (l *peerListener) OnDataChannel(_ int32, id int32) {
	pc := l.pc
	e := pc.rt.Engine()
	label, err := bridge.QueryString(e, id, bridge.FieldChannelLabel)
	if err != nil {
		bridge.Logger().Warn("remote data channel label", zap.Int32("handle", id), zap.Error(err))
	}
	protocol, err := bridge.QueryString(e, id, bridge.FieldChannelProtocol)
	if err != nil {
		bridge.Logger().Warn("remote data channel protocol", zap.Int32("handle", id), zap.Error(err))
	}

	dc := newDataChannel(pc, id, label, protocol)
	pc.mu.Lock()
	pc.channels[id] = dc
	pc.mu.Unlock()

	pc.onDataChannel.each(func(fn func(*DataChannel)) { fn(dc) })
}

func (l *peerListener) OnTrack(_ int32, id int32) {
	pc := l.pc
	tr := newTrack(pc, id)
	pc.mu.Lock()
	pc.tracks[id] = tr
	pc.mu.Unlock()

	pc.onTrack.each(func(fn func(*Track)) { fn(tr) })
}

// child resolves a channel or track handle. Events for handles that were
// closed or never wrapped are logged and dropped.
func (l *peerListener) child(id int32, kind bridge.EventKind) (*DataChannel, *Track) {
	if dc := l.pc.channel(id); dc != nil {
		return dc, nil
	}
	if tr := l.pc.track(id); tr != nil {
		return nil, tr
	}
	bridge.Logger().Debug("event for unknown channel",
		zap.Int32("peer", l.pc.handle),
		zap.Int32("handle", id),
		zap.String("kind", kind.String()))
	return nil, nil
}

func (l *peerListener) OnOpen(id int32) {
	switch dc, tr := l.child(id, bridge.KindOpen); {
	case dc != nil:
		dc.onOpen.each(func(fn func()) { fn() })
	case tr != nil:
		tr.onOpen.each(func(fn func()) { fn() })
	}
}

func (l *peerListener) OnClosed(id int32) {
	switch dc, tr := l.child(id, bridge.KindClosed); {
	case dc != nil:
		dc.onClosed.each(func(fn func()) { fn() })
	case tr != nil:
		tr.onClosed.each(func(fn func()) { fn() })
	}
}

func (l *peerListener) OnError(id int32, message string) {
	switch dc, tr := l.child(id, bridge.KindError); {
	case dc != nil:
		dc.onError.each(func(fn func(string)) { fn(message) })
	case tr != nil:
		tr.onError.each(func(fn func(string)) { fn(message) })
	}
}

func (l *peerListener) OnTextMessage(id int32, message string) {
	switch dc, tr := l.child(id, bridge.KindMessage); {
	case dc != nil:
		m := Message{Data: []byte(message), IsString: true}
		dc.onMessage.each(func(fn func(Message)) { fn(m) })
	case tr != nil:
		tr.deliver([]byte(message))
	}
}

func (l *peerListener) OnBinaryMessage(id int32, data []byte) {
	switch dc, tr := l.child(id, bridge.KindMessage); {
	case dc != nil:
		m := Message{Data: data}
		dc.onMessage.each(func(fn func(Message)) { fn(m) })
	case tr != nil:
		tr.deliver(data)
	}
}

func (l *peerListener) OnBufferedAmountLow(id int32) {
	if dc, _ := l.child(id, bridge.KindBufferedAmountLow); dc != nil {
		dc.onBufferedAmountLow.each(func(fn func()) { fn() })
	}
}

func (l *peerListener) OnAvailable(id int32) {
	if dc, _ := l.child(id, bridge.KindAvailable); dc != nil {
		dc.onAvailable.each(func(fn func()) { fn() })
	}
}
