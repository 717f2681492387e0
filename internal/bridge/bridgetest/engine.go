// Package bridgetest provides an in-memory engine and host for exercising
// the bridge without libdatachannel.
package bridgetest

import (
	"sync"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// Message is a message queued on or sent through a fake channel.
type Message struct {
	Data []byte
	Text bool
}

type channelInfo struct {
	peer      int32
	label     string
	init      bridge.ChannelInit
	track     bool
	trackInit bridge.TrackInit
	mediaSDP  string
}

// FakeEngine implements bridge.Engine in memory. Fire* methods emulate the
// engine invoking a registered trampoline: nothing is delivered unless the
// callback for that kind is registered on the handle.
type FakeEngine struct {
	mu sync.Mutex

	next      int32
	userPtrs  map[int32]uintptr
	callbacks map[int32]map[bridge.EventKind]bool
	outputs   map[int32]map[bridge.OutputField]string
	pairs     map[int32][2]string
	inbox     map[int32][]Message
	sent      map[int32][]Message
	peers     map[int32]bridge.PeerConfig
	channels  map[int32]channelInfo
	open      map[int32]bool
	closed    map[int32]bool
	deleted   map[int32]bool
	threshold map[int32]int
	buffered  map[int32]int
	remote    map[int32]string

	failCallback map[bridge.EventKind]int
	failCreate   int
	failSend     int
	onClose      func(handle int32)

	preloads  int
	cleanups  int
	logLevel  int32
	maxStream int
	maxMsg    int
}

// NewFakeEngine returns an engine with no handles.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		userPtrs:     make(map[int32]uintptr),
		callbacks:    make(map[int32]map[bridge.EventKind]bool),
		outputs:      make(map[int32]map[bridge.OutputField]string),
		pairs:        make(map[int32][2]string),
		inbox:        make(map[int32][]Message),
		sent:         make(map[int32][]Message),
		peers:        make(map[int32]bridge.PeerConfig),
		channels:     make(map[int32]channelInfo),
		open:         make(map[int32]bool),
		closed:       make(map[int32]bool),
		deleted:      make(map[int32]bool),
		threshold:    make(map[int32]int),
		buffered:     make(map[int32]int),
		remote:       make(map[int32]string),
		failCallback: make(map[bridge.EventKind]int),
		maxStream:    65535,
		maxMsg:       262144,
	}
}

// FailCallback makes registration of kind return code.
func (e *FakeEngine) FailCallback(kind bridge.EventKind, code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failCallback[kind] = code
}

// FailCreate makes the next create calls return code until reset with 0.
func (e *FakeEngine) FailCreate(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failCreate = code
}

// FailSend makes SendMessage return code until reset with 0.
func (e *FakeEngine) FailSend(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failSend = code
}

// OnClose makes ClosePeerConnection and Close call fn before acting. fn runs
// without the engine lock held.
func (e *FakeEngine) OnClose(fn func(handle int32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onClose = fn
}

func (e *FakeEngine) closeHook(handle int32) {
	e.mu.Lock()
	fn := e.onClose
	e.mu.Unlock()
	if fn != nil {
		fn(handle)
	}
}

// SetOutput sets the value returned by QueryOutput for handle and field.
func (e *FakeEngine) SetOutput(handle int32, field bridge.OutputField, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.outputs[handle]
	if !ok {
		m = make(map[bridge.OutputField]string)
		e.outputs[handle] = m
	}
	m[field] = value
}

// SetCandidatePair sets the selected candidate pair of pc.
func (e *FakeEngine) SetCandidatePair(pc int32, local, remote string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pairs[pc] = [2]string{local, remote}
}

// QueueMessage appends a message for ReceiveMessage.
func (e *FakeEngine) QueueMessage(id int32, data []byte, text bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inbox[id] = append(e.inbox[id], Message{Data: append([]byte(nil), data...), Text: text})
}

// SetBufferedAmount sets the value returned by BufferedAmount.
func (e *FakeEngine) SetBufferedAmount(id int32, amount int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffered[id] = amount
}

// Sent returns the messages sent on id.
func (e *FakeEngine) Sent(id int32) []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Message(nil), e.sent[id]...)
}

// Callbacks returns the kinds registered on handle.
func (e *FakeEngine) Callbacks(handle int32) []bridge.EventKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	var kinds []bridge.EventKind
	for k := bridge.KindLocalDescription; k <= bridge.KindAvailable; k++ {
		if e.callbacks[handle][k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Alive reports whether handle was created and not yet deleted.
func (e *FakeEngine) Alive(handle int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted[handle] {
		return false
	}
	_, peer := e.peers[handle]
	_, ch := e.channels[handle]
	return peer || ch
}

// Peer returns the configuration pc was created with.
func (e *FakeEngine) Peer(pc int32) (bridge.PeerConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok := e.peers[pc]
	return cfg, ok
}

// RemoteDescription returns what SetRemoteDescription stored.
func (e *FakeEngine) RemoteDescription(pc int32) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote[pc]
}

// Threshold returns the buffered amount low threshold of id.
func (e *FakeEngine) Threshold(id int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold[id]
}

// Preloads returns how many times Preload ran.
func (e *FakeEngine) Preloads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preloads
}

// Cleanups returns how many times Cleanup ran.
func (e *FakeEngine) Cleanups() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cleanups
}

// LogLevel returns the level passed to InitLogger.
func (e *FakeEngine) LogLevel() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.logLevel
}

func (e *FakeEngine) Preload() {
	e.mu.Lock()
	e.preloads++
	e.mu.Unlock()
}

func (e *FakeEngine) Cleanup() {
	e.mu.Lock()
	e.cleanups++
	e.mu.Unlock()
}

func (e *FakeEngine) InitLogger(level int32) {
	e.mu.Lock()
	e.logLevel = level
	e.mu.Unlock()
}

func (e *FakeEngine) SetUserPointer(handle int32, ptr uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ptr == 0 {
		delete(e.userPtrs, handle)
		return
	}
	e.userPtrs[handle] = ptr
}

func (e *FakeEngine) GetUserPointer(handle int32) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userPtrs[handle]
}

// SetCallback follows rtcSet*Callback. Setting the message callback on an
// open channel flushes its queued messages into the callback before
// returning, on the calling goroutine.
func (e *FakeEngine) SetCallback(handle int32, kind bridge.EventKind, enabled bool) int {
	e.mu.Lock()
	code := e.setCallbackLocked(handle, kind, enabled)
	var (
		flush []Message
		ptr   uintptr
	)
	if code == bridge.CodeSuccess && enabled && kind == bridge.KindMessage && e.open[handle] {
		flush = e.inbox[handle]
		delete(e.inbox, handle)
		ptr = e.userPtrs[handle]
	}
	e.mu.Unlock()

	for _, m := range flush {
		bridge.HandleMessage(handle, m.Data, m.Text, ptr)
	}
	return code
}

func (e *FakeEngine) setCallbackLocked(handle int32, kind bridge.EventKind, enabled bool) int {
	if !e.existsLocked(handle) {
		return bridge.CodeInvalid
	}
	if code, ok := e.failCallback[kind]; ok && enabled {
		return code
	}
	m, ok := e.callbacks[handle]
	if !ok {
		m = make(map[bridge.EventKind]bool)
		e.callbacks[handle] = m
	}
	if enabled {
		m[kind] = true
	} else {
		delete(m, kind)
	}
	return bridge.CodeSuccess
}

func (e *FakeEngine) QueryOutput(handle int32, field bridge.OutputField, buf []byte, size int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(handle) {
		return bridge.CodeInvalid
	}
	value, ok := e.outputs[handle][field]
	if !ok {
		return bridge.CodeNotAvail
	}
	return copyOut(value, buf, size)
}

// copyOut mirrors the engine's copy-and-return: NULL asks for the size,
// a short buffer is TOO_SMALL, otherwise the terminated copy's length.
func copyOut(value string, buf []byte, size int) int {
	need := len(value) + 1
	if buf == nil {
		return need
	}
	if size < need || len(buf) < need {
		return bridge.CodeTooSmall
	}
	copy(buf, value)
	buf[len(value)] = 0
	return need
}

func (e *FakeEngine) existsLocked(handle int32) bool {
	if e.deleted[handle] {
		return false
	}
	_, peer := e.peers[handle]
	_, ch := e.channels[handle]
	return peer || ch
}

func (e *FakeEngine) newHandleLocked() int32 {
	e.next++
	return e.next
}

func (e *FakeEngine) CreatePeerConnection(cfg *bridge.PeerConfig) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failCreate != 0 {
		return e.failCreate
	}
	pc := e.newHandleLocked()
	if cfg != nil {
		e.peers[pc] = *cfg
	} else {
		e.peers[pc] = bridge.PeerConfig{}
	}
	return int(pc)
}

func (e *FakeEngine) ClosePeerConnection(pc int32) int {
	e.closeHook(pc)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.peers[pc]; !ok || e.deleted[pc] {
		return bridge.CodeInvalid
	}
	e.closed[pc] = true
	return bridge.CodeSuccess
}

func (e *FakeEngine) DeletePeerConnection(pc int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.peers[pc]; !ok || e.deleted[pc] {
		return bridge.CodeInvalid
	}
	e.deleted[pc] = true
	delete(e.callbacks, pc)
	delete(e.userPtrs, pc)
	for id, ch := range e.channels {
		if ch.peer == pc {
			e.deleted[id] = true
			delete(e.callbacks, id)
			delete(e.userPtrs, id)
		}
	}
	return bridge.CodeSuccess
}

func (e *FakeEngine) SetLocalDescription(pc int32, typ string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) {
		return bridge.CodeInvalid
	}
	if typ == "" {
		typ = "offer"
	}
	m, ok := e.outputs[pc]
	if !ok {
		m = make(map[bridge.OutputField]string)
		e.outputs[pc] = m
	}
	m[bridge.FieldLocalDescriptionType] = typ
	return bridge.CodeSuccess
}

func (e *FakeEngine) SetRemoteDescription(pc int32, sdp, typ string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) {
		return bridge.CodeInvalid
	}
	if sdp == "" {
		return bridge.CodeInvalid
	}
	e.remote[pc] = sdp
	m, ok := e.outputs[pc]
	if !ok {
		m = make(map[bridge.OutputField]string)
		e.outputs[pc] = m
	}
	m[bridge.FieldRemoteDescription] = sdp
	if typ != "" {
		m[bridge.FieldRemoteDescriptionType] = typ
	}
	return bridge.CodeSuccess
}

func (e *FakeEngine) AddRemoteCandidate(pc int32, candidate, mid string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) {
		return bridge.CodeInvalid
	}
	if _, ok := e.remote[pc]; !ok {
		return bridge.CodeFailure
	}
	return bridge.CodeSuccess
}

func (e *FakeEngine) SelectedCandidatePair(pc int32, local, remote []byte, size int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) {
		return bridge.CodeInvalid
	}
	pair, ok := e.pairs[pc]
	if !ok {
		return bridge.CodeNotAvail
	}
	l := copyOut(pair[0], local, size)
	if l < 0 {
		return l
	}
	r := copyOut(pair[1], remote, size)
	if r < 0 {
		return r
	}
	return max(l, r)
}

func (e *FakeEngine) MaxDataChannelStream(pc int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) {
		return bridge.CodeInvalid
	}
	return e.maxStream
}

func (e *FakeEngine) RemoteMaxMessageSize(pc int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) {
		return bridge.CodeInvalid
	}
	return e.maxMsg
}

func (e *FakeEngine) CreateDataChannel(pc int32, label string, init *bridge.ChannelInit) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) {
		return bridge.CodeInvalid
	}
	if e.failCreate != 0 {
		return e.failCreate
	}
	dc := e.newHandleLocked()
	info := channelInfo{peer: pc, label: label}
	if init != nil {
		info.init = *init
	}
	e.channels[dc] = info
	e.setChannelOutputsLocked(dc, label, info.init.Protocol)
	// The engine hands new channels the peer's user pointer.
	if ptr, ok := e.userPtrs[pc]; ok {
		e.userPtrs[dc] = ptr
	}
	return int(dc)
}

func (e *FakeEngine) setChannelOutputsLocked(dc int32, label, protocol string) {
	e.outputs[dc] = map[bridge.OutputField]string{
		bridge.FieldChannelLabel:    label,
		bridge.FieldChannelProtocol: protocol,
	}
}

func (e *FakeEngine) DeleteDataChannel(dc int32) int {
	return e.deleteChannel(dc, false)
}

func (e *FakeEngine) deleteChannel(id int32, track bool) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[id]
	if !ok || e.deleted[id] || ch.track != track {
		return bridge.CodeInvalid
	}
	e.deleted[id] = true
	delete(e.callbacks, id)
	delete(e.userPtrs, id)
	return bridge.CodeSuccess
}

func (e *FakeEngine) DataChannelStream(dc int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[dc]
	if !ok || e.deleted[dc] || ch.track {
		return bridge.CodeInvalid
	}
	if ch.init.ManualStream {
		return int(ch.init.Stream)
	}
	return int(dc) * 2
}

func (e *FakeEngine) DataChannelReliability(dc int32, out *bridge.Reliability) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[dc]
	if !ok || e.deleted[dc] || ch.track {
		return bridge.CodeInvalid
	}
	*out = ch.init.Reliability
	return bridge.CodeSuccess
}

func (e *FakeEngine) AddTrack(pc int32, mediaDescription string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) {
		return bridge.CodeInvalid
	}
	if mediaDescription == "" {
		return bridge.CodeInvalid
	}
	tr := e.newHandleLocked()
	e.channels[tr] = channelInfo{peer: pc, track: true, mediaSDP: mediaDescription, trackInit: bridge.TrackInit{Direction: 3}}
	e.outputs[tr] = map[bridge.OutputField]string{
		bridge.FieldTrackDescription: mediaDescription,
	}
	return int(tr)
}

func (e *FakeEngine) AddTrackEx(pc int32, init *bridge.TrackInit) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(pc) || init == nil {
		return bridge.CodeInvalid
	}
	tr := e.newHandleLocked()
	e.channels[tr] = channelInfo{peer: pc, track: true, trackInit: *init}
	e.outputs[tr] = map[bridge.OutputField]string{
		bridge.FieldTrackMid: init.Mid,
	}
	return int(tr)
}

func (e *FakeEngine) DeleteTrack(tr int32) int {
	return e.deleteChannel(tr, true)
}

func (e *FakeEngine) TrackDirection(tr int32, out *int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[tr]
	if !ok || e.deleted[tr] || !ch.track {
		return bridge.CodeInvalid
	}
	*out = ch.trackInit.Direction
	return bridge.CodeSuccess
}

func (e *FakeEngine) SendMessage(id int32, data []byte, text bool) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(id) {
		return bridge.CodeInvalid
	}
	if e.failSend != 0 {
		return e.failSend
	}
	e.sent[id] = append(e.sent[id], Message{Data: append([]byte(nil), data...), Text: text})
	return bridge.CodeSuccess
}

// ReceiveMessage follows rtcReceiveMessage: a nil buffer peeks the size,
// sizes are negative for text and count the terminator.
func (e *FakeEngine) ReceiveMessage(id int32, buf []byte, size *int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(id) {
		return bridge.CodeInvalid
	}
	q := e.inbox[id]
	if len(q) == 0 {
		return bridge.CodeNotAvail
	}
	msg := q[0]
	need := len(msg.Data)
	if msg.Text {
		need++
	}
	signed := int32(need)
	if msg.Text {
		signed = -signed
	}
	if buf == nil {
		*size = signed
		return bridge.CodeSuccess
	}
	limit := int(*size)
	if limit < 0 {
		limit = -limit
	}
	if limit < need || len(buf) < need {
		*size = signed
		return bridge.CodeTooSmall
	}
	copy(buf, msg.Data)
	if msg.Text {
		buf[len(msg.Data)] = 0
	}
	e.inbox[id] = q[1:]
	*size = signed
	return bridge.CodeSuccess
}

func (e *FakeEngine) Close(id int32) int {
	e.closeHook(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(id) {
		return bridge.CodeInvalid
	}
	e.open[id] = false
	e.closed[id] = true
	return bridge.CodeSuccess
}

func (e *FakeEngine) Delete(id int32) int {
	e.mu.Lock()
	_, ch := e.channels[id]
	e.mu.Unlock()
	if ch {
		return e.deleteChannel(id, e.isTrack(id))
	}
	return e.DeletePeerConnection(id)
}

func (e *FakeEngine) isTrack(id int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channels[id].track
}

func (e *FakeEngine) IsOpen(id int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.existsLocked(id) && e.open[id]
}

func (e *FakeEngine) IsClosed(id int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.existsLocked(id) && e.closed[id]
}

func (e *FakeEngine) MaxMessageSize(id int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(id) {
		return bridge.CodeInvalid
	}
	return e.maxMsg
}

func (e *FakeEngine) BufferedAmount(id int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(id) {
		return bridge.CodeInvalid
	}
	return e.buffered[id]
}

func (e *FakeEngine) SetBufferedAmountLowThreshold(id int32, amount int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(id) {
		return bridge.CodeInvalid
	}
	if amount < 0 {
		return bridge.CodeInvalid
	}
	e.threshold[id] = amount
	return bridge.CodeSuccess
}

func (e *FakeEngine) AvailableAmount(id int32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.existsLocked(id) {
		return bridge.CodeInvalid
	}
	total := 0
	for _, m := range e.inbox[id] {
		total += len(m.Data)
	}
	return total
}

var _ bridge.Engine = (*FakeEngine)(nil)
