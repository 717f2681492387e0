package bridgetest

import (
	"sync"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// Event is one listener invocation seen by a Recorder.
type Event struct {
	Kind   bridge.EventKind
	Handle int32
	Child  int32
	State  int32
	A, B   string
	Data   []byte
	Text   bool
}

// Recorder is a bridge.Listener that records every call. Hook, when set,
// runs after recording and may panic to emulate a failing listener.
type Recorder struct {
	Hook func(Event)

	mu     sync.Mutex
	events []Event
}

func (r *Recorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if r.Hook != nil {
		r.Hook(ev)
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns the number of recorded events of kind.
func (r *Recorder) Count(kind bridge.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) OnLocalDescription(pc int32, sdp, typ string) {
	r.record(Event{Kind: bridge.KindLocalDescription, Handle: pc, A: sdp, B: typ})
}

func (r *Recorder) OnLocalCandidate(pc int32, candidate, mid string) {
	r.record(Event{Kind: bridge.KindLocalCandidate, Handle: pc, A: candidate, B: mid})
}

func (r *Recorder) OnStateChange(pc, state int32) {
	r.record(Event{Kind: bridge.KindStateChange, Handle: pc, State: state})
}

func (r *Recorder) OnIceStateChange(pc, state int32) {
	r.record(Event{Kind: bridge.KindIceStateChange, Handle: pc, State: state})
}

func (r *Recorder) OnGatheringStateChange(pc, state int32) {
	r.record(Event{Kind: bridge.KindGatheringStateChange, Handle: pc, State: state})
}

func (r *Recorder) OnSignalingStateChange(pc, state int32) {
	r.record(Event{Kind: bridge.KindSignalingStateChange, Handle: pc, State: state})
}

func (r *Recorder) OnDataChannel(pc, dc int32) {
	r.record(Event{Kind: bridge.KindDataChannel, Handle: pc, Child: dc})
}

func (r *Recorder) OnTrack(pc, tr int32) {
	r.record(Event{Kind: bridge.KindTrack, Handle: pc, Child: tr})
}

func (r *Recorder) OnOpen(id int32) {
	r.record(Event{Kind: bridge.KindOpen, Handle: id})
}

func (r *Recorder) OnClosed(id int32) {
	r.record(Event{Kind: bridge.KindClosed, Handle: id})
}

func (r *Recorder) OnError(id int32, message string) {
	r.record(Event{Kind: bridge.KindError, Handle: id, A: message})
}

func (r *Recorder) OnTextMessage(id int32, message string) {
	r.record(Event{Kind: bridge.KindMessage, Handle: id, A: message, Text: true})
}

func (r *Recorder) OnBinaryMessage(id int32, data []byte) {
	r.record(Event{Kind: bridge.KindMessage, Handle: id, Data: data})
}

func (r *Recorder) OnBufferedAmountLow(id int32) {
	r.record(Event{Kind: bridge.KindBufferedAmountLow, Handle: id})
}

func (r *Recorder) OnAvailable(id int32) {
	r.record(Event{Kind: bridge.KindAvailable, Handle: id})
}

var _ bridge.Listener = (*Recorder)(nil)
