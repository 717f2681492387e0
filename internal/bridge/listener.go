package bridge

// Listener receives every event for a peer connection and for the data
// channels and tracks that inherit its container. Channel events carry the
// channel or track handle.
type Listener interface {
	OnLocalDescription(pc int32, sdp, typ string)
	OnLocalCandidate(pc int32, candidate, mid string)
	OnStateChange(pc int32, state int32)
	OnIceStateChange(pc int32, state int32)
	OnGatheringStateChange(pc int32, state int32)
	OnSignalingStateChange(pc int32, state int32)
	OnDataChannel(pc int32, dc int32)
	OnTrack(pc int32, tr int32)

	OnOpen(id int32)
	OnClosed(id int32)
	OnError(id int32, message string)
	OnTextMessage(id int32, message string)
	OnBinaryMessage(id int32, data []byte)
	OnBufferedAmountLow(id int32)
	OnAvailable(id int32)
}

// NopListener ignores every event. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) OnLocalDescription(int32, string, string) {}
func (NopListener) OnLocalCandidate(int32, string, string)   {}
func (NopListener) OnStateChange(int32, int32)               {}
func (NopListener) OnIceStateChange(int32, int32)            {}
func (NopListener) OnGatheringStateChange(int32, int32)      {}
func (NopListener) OnSignalingStateChange(int32, int32)      {}
func (NopListener) OnDataChannel(int32, int32)               {}
func (NopListener) OnTrack(int32, int32)                     {}
func (NopListener) OnOpen(int32)                             {}
func (NopListener) OnClosed(int32)                           {}
func (NopListener) OnError(int32, string)                    {}
func (NopListener) OnTextMessage(int32, string)              {}
func (NopListener) OnBinaryMessage(int32, []byte)            {}
func (NopListener) OnBufferedAmountLow(int32)                {}
func (NopListener) OnAvailable(int32)                        {}
