// Package interop runs libdatachannel against pion/webrtc in one process.
//
// The tests skip unless libdatachannel can be loaded; see
// testutil.RequireLibrary.
package interop

import (
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/testutil"
	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
)

// peerPair is a libdatachannel peer and a pion peer negotiated without
// trickle: each side waits for ICE gathering before sending its
// description.
type peerPair struct {
	t    *testing.T
	lib  *datachannel.PeerConnection
	pion *webrtc.PeerConnection

	libGathered   chan struct{}
	libConnected  chan struct{}
	pionConnected chan struct{}
}

func newPeerPair(t *testing.T) *peerPair {
	t.Helper()
	testutil.Load(t)

	lib, err := datachannel.NewPeerConnection(&datachannel.Configuration{
		DisableAutoNegotiation: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })

	pion, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pion.Close() })

	p := &peerPair{
		t:             t,
		lib:           lib,
		pion:          pion,
		libGathered:   make(chan struct{}),
		libConnected:  make(chan struct{}),
		pionConnected: make(chan struct{}),
	}

	var gatherOnce, libOnce, pionOnce sync.Once
	lib.OnGatheringStateChange(func(s datachannel.GatheringState) {
		if s == datachannel.GatheringStateComplete {
			gatherOnce.Do(func() { close(p.libGathered) })
		}
	})
	lib.OnStateChange(func(s datachannel.PeerState) {
		t.Logf("libdatachannel state: %s", s)
		if s == datachannel.PeerStateConnected {
			libOnce.Do(func() { close(p.libConnected) })
		}
	})
	pion.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		t.Logf("pion state: %s", s)
		if s == webrtc.PeerConnectionStateConnected {
			pionOnce.Do(func() { close(p.pionConnected) })
		}
	})
	return p
}

// libDescription waits for gathering and returns the complete local
// description of the libdatachannel peer.
func (p *peerPair) libDescription() datachannel.Description {
	p.t.Helper()
	testutil.Wait(p.t, p.libGathered, "libdatachannel gathering")
	sdp, err := p.lib.LocalDescription()
	require.NoError(p.t, err)
	typ, err := p.lib.LocalDescriptionType()
	require.NoError(p.t, err)
	return datachannel.Description{SDP: sdp, Type: typ}
}

// setPionLocal applies d to pion and returns it once gathering completed.
func (p *peerPair) setPionLocal(d webrtc.SessionDescription) datachannel.Description {
	p.t.Helper()
	gathered := webrtc.GatheringCompletePromise(p.pion)
	require.NoError(p.t, p.pion.SetLocalDescription(d))
	testutil.Wait(p.t, gathered, "pion gathering")

	out, err := datachannel.DescriptionFromPion(*p.pion.LocalDescription())
	require.NoError(p.t, err)
	return out
}

// libOffers negotiates with libdatachannel as the offerer.
func (p *peerPair) libOffers() {
	p.t.Helper()
	require.NoError(p.t, p.lib.SetLocalDescription(datachannel.DescriptionTypeOffer))
	offer := p.libDescription()
	require.Equal(p.t, datachannel.DescriptionTypeOffer, offer.Type)

	pionOffer, err := offer.ToPion()
	require.NoError(p.t, err)
	require.NoError(p.t, p.pion.SetRemoteDescription(pionOffer))
	answer, err := p.pion.CreateAnswer(nil)
	require.NoError(p.t, err)

	local := p.setPionLocal(answer)
	require.NoError(p.t, p.lib.SetRemoteDescription(local.SDP, local.Type))
}

// pionOffers negotiates with pion as the offerer.
func (p *peerPair) pionOffers() {
	p.t.Helper()
	offer, err := p.pion.CreateOffer(nil)
	require.NoError(p.t, err)
	local := p.setPionLocal(offer)

	require.NoError(p.t, p.lib.SetRemoteDescription(local.SDP, local.Type))
	require.NoError(p.t, p.lib.SetLocalDescription(datachannel.DescriptionTypeAnswer))
	answer := p.libDescription()
	require.Equal(p.t, datachannel.DescriptionTypeAnswer, answer.Type)

	pionAnswer, err := answer.ToPion()
	require.NoError(p.t, err)
	require.NoError(p.t, p.pion.SetRemoteDescription(pionAnswer))
}

func (p *peerPair) waitConnected() {
	p.t.Helper()
	testutil.Wait(p.t, p.libConnected, "libdatachannel connected")
	testutil.Wait(p.t, p.pionConnected, "pion connected")
}
