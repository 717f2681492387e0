package datachannel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/bridge/bridgetest"
)

type fixture struct {
	engine *bridgetest.FakeEngine
	host   *bridgetest.FakeHost
}

// setup starts the package on a fake engine and unloads it when the test
// ends.
func setup(t *testing.T, opts ...Options) *fixture {
	t.Helper()
	f := &fixture{
		engine: bridgetest.NewFakeEngine(),
		host:   bridgetest.NewFakeHost(),
	}
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	require.NoError(t, start(f.engine, f.host, o))
	t.Cleanup(Unload)
	return f
}

// peer creates a peer connection that is closed before Unload runs.
func (f *fixture) peer(t *testing.T) *PeerConnection {
	t.Helper()
	pc, err := NewPeerConnection(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return pc
}

const offerSDP = "v=0\r\n" +
	"o=- 4611731400430051336 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"a=group:BUNDLE 0\r\n" +
	"m=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=mid:0\r\n" +
	"a=sendrecv\r\n" +
	"a=sctp-port:5000\r\n" +
	"a=max-message-size:262144\r\n"

const videoSection = "m=video 9 UDP/TLS/RTP/SAVPF 96\n" +
	"c=IN IP4 0.0.0.0\n" +
	"a=mid:video\n" +
	"a=sendonly\n" +
	"a=rtpmap:96 H264/90000\n"
