package datachannel

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICEServersFromPion(t *testing.T) {
	got, err := ICEServersFromPion([]webrtc.ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
		{
			URLs:       []string{"turn:turn.example.com:3478?transport=udp", "turns:turn.example.com:5349"},
			Username:   "alice",
			Credential: "s3cr et",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []ICEServer{
		"stun:stun.l.google.com:19302",
		"turn:alice:s3cr%20et@turn.example.com:3478?transport=udp",
		"turns:alice:s3cr%20et@turn.example.com:5349",
	}, got)

	_, err = ICEServersFromPion([]webrtc.ICEServer{{URLs: []string{"turn:x"}, Username: "u", Credential: 42}})
	assert.ErrorContains(t, err, "password credentials")
}

func TestICEURLWithCredentials(t *testing.T) {
	got, err := iceURLWithCredentials("stun:stun.example.com", "ignored", "x")
	require.NoError(t, err)
	assert.Equal(t, "stun:stun.example.com", got)

	got, err = iceURLWithCredentials("TURN:turn.example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, "TURN:turn.example.com", got)

	_, err = iceURLWithCredentials("turn:u:p@turn.example.com", "v", "q")
	assert.ErrorContains(t, err, "credentials given twice")

	_, err = iceURLWithCredentials("turn:", "u", "p")
	assert.Error(t, err)
}

func TestDescriptionPion(t *testing.T) {
	d := Description{SDP: offerSDP, Type: DescriptionTypeOffer}
	p, err := d.ToPion()
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeOffer, p.Type)
	assert.Equal(t, offerSDP, p.SDP)

	back, err := DescriptionFromPion(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: offerSDP})
	require.NoError(t, err)
	assert.Equal(t, Description{SDP: offerSDP, Type: DescriptionTypeAnswer}, back)

	_, err = Description{SDP: offerSDP}.ToPion()
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCandidatePion(t *testing.T) {
	c := Candidate{Candidate: "a=candidate:1 1 UDP 2122260223 192.168.1.10 54321 typ host", Mid: "0"}
	init := c.ToPion()
	assert.Equal(t, "candidate:1 1 UDP 2122260223 192.168.1.10 54321 typ host", init.Candidate)
	require.NotNil(t, init.SDPMid)
	assert.Equal(t, "0", *init.SDPMid)

	back := CandidateFromPion(init)
	assert.Equal(t, "0", back.Mid)
	assert.Equal(t, init.Candidate, back.Candidate)

	assert.Nil(t, Candidate{Candidate: "candidate:x"}.ToPion().SDPMid)
}
