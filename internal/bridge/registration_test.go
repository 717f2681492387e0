package bridge_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
	"github.com/thesyncim/libgodatachannel/internal/bridge/bridgetest"
)

func TestInstallRegistersEveryPeerKind(t *testing.T) {
	f := setup(t)
	pc, c := f.peer(t, &bridgetest.Recorder{})

	assert.Equal(t, c.Ptr(), f.engine.GetUserPointer(pc))
	assert.ElementsMatch(t, bridge.PeerKinds, f.engine.Callbacks(pc))
	assert.Equal(t, 1, f.host.LiveRefs())
}

func TestInstallRollsBackOnRegistrationFailure(t *testing.T) {
	f := setup(t)
	f.engine.FailCallback(bridge.KindTrack, bridge.CodeFailure)
	pc := int32(f.engine.CreatePeerConnection(nil))

	c, err := bridge.Install(f.rt, pc, &bridgetest.Recorder{}, bridge.PeerKinds)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, bridge.ErrFailure)

	var berr *bridge.Error
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "rtcSetTrackCallback", berr.Op)

	assert.Empty(t, f.engine.Callbacks(pc))
	assert.Zero(t, f.engine.GetUserPointer(pc))
	assert.Zero(t, f.host.LiveRefs())
	assert.Zero(t, f.rt.Containers())
}

func TestInstallOnDeletedHandle(t *testing.T) {
	f := setup(t)
	pc := int32(f.engine.CreatePeerConnection(nil))
	require.Equal(t, bridge.CodeSuccess, f.engine.DeletePeerConnection(pc))

	_, err := bridge.Install(f.rt, pc, &bridgetest.Recorder{}, bridge.PeerKinds)
	assert.ErrorIs(t, err, bridge.ErrInvalid)
	assert.Zero(t, f.host.LiveRefs())
}

func TestInstallAllocationFailure(t *testing.T) {
	f := setup(t)
	f.host.FailRef = errors.New("no memory")
	pc := int32(f.engine.CreatePeerConnection(nil))

	_, err := bridge.Install(f.rt, pc, &bridgetest.Recorder{}, bridge.PeerKinds)
	assert.ErrorIs(t, err, bridge.ErrAllocation)
	assert.Empty(t, f.engine.Callbacks(pc))
	assert.Zero(t, f.engine.GetUserPointer(pc))
}

func TestReleaseDestroysOwnedContainerOnly(t *testing.T) {
	f := setup(t)
	pc, c := f.peer(t, &bridgetest.Recorder{})

	dc := int32(f.engine.CreateDataChannel(pc, "chat", nil))
	require.Positive(t, dc)
	require.NoError(t, bridge.Adopt(f.rt, dc, c.Ptr(), bridge.ChannelKinds))

	// A child release leaves the peer's container alive.
	bridge.Release(f.rt, dc, bridge.ChannelKinds)
	assert.Same(t, c, f.rt.Lookup(c.Ptr()))
	assert.Equal(t, 1, f.host.LiveRefs())
	assert.Empty(t, f.engine.Callbacks(dc))
	assert.Zero(t, f.engine.GetUserPointer(dc))

	bridge.Release(f.rt, pc, bridge.PeerKinds)
	assert.Nil(t, f.rt.Lookup(c.Ptr()))
	assert.Zero(t, f.host.LiveRefs())
	assert.Empty(t, f.engine.Callbacks(pc))
}

func TestReleasedPeerDropsEvents(t *testing.T) {
	f := setup(t)
	rec := &bridgetest.Recorder{}
	pc, _ := f.peer(t, rec)

	bridge.Release(f.rt, pc, bridge.PeerKinds)
	assert.False(t, f.engine.FireStateChange(pc, stateConnected))
	assert.Empty(t, rec.Events())
}

func TestAdoptRollsBack(t *testing.T) {
	f := setup(t)
	pc, c := f.peer(t, &bridgetest.Recorder{})
	dc := int32(f.engine.CreateDataChannel(pc, "chat", nil))
	f.engine.FailCallback(bridge.KindAvailable, bridge.CodeInvalid)

	err := bridge.Adopt(f.rt, dc, c.Ptr(), bridge.ChannelKinds)
	assert.ErrorIs(t, err, bridge.ErrInvalid)
	assert.Empty(t, f.engine.Callbacks(dc))
	assert.Zero(t, f.engine.GetUserPointer(dc))
}

func TestCallbackOpNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, k := range append(append([]bridge.EventKind{}, bridge.PeerKinds...), bridge.ChannelKinds...) {
		op := bridge.CallbackOp(k)
		assert.NotEqual(t, "rtcSetCallback", op, k.String())
		assert.False(t, seen[op], op)
		seen[op] = true
	}
}
