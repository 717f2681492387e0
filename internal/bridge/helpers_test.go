package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
	"github.com/thesyncim/libgodatachannel/internal/bridge/bridgetest"
)

type fixture struct {
	rt     *bridge.Runtime
	engine *bridgetest.FakeEngine
	host   *bridgetest.FakeHost
}

func setup(t *testing.T, mutate ...func(*bridge.Options)) *fixture {
	t.Helper()
	f := &fixture{
		engine: bridgetest.NewFakeEngine(),
		host:   bridgetest.NewFakeHost(),
	}
	opts := bridge.Options{Engine: f.engine, Host: f.host}
	for _, m := range mutate {
		m(&opts)
	}
	rt, err := bridge.Init(opts)
	require.NoError(t, err)
	f.rt = rt
	t.Cleanup(bridge.Teardown)
	return f
}

// peer creates a peer handle with rec installed for every peer kind.
func (f *fixture) peer(t *testing.T, rec bridge.Listener) (int32, *bridge.Container) {
	t.Helper()
	pc := int32(f.engine.CreatePeerConnection(&bridge.PeerConfig{}))
	require.Positive(t, pc)
	c, err := bridge.Install(f.rt, pc, rec, bridge.PeerKinds)
	require.NoError(t, err)
	return pc, c
}
