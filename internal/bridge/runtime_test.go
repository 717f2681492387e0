package bridge_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
	"github.com/thesyncim/libgodatachannel/internal/bridge/bridgetest"
)

func TestInitTwiceFails(t *testing.T) {
	f := setup(t)

	_, err := bridge.Init(bridge.Options{Engine: f.engine})
	assert.ErrorIs(t, err, bridge.ErrAlreadyInitialized)
	assert.Same(t, f.rt, bridge.Current())
}

func TestInitRequiresEngine(t *testing.T) {
	_, err := bridge.Init(bridge.Options{})
	require.Error(t, err)
	assert.Nil(t, bridge.Current())
}

func TestInitPreloadsAndInstallsLogger(t *testing.T) {
	f := setup(t, func(o *bridge.Options) { o.LogLevel = bridge.LogWarning })

	assert.Equal(t, 1, f.engine.Preloads())
	assert.Equal(t, bridge.LogWarning, f.engine.LogLevel())
}

func TestInitWithoutLogLevelSkipsLogger(t *testing.T) {
	f := setup(t)
	assert.Equal(t, bridge.LogNone, f.engine.LogLevel())
}

func TestTeardown(t *testing.T) {
	engine := bridgetest.NewFakeEngine()
	_, err := bridge.Init(bridge.Options{Engine: engine, Host: bridgetest.NewFakeHost()})
	require.NoError(t, err)

	bridge.Teardown()
	assert.Nil(t, bridge.Current())
	assert.Equal(t, 1, engine.Cleanups())

	// Idempotent: nothing left to clean up.
	bridge.Teardown()
	assert.Equal(t, 1, engine.Cleanups())

	_, _, err = bridge.ResolveCurrentThread()
	assert.ErrorIs(t, err, bridge.ErrUnavailable)
}

func TestTeardownWaitsForPin(t *testing.T) {
	f := setup(t)
	require.True(t, f.rt.Pin())

	done := make(chan struct{})
	go func() {
		bridge.Teardown()
		close(done)
	}()

	require.Eventually(t, func() bool { return bridge.Current() == nil }, time.Second, time.Millisecond)
	assert.False(t, f.rt.Pin(), "pin after teardown started")
	assert.Equal(t, 0, f.engine.Cleanups())

	f.rt.Unpin()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("teardown still waiting after unpin")
	}
	assert.Equal(t, 1, f.engine.Cleanups())
}

func TestPinNilRuntime(t *testing.T) {
	var rt *bridge.Runtime
	assert.False(t, rt.Pin())
}

func TestInitAfterTeardown(t *testing.T) {
	first := setup(t)
	bridge.Teardown()

	second := setup(t)
	assert.NotSame(t, first.rt, second.rt)
	assert.Same(t, second.rt, bridge.Current())
}

func TestResolveCurrentThreadAttaches(t *testing.T) {
	f := setup(t)

	tc, attached, err := f.rt.ResolveCurrentThread()
	require.NoError(t, err)
	require.NotNil(t, tc)
	assert.True(t, attached)
	assert.EqualValues(t, 1, f.host.Attaches())
	assert.EqualValues(t, 1, f.rt.Stats().Attached)
}

func TestResolveCurrentThreadReusesResident(t *testing.T) {
	f := setup(t)
	f.host.Resident = bridge.NewThreadContext(7)

	tc, attached, err := f.rt.ResolveCurrentThread()
	require.NoError(t, err)
	assert.False(t, attached)
	assert.Same(t, f.host.Resident, tc)
	assert.Zero(t, f.host.Attaches())
}

func TestResolveCurrentThreadAttachFailure(t *testing.T) {
	f := setup(t)
	f.host.FailAttach = errors.New("no more threads")

	_, attached, err := f.rt.ResolveCurrentThread()
	assert.Error(t, err)
	assert.False(t, attached)
}

func TestNilRuntimeIsUnavailable(t *testing.T) {
	var rt *bridge.Runtime
	_, _, err := rt.ResolveCurrentThread()
	assert.ErrorIs(t, err, bridge.ErrUnavailable)
	assert.Nil(t, rt.Lookup(1))
}
