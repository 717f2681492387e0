// Package datachannel provides a Go API for libdatachannel peer connections,
// data channels and media tracks.
//
// The native library is opened once per process with Load. Events raised on
// libdatachannel's internal threads are delivered to handlers registered on
// PeerConnection, DataChannel and Track values.
package datachannel

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
	"github.com/thesyncim/libgodatachannel/internal/ffi"
)

// Options controls Load.
type Options struct {
	// Library is the path to libdatachannel. Empty searches
	// LIBDATACHANNEL_PATH, the bundled lib directory and the system paths.
	Library string
	// LogLevel routes native log lines at or above this level into the
	// logger. LogNone leaves the native logger uninstalled.
	LogLevel LogLevel
	// DropPolicy is "silent" (default) or "log".
	DropPolicy string
	// Logger replaces the package logger when non-nil.
	Logger *zap.Logger
}

var loadMu sync.Mutex

// Load opens libdatachannel and starts the event bridge.
func Load(opts Options) error {
	loadMu.Lock()
	defer loadMu.Unlock()

	if bridge.Current() != nil {
		return ErrAlreadyLoaded
	}

	var err error
	if opts.Library != "" {
		err = ffi.LoadLibraryFrom(opts.Library)
	} else {
		err = ffi.LoadLibrary()
	}
	if err != nil {
		return fmt.Errorf("datachannel: load library: %w", err)
	}
	engine, err := ffi.NewEngine()
	if err != nil {
		return err
	}
	return start(engine, nil, opts)
}

// MustLoad is Load that panics on error.
func MustLoad(opts Options) {
	if err := Load(opts); err != nil {
		panic(err)
	}
}

// start initializes the bridge runtime on engine. A nil host uses the Go
// thread host.
func start(engine bridge.Engine, host bridge.Host, opts Options) error {
	policy, ok := bridge.ParseDropPolicy(opts.DropPolicy)
	if !ok {
		return fmt.Errorf("datachannel: drop policy %q: %w", opts.DropPolicy, ErrInvalid)
	}
	if opts.Logger != nil {
		bridge.SetLogger(opts.Logger)
	}
	_, err := bridge.Init(bridge.Options{
		Engine:     engine,
		Host:       host,
		DropPolicy: policy,
		LogLevel:   int32(opts.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("datachannel: start: %w", err)
	}
	bridge.Logger().Debug("libdatachannel loaded",
		zap.String("path", ffi.LoadedPath()),
		zap.Stringer("log_level", opts.LogLevel),
		zap.Stringer("drop_policy", policy))
	return nil
}

// Unload stops event delivery and releases libdatachannel's global
// resources. Peer connections must be closed first.
func Unload() {
	loadMu.Lock()
	defer loadMu.Unlock()
	bridge.Teardown()
}

// Loaded reports whether Load succeeded and Unload has not been called.
func Loaded() bool {
	return bridge.Current() != nil
}

// SetLogger replaces the logger used for native log lines, dropped events
// and delivery errors. Nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	bridge.SetLogger(l)
}

// Stats counts event deliveries.
type Stats = bridge.Stats

// DeliveryStats returns the event delivery counters of the loaded library.
func DeliveryStats() (Stats, bool) {
	rt := bridge.Current()
	if rt == nil {
		return Stats{}, false
	}
	return rt.Stats(), true
}

// liveRuntime returns the loaded runtime.
func liveRuntime() (*bridge.Runtime, error) {
	rt := bridge.Current()
	if rt == nil {
		return nil, ErrNotLoaded
	}
	return rt, nil
}
