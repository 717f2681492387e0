// Package testutil provides shared helpers for tests that need the native
// libdatachannel library.
package testutil

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/thesyncim/libgodatachannel/internal/ffi"
	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
)

// EnvRequire turns a missing library into a test failure instead of a skip.
const EnvRequire = "LIBDATACHANNEL_TEST_REQUIRE"

// Timeout bounds waits on network events in live tests.
const Timeout = 15 * time.Second

// RequireLibrary skips tb unless libdatachannel can be opened. With
// LIBDATACHANNEL_TEST_REQUIRE set, a missing library fails tb instead.
func RequireLibrary(tb testing.TB) {
	tb.Helper()
	if err := ffi.LoadLibrary(); err != nil {
		if os.Getenv(EnvRequire) != "" {
			tb.Fatalf("libdatachannel required: %v", err)
		}
		tb.Skip("libdatachannel not available:", err)
	}
}

// Load opens libdatachannel for the duration of tb, logging through tb.
func Load(tb testing.TB) {
	tb.Helper()
	RequireLibrary(tb)
	err := datachannel.Load(datachannel.Options{
		Library:    ffi.LoadedPath(),
		LogLevel:   datachannel.LogWarning,
		DropPolicy: "log",
		Logger:     zaptest.NewLogger(tb),
	})
	if err != nil {
		tb.Fatalf("load libdatachannel: %v", err)
	}
	tb.Cleanup(func() {
		datachannel.Unload()
		datachannel.SetLogger(nil)
	})
}

// Wait blocks until ch yields a value or Timeout elapses.
func Wait[T any](tb testing.TB, ch <-chan T, what string) T {
	tb.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(Timeout):
		tb.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}
