package datachannel

import (
	"errors"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// Errors returned by native operations. Match them with errors.Is; the
// operation name is available through *Error.
var (
	ErrInvalid      = bridge.ErrInvalid
	ErrFailure      = bridge.ErrFailure
	ErrNotAvailable = bridge.ErrNotAvailable
	ErrTooSmall     = bridge.ErrTooSmall
	ErrUnknown      = bridge.ErrUnknown
	ErrAllocation   = bridge.ErrAllocation
)

// Lifecycle errors.
var (
	ErrNotLoaded     = bridge.ErrUnavailable
	ErrAlreadyLoaded = bridge.ErrAlreadyInitialized
	ErrClosed        = errors.New("datachannel: closed")
)

// Error is a failed native call. Op names the libdatachannel function.
type Error = bridge.Error
