package bridge

import (
	"errors"
	"fmt"
)

var (
	// Error kinds raised by Translate. They support errors.Is().
	ErrInvalid      = errors.New("invalid argument")
	ErrFailure      = errors.New("operation failed")
	ErrNotAvailable = errors.New("not available")
	ErrTooSmall     = errors.New("buffer too small")
	ErrUnknown      = errors.New("unknown failure")

	// ErrAllocation is returned when a container cannot be allocated.
	ErrAllocation = errors.New("allocation failed")

	// ErrUnavailable is returned when the runtime is not initialized or
	// has been torn down.
	ErrUnavailable = errors.New("runtime unavailable")

	// ErrAlreadyInitialized is returned by Init when a runtime is live.
	ErrAlreadyInitialized = errors.New("runtime already initialized")
)

// Kind classifies a translated native error.
type Kind int

const (
	KindInvalid Kind = iota + 1
	KindFailure
	KindNotAvailable
	KindTooSmall
	KindUnknown
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalid:
		return ErrInvalid
	case KindFailure:
		return ErrFailure
	case KindNotAvailable:
		return ErrNotAvailable
	case KindTooSmall:
		return ErrTooSmall
	default:
		return ErrUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindFailure:
		return "failure"
	case KindNotAvailable:
		return "not-available"
	case KindTooSmall:
		return "too-small"
	case KindUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// Error is a native error code tagged with the operation that produced it.
type Error struct {
	Op   string
	Code int
	Kind Kind
}

func (e *Error) Error() string {
	if e.Kind == KindUnknown {
		return fmt.Sprintf("%s: %v (code %d)", e.Op, ErrUnknown, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind.sentinel())
}

// Unwrap exposes the kind sentinel to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

// KindOf maps a negative native code to its kind. Zero is returned for
// non-negative codes.
func KindOf(code int) Kind {
	switch {
	case code >= 0:
		return 0
	case code == CodeInvalid:
		return KindInvalid
	case code == CodeFailure:
		return KindFailure
	case code == CodeNotAvail:
		return KindNotAvailable
	case code == CodeTooSmall:
		return KindTooSmall
	default:
		return KindUnknown
	}
}

// Translate converts a native result. Non-negative codes are values;
// anything else yields ExceptionThrown and an *Error labelled with op.
func Translate(op string, code int) (int, error) {
	if code >= 0 {
		return code, nil
	}
	return ExceptionThrown, &Error{Op: op, Code: code, Kind: KindOf(code)}
}

// Check is Translate for calls whose value is not needed.
func Check(op string, code int) error {
	_, err := Translate(op, code)
	return err
}

// RaiseOn translates code and, on error, sets it pending on tc.
func RaiseOn(tc *ThreadContext, op string, code int) int {
	v, err := Translate(op, code)
	if err != nil {
		tc.Raise(err)
	}
	return v
}
