package bridge

import "sync/atomic"

// DropPolicy decides what happens to an event that has no container.
type DropPolicy int

const (
	// DropSilently discards the event and only counts it.
	DropSilently DropPolicy = iota
	// DropAndLog discards the event and logs it at debug level.
	DropAndLog
)

func (p DropPolicy) String() string {
	switch p {
	case DropSilently:
		return "silent"
	case DropAndLog:
		return "log"
	default:
		return "unknown"
	}
}

// ParseDropPolicy parses the String form. Empty input is DropSilently.
func ParseDropPolicy(s string) (DropPolicy, bool) {
	switch s {
	case "", "silent":
		return DropSilently, true
	case "log":
		return DropAndLog, true
	default:
		return DropSilently, false
	}
}

// Stats counts deliveries on a runtime.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Raised    uint64
	Attached  uint64
}

type counters struct {
	delivered atomic.Uint64
	dropped   atomic.Uint64
	raised    atomic.Uint64
	attached  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Delivered: c.delivered.Load(),
		Dropped:   c.dropped.Load(),
		Raised:    c.raised.Load(),
		Attached:  c.attached.Load(),
	}
}
