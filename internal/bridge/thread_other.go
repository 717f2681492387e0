//go:build !linux && !windows

package bridge

// No portable thread id; every delivery attaches and detaches.
func currentThreadID() (uint64, bool) {
	return 0, false
}
