//go:build windows

package ffi

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// openLibrary prefers the DLL's own directory for its dependencies.
func openLibrary(path string) (uintptr, error) {
	h, err := windows.LoadLibraryEx(path, 0,
		windows.LOAD_LIBRARY_SEARCH_DEFAULT_DIRS|windows.LOAD_LIBRARY_SEARCH_DLL_LOAD_DIR)
	if err != nil {
		// Bare names are resolved through the regular search order.
		h, err = windows.LoadLibrary(path)
		if err != nil {
			return 0, fmt.Errorf("LoadLibrary: %w", err)
		}
	}
	return uintptr(h), nil
}

func symbol(handle uintptr, name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(handle), name)
	if err != nil {
		return 0, fmt.Errorf("GetProcAddress(%s): %w", name, err)
	}
	return addr, nil
}

func closeLibrary(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	if err := windows.FreeLibrary(windows.Handle(handle)); err != nil {
		return fmt.Errorf("FreeLibrary: %w", err)
	}
	return nil
}
