// Package ffi binds the libdatachannel C API. The library is opened at
// runtime with purego, so no cgo toolchain is needed to build.
package ffi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrLibraryNotLoaded is returned when libdatachannel hasn't been loaded.
	ErrLibraryNotLoaded = errors.New("libdatachannel library not loaded")

	// ErrLibraryNotFound is returned when libdatachannel cannot be found.
	ErrLibraryNotFound = errors.New("libdatachannel library not found")
)

// EnvLibraryPath overrides the library search.
const EnvLibraryPath = "LIBDATACHANNEL_PATH"

var (
	libHandle uintptr
	libPath   string
	libLoaded atomic.Bool
	libMu     sync.Mutex
)

// LoadLibrary loads libdatachannel. It searches in the following locations:
// 1. Path specified by LIBDATACHANNEL_PATH environment variable
// 2. ./lib/{os}_{arch}/ (executable, working directory and module relative)
// 3. System library paths
func LoadLibrary() error {
	return LoadLibraryFrom("")
}

// LoadLibraryFrom loads libdatachannel from path. An empty path searches
// like LoadLibrary. Loading an already loaded library is a no-op.
func LoadLibraryFrom(path string) error {
	libMu.Lock()
	defer libMu.Unlock()

	if libLoaded.Load() {
		return nil
	}

	candidates := []string{path}
	if path == "" {
		candidates = libraryCandidates()
	}

	var errs []error
	for _, p := range candidates {
		handle, err := openLibrary(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		if err := registerFunctions(handle); err != nil {
			_ = closeLibrary(handle)
			return fmt.Errorf("failed to bind %s: %w", p, err)
		}
		libHandle = handle
		libPath = p
		libLoaded.Store(true)
		return nil
	}
	if path != "" {
		return fmt.Errorf("failed to load %s: %w", path, errors.Join(errs...))
	}
	return fmt.Errorf("%w: %w", ErrLibraryNotFound, errors.Join(errs...))
}

// MustLoadLibrary loads the library and panics on failure.
func MustLoadLibrary() {
	if err := LoadLibrary(); err != nil {
		panic(fmt.Sprintf("libgodatachannel: %v", err))
	}
}

// IsLoaded returns true if libdatachannel is loaded.
func IsLoaded() bool {
	return libLoaded.Load()
}

// LoadedPath returns the path the library was loaded from.
func LoadedPath() string {
	libMu.Lock()
	defer libMu.Unlock()
	return libPath
}

// Close unloads libdatachannel. The callback trampolines stay allocated
// because purego callbacks cannot be freed.
func Close() error {
	libMu.Lock()
	defer libMu.Unlock()

	if !libLoaded.Load() {
		return nil
	}
	libLoaded.Store(false)
	if err := closeLibrary(libHandle); err != nil {
		return err
	}
	libHandle = 0
	libPath = ""
	return nil
}

func libraryCandidates() []string {
	var out []string
	if p, ok := findLocalLibrary(); ok {
		out = append(out, p)
	}
	return append(out, systemLibraryNamesFor(runtime.GOOS)...)
}

func findLocalLibrary() (string, bool) {
	if path := os.Getenv(EnvLibraryPath); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	libName := getLibraryNameFor(runtime.GOOS)
	platformDir := fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH)

	var searchPaths []string
	if execPath, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "lib", platformDir, libName))
	}
	if wd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(wd, "lib", platformDir, libName),
			filepath.Join(wd, "..", "lib", platformDir, libName),
			filepath.Join(wd, "..", "..", "lib", platformDir, libName),
		)
	}
	// thisFile is .../internal/ffi/lib.go
	if _, thisFile, _, ok := runtime.Caller(0); ok {
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
		searchPaths = append(searchPaths, filepath.Join(moduleRoot, "lib", platformDir, libName))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			absPath, _ := filepath.Abs(path)
			return absPath, true
		}
	}
	return "", false
}

func getLibraryNameFor(goos string) string {
	switch goos {
	case "darwin":
		return "libdatachannel.dylib"
	case "windows":
		return "datachannel.dll"
	default:
		return "libdatachannel.so"
	}
}

// systemLibraryNamesFor lists names handed to the platform loader as is,
// relying on its own search path.
func systemLibraryNamesFor(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"libdatachannel.dylib",
			"/opt/homebrew/lib/libdatachannel.dylib",
			"/usr/local/lib/libdatachannel.dylib",
		}
	case "windows":
		return []string{"datachannel.dll", "libdatachannel.dll"}
	default:
		return []string{
			"libdatachannel.so",
			"libdatachannel.so.0.23",
			"libdatachannel.so.0.22",
			"libdatachannel.so.0.21",
		}
	}
}
