package mpv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// libmpvName is the logical name of the libmpv library in a Resolver.
const libmpvName = "mpv"

// libcName is the logical name of the C runtime in a Resolver.
const libcName = "c"

// LibrarySpec describes how to locate one shared library.
type LibrarySpec struct {
	// Names are exact file names to try. When empty they are derived from
	// the logical name and Versions using the platform convention.
	Names []string `yaml:"names" toml:"names"`

	// Versions are ABI versions to try, most preferred first.
	Versions []int `yaml:"versions" toml:"versions"`

	// Dependencies are logical names loaded before this library.
	// Failures to load them are ignored.
	Dependencies []string `yaml:"dependencies" toml:"dependencies"`
}

// platform is the part of library loading that differs per OS.
type platform interface {
	loadLibrary(path string) (uintptr, error)
	findSymbol(handle uintptr, name string) (uintptr, error)
	nativeFileNames(name string, versions []int) []string
	searchPaths(root string) []string
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Root is searched before the platform default directories.
	Root string

	// Libraries overrides or extends the platform defaults, keyed by
	// logical name ("mpv", "c", ...).
	Libraries map[string]LibrarySpec

	Logger *zap.Logger
}

type loadResult struct {
	handle uintptr
	err    error
}

type symbolKey struct {
	library string
	symbol  string
}

// Resolver loads shared libraries and resolves their symbols.
// Each library is loaded at most once; results, including failures, are
// cached for the lifetime of the Resolver. A Resolver is safe for
// concurrent use and may be shared by several Mpv instances.
type Resolver struct {
	platform  platform
	root      string
	libraries map[string]LibrarySpec
	log       *zap.Logger

	mu      sync.RWMutex
	loaded  map[string]loadResult
	symbols map[symbolKey]uintptr
}

// NewResolver returns a Resolver for the current platform.
func NewResolver(cfg ResolverConfig) *Resolver {
	return newResolverWith(newPlatform(), defaultLibraries(), cfg)
}

func newResolverWith(p platform, defaults map[string]LibrarySpec, cfg ResolverConfig) *Resolver {
	libs := make(map[string]LibrarySpec, len(defaults)+len(cfg.Libraries))
	for name, spec := range defaults {
		libs[name] = spec
	}
	// Override fields left empty keep the platform default.
	for name, spec := range cfg.Libraries {
		def := libs[name]
		if len(spec.Names) == 0 {
			spec.Names = def.Names
		}
		if len(spec.Versions) == 0 {
			spec.Versions = def.Versions
		}
		if spec.Dependencies == nil {
			spec.Dependencies = def.Dependencies
		}
		libs[name] = spec
	}
	return &Resolver{
		platform:  p,
		root:      cfg.Root,
		libraries: libs,
		log:       loggerOrNop(cfg.Logger),
		loaded:    make(map[string]loadResult),
		symbols:   make(map[symbolKey]uintptr),
	}
}

// Load returns the handle of the named library, loading it and its
// dependencies on first use.
func (r *Resolver) Load(name string) (uintptr, error) {
	r.mu.RLock()
	res, ok := r.loaded[name]
	r.mu.RUnlock()
	if ok {
		return res.handle, res.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked(name, map[string]bool{})
}

func (r *Resolver) loadLocked(name string, visiting map[string]bool) (uintptr, error) {
	if res, ok := r.loaded[name]; ok {
		return res.handle, res.err
	}
	visiting[name] = true

	spec := r.libraries[name]
	for _, dep := range spec.Dependencies {
		if visiting[dep] {
			continue
		}
		if _, err := r.loadLocked(dep, visiting); err != nil {
			r.log.Debug("dependency not loaded",
				zap.String("library", name),
				zap.String("dependency", dep),
				zap.Error(err))
		}
	}

	handle, err := r.open(name, spec)
	r.loaded[name] = loadResult{handle: handle, err: err}
	return handle, err
}

func (r *Resolver) open(name string, spec LibrarySpec) (uintptr, error) {
	var lastErr error
	for _, path := range r.candidates(name, spec) {
		handle, err := r.platform.loadLibrary(path)
		if err == nil {
			r.log.Debug("loaded library", zap.String("library", name), zap.String("path", path))
			return handle, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no candidate paths")
	}
	return 0, &Error{
		Kind:   KindNativeLibraryNotFound,
		Op:     "load",
		Detail: fmt.Sprintf("library %q not found in any search location", name),
		Cause:  lastErr,
	}
}

// candidates lists every path tried for a library, in order.
func (r *Resolver) candidates(name string, spec LibrarySpec) []string {
	files := spec.Names
	if len(files) == 0 {
		files = r.platform.nativeFileNames(name, spec.Versions)
	}

	var paths []string
	for _, dir := range r.platform.searchPaths(r.root) {
		if dir == "" {
			continue
		}
		for _, f := range files {
			if filepath.IsAbs(f) {
				continue
			}
			paths = append(paths, filepath.Join(dir, f))
		}
	}
	// Bare names are left to the system loader.
	paths = append(paths, files...)
	return paths
}

// Resolve returns the address of symbol in library. When the symbol is
// missing, Resolve fails with KindEntryPointNotFound if required is set
// and returns (0, nil) otherwise. A library that cannot be loaded is
// always an error.
func (r *Resolver) Resolve(library, symbol string, required bool) (uintptr, error) {
	key := symbolKey{library: library, symbol: symbol}
	r.mu.RLock()
	addr, ok := r.symbols[key]
	r.mu.RUnlock()
	if ok {
		return addr, nil
	}

	handle, err := r.Load(library)
	if err != nil {
		return 0, err
	}

	addr, err = r.platform.findSymbol(handle, symbol)
	if err != nil || addr == 0 {
		if !required {
			return 0, nil
		}
		return 0, &Error{
			Kind:   KindEntryPointNotFound,
			Op:     "resolve",
			Detail: fmt.Sprintf("symbol %q not found in %q", symbol, library),
			Cause:  err,
		}
	}

	r.mu.Lock()
	r.symbols[key] = addr
	r.mu.Unlock()
	return addr, nil
}

func exeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// versionedNames builds names like prefix+name+sep+version+suffix for
// each version and ends with the unversioned name.
func versionedNames(versions []int, versioned func(v int) string, plain string) []string {
	names := make([]string, 0, len(versions)+1)
	for _, v := range versions {
		names = append(names, versioned(v))
	}
	return append(names, plain)
}
