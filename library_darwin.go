//go:build darwin

package mpv

import (
	"fmt"
	"path/filepath"

	"github.com/ebitengine/purego"
)

type darwinPlatform struct{}

func newPlatform() platform { return darwinPlatform{} }

func defaultLibraries() map[string]LibrarySpec {
	return map[string]LibrarySpec{
		libmpvName: {Versions: []int{2, 1}},
		libcName:   {Names: []string{"/usr/lib/libSystem.B.dylib"}},
	}
}

func (darwinPlatform) loadLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func (darwinPlatform) findSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func (darwinPlatform) nativeFileNames(name string, versions []int) []string {
	return versionedNames(versions,
		func(v int) string { return fmt.Sprintf("lib%s.%d.dylib", name, v) },
		"lib"+name+".dylib")
}

func (darwinPlatform) searchPaths(root string) []string {
	paths := []string{root}
	if root != "" {
		paths = append(paths, filepath.Join(root, "lib"))
	}
	if dir := exeDir(); dir != "" {
		paths = append(paths,
			dir,
			filepath.Join(dir, "..", "Frameworks"),
			filepath.Join(dir, "..", "lib"),
		)
	}
	return append(paths,
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/opt/local/lib",
	)
}
