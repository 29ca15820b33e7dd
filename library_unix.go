//go:build (linux && !android) || freebsd

package mpv

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/ebitengine/purego"
)

type unixPlatform struct{}

func newPlatform() platform { return unixPlatform{} }

func defaultLibraries() map[string]LibrarySpec {
	libc := "libc.so.6"
	if runtime.GOOS == "freebsd" {
		libc = "libc.so.7"
	}
	return map[string]LibrarySpec{
		libmpvName: {Versions: []int{2, 1}},
		libcName:   {Names: []string{libc}},
	}
}

func (unixPlatform) loadLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func (unixPlatform) findSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func (unixPlatform) nativeFileNames(name string, versions []int) []string {
	return versionedNames(versions,
		func(v int) string { return fmt.Sprintf("lib%s.so.%d", name, v) },
		"lib"+name+".so")
}

func (unixPlatform) searchPaths(root string) []string {
	paths := []string{root}
	if root != "" {
		paths = append(paths, filepath.Join(root, "lib"))
	}
	if dir := exeDir(); dir != "" {
		paths = append(paths, dir, filepath.Join(dir, "..", "lib"))
	}
	paths = append(paths, "/usr/local/lib")
	switch runtime.GOARCH {
	case "amd64":
		paths = append(paths, "/usr/lib/x86_64-linux-gnu")
	case "arm64":
		paths = append(paths, "/usr/lib/aarch64-linux-gnu")
	}
	return append(paths, "/usr/lib64", "/usr/lib")
}
