//go:build android

package mpv

import "github.com/ebitengine/purego"

// androidPlatform relies on the system loader: APK native libraries are
// already on its search path and are never versioned.
type androidPlatform struct{}

func newPlatform() platform { return androidPlatform{} }

func defaultLibraries() map[string]LibrarySpec {
	return map[string]LibrarySpec{
		libmpvName: {},
		libcName:   {Names: []string{"libc.so"}},
	}
}

func (androidPlatform) loadLibrary(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
}

func (androidPlatform) findSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func (androidPlatform) nativeFileNames(name string, _ []int) []string {
	return []string{"lib" + name + ".so"}
}

func (androidPlatform) searchPaths(root string) []string {
	return []string{root}
}
