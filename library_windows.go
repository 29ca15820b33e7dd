//go:build windows

package mpv

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/windows"
)

type windowsPlatform struct{}

func newPlatform() platform { return windowsPlatform{} }

func defaultLibraries() map[string]LibrarySpec {
	return map[string]LibrarySpec{
		libmpvName: {Versions: []int{2, 1}},
		libcName:   {Names: []string{"ucrtbase.dll", "msvcrt.dll"}},
	}
}

func (windowsPlatform) loadLibrary(path string) (uintptr, error) {
	if filepath.IsAbs(path) {
		// Let the DLL's own directory satisfy its dependencies.
		h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
		return uintptr(h), err
	}
	h, err := windows.LoadLibrary(path)
	return uintptr(h), err
}

func (windowsPlatform) findSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

// nativeFileNames covers both the shinchiro builds (libmpv-2.dll) and the
// older mpv-N.dll naming.
func (windowsPlatform) nativeFileNames(name string, versions []int) []string {
	names := make([]string, 0, 2*len(versions)+1)
	for _, v := range versions {
		names = append(names,
			fmt.Sprintf("lib%s-%d.dll", name, v),
			fmt.Sprintf("%s-%d.dll", name, v),
		)
	}
	return append(names, name+".dll")
}

func (windowsPlatform) searchPaths(root string) []string {
	paths := []string{root}
	if dir := exeDir(); dir != "" {
		paths = append(paths, dir)
	}
	return paths
}
