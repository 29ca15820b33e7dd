package mpv

import (
	"strings"
	"unicode/utf8"
	"unsafe"
)

// goString converts a NUL-terminated C string to a Go string.
func goString(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// goStringFromPtr is goString for pointers libmpv returns as uintptr.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	return goString(unsafe.Pointer(ptr))
}

// goStrings reads n consecutive char* entries starting at p.
func goStrings(p unsafe.Pointer, n int) []string {
	if p == nil || n <= 0 {
		return nil
	}
	ptrs := unsafe.Slice((*unsafe.Pointer)(p), n)
	out := make([]string, n)
	for i, s := range ptrs {
		out[i] = goString(s)
	}
	return out
}

// cBytes returns s as UTF-8 with a trailing NUL.
// Invalid sequences become U+FFFD. An embedded NUL truncates the string,
// since libmpv would stop reading there anyway.
func cBytes(s string) []byte {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
