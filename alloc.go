package mpv

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Allocator hands out native memory for values passed into libmpv.
// Blocks must be zeroed and must not be moved or collected by Go.
type Allocator interface {
	Alloc(size uintptr) unsafe.Pointer
	Free(p unsafe.Pointer)
}

// libcAllocator allocates from the C runtime heap.
type libcAllocator struct {
	calloc func(count, size uintptr) uintptr
	free   func(p unsafe.Pointer)
}

// newLibcAllocator binds calloc and free from the C runtime library.
func newLibcAllocator(r *Resolver) (*libcAllocator, error) {
	a := &libcAllocator{}
	callocAddr, err := r.Resolve(libcName, "calloc", true)
	if err != nil {
		return nil, fmt.Errorf("libc allocator: %w", err)
	}
	freeAddr, err := r.Resolve(libcName, "free", true)
	if err != nil {
		return nil, fmt.Errorf("libc allocator: %w", err)
	}
	purego.RegisterFunc(&a.calloc, callocAddr)
	purego.RegisterFunc(&a.free, freeAddr)
	return a, nil
}

func (a *libcAllocator) Alloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		size = 1
	}
	p := a.calloc(1, size)
	if p == 0 {
		panic(fmt.Sprintf("mpv: calloc(%d) failed", size))
	}
	return unsafe.Pointer(p)
}

func (a *libcAllocator) Free(p unsafe.Pointer) {
	if p != nil {
		a.free(p)
	}
}
