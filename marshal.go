package mpv

import "unsafe"

type ownedBlock struct {
	p    unsafe.Pointer
	free func(unsafe.Pointer)
}

// Arena is a scope for native memory handed to or received from libmpv.
//
// Memory comes from two families that are released differently:
// heap blocks allocated through the Arena's Allocator, and blocks owned by
// libmpv (returned strings, node contents) registered with Own together
// with the function that releases them. Release frees everything exactly
// once. Typical use:
//
//	a := newArena(alloc)
//	defer a.Release()
type Arena struct {
	alloc    Allocator
	heap     []unsafe.Pointer
	owned    []ownedBlock
	released bool
}

func newArena(alloc Allocator) *Arena {
	return &Arena{alloc: alloc}
}

// Alloc returns size zeroed bytes.
func (a *Arena) Alloc(size uintptr) unsafe.Pointer {
	p := a.alloc.Alloc(size)
	a.heap = append(a.heap, p)
	return p
}

// CString copies s into native memory as NUL-terminated UTF-8.
func (a *Arena) CString(s string) unsafe.Pointer {
	b := cBytes(s)
	p := a.Alloc(uintptr(len(b)))
	copy(unsafe.Slice((*byte)(p), len(b)), b)
	return p
}

// CStringArray builds a NULL-terminated char* array.
func (a *Arena) CStringArray(ss []string) unsafe.Pointer {
	ptrSize := unsafe.Sizeof(uintptr(0))
	arr := a.Alloc(ptrSize * uintptr(len(ss)+1))
	slots := unsafe.Slice((*unsafe.Pointer)(arr), len(ss)+1)
	for i, s := range ss {
		slots[i] = a.CString(s)
	}
	slots[len(ss)] = nil
	return arr
}

// arenaNew allocates a zeroed T in native memory.
func arenaNew[T any](a *Arena) *T {
	var zero T
	return (*T)(a.Alloc(unsafe.Sizeof(zero)))
}

// Own registers p, allocated by someone else, to be released with free.
// A nil p is ignored.
func (a *Arena) Own(p unsafe.Pointer, free func(unsafe.Pointer)) {
	if p == nil || free == nil {
		return
	}
	a.owned = append(a.owned, ownedBlock{p: p, free: free})
}

// Release frees every block registered with the Arena. It is safe to call
// more than once; only the first call does any work.
func (a *Arena) Release() {
	if a.released {
		return
	}
	a.released = true
	for i := len(a.owned) - 1; i >= 0; i-- {
		a.owned[i].free(a.owned[i].p)
	}
	for i := len(a.heap) - 1; i >= 0; i-- {
		a.alloc.Free(a.heap[i])
	}
	a.owned = nil
	a.heap = nil
}

// PtrTo reads a T from p. It fails with KindInvalidArgument when p is nil.
func PtrTo[T any](p unsafe.Pointer) (T, error) {
	var zero T
	if p == nil {
		return zero, invalidArgument("PtrTo", "nil pointer")
	}
	return *(*T)(p), nil
}
