package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of buffers returned by AllocAligned (one cache line).
const Alignment = 64

// MaxAlign is the strictest alignment any scalar type needs on supported
// platforms. Arena allocations are rounded up to a multiple of it.
const MaxAlign = 16

// AlignUp rounds n up to a multiple of align, which must be a power of two.
func AlignUp(n, align uintptr) uintptr {
	mask := align - 1
	return (n + mask) &^ mask
}

// IsAligned reports whether p is a multiple of align, which must be a power of two.
func IsAligned(p, align uintptr) bool {
	return p&(align-1) == 0
}

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // address is only inspected, never converted back
	offset := AlignUp(addr, Alignment) - addr

	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}
