// Package mmap provides anonymous memory mappings used as off-heap block storage.
//
// # Overview
//
// Blocks handed out by the block pool live outside the Go heap so that the
// garbage collector never scans or moves them and so that a block's header
// can be updated atomically from any goroutine.
//
//	m, err := mmap.MapAnon(4 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (Advise is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure no
// goroutine touches Bytes() after Close returns.
package mmap
