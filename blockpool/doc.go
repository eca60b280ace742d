// Package blockpool supplies and recycles the fixed-size blocks that back
// transient arenas.
//
// # Blocks
//
// Every block is BlockSize bytes. The first HeaderSize bytes hold the block
// header, a signed atomic in-flight counter (see internal/settle); the
// remaining Capacity bytes are handed out by arenas. Blocks are rented
// uninitialised: their payload contents are whatever the previous tenant
// left behind.
//
// # Backing Memory
//
// By default blocks are anonymous memory mappings outside the Go heap, so
// the garbage collector never scans them. WithHeap keeps blocks on the Go
// heap instead (64-byte aligned); mapping falls back to the heap on
// platforms without anonymous mappings.
//
// # Budget
//
// Reserved memory is accounted in an internal resource controller. When a
// memory limit is configured and reached, Rent fails with ErrPoolExhausted.
//
// # Thread Safety
//
// Rent and Return are safe for concurrent use. Returning a block that is not
// currently rented panics: every rented block must be returned exactly once.
package blockpool
