// Package mem provides alignment arithmetic and aligned heap buffers.
//
// # Aligned Allocation
//
// AllocAligned returns cache-line (64-byte) aligned byte slices. The block
// pool uses it when blocks are kept on the Go heap instead of in anonymous
// mappings.
package mem
