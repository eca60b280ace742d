package blockpool

import (
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/kls/internal/mem"
	"github.com/hupe1980/kls/internal/mmap"
	"github.com/hupe1980/kls/internal/settle"
)

const (
	// BlockSize is the size of every block including its header (4 MiB).
	BlockSize = 4 << 20
	// HeaderSize is the block header rounded up to mem.MaxAlign.
	HeaderSize = int((unsafe.Sizeof(header{}) + mem.MaxAlign - 1) &^ (mem.MaxAlign - 1))
	// Capacity is the number of payload bytes available in a block.
	Capacity = BlockSize - HeaderSize
)

const (
	stateIdle uint32 = iota
	stateRented
	stateReleased
)

// header is stored in the first bytes of the block memory.
type header struct {
	flying settle.Counter
}

// Block is a fixed-size memory region rented from a Pool.
type Block struct {
	id      uint64
	data    []byte
	hdr     *header
	mapping *mmap.Mapping // nil when heap backed
	pool    *Pool
	state   atomic.Uint32
}

func newBlock(id uint64, data []byte, mapping *mmap.Mapping, pool *Pool) *Block {
	return &Block{
		id:      id,
		data:    data,
		hdr:     (*header)(unsafe.Pointer(&data[0])), //nolint:gosec // header lives at the start of the block
		mapping: mapping,
		pool:    pool,
	}
}

// ID returns a pool-unique identifier of the block.
func (b *Block) ID() uint64 { return b.id }

// Payload returns the Capacity bytes following the header.
func (b *Block) Payload() []byte {
	return b.data[HeaderSize:BlockSize:BlockSize]
}

// Flying returns the block's in-flight counter.
func (b *Block) Flying() *settle.Counter {
	return &b.hdr.flying
}

// Pool returns the pool the block belongs to.
func (b *Block) Pool() *Pool { return b.pool }

// Release hands the block back to its pool. It is a shorthand for
// b.Pool().Return(b).
func (b *Block) Release() {
	b.pool.Return(b)
}

// Mapped reports whether the block lives in an anonymous mapping.
func (b *Block) Mapped() bool { return b.mapping != nil }

func (b *Block) free() error {
	b.state.Store(stateReleased)
	if b.mapping != nil {
		return b.mapping.Close()
	}
	return nil
}
