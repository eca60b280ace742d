package kls

import (
	"errors"

	"github.com/hupe1980/kls/blockpool"
	"github.com/hupe1980/kls/temp"
	"github.com/hupe1980/kls/tss"
)

var (
	// ErrThreadExited is returned when allocating on an exited Thread.
	ErrThreadExited = errors.New("kls: thread exited")
	// ErrUnknownKey is returned when deleting a key that is not active.
	ErrUnknownKey = tss.ErrUnknownKey
	// ErrTooLarge is returned for allocations that do not fit in a block.
	ErrTooLarge = temp.ErrTooLarge
	// ErrInvalidSize is returned for negative allocation sizes.
	ErrInvalidSize = temp.ErrInvalidSize
	// ErrPointerType is returned by Alloc and AllocSlice for types holding Go pointers.
	ErrPointerType = temp.ErrPointerType
	// ErrPoolExhausted is returned when the memory limit prevents renting a block.
	ErrPoolExhausted = blockpool.ErrPoolExhausted
)

// AllocationError describes a rejected allocation request.
//
// The underlying sentinel can be accessed via errors.Unwrap.
type AllocationError = temp.AllocationError
