package temp

import (
	"errors"
	"fmt"
)

var (
	// ErrTooLarge is returned when an aligned request does not fit in a block.
	ErrTooLarge = errors.New("temp: allocation exceeds block capacity")
	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("temp: invalid allocation size")
	// ErrPointerType is returned by New and NewSlice for types containing Go pointers.
	ErrPointerType = errors.New("temp: type contains pointers")
	// ErrClosed is returned when allocating from a closed arena.
	ErrClosed = errors.New("temp: arena is closed")
)

// AllocationError describes a rejected allocation request.
//
// The underlying sentinel can be matched with errors.Is.
type AllocationError struct {
	Size  int
	Limit int
	cause error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("%v: requested %d bytes, limit %d", e.cause, e.Size, e.Limit)
}

func (e *AllocationError) Unwrap() error { return e.cause }
