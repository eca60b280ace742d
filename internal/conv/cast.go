package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("conv: integer overflow")

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// ToUint32 converts v to uint32, failing if v is negative or too large.
func ToUint32[T Integer](v T) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrOverflow, v)
	}
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d exceeds uint32", ErrOverflow, v)
	}
	return uint32(v), nil
}
