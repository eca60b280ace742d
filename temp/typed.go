package temp

import (
	"fmt"
	"math"
	"reflect"
	"sync"
	"unsafe"

	"github.com/hupe1980/kls/blockpool"
)

// Object is a zeroed T living in arena memory.
type Object[T any] struct {
	Allocation
	ptr *T
}

// Ptr returns the object's address. It is valid until the object is freed.
func (o Object[T]) Ptr() *T { return o.ptr }

// Span is a zeroed []T living in arena memory.
type Span[T any] struct {
	Allocation
	items []T
}

// Items returns the elements. They are valid until the span is freed.
func (s Span[T]) Items() []T { return s.items }

// New allocates a zeroed T. T must not contain Go pointers.
func New[T any](a *Arena) (Object[T], error) {
	var zero T
	if err := checkPointerFree(reflect.TypeOf(&zero).Elem()); err != nil {
		return Object[T]{}, err
	}

	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return Object[T]{ptr: &zero}, nil
	}

	al, err := a.Allocate(size)
	if err != nil {
		return Object[T]{}, err
	}
	b := al.Bytes()
	clear(b)
	return Object[T]{Allocation: al, ptr: (*T)(unsafe.Pointer(&b[0]))}, nil //nolint:gosec // block memory is MaxAlign aligned
}

// NewSlice allocates n zeroed elements of T. T must not contain Go pointers.
func NewSlice[T any](a *Arena, n int) (Span[T], error) {
	if n < 0 {
		return Span[T]{}, &AllocationError{Size: n, Limit: 0, cause: ErrInvalidSize}
	}

	var zero T
	if err := checkPointerFree(reflect.TypeOf(&zero).Elem()); err != nil {
		return Span[T]{}, err
	}

	elem := int(unsafe.Sizeof(zero))
	if n == 0 || elem == 0 {
		return Span[T]{items: make([]T, n)}, nil
	}
	if n > blockpool.Capacity/elem {
		size := math.MaxInt
		if n <= math.MaxInt/elem {
			size = n * elem
		}
		return Span[T]{}, &AllocationError{Size: size, Limit: blockpool.Capacity, cause: ErrTooLarge}
	}

	al, err := a.Allocate(n * elem)
	if err != nil {
		return Span[T]{}, err
	}
	b := al.Bytes()
	clear(b)
	return Span[T]{Allocation: al, items: unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)}, nil //nolint:gosec // block memory is MaxAlign aligned
}

var pointerFree sync.Map // reflect.Type -> error

func checkPointerFree(t reflect.Type) error {
	if v, ok := pointerFree.Load(t); ok {
		if v == nil {
			return nil
		}
		return v.(error)
	}

	var err error
	if hasPointers(t) {
		err = fmt.Errorf("%w: %s", ErrPointerType, t)
	}
	pointerFree.Store(t, err)
	return err
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Interface, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
