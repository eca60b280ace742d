package temp

import (
	"reflect"
	"unsafe"
)

func addrOf(al Allocation) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(al.Bytes())))
}

func reflectType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
