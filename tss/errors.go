package tss

import "errors"

var (
	// ErrUnknownKey is returned when deleting a key that is not active.
	ErrUnknownKey = errors.New("tss: unknown key")
)
