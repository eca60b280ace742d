package blockpool

import "errors"

var (
	// ErrPoolExhausted is returned by Rent when the memory budget is used up.
	ErrPoolExhausted = errors.New("blockpool: pool exhausted")
	// ErrClosed is returned by Rent after Close.
	ErrClosed = errors.New("blockpool: pool is closed")
)
