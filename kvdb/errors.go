package kvdb

import "errors"

var (
	// ErrUnsupportedOp is returned when a wrapper can't perform the operation on behalf of the underlying store.
	ErrUnsupportedOp = errors.New("operation is unsupported")
)
