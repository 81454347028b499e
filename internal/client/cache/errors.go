package cache

import (
	"errors"
	"fmt"
)

// ErrNotCached is returned by mutating helpers when the target aggregate has
// never been stored locally.
var ErrNotCached = errors.New("shoot not cached")

// ErrRecordNotFound is returned when a record or group ID is missing from a
// cached aggregate.
var ErrRecordNotFound = errors.New("record not found in cached shoot")

// StorageError wraps a durable-storage I/O failure with the operation that
// produced it. Local writes are never dropped silently; callers get the
// failed operation by name.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
