package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected = errors.New("catalog store is not connected")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
)

// StorageError wraps a storage engine failure. The statement it covers has
// already been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("catalog storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// InsufficientStockError reports a decrement that would take stock below
// zero.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}
