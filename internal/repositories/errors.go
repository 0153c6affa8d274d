package repositories

import (
	"errors"
	"fmt"
)

// ErrLockNotHeld is returned by Release when the token no longer owns the lock.
var ErrLockNotHeld = errors.New("cycle lock not held")

// StoreError reports a failed row store operation (connectivity, query or
// constraint failures).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
