package store

import (
	"errors"
	"fmt"
)

// ErrPersistence is returned when the durable write or read itself fails.
// It is never folded into NotFoundError: a storage fault must not look like
// "no such record" to callers.
var ErrPersistence = errors.New("persistence failed")

// NotFoundError is returned when an id doesn't resolve to a record.
// It is a first-class result, not a fault.
type NotFoundError struct {
	ID int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("dream %d not found", e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
