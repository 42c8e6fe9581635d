package database

import (
	"errors"

	"github.com/lib/pq"
)

// pq error code for unique constraint violations.
const uniqueViolationCode = "23505"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a uniqueness constraint.
// The store-level constraint is the final arbiter for concurrent duplicates.
var ErrDuplicate = errors.New("duplicate record")

// IsUniqueViolation reports whether err is a PostgreSQL unique violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
