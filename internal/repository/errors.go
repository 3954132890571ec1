package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrApplicationExists is returned by Create when the student already has an
// application for the university.
var ErrApplicationExists = errors.New("application already exists")

// isUniqueViolation reports whether err is a unique violation, optionally on
// the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
