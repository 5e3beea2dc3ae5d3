// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish between different failure scenarios without inspecting
// driver errors. ErrNotFound means the addressed row does not exist,
// ErrConflict means a conditional write matched no row because the
// stored state no longer allows the transition, and ErrEmailExists
// reports a unique email violation.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup or write addresses a row that
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional update affected no rows
// because the row's current state contradicts the requested
// transition (e.g. reserving a spot that is already reserved).
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when inserting a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// isDuplicateKey reports whether err is a MySQL unique violation (1062).
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}
