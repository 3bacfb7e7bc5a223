// Package services contains business logic and orchestration
package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrBadParameter is returned when a request parameter is missing or malformed
	ErrBadParameter = errors.New("bad parameter")
	// ErrForbidden is returned when the caller lacks the privilege for an operation
	ErrForbidden = errors.New("operation not allowed")
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
)

// notFoundIfNoRows turns pgx.ErrNoRows into ErrNotFound and passes other errors through
func notFoundIfNoRows(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
