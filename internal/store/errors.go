package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by the caller.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("store: duplicate")
	// ErrStaleState is returned when a compare-and-set update matched no row.
	ErrStaleState = errors.New("store: stale state")
	// ErrNegativeStock is returned when a stock adjustment would go below zero.
	ErrNegativeStock = errors.New("store: stock would become negative")
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}
