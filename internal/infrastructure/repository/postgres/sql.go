package postgres

import (
	"errors"

	crerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"github.com/riskibarqy/match-hub/internal/domain/score"
)

const (
	pqUndefinedTable         = "42P01"
	pqUndefinedColumn        = "42703"
	pqInvalidColumnReference = "42P10"
)

// persistenceError marks err as score.ErrPersistence and keeps the driver
// error reachable through errors.As.
func persistenceError(err error, op string) error {
	wrapped := crerr.Wrap(err, op)
	if isSchemaMissing(err) {
		wrapped = crerr.WithHint(wrapped, "the scores schema is missing or outdated; run the migrations")
	}
	return crerr.Mark(wrapped, score.ErrPersistence)
}

func isSchemaMissing(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case pqUndefinedTable, pqUndefinedColumn, pqInvalidColumnReference:
		return true
	default:
		return false
	}
}
