package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"github.com/riskibarqy/match-hub/internal/domain/score"
)

func TestPersistenceError(t *testing.T) {
	t.Run("marks driver errors and keeps the cause", func(t *testing.T) {
		cause := &pq.Error{Code: "08006", Message: "connection failure"}
		err := persistenceError(cause, "upsert scores")

		if !crerr.Is(err, score.ErrPersistence) {
			t.Fatalf("expected ErrPersistence mark, got %v", err)
		}
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != "08006" {
			t.Fatalf("expected pq error to stay reachable, got %v", err)
		}
		if hints := crerr.GetAllHints(err); len(hints) != 0 {
			t.Fatalf("unexpected hints for connection error: %v", hints)
		}
	})

	t.Run("adds migration hint when schema is missing", func(t *testing.T) {
		err := persistenceError(&pq.Error{Code: "42P01", Message: `relation "scores" does not exist`}, "upsert scores")
		if !crerr.Is(err, score.ErrPersistence) {
			t.Fatalf("expected ErrPersistence mark, got %v", err)
		}
		if hints := crerr.GetAllHints(err); len(hints) != 1 {
			t.Fatalf("expected migration hint, got %v", hints)
		}
	})

	t.Run("keeps context cancellation visible", func(t *testing.T) {
		err := persistenceError(context.Canceled, "begin tx merge scores")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled in chain, got %v", err)
		}
	})
}

func TestIsSchemaMissing(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "undefined table", err: &pq.Error{Code: "42P01"}, want: true},
		{name: "undefined column", err: &pq.Error{Code: "42703"}, want: true},
		{name: "no unique constraint for on conflict", err: &pq.Error{Code: "42P10"}, want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505"}, want: false},
		{name: "wrapped", err: crerr.Wrap(&pq.Error{Code: "42P01"}, "exec"), want: true},
		{name: "no rows", err: sql.ErrNoRows, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isSchemaMissing(tc.err); got != tc.want {
				t.Fatalf("isSchemaMissing() = %t, want %t", got, tc.want)
			}
		})
	}
}
