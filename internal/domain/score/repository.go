package score

import (
	"context"

	"github.com/riskibarqy/match-hub/internal/domain/match"
)

type Repository interface {
	// Merge upserts every entry of table under matchID in one transaction.
	Merge(ctx context.Context, matchID int64, table match.ScoreTable) error
	ListByMatch(ctx context.Context, matchID int64) ([]Record, error)
}
