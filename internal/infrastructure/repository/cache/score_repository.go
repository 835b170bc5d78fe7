package cache

import (
	"context"
	"strconv"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/domain/score"
	basecache "github.com/riskibarqy/match-hub/internal/platform/cache"
)

// ScoreRepository serves ListByMatch from an in-process cache. A merge drops
// the cached records of its match once the underlying store has committed.
type ScoreRepository struct {
	next  score.Repository
	cache *basecache.Store[[]score.Record]
}

func NewScoreRepository(next score.Repository, cache *basecache.Store[[]score.Record]) *ScoreRepository {
	return &ScoreRepository{next: next, cache: cache}
}

func (r *ScoreRepository) Merge(ctx context.Context, matchID int64, table match.ScoreTable) error {
	if err := r.next.Merge(ctx, matchID, table); err != nil {
		return err
	}
	r.cache.Delete(ctx, scoreListKey(matchID))
	return nil
}

func (r *ScoreRepository) ListByMatch(ctx context.Context, matchID int64) ([]score.Record, error) {
	items, err := r.cache.GetOrLoad(ctx, scoreListKey(matchID), func(ctx context.Context) ([]score.Record, error) {
		items, err := r.next.ListByMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return append([]score.Record(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	return append([]score.Record(nil), items...), nil
}

func scoreListKey(matchID int64) string {
	return "score:match:" + strconv.FormatInt(matchID, 10)
}
