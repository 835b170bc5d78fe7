package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/domain/score"
)

type scoreKey struct {
	player  string
	beatmap match.BeatmapKey
	matchID int64
}

// ScoreRepository keeps scores in process. It backs STORE_DRIVER=memory and
// tests; the whole merge happens under one lock so it is all-or-nothing.
type ScoreRepository struct {
	mu    sync.RWMutex
	items map[scoreKey]score.Record
	now   func() time.Time
}

func NewScoreRepository() *ScoreRepository {
	return &ScoreRepository{
		items: make(map[scoreKey]score.Record),
		now:   time.Now,
	}
}

func (r *ScoreRepository) Merge(ctx context.Context, matchID int64, table match.ScoreTable) error {
	if err := score.ValidateMatchID(matchID); err != nil {
		return err
	}
	if table.Len() == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range table.Entries() {
		key := scoreKey{player: entry.Player, beatmap: entry.Beatmap, matchID: matchID}
		record, ok := r.items[key]
		if !ok {
			record = score.Record{
				PlayerName: entry.Player,
				Beatmap:    entry.Beatmap,
				MatchID:    matchID,
				CreatedAt:  now,
			}
		}
		record.Score = entry.Score
		record.UpdatedAt = now
		r.items[key] = record
	}

	return nil
}

func (r *ScoreRepository) ListByMatch(_ context.Context, matchID int64) ([]score.Record, error) {
	if err := score.ValidateMatchID(matchID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]score.Record, 0)
	for key, record := range r.items {
		if key.matchID == matchID {
			out = append(out, record)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerName != out[j].PlayerName {
			return out[i].PlayerName < out[j].PlayerName
		}
		if out[i].Beatmap.Valid != out[j].Beatmap.Valid {
			return !out[i].Beatmap.Valid
		}
		return out[i].Beatmap.ID < out[j].Beatmap.ID
	})

	return out, nil
}

// Len counts stored records across all matches.
func (r *ScoreRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
