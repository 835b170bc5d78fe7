package postgres

import (
	"context"
	"database/sql"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/domain/score"
	qb "github.com/riskibarqy/match-hub/internal/platform/querybuilder"
)

// scoreUpsertChunk bounds the rows of one INSERT so the bind count stays well
// under the protocol limit of 65535 parameters.
const scoreUpsertChunk = 500

var scoreConflictColumns = []string{"player_name", "beatmap_id", "match_id"}

type ScoreRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db, now: time.Now}
}

// Merge upserts the whole table in one transaction. On conflict only the score
// and the update timestamp change.
func (r *ScoreRepository) Merge(ctx context.Context, matchID int64, table match.ScoreTable) error {
	if err := score.ValidateMatchID(matchID); err != nil {
		return err
	}
	if table.Len() == 0 {
		return nil
	}

	models := scoreInsertModels(matchID, table, r.now().UTC())
	suffix := qb.OnConflictUpdate(scoreConflictColumns, "score", "updated_at")

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistenceError(err, "begin tx merge scores")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for start := 0; start < len(models); start += scoreUpsertChunk {
		end := start + scoreUpsertChunk
		if end > len(models) {
			end = len(models)
		}

		query, args, err := qb.InsertModels(scoresTable, models[start:end], suffix)
		if err != nil {
			return crerr.Wrap(err, "build upsert scores query")
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return persistenceError(err, "upsert scores")
		}
	}

	if err := tx.Commit(); err != nil {
		return persistenceError(err, "commit merge scores tx")
	}

	return nil
}

func (r *ScoreRepository) ListByMatch(ctx context.Context, matchID int64) ([]score.Record, error) {
	if err := score.ValidateMatchID(matchID); err != nil {
		return nil, err
	}

	query, args, err := qb.Select("id", "player_name", "beatmap_id", "score", "match_id", "created_at", "updated_at").
		From(scoresTable).
		Where(qb.Eq("match_id", matchID)).
		OrderBy(`player_name COLLATE "C"`, "beatmap_id NULLS FIRST").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build select scores by match query")
	}

	var rows []scoreTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, persistenceError(err, "select scores by match")
	}

	out := make([]score.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, score.Record{
			PlayerName: row.PlayerName,
			Beatmap:    beatmapKeyFromNull(row.BeatmapID),
			Score:      row.Score,
			MatchID:    row.MatchID,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}

	return out, nil
}

func scoreInsertModels(matchID int64, table match.ScoreTable, now time.Time) []scoreInsertModel {
	entries := table.Entries()
	out := make([]scoreInsertModel, 0, len(entries))
	for _, entry := range entries {
		out = append(out, scoreInsertModel{
			PlayerName: entry.Player,
			BeatmapID:  nullFromBeatmapKey(entry.Beatmap),
			Score:      entry.Score,
			MatchID:    matchID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return out
}

func nullFromBeatmapKey(key match.BeatmapKey) sql.NullInt64 {
	return sql.NullInt64{Int64: key.ID, Valid: key.Valid}
}

func beatmapKeyFromNull(v sql.NullInt64) match.BeatmapKey {
	if !v.Valid {
		return match.NoBeatmap
	}
	return match.NewBeatmapKey(v.Int64)
}
