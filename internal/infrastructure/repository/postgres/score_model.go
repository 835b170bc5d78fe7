package postgres

import (
	"database/sql"
	"time"
)

const scoresTable = "scores"

type scoreTableModel struct {
	ID         int64         `db:"id"`
	PlayerName string        `db:"player_name"`
	BeatmapID  sql.NullInt64 `db:"beatmap_id"`
	Score      int64         `db:"score"`
	MatchID    int64         `db:"match_id"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

type scoreInsertModel struct {
	PlayerName string        `db:"player_name"`
	BeatmapID  sql.NullInt64 `db:"beatmap_id"`
	Score      int64         `db:"score"`
	MatchID    int64         `db:"match_id"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}
