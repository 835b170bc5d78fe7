package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/domain/score"
	qb "github.com/riskibarqy/match-hub/internal/platform/querybuilder"
)

func TestScoreInsertModels(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	table := match.ScoreTable{}
	table.Set("bob", match.NewBeatmapKey(20), 300)
	table.Set("alice", match.NoBeatmap, 100)
	table.Set("alice", match.NewBeatmapKey(10), 200)

	got := scoreInsertModels(117428039, table, now)
	want := []scoreInsertModel{
		{PlayerName: "alice", BeatmapID: sql.NullInt64{}, Score: 100, MatchID: 117428039, CreatedAt: now, UpdatedAt: now},
		{PlayerName: "alice", BeatmapID: sql.NullInt64{Int64: 10, Valid: true}, Score: 200, MatchID: 117428039, CreatedAt: now, UpdatedAt: now},
		{PlayerName: "bob", BeatmapID: sql.NullInt64{Int64: 20, Valid: true}, Score: 300, MatchID: 117428039, CreatedAt: now, UpdatedAt: now},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("insert models mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreUpsertQuery(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	table := match.ScoreTable{}
	table.Set("alice", match.NewBeatmapKey(10), 200)
	table.Set("User 7", match.NoBeatmap, 50)

	query, args, err := qb.InsertModels(scoresTable, scoreInsertModels(5, table, now), qb.OnConflictUpdate(scoreConflictColumns, "score", "updated_at"))
	if err != nil {
		t.Fatalf("build upsert: %v", err)
	}

	wantQuery := "INSERT INTO scores (player_name, beatmap_id, score, match_id, created_at, updated_at) VALUES " +
		"($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12) " +
		"ON CONFLICT (player_name, beatmap_id, match_id) DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at"
	if query != wantQuery {
		t.Fatalf("unexpected query:\n got: %s\nwant: %s", query, wantQuery)
	}
	if len(args) != 12 {
		t.Fatalf("expected 12 args, got %d", len(args))
	}
	if strings.Contains(query, "player_name = EXCLUDED") {
		t.Fatalf("key columns must not be updated on conflict")
	}
}

func TestScoreRepository_MergeValidatesBeforeTouchingDB(t *testing.T) {
	repo := NewScoreRepository(nil)

	err := repo.Merge(context.Background(), 0, match.ScoreTable{"alice": {match.NoBeatmap: 1}})
	if !crerr.Is(err, score.ErrInvalidMatchID) {
		t.Fatalf("expected ErrInvalidMatchID, got %v", err)
	}

	if err := repo.Merge(context.Background(), 10, match.ScoreTable{}); err != nil {
		t.Fatalf("empty table must be a no-op, got %v", err)
	}
	if err := repo.Merge(context.Background(), 10, nil); err != nil {
		t.Fatalf("nil table must be a no-op, got %v", err)
	}
}

func TestBeatmapKeyNullRoundTrip(t *testing.T) {
	for _, key := range []match.BeatmapKey{match.NoBeatmap, match.NewBeatmapKey(0), match.NewBeatmapKey(4242)} {
		if got := beatmapKeyFromNull(nullFromBeatmapKey(key)); got != key {
			t.Fatalf("round trip of %+v gave %+v", key, got)
		}
	}
}
