package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("player_name", "beatmap_id", "score").
		From("scores").
		Where(Eq("match_id", int64(117428039)), Eq("player_name", "alice")).
		OrderBy("player_name", "beatmap_id NULLS FIRST").
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT player_name, beatmap_id, score FROM scores WHERE match_id = $1 AND player_name = $2 ORDER BY player_name, beatmap_id NULLS FIRST"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(117428039) || args[1] != "alice" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_RequiresTable(t *testing.T) {
	if _, _, err := Select("id").ToSQL(); err == nil {
		t.Fatalf("expected error when table is missing")
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("scores").
		Columns("player_name", "score").
		Values("alice", int64(100)).
		Values("bob", int64(200)).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO scores (player_name, score) VALUES ($1, $2), ($3, $4) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != "alice" || args[3] != int64(200) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RowWidthMismatch(t *testing.T) {
	_, _, err := InsertInto("scores").Columns("a", "b").Values(1).ToSQL()
	if err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestOnConflictUpdate(t *testing.T) {
	got := OnConflictUpdate([]string{"player_name", "beatmap_id", "match_id"}, "score", "updated_at")
	want := "ON CONFLICT (player_name, beatmap_id, match_id) DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at"
	if got != want {
		t.Fatalf("unexpected suffix:\nwant: %s\ngot:  %s", want, got)
	}

	if got := OnConflictUpdate([]string{"id"}); got != "ON CONFLICT (id) DO NOTHING" {
		t.Fatalf("unexpected do-nothing suffix: %s", got)
	}
}

func TestInsertModels_SkipsUntaggedFields(t *testing.T) {
	type row struct {
		Player  string `db:"player_name"`
		Ignored string `db:"-"`
		Score   int64  `db:"score"`
		hidden  int    `db:"hidden"`
	}

	query, args, err := InsertModels("scores", []row{{Player: "alice", Score: 7, hidden: 1}}, "")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}
	if query != "INSERT INTO scores (player_name, score) VALUES ($1, $2)" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 2 || args[0] != "alice" || args[1] != int64(7) {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertModels("scores", []*row{nil}, ""); err == nil {
		t.Fatalf("expected error for nil model")
	}
}

func TestInsertModels(t *testing.T) {
	type row struct {
		Player string `db:"player_name"`
		Score  int64  `db:"score"`
	}

	query, args, err := InsertModels("scores", []row{{"alice", 1}, {"bob", 2}}, OnConflictUpdate([]string{"player_name"}, "score"))
	if err != nil {
		t.Fatalf("build insert models query: %v", err)
	}

	want := "INSERT INTO scores (player_name, score) VALUES ($1, $2), ($3, $4) ON CONFLICT (player_name) DO UPDATE SET score = EXCLUDED.score"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 4 || args[2] != "bob" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertModels[row]("scores", nil, ""); err == nil {
		t.Fatalf("expected error for empty models")
	}
}
