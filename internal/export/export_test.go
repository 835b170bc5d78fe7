package export

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/usecase"
)

func int64Ptr(v int64) *int64 { return &v }

func sampleResults() []usecase.MatchResult {
	second := make(match.ScoreTable)
	second.Set("bob", match.NewBeatmapKey(7), 300)
	second.Set("alice", match.NewBeatmapKey(9), 200)
	second.Set("alice", match.NoBeatmap, 100)

	first := make(match.ScoreTable)
	first.Set("zed", match.NewBeatmapKey(1), 50)

	return []usecase.MatchResult{
		{MatchID: 20, Status: usecase.MatchStatusSuccess, Table: second},
		{MatchID: 30, Status: usecase.MatchStatusNotFound},
		{MatchID: 10, Status: usecase.MatchStatusSuccess, Table: first},
	}
}

func TestRows_OrdersByResultThenPlayerThenBeatmap(t *testing.T) {
	got := Rows(sampleResults())
	want := []Row{
		{MatchID: 20, Player: "alice", BeatmapID: nil, Score: 100},
		{MatchID: 20, Player: "alice", BeatmapID: int64Ptr(9), Score: 200},
		{MatchID: 20, Player: "bob", BeatmapID: int64Ptr(7), Score: 300},
		{MatchID: 10, Player: "zed", BeatmapID: int64Ptr(1), Score: 50},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRows_Empty(t *testing.T) {
	got := Rows(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil rows, got %#v", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Rows(sampleResults())))

	want := "Match ID,Player,Beatmap ID,Score\n" +
		"20,alice,,100\n" +
		"20,alice,9,200\n" +
		"20,bob,7,300\n" +
		"10,zed,1,50\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_QuotesPlayerNames(t *testing.T) {
	var buf bytes.Buffer
	rows := []Row{{MatchID: 1, Player: `Cookiezi, "the" legend`, BeatmapID: int64Ptr(2), Score: 3}}
	require.NoError(t, WriteCSV(&buf, rows))
	require.Contains(t, buf.String(), `1,"Cookiezi, ""the"" legend",2,3`)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Rows(sampleResults())))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	want := [][]string{
		{"Match ID", "Player", "Beatmap ID", "Score"},
		{"20", "alice", "", "100"},
		{"20", "alice", "9", "200"},
		{"20", "bob", "7", "300"},
		{"10", "zed", "1", "50"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("xlsx mismatch (-want +got):\n%s", diff)
	}
}
