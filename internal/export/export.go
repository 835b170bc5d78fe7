// Package export renders processed match tables as flat score rows.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/xuri/excelize/v2"

	"github.com/riskibarqy/match-hub/internal/usecase"
)

const SheetName = "scores"

var Header = []string{"Match ID", "Player", "Beatmap ID", "Score"}

type Row struct {
	MatchID   int64  `json:"match_id"`
	Player    string `json:"player"`
	BeatmapID *int64 `json:"beatmap_id"`
	Score     int64  `json:"score"`
}

func (r Row) beatmapCell() string {
	if r.BeatmapID == nil {
		return ""
	}
	return strconv.FormatInt(*r.BeatmapID, 10)
}

// Rows flattens the tables of the given results in result order, then by
// player and beatmap. Results without a table contribute nothing.
func Rows(results []usecase.MatchResult) []Row {
	out := make([]Row, 0)
	for _, result := range results {
		for _, entry := range result.Table.Entries() {
			row := Row{
				MatchID: result.MatchID,
				Player:  entry.Player,
				Score:   entry.Score,
			}
			if entry.Beatmap.Valid {
				id := entry.Beatmap.ID
				row.BeatmapID = &id
			}
			out = append(out, row)
		}
	}
	return out
}

func WriteCSV(w io.Writer, rows []Row) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	cw := csv.NewWriter(buf)
	if err := cw.Write(Header); err != nil {
		return crerr.Wrap(err, "write csv header")
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatInt(row.MatchID, 10),
			row.Player,
			row.beatmapCell(),
			strconv.FormatInt(row.Score, 10),
		}
		if err := cw.Write(record); err != nil {
			return crerr.Wrapf(err, "write csv row for match %d", row.MatchID)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return crerr.Wrap(err, "flush csv")
	}

	if _, err := buf.WriteTo(w); err != nil {
		return crerr.Wrap(err, "write csv output")
	}
	return nil
}

func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return crerr.Wrap(err, "name xlsx sheet")
	}

	header := make([]any, len(Header))
	for i, title := range Header {
		header[i] = title
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return crerr.Wrap(err, "write xlsx header")
	}

	for idx, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, idx+2)
		if err != nil {
			return crerr.Wrap(err, "resolve xlsx cell")
		}
		var beatmap any = ""
		if row.BeatmapID != nil {
			beatmap = *row.BeatmapID
		}
		cells := []any{row.MatchID, row.Player, beatmap, row.Score}
		if err := f.SetSheetRow(SheetName, axis, &cells); err != nil {
			return crerr.Wrapf(err, "write xlsx row for match %d", row.MatchID)
		}
	}

	if err := f.Write(w); err != nil {
		return crerr.Wrap(err, "write xlsx output")
	}
	return nil
}
