package match

import (
	"strconv"

	crerr "github.com/cockroachdb/errors"
)

var ErrMalformedInput = crerr.New("malformed match input")

// Normalize converts a raw match into its score table. Events are applied in
// order and the last score seen for a player and beatmap wins.
func Normalize(raw RawMatch) (ScoreTable, error) {
	if raw.Users == nil {
		return nil, crerr.Wrap(ErrMalformedInput, "match roster is missing")
	}
	if raw.Events == nil {
		return nil, crerr.Wrap(ErrMalformedInput, "match events are missing")
	}

	names := make(map[int64]string, len(raw.Users))
	for _, u := range raw.Users {
		names[u.ID] = u.Username
	}

	table := make(ScoreTable)
	for _, event := range raw.Events {
		game := event.Game
		if game == nil {
			continue
		}

		beatmap := NoBeatmap
		if game.Beatmap != nil {
			beatmap = NewBeatmapKey(game.Beatmap.ID)
		}

		for _, s := range game.Scores {
			name, ok := names[s.UserID]
			if !ok {
				name = FallbackName(s.UserID)
			}
			table.Set(name, beatmap, s.Score)
		}
	}

	return table, nil
}

// FallbackName is the display name used for a user missing from the roster.
func FallbackName(userID int64) string {
	return "User " + strconv.FormatInt(userID, 10)
}
