package score

import (
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-hub/internal/domain/match"
)

var (
	ErrPersistence    = crerr.New("score persistence failed")
	ErrInvalidMatchID = crerr.New("match id must be greater than zero")
)

// Record is one stored score. (PlayerName, Beatmap, MatchID) is unique.
type Record struct {
	PlayerName string
	Beatmap    match.BeatmapKey
	Score      int64
	MatchID    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func ValidateMatchID(matchID int64) error {
	if matchID <= 0 {
		return crerr.Wrapf(ErrInvalidMatchID, "match_id=%d", matchID)
	}
	return nil
}
