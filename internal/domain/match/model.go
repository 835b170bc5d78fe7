package match

import (
	"sort"
	"strconv"
	"time"
)

// RawMatch is the provider representation of one multiplayer match.
// Users and Events are nil when the provider omitted them entirely.
type RawMatch struct {
	Match  *Info   `json:"match"`
	Users  []User  `json:"users"`
	Events []Event `json:"events"`
}

type Info struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type Event struct {
	ID   int64 `json:"id"`
	Game *Game `json:"game"`
}

type Game struct {
	ID      int64    `json:"id"`
	Beatmap *Beatmap `json:"beatmap"`
	Scores  []Score  `json:"scores"`
}

type Beatmap struct {
	ID int64 `json:"id"`
}

type Score struct {
	UserID int64 `json:"user_id"`
	Score  int64 `json:"score"`
}

// Name returns the provider match name, or "Match <id>" when the provider sent none.
func (m RawMatch) Name(matchID int64) string {
	if m.Match != nil && m.Match.Name != "" {
		return m.Match.Name
	}
	return "Match " + strconv.FormatInt(matchID, 10)
}

// BeatmapKey identifies the beatmap of a round. The zero value is NoBeatmap.
type BeatmapKey struct {
	ID    int64
	Valid bool
}

var NoBeatmap = BeatmapKey{}

func NewBeatmapKey(id int64) BeatmapKey {
	return BeatmapKey{ID: id, Valid: true}
}

func (k BeatmapKey) String() string {
	if !k.Valid {
		return ""
	}
	return strconv.FormatInt(k.ID, 10)
}

// ScoreTable maps player display name to beatmap to score for a single match.
type ScoreTable map[string]map[BeatmapKey]int64

type Entry struct {
	Player  string
	Beatmap BeatmapKey
	Score   int64
}

func (t ScoreTable) Set(player string, beatmap BeatmapKey, score int64) {
	scores, ok := t[player]
	if !ok {
		scores = make(map[BeatmapKey]int64)
		t[player] = scores
	}
	scores[beatmap] = score
}

func (t ScoreTable) Get(player string, beatmap BeatmapKey) (int64, bool) {
	score, ok := t[player][beatmap]
	return score, ok
}

// Len counts (player, beatmap) pairs.
func (t ScoreTable) Len() int {
	n := 0
	for _, scores := range t {
		n += len(scores)
	}
	return n
}

// Entries flattens the table ordered by player, then beatmap with NoBeatmap first.
func (t ScoreTable) Entries() []Entry {
	out := make([]Entry, 0, t.Len())
	for player, scores := range t {
		for beatmap, score := range scores {
			out = append(out, Entry{Player: player, Beatmap: beatmap, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Player != out[j].Player {
			return out[i].Player < out[j].Player
		}
		if out[i].Beatmap.Valid != out[j].Beatmap.Valid {
			return !out[i].Beatmap.Valid
		}
		return out[i].Beatmap.ID < out[j].Beatmap.ID
	})
	return out
}
