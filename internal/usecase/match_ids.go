package usecase

import (
	"regexp"
	"strconv"
)

var digitRunRegex = regexp.MustCompile(`\d+`)

// ExtractMatchIDs pulls every run of digits out of free text, so both bare ids
// and https://osu.ppy.sh/community/matches/<id> links work. Zero and overflowing
// values are dropped; duplicates keep their first position.
func ExtractMatchIDs(text string) []int64 {
	runs := digitRunRegex.FindAllString(text, -1)
	if len(runs) == 0 {
		return nil
	}

	out := make([]int64, 0, len(runs))
	for _, run := range runs {
		id, err := strconv.ParseInt(run, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		out = append(out, id)
	}
	return UniqueMatchIDs(out)
}

// UniqueMatchIDs drops duplicates and non-positive ids, keeping first-seen order.
func UniqueMatchIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
