package cache

import (
	"context"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/domain/score"
	scoremock "github.com/riskibarqy/match-hub/internal/mocks/domain/score"
	basecache "github.com/riskibarqy/match-hub/internal/platform/cache"
)

func TestScoreRepository_ListByMatchIsCached(t *testing.T) {
	ctx := context.Background()
	next := scoremock.NewRepository(t)
	next.On("ListByMatch", mock.Anything, int64(7)).
		Return([]score.Record{{PlayerName: "alice", MatchID: 7, Score: 10}}, nil).Once()

	repo := NewScoreRepository(next, basecache.NewStore[[]score.Record](time.Minute))

	first, err := repo.ListByMatch(ctx, 7)
	require.NoError(t, err)
	first[0].Score = 999

	second, err := repo.ListByMatch(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(10), second[0].Score)
}

func TestScoreRepository_MergeInvalidatesMatch(t *testing.T) {
	ctx := context.Background()
	next := scoremock.NewRepository(t)
	table := make(match.ScoreTable)
	table.Set("alice", match.NewBeatmapKey(1), 20)

	next.On("ListByMatch", mock.Anything, int64(7)).
		Return([]score.Record{{PlayerName: "alice", MatchID: 7, Score: 10}}, nil).Once()
	next.On("Merge", mock.Anything, int64(7), table).Return(nil).Once()
	next.On("ListByMatch", mock.Anything, int64(7)).
		Return([]score.Record{{PlayerName: "alice", MatchID: 7, Score: 20}}, nil).Once()

	repo := NewScoreRepository(next, basecache.NewStore[[]score.Record](time.Minute))

	_, err := repo.ListByMatch(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, repo.Merge(ctx, 7, table))

	got, err := repo.ListByMatch(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(20), got[0].Score)
}

func TestScoreRepository_FailedMergeKeepsCache(t *testing.T) {
	ctx := context.Background()
	next := scoremock.NewRepository(t)
	table := make(match.ScoreTable)
	table.Set("alice", match.NewBeatmapKey(1), 20)

	next.On("ListByMatch", mock.Anything, int64(7)).
		Return([]score.Record{{PlayerName: "alice", MatchID: 7, Score: 10}}, nil).Once()
	next.On("Merge", mock.Anything, int64(7), table).
		Return(crerr.Mark(crerr.New("connection reset"), score.ErrPersistence)).Once()

	repo := NewScoreRepository(next, basecache.NewStore[[]score.Record](time.Minute))

	_, err := repo.ListByMatch(ctx, 7)
	require.NoError(t, err)

	err = repo.Merge(ctx, 7, table)
	require.True(t, crerr.Is(err, score.ErrPersistence))

	got, err := repo.ListByMatch(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(10), got[0].Score)
}

func TestScoreRepository_ListStartedBeforeMergeIsNotCached(t *testing.T) {
	ctx := context.Background()
	next := scoremock.NewRepository(t)
	table := make(match.ScoreTable)
	table.Set("alice", match.NewBeatmapKey(10), 250)

	loading := make(chan struct{})
	release := make(chan struct{})
	next.On("ListByMatch", mock.Anything, int64(1)).
		Run(func(mock.Arguments) {
			close(loading)
			<-release
		}).
		Return([]score.Record{{PlayerName: "alice", MatchID: 1, Score: 100}}, nil).Once()
	next.On("Merge", mock.Anything, int64(1), table).Return(nil).Once()
	next.On("ListByMatch", mock.Anything, int64(1)).
		Return([]score.Record{{PlayerName: "alice", MatchID: 1, Score: 250}}, nil).Once()

	repo := NewScoreRepository(next, basecache.NewStore[[]score.Record](time.Minute))

	staleDone := make(chan []score.Record, 1)
	go func() {
		items, _ := repo.ListByMatch(ctx, 1)
		staleDone <- items
	}()

	<-loading
	require.NoError(t, repo.Merge(ctx, 1, table))
	close(release)
	stale := <-staleDone
	require.Equal(t, int64(100), stale[0].Score)

	got, err := repo.ListByMatch(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(250), got[0].Score)
}
