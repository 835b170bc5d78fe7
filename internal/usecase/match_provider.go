package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/platform/cache"
)

// MatchProvider fetches raw match payloads. Implementations return an error
// matching ErrNotFound for unknown matches and ErrDependencyUnavailable when
// the upstream cannot be reached.
type MatchProvider interface {
	FetchMatch(ctx context.Context, matchID int64) (match.RawMatch, error)
}

// MatchInvalidator is implemented by providers that keep fetched matches.
type MatchInvalidator interface {
	Invalidate(ctx context.Context, matchID int64)
}

// CachedMatchProvider keeps recently fetched matches in process so a preview
// followed by an export does not hit the upstream twice.
type CachedMatchProvider struct {
	next  MatchProvider
	store *cache.Store[match.RawMatch]
}

// NewCachedMatchProvider returns next unchanged when ttl is not positive.
func NewCachedMatchProvider(next MatchProvider, ttl time.Duration) MatchProvider {
	if ttl <= 0 {
		return next
	}
	return &CachedMatchProvider{
		next:  next,
		store: cache.NewStore[match.RawMatch](ttl),
	}
}

func (p *CachedMatchProvider) FetchMatch(ctx context.Context, matchID int64) (match.RawMatch, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CachedMatchProvider.FetchMatch")
	defer span.End()

	return p.store.GetOrLoad(ctx, matchCacheKey(matchID), func(ctx context.Context) (match.RawMatch, error) {
		return p.next.FetchMatch(ctx, matchID)
	})
}

// Invalidate drops a cached match so the next fetch goes upstream.
func (p *CachedMatchProvider) Invalidate(ctx context.Context, matchID int64) {
	p.store.Delete(ctx, matchCacheKey(matchID))
}

func matchCacheKey(matchID int64) string {
	return "match:" + strconv.FormatInt(matchID, 10)
}
