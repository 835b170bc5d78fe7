package usecase

import (
	"context"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/domain/score"
	"github.com/riskibarqy/match-hub/internal/platform/id"
	"github.com/riskibarqy/match-hub/internal/platform/logging"
	"github.com/riskibarqy/match-hub/internal/platform/metrics"
)

type MatchStatus string

const (
	MatchStatusSuccess  MatchStatus = "success"
	MatchStatusEmpty    MatchStatus = "empty"
	MatchStatusFailed   MatchStatus = "failed"
	MatchStatusNotFound MatchStatus = "not_found"
)

type MatchServiceConfig struct {
	MaxWorkers int
	MaxIDs     int
}

type MatchResult struct {
	MatchID    int64            `json:"match_id"`
	MatchName  string           `json:"match_name,omitempty"`
	Status     MatchStatus      `json:"status"`
	Rows       int              `json:"rows"`
	DurationMs int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
	Table      match.ScoreTable `json:"-"`

	err error
}

// Err returns the failure cause of a failed or not_found match.
func (r MatchResult) Err() error {
	return r.err
}

type BatchResult struct {
	RunID         string        `json:"run_id"`
	Requested     int           `json:"requested"`
	WorkerCount   int           `json:"worker_count"`
	SuccessCount  int           `json:"success_count"`
	EmptyCount    int           `json:"empty_count"`
	FailedCount   int           `json:"failed_count"`
	NotFoundCount int           `json:"not_found_count"`
	Matches       []MatchResult `json:"matches"`
}

// MatchService runs fetch, normalize and merge for batches of match ids.
type MatchService struct {
	provider MatchProvider
	repo     score.Repository
	cfg      MatchServiceConfig
	ids      id.Generator
	metrics  *metrics.Recorder
	logger   *logging.Logger
	now      func() time.Time
}

func NewMatchService(
	provider MatchProvider,
	repo score.Repository,
	cfg MatchServiceConfig,
	ids id.Generator,
	recorder *metrics.Recorder,
	logger *logging.Logger,
) *MatchService {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 4
	}
	if cfg.MaxIDs < 1 {
		cfg.MaxIDs = 50
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &MatchService{
		provider: provider,
		repo:     repo,
		cfg:      cfg,
		ids:      ids,
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *MatchService) MaxIDs() int {
	return s.cfg.MaxIDs
}

// ProcessBatch processes every distinct id concurrently. A failing match never
// aborts the others; its outcome is reported in the matching result. Results
// keep the order of the first occurrence of each id.
func (s *MatchService) ProcessBatch(ctx context.Context, matchIDs []int64) (BatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ProcessBatch")
	defer span.End()

	for _, matchID := range matchIDs {
		if err := score.ValidateMatchID(matchID); err != nil {
			return BatchResult{}, crerr.Mark(err, ErrInvalidInput)
		}
	}
	ids := UniqueMatchIDs(matchIDs)
	if len(ids) == 0 {
		return BatchResult{}, crerr.Wrap(ErrInvalidInput, "at least one match id is required")
	}
	if len(ids) > s.cfg.MaxIDs {
		return BatchResult{}, crerr.Wrapf(ErrInvalidInput, "too many match ids: %d, max %d", len(ids), s.cfg.MaxIDs)
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return BatchResult{}, crerr.Wrap(err, "generate run id")
	}

	workerCount := s.cfg.MaxWorkers
	if workerCount > len(ids) {
		workerCount = len(ids)
	}
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int("match_count", len(ids)),
		attribute.Int("worker_count", workerCount),
	)

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return BatchResult{}, crerr.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	results := make([]MatchResult, len(ids))
	var workers sync.WaitGroup
	for idx, matchID := range ids {
		idx, matchID := idx, matchID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := s.now()
			var row MatchResult
			if recovered := panics.Try(func() { row = s.processMatch(ctx, matchID) }); recovered != nil {
				row = MatchResult{
					MatchID: matchID,
					Status:  MatchStatusFailed,
					err:     crerr.Wrapf(recovered.AsError(), "process match %d", matchID),
				}
			}
			elapsed := s.now().Sub(start)
			row.DurationMs = elapsed.Milliseconds()
			if row.err != nil {
				row.Error = row.err.Error()
			}
			s.metrics.MatchProcessed(string(row.Status), elapsed)
			results[idx] = row
		}); err != nil {
			workers.Done()
			workers.Wait()
			return BatchResult{}, crerr.Wrap(err, "submit match to worker pool")
		}
	}
	workers.Wait()

	out := BatchResult{
		RunID:       runID,
		Requested:   len(ids),
		WorkerCount: workerCount,
		Matches:     results,
	}
	for _, row := range results {
		switch row.Status {
		case MatchStatusSuccess:
			out.SuccessCount++
		case MatchStatusEmpty:
			out.EmptyCount++
		case MatchStatusNotFound:
			out.NotFoundCount++
		default:
			out.FailedCount++
		}
	}

	s.logger.InfoContext(ctx, "match batch processed",
		"run_id", runID,
		"requested", out.Requested,
		"success", out.SuccessCount,
		"empty", out.EmptyCount,
		"failed", out.FailedCount,
		"not_found", out.NotFoundCount,
	)

	return out, batchError(out)
}

func (s *MatchService) processMatch(ctx context.Context, matchID int64) MatchResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.processMatch")
	defer span.End()
	span.SetAttributes(attribute.Int64("match_id", matchID))

	row := MatchResult{MatchID: matchID}

	raw, err := s.provider.FetchMatch(ctx, matchID)
	if err != nil {
		row.err = crerr.Wrapf(err, "fetch match %d", matchID)
		if crerr.Is(err, ErrNotFound) {
			row.Status = MatchStatusNotFound
			s.logger.WarnContext(ctx, "match not found, skipping", "match_id", matchID)
		} else {
			row.Status = MatchStatusFailed
			s.logger.WarnContext(ctx, "fetch match failed", "match_id", matchID, "error", err)
		}
		return row
	}
	row.MatchName = raw.Name(matchID)

	table, err := match.Normalize(raw)
	if err != nil {
		row.Status = MatchStatusFailed
		row.err = crerr.Wrapf(err, "normalize match %d", matchID)
		s.logger.WarnContext(ctx, "normalize match failed", "match_id", matchID, "error", err)
		if invalidator, ok := s.provider.(MatchInvalidator); ok {
			invalidator.Invalidate(ctx, matchID)
		}
		return row
	}
	row.Table = table
	row.Rows = table.Len()

	if row.Rows == 0 {
		row.Status = MatchStatusEmpty
		s.logger.InfoContext(ctx, "match has no scores", "match_id", matchID, "match_name", row.MatchName)
		return row
	}

	if err := s.repo.Merge(ctx, matchID, table); err != nil {
		row.Status = MatchStatusFailed
		row.err = crerr.Wrapf(err, "merge match %d", matchID)
		s.logger.ErrorContext(ctx, "merge match scores failed", "match_id", matchID, "error", err)
		return row
	}
	s.metrics.ScoreRowsMerged(row.Rows)

	row.Status = MatchStatusSuccess
	s.logger.InfoContext(ctx, "match scores merged", "match_id", matchID, "match_name", row.MatchName, "rows", row.Rows)
	return row
}

// batchError reports a batch in which no match produced a score table.
func batchError(result BatchResult) error {
	if result.SuccessCount+result.EmptyCount > 0 {
		return nil
	}
	for _, row := range result.Matches {
		if row.err != nil && crerr.Is(row.err, score.ErrPersistence) {
			return crerr.Mark(crerr.Wrap(row.err, "no match could be stored"), ErrDependencyUnavailable)
		}
	}
	return crerr.Wrap(ErrNotFound, "no valid match data fetched")
}

// ListScores returns the stored records of one match.
func (s *MatchService) ListScores(ctx context.Context, matchID int64) ([]score.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListScores")
	defer span.End()

	if err := score.ValidateMatchID(matchID); err != nil {
		return nil, crerr.Mark(err, ErrInvalidInput)
	}

	records, err := s.repo.ListByMatch(ctx, matchID)
	if err != nil {
		if crerr.Is(err, score.ErrPersistence) {
			return nil, crerr.Mark(err, ErrDependencyUnavailable)
		}
		return nil, crerr.Wrapf(err, "list scores of match %d", matchID)
	}
	if len(records) == 0 {
		return nil, crerr.Wrapf(ErrNotFound, "no scores stored for match %d", matchID)
	}
	return records, nil
}
