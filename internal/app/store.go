package app

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-hub/internal/config"
	"github.com/riskibarqy/match-hub/internal/domain/score"
	scorecache "github.com/riskibarqy/match-hub/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/match-hub/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/match-hub/internal/infrastructure/repository/postgres"
	basecache "github.com/riskibarqy/match-hub/internal/platform/cache"
	"github.com/riskibarqy/match-hub/internal/platform/logging"
)

const dbPingTimeout = 5 * time.Second

func openScoreRepository(ctx context.Context, cfg config.Config, logger *logging.Logger) (score.Repository, func() error, error) {
	repo, closeRepo, err := openScoreStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ScoreCacheTTL <= 0 {
		return repo, closeRepo, nil
	}
	return scorecache.NewScoreRepository(repo, basecache.NewStore[[]score.Record](cfg.ScoreCacheTTL)), closeRepo, nil
}

func openScoreStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (score.Repository, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory score store, data is lost on restart")
		return memory.NewScoreRepository(), func() error { return nil }, nil
	case config.StoreDriverPostgres, "":
		db, err := openDB(cfg.DBURL, cfg.DBMaxOpenConns)
		if err != nil {
			return nil, nil, crerr.Wrap(err, "open database")
		}

		pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, crerr.WithHint(
				crerr.Wrap(err, "ping database"),
				"check DB_URL or DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME",
			)
		}

		logger.Info("connected to postgres", "db_name", dbNameFromURL(cfg.DBURL), "max_open_conns", cfg.DBMaxOpenConns)
		return postgres.NewScoreRepository(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
