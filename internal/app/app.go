package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/match-hub/external/osu"
	"github.com/riskibarqy/match-hub/internal/config"
	"github.com/riskibarqy/match-hub/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/match-hub/internal/platform/id"
	"github.com/riskibarqy/match-hub/internal/platform/logging"
	"github.com/riskibarqy/match-hub/internal/platform/metrics"
	"github.com/riskibarqy/match-hub/internal/usecase"
)

// NewMatchService wires the osu! client, the raw match cache and the score
// store selected by cfg. The returned func releases the store.
func NewMatchService(
	ctx context.Context,
	cfg config.Config,
	logger *logging.Logger,
	recorder *metrics.Recorder,
) (*usecase.MatchService, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	repo, closeRepo, err := openScoreRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	osuClient := osu.NewClient(osu.ClientConfig{
		BaseURL:            cfg.OsuBaseURL,
		TokenURL:           cfg.OsuTokenURL,
		ClientID:           cfg.OsuClientID,
		ClientSecret:       cfg.OsuClientSecret,
		AccessToken:        cfg.OsuAccessToken,
		Timeout:            cfg.OsuTimeout,
		MaxRetries:         cfg.OsuMaxRetries,
		RateLimitPerMinute: cfg.OsuRateLimitPerMinute,
		Logger:             logger,
		Metrics:            recorder,
		CircuitBreaker:     cfg.OsuCircuit,
	})

	service := usecase.NewMatchService(
		usecase.NewCachedMatchProvider(osuClient, cfg.MatchCacheTTL),
		repo,
		usecase.MatchServiceConfig{
			MaxWorkers: cfg.MatchMaxWorkers,
			MaxIDs:     cfg.MatchMaxIDs,
		},
		idgen.NewUUIDGenerator(),
		recorder,
		logger,
	)

	return service, closeRepo, nil
}

// NewHTTPServer builds the API server. The returned func releases the store
// and must run after the server has shut down.
func NewHTTPServer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*http.Server, func() error, error) {
	if cfg.HTTPAddr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.New(metrics.WithProcessMetrics())
	}

	service, cleanup, err := NewMatchService(ctx, cfg, logger, recorder)
	if err != nil {
		return nil, nil, err
	}

	handler := httpapi.NewHandler(service, logger)
	router := httpapi.NewRouter(handler, logger, recorder, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, cleanup, nil
}
