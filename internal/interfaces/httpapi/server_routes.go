package httpapi

import (
	"net/http"

	"github.com/riskibarqy/match-hub/internal/platform/metrics"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, recorder *metrics.Recorder, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if recorder != nil {
		mux.Handle("GET /metrics", recorder.Handler())
	}
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerMatchRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/matches/process", handler.ProcessMatches)
	mux.HandleFunc("POST /v1/matches/export", handler.ExportMatches)
	mux.HandleFunc("GET /v1/matches/{matchID}/scores", handler.ListMatchScores)
}
