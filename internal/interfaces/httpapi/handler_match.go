package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/match-hub/internal/export"
	"github.com/riskibarqy/match-hub/internal/usecase"
)

const (
	exportFormatCSV  = "csv"
	exportFormatXLSX = "xlsx"

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type processMatchesResponse struct {
	Batch usecase.BatchResult `json:"batch"`
	Rows  []export.Row        `json:"rows"`
}

func (h *Handler) ProcessMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ProcessMatches")
	defer span.End()

	ids, err := h.decodeMatchBatchRequest(ctx, w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	batch, err := h.matchService.ProcessBatch(ctx, ids)
	if err != nil {
		h.logger.WarnContext(ctx, "process matches failed", "match_count", len(ids), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, processMatchesResponse{
		Batch: batch,
		Rows:  export.Rows(batch.Matches),
	})
}

func (h *Handler) ExportMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ExportMatches")
	defer span.End()

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = exportFormatCSV
	}
	if format != exportFormatCSV && format != exportFormatXLSX {
		writeError(ctx, w, crerr.Wrapf(usecase.ErrInvalidInput, "unsupported export format %q", format))
		return
	}

	ids, err := h.decodeMatchBatchRequest(ctx, w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	batch, err := h.matchService.ProcessBatch(ctx, ids)
	if err != nil {
		h.logger.WarnContext(ctx, "export matches failed", "match_count", len(ids), "format", format, "error", err)
		writeError(ctx, w, err)
		return
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	rows := export.Rows(batch.Matches)
	contentType := contentTypeCSV
	if format == exportFormatXLSX {
		contentType = contentTypeXLSX
		err = export.WriteXLSX(buf, rows)
	} else {
		err = export.WriteCSV(buf, rows)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "render export failed", "run_id", batch.RunID, "format", format, "error", err)
		writeInternalError(ctx, w)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="osu_matches.`+format+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Run-ID", batch.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.B)
}

func (h *Handler) ListMatchScores(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatchScores")
	defer span.End()

	raw := trimmedPathValue(r, "matchID")
	matchID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(ctx, w, crerr.Wrapf(usecase.ErrInvalidInput, "invalid match id %q", raw))
		return
	}

	records, err := h.matchService.ListScores(ctx, matchID)
	if err != nil {
		if !crerr.Is(err, usecase.ErrNotFound) {
			h.logger.WarnContext(ctx, "list match scores failed", "match_id", matchID, "error", err)
		}
		writeError(ctx, w, err)
		return
	}

	items := make([]scoreRecordDTO, 0, len(records))
	for _, record := range records {
		items = append(items, scoreRecordToDTO(record))
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"match_id": matchID,
		"items":    items,
	})
}
