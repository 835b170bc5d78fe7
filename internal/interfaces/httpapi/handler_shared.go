package httpapi

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/domain/score"
	"github.com/riskibarqy/match-hub/internal/platform/logging"
	"github.com/riskibarqy/match-hub/internal/usecase"
)

const maxRequestBodyBytes = 1 << 20

type Handler struct {
	matchService *usecase.MatchService
	logger       *logging.Logger
	validator    *validator.Validate
}

func NewHandler(matchService *usecase.MatchService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matchService: matchService,
		logger:       logger,
		validator:    validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return crerr.Wrapf(usecase.ErrInvalidInput, "validation failed: %v", err)
	}

	return nil
}

// matchBatchRequest accepts ids as free text (ids or match URLs), as a list,
// or both.
type matchBatchRequest struct {
	MatchInput string  `json:"match_input" validate:"omitempty,max=20000"`
	MatchIDs   []int64 `json:"match_ids" validate:"omitempty,max=500,dive,gt=0"`
}

func (req matchBatchRequest) ids() []int64 {
	ids := make([]int64, 0, len(req.MatchIDs))
	ids = append(ids, req.MatchIDs...)
	ids = append(ids, usecase.ExtractMatchIDs(req.MatchInput)...)
	return usecase.UniqueMatchIDs(ids)
}

// decodeMatchBatchRequest reads a JSON body, or the match_input field of a
// url-encoded or multipart form.
func (h *Handler) decodeMatchBatchRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) ([]int64, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var req matchBatchRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		decoder := sonic.ConfigDefault.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return nil, crerr.Wrapf(usecase.ErrInvalidInput, "invalid JSON payload: %v", err)
		}
	} else {
		if err := r.ParseMultipartForm(maxRequestBodyBytes); err != nil && !crerr.Is(err, http.ErrNotMultipart) {
			return nil, crerr.Wrapf(usecase.ErrInvalidInput, "invalid form payload: %v", err)
		}
		req.MatchInput = r.FormValue("match_input")
	}
	if err := h.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	ids := req.ids()
	if len(ids) == 0 {
		return nil, crerr.Wrap(usecase.ErrInvalidInput, "no match ids found in input")
	}
	return ids, nil
}

type scoreRecordDTO struct {
	PlayerName string    `json:"player_name"`
	BeatmapID  *int64    `json:"beatmap_id"`
	Score      int64     `json:"score"`
	MatchID    int64     `json:"match_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func scoreRecordToDTO(v score.Record) scoreRecordDTO {
	return scoreRecordDTO{
		PlayerName: v.PlayerName,
		BeatmapID:  beatmapIDPtr(v.Beatmap),
		Score:      v.Score,
		MatchID:    v.MatchID,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

func beatmapIDPtr(key match.BeatmapKey) *int64 {
	if !key.Valid {
		return nil
	}
	id := key.ID
	return &id
}

func trimmedPathValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.PathValue(name))
}
