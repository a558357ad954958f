package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/lol-pickem/internal/domain/prediction"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
	"github.com/riskibarqy/lol-pickem/internal/usecase"
)

// Handler exposes the read API and the internal pipeline trigger.
type Handler struct {
	games       *usecase.GamesService
	playerStats *usecase.PlayerStatsService
	predictions *usecase.PredictionService
	pipeline    usecase.PipelineRunner
	logger      *logging.Logger
	validate    *validator.Validate
}

func NewHandler(
	games *usecase.GamesService,
	playerStats *usecase.PlayerStatsService,
	predictions *usecase.PredictionService,
	pipeline usecase.PipelineRunner,
	logger *logging.Logger,
) *Handler {
	return &Handler{
		games:       games,
		playerStats: playerStats,
		predictions: predictions,
		pipeline:    pipeline,
		logger:      logger,
		validate:    validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGames")
	defer span.End()

	query := usecase.GamesQuery{
		Leagues: splitCSV(r.URL.Query().Get("leagues")),
	}

	if rawDays := strings.TrimSpace(r.URL.Query().Get("days")); rawDays != "" {
		days, err := strconv.Atoi(rawDays)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: days must be an integer", usecase.ErrInvalidInput))
			return
		}
		query.Days = days
	}
	if rawRefresh := strings.TrimSpace(r.URL.Query().Get("refresh")); rawRefresh != "" {
		refresh, err := strconv.ParseBool(rawRefresh)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: refresh must be a boolean", usecase.ErrInvalidInput))
			return
		}
		query.Refresh = refresh
	}

	result, err := h.games.ListGames(ctx, query)
	if err != nil {
		h.logger.ErrorContext(ctx, "list games failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerStats")
	defer span.End()

	req := playerStatsRequest{
		Player:   strings.TrimSpace(r.URL.Query().Get("player")),
		Champion: strings.TrimSpace(r.URL.Query().Get("champion")),
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: player and champion are required", usecase.ErrInvalidInput))
		return
	}

	result, err := h.playerStats.GetPlayerStats(ctx, req.Player, req.Champion)
	if err != nil {
		h.logger.ErrorContext(ctx, "get player stats failed",
			"player", req.Player,
			"champion", req.Champion,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreatePrediction")
	defer span.End()

	var req createPredictionRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid request body", usecase.ErrInvalidInput))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: gameId and predictedWinner are required", usecase.ErrInvalidInput))
		return
	}

	item, err := h.predictions.RecordPrediction(ctx, req.GameID, req.PredictedWinner)
	if err != nil {
		h.logger.WarnContext(ctx, "record prediction failed",
			"game_id", req.GameID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, predictionToDTO(item))
}

func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPredictions")
	defer span.End()

	items, err := h.predictions.ListPredictions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list predictions failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]predictionDTO, 0, len(items))
	for _, item := range items {
		out = append(out, predictionToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]any{"predictions": out})
}

func (h *Handler) GetPredictionSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPredictionSummary")
	defer span.End()

	summary, err := h.predictions.Summarize(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "prediction summary failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, summary)
}

func (h *Handler) RunPipelineJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPipelineJob")
	defer span.End()

	var req runPipelineRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid request body", usecase.ErrInvalidInput))
			return
		}
	}

	report, err := h.pipeline.Run(ctx, req.Leagues)
	if err != nil {
		h.logger.ErrorContext(ctx, "pipeline run failed",
			"leagues", strings.Join(req.Leagues, ","),
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

type playerStatsRequest struct {
	Player   string `validate:"required"`
	Champion string `validate:"required"`
}

type createPredictionRequest struct {
	GameID          string `json:"gameId" validate:"required"`
	PredictedWinner string `json:"predictedWinner" validate:"required"`
}

type runPipelineRequest struct {
	Leagues []string `json:"leagues"`
}

type predictionDTO struct {
	GameID          string     `json:"gameId"`
	PredictedWinner string     `json:"predictedWinner"`
	ActualWinner    string     `json:"actualWinner,omitempty"`
	Correct         *bool      `json:"correct,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
}

func predictionToDTO(item prediction.Prediction) predictionDTO {
	return predictionDTO{
		GameID:          item.GameID,
		PredictedWinner: item.PredictedWinner,
		ActualWinner:    item.ActualWinner,
		Correct:         item.Correct,
		CreatedAt:       item.CreatedAt,
		ResolvedAt:      item.ResolvedAt,
	}
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
