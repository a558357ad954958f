package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/lol-pickem/internal/domain/prediction"
	"github.com/riskibarqy/lol-pickem/internal/domain/snapshot"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
)

// PredictionSummary reports prediction accuracy over resolved games.
type PredictionSummary struct {
	Total      int      `json:"total"`
	Resolved   int      `json:"resolved"`
	Correct    int      `json:"correct"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Unresolved int      `json:"unresolved"`
}

// PredictionService records winner picks per game and resolves them
// against the winners carried by the snapshot.
type PredictionService struct {
	repo   prediction.Repository
	store  snapshot.Store
	logger *logging.Logger
	now    func() time.Time
}

func NewPredictionService(repo prediction.Repository, store snapshot.Store, logger *logging.Logger, now func() time.Time) *PredictionService {
	if logger == nil {
		logger = logging.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &PredictionService{repo: repo, store: store, logger: logger, now: now}
}

// RecordPrediction stores a winner pick for a known game. Re-predicting the
// same game overwrites the previous pick until the game resolves.
func (s *PredictionService) RecordPrediction(ctx context.Context, gameID, predictedWinner string) (prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.RecordPrediction")
	defer span.End()

	gameID = strings.TrimSpace(gameID)
	predictedWinner = strings.TrimSpace(predictedWinner)
	if gameID == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	if predictedWinner == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: predicted winner is required", ErrInvalidInput)
	}

	game, ok, err := s.findGame(ctx, gameID)
	if err != nil {
		return prediction.Prediction{}, err
	}
	if !ok {
		return prediction.Prediction{}, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	if !strings.EqualFold(predictedWinner, game.Team1) && !strings.EqualFold(predictedWinner, game.Team2) {
		return prediction.Prediction{}, fmt.Errorf("%w: %q is not playing in game %s", ErrInvalidInput, predictedWinner, gameID)
	}

	existing, found, err := s.repo.GetByGameID(ctx, gameID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("load prediction game_id=%s: %w", gameID, err)
	}
	if found && existing.Resolved() {
		return prediction.Prediction{}, fmt.Errorf("%w: prediction for game %s is already resolved", ErrInvalidInput, gameID)
	}

	item := prediction.Prediction{
		ID:              gameID,
		GameID:          gameID,
		PredictedWinner: predictedWinner,
		CreatedAt:       s.now().UTC(),
	}
	if found {
		item.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Upsert(ctx, item); err != nil {
		return prediction.Prediction{}, fmt.Errorf("save prediction game_id=%s: %w", gameID, err)
	}
	return item, nil
}

// ListPredictions returns all predictions, resolving any that now have a
// known winner.
func (s *PredictionService) ListPredictions(ctx context.Context) ([]prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.ListPredictions")
	defer span.End()

	if err := s.resolvePending(ctx); err != nil {
		s.logger.WarnContext(ctx, "prediction resolution failed", "error", err)
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].GameID < items[j].GameID
	})
	return items, nil
}

// Summarize reports accuracy over resolved predictions. Accuracy stays nil
// until at least one prediction resolves.
func (s *PredictionService) Summarize(ctx context.Context) (PredictionSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Summarize")
	defer span.End()

	items, err := s.ListPredictions(ctx)
	if err != nil {
		return PredictionSummary{}, err
	}

	summary := PredictionSummary{Total: len(items)}
	for _, item := range items {
		if !item.Resolved() {
			summary.Unresolved++
			continue
		}
		summary.Resolved++
		if item.Correct != nil && *item.Correct {
			summary.Correct++
		}
	}
	if summary.Resolved > 0 {
		accuracy := float64(summary.Correct) / float64(summary.Resolved)
		summary.Accuracy = &accuracy
	}
	return summary, nil
}

func (s *PredictionService) resolvePending(ctx context.Context) error {
	items, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list predictions: %w", err)
	}

	pending := items[:0:0]
	for _, item := range items {
		if !item.Resolved() {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	snap, found, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		return nil
	}

	winners := make(map[string]string, len(snap.Games))
	for _, game := range snap.Games {
		if game.Winner != "" {
			winners[game.ID] = game.Winner
		}
	}

	for _, item := range pending {
		winner, ok := winners[item.GameID]
		if !ok {
			continue
		}
		correct := strings.EqualFold(item.PredictedWinner, winner)
		resolvedAt := s.now().UTC()
		item.ActualWinner = winner
		item.Correct = &correct
		item.ResolvedAt = &resolvedAt
		if err := s.repo.Upsert(ctx, item); err != nil {
			return fmt.Errorf("resolve prediction game_id=%s: %w", item.GameID, err)
		}
	}
	return nil
}

func (s *PredictionService) findGame(ctx context.Context, gameID string) (gameRef, bool, error) {
	snap, found, err := s.store.Load(ctx)
	if err != nil {
		return gameRef{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		return gameRef{}, false, nil
	}
	for _, game := range snap.Games {
		if game.ID == gameID {
			return gameRef{Team1: game.Team1, Team2: game.Team2}, true, nil
		}
	}
	return gameRef{}, false, nil
}

type gameRef struct {
	Team1 string
	Team2 string
}
