package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/lol-pickem/internal/domain/prediction"
	qb "github.com/riskibarqy/lol-pickem/internal/platform/querybuilder"
)

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Upsert(ctx context.Context, item prediction.Prediction) error {
	insertModel := predictionInsertModel{
		GameID:          item.GameID,
		PredictedWinner: item.PredictedWinner,
		ActualWinner:    item.ActualWinner,
		Correct:         item.Correct,
		CreatedAt:       item.CreatedAt.UTC(),
		ResolvedAt:      item.ResolvedAt,
	}
	query, args, err := qb.InsertModel("predictions", insertModel, `ON CONFLICT (game_id)
DO UPDATE SET
    predicted_winner = EXCLUDED.predicted_winner,
    actual_winner = EXCLUDED.actual_winner,
    correct = EXCLUDED.correct,
    resolved_at = EXCLUDED.resolved_at`)
	if err != nil {
		return fmt.Errorf("build upsert prediction query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert prediction game_id=%s: %w", item.GameID, err)
	}
	return nil
}

func (r *PredictionRepository) GetByGameID(ctx context.Context, gameID string) (prediction.Prediction, bool, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(qb.Eq("game_id", gameID)).
		ToSQL()
	if err != nil {
		return prediction.Prediction{}, false, fmt.Errorf("build get prediction query: %w", err)
	}

	var row predictionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prediction.Prediction{}, false, nil
		}
		return prediction.Prediction{}, false, fmt.Errorf("get prediction game_id=%s: %w", gameID, err)
	}
	return rowToPrediction(row), true, nil
}

func (r *PredictionRepository) List(ctx context.Context) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("*").From("predictions").
		OrderBy("created_at", "game_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}

	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToPrediction(row))
	}
	return out, nil
}

func rowToPrediction(row predictionTableModel) prediction.Prediction {
	return prediction.Prediction{
		ID:              row.GameID,
		GameID:          row.GameID,
		PredictedWinner: row.PredictedWinner,
		ActualWinner:    row.ActualWinner,
		Correct:         row.Correct,
		CreatedAt:       row.CreatedAt.UTC(),
		ResolvedAt:      row.ResolvedAt,
	}
}
