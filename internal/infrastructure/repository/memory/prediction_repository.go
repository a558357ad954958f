package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/lol-pickem/internal/domain/prediction"
)

// PredictionRepository keeps predictions in memory. Used when the service
// runs without a database; contents do not survive a restart.
type PredictionRepository struct {
	mu    sync.RWMutex
	items map[string]prediction.Prediction
}

func NewPredictionRepository() *PredictionRepository {
	return &PredictionRepository{items: make(map[string]prediction.Prediction)}
}

func (r *PredictionRepository) Upsert(_ context.Context, item prediction.Prediction) error {
	r.mu.Lock()
	r.items[item.GameID] = item
	r.mu.Unlock()
	return nil
}

func (r *PredictionRepository) GetByGameID(_ context.Context, gameID string) (prediction.Prediction, bool, error) {
	r.mu.RLock()
	item, ok := r.items[gameID]
	r.mu.RUnlock()
	return item, ok, nil
}

func (r *PredictionRepository) List(_ context.Context) ([]prediction.Prediction, error) {
	r.mu.RLock()
	out := make([]prediction.Prediction, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	r.mu.RUnlock()
	return out, nil
}
