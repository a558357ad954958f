package cache

import (
	"context"

	"github.com/riskibarqy/lol-pickem/internal/domain/prediction"
	basecache "github.com/riskibarqy/lol-pickem/internal/platform/cache"
)

// PredictionRepository caches reads in front of a persistent repository.
// Writes go through and drop the affected keys.
type PredictionRepository struct {
	next  prediction.Repository
	cache *basecache.Store
}

func NewPredictionRepository(next prediction.Repository, cache *basecache.Store) *PredictionRepository {
	return &PredictionRepository{next: next, cache: cache}
}

func (r *PredictionRepository) Upsert(ctx context.Context, item prediction.Prediction) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, "prediction:list")
	r.cache.Delete(ctx, "prediction:id:"+item.GameID)
	return nil
}

func (r *PredictionRepository) GetByGameID(ctx context.Context, gameID string) (prediction.Prediction, bool, error) {
	key := "prediction:id:" + gameID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByGameID(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return cachedPredictionByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return prediction.Prediction{}, false, err
	}

	cached, _ := v.(cachedPredictionByID)
	return cached.value, cached.exists, nil
}

func (r *PredictionRepository) List(ctx context.Context) ([]prediction.Prediction, error) {
	v, err := r.cache.GetOrLoad(ctx, "prediction:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]prediction.Prediction(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]prediction.Prediction)
	return append([]prediction.Prediction(nil), items...), nil
}

type cachedPredictionByID struct {
	value  prediction.Prediction
	exists bool
}
