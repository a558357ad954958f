package prediction

import "context"

type Repository interface {
	Upsert(ctx context.Context, item Prediction) error
	GetByGameID(ctx context.Context, gameID string) (Prediction, bool, error)
	List(ctx context.Context) ([]Prediction, error)
}
