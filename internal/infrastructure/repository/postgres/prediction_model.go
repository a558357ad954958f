package postgres

import "time"

type predictionTableModel struct {
	ID              int64      `db:"id"`
	GameID          string     `db:"game_id"`
	PredictedWinner string     `db:"predicted_winner"`
	ActualWinner    string     `db:"actual_winner"`
	Correct         *bool      `db:"correct"`
	CreatedAt       time.Time  `db:"created_at"`
	ResolvedAt      *time.Time `db:"resolved_at"`
}

type predictionInsertModel struct {
	GameID          string     `db:"game_id"`
	PredictedWinner string     `db:"predicted_winner"`
	ActualWinner    string     `db:"actual_winner"`
	Correct         *bool      `db:"correct"`
	CreatedAt       time.Time  `db:"created_at"`
	ResolvedAt      *time.Time `db:"resolved_at"`
}
