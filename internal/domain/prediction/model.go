package prediction

import "time"

// Prediction is a recorded pick for the winner of a game.
type Prediction struct {
	ID              string
	GameID          string
	PredictedWinner string
	ActualWinner    string
	// Correct is nil until the game result is known.
	Correct    *bool
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Resolved reports whether the prediction has been scored.
func (p Prediction) Resolved() bool {
	return p.Correct != nil
}
