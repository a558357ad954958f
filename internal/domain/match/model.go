package match

import "time"

// Match is one completed series from the schedule feed.
type Match struct {
	ID        string
	League    string
	StartTime time.Time
	State     string
	BestOf    int
	Team1     string
	Team2     string
	Winner    string
	GameIDs   []string
}

// Game is a single map inside a match.
type Game struct {
	ID        string
	MatchID   string
	League    string
	Number    int
	Team1     string
	Team2     string
	Winner    string
	State     string
	StartTime time.Time
}

const (
	StateCompleted  = "completed"
	StateInProgress = "inProgress"
	StateUnstarted  = "unstarted"
)
