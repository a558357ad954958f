package usecase

import (
	"context"
	"time"
)

// ExternalMatch is a completed series as reported by the schedule feed.
type ExternalMatch struct {
	ID        string
	League    string
	StartTime time.Time
	State     string
	BestOf    int
	Team1     string
	Team2     string
	Winner    string
}

// ExternalGame is one map listed by the event details feed.
type ExternalGame struct {
	ID     string
	Number int
	State  string
}

// ExternalDraftParticipant is a participant row from the live stats window.
type ExternalDraftParticipant struct {
	ParticipantID int
	SummonerName  string
	Champion      string
	Role          string
	Side          string
}

// ExternalChampionStat is an aggregated player+champion row from the
// historical scoreboard source.
type ExternalChampionStat struct {
	Player      string
	Champion    string
	GamesPlayed int
	Wins        int
	AvgKills    float64
	AvgDeaths   float64
	AvgAssists  float64
}

// ExternalPlayerGame is a single historical game line for one player.
type ExternalPlayerGame struct {
	GameID   string
	DateUTC  string
	Team     string
	Opponent string
	Champion string
	Kills    int
	Deaths   int
	Assists  int
	Win      bool
}

// ScheduleProvider lists completed matches and expands them into games.
type ScheduleProvider interface {
	FetchCompletedMatches(ctx context.Context, league string, leagueID int64, since time.Time) ([]ExternalMatch, error)
	FetchMatchGames(ctx context.Context, matchID string) ([]ExternalGame, error)
}

// DraftProvider fetches champion select data for a single game.
// A missing window returns (nil, nil).
type DraftProvider interface {
	FetchGameWindow(ctx context.Context, gameID string) ([]ExternalDraftParticipant, error)
}

// StatsProvider answers player+champion aggregate queries. Fetch matches a
// page name exactly; Search runs a substring lookup and returns the first
// grouped row.
type StatsProvider interface {
	FetchChampionStats(ctx context.Context, player, champion string) (*ExternalChampionStat, error)
	SearchChampionStats(ctx context.Context, fragment, champion string) (*ExternalChampionStat, error)
}

// PlayerGamesProvider lists historical game lines for the read side.
type PlayerGamesProvider interface {
	FetchPlayerGamesOnChampion(ctx context.Context, player, champion string, limit int) ([]ExternalPlayerGame, error)
}
