package snapshot

import (
	"time"

	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/match"
)

// PlayerRecord ties one player+champion appearance to a game.
type PlayerRecord struct {
	GameID   string
	Team     string
	Player   string
	Champion string
	Role     string
}

// Snapshot is the incremental cache written by the pipeline. ChampionStats
// is keyed by champstats.Key; entries survive across runs so stat fetches
// already paid for are never repeated.
type Snapshot struct {
	GeneratedAt   time.Time
	Matches       []match.Match
	Games         []match.Game
	PlayerRecords []PlayerRecord
	ChampionStats map[string]champstats.ChampionStat
}

// Clone returns a deep copy safe to mutate.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		GeneratedAt:   s.GeneratedAt,
		Matches:       append([]match.Match(nil), s.Matches...),
		Games:         append([]match.Game(nil), s.Games...),
		PlayerRecords: append([]PlayerRecord(nil), s.PlayerRecords...),
		ChampionStats: make(map[string]champstats.ChampionStat, len(s.ChampionStats)),
	}
	for key, value := range s.ChampionStats {
		out.ChampionStats[key] = value
	}
	return out
}
