package champstats

import "strings"

// ChampionStat is a per player+champion aggregate from historical scoreboards.
type ChampionStat struct {
	Player      string
	Champion    string
	GamesPlayed int
	Wins        int
	AvgKills    float64
	AvgDeaths   float64
	AvgAssists  float64
}

// WinRate reports wins over games played. The second result is false when
// no games are recorded; callers must treat that as "no data", never zero.
func (s ChampionStat) WinRate() (float64, bool) {
	if s.GamesPlayed <= 0 {
		return 0, false
	}
	return float64(s.Wins) / float64(s.GamesPlayed), true
}

const keySeparator = "|||"

// Key builds the cache key for a player+champion pair.
func Key(player, champion string) string {
	return strings.TrimSpace(player) + keySeparator + strings.TrimSpace(champion)
}
