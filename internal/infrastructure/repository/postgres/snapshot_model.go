package postgres

import "time"

type snapshotMetaTableModel struct {
	ID          int64     `db:"id"`
	GeneratedAt time.Time `db:"generated_at"`
}

type snapshotMatchTableModel struct {
	ID        int64     `db:"id"`
	MatchID   string    `db:"match_id"`
	League    string    `db:"league"`
	StartTime time.Time `db:"start_time"`
	State     string    `db:"state"`
	BestOf    int       `db:"best_of"`
	Team1     string    `db:"team1"`
	Team2     string    `db:"team2"`
	Winner    string    `db:"winner"`
	GameIDs   string    `db:"game_ids"`
}

type snapshotMatchInsertModel struct {
	MatchID   string    `db:"match_id"`
	League    string    `db:"league"`
	StartTime time.Time `db:"start_time"`
	State     string    `db:"state"`
	BestOf    int       `db:"best_of"`
	Team1     string    `db:"team1"`
	Team2     string    `db:"team2"`
	Winner    string    `db:"winner"`
	GameIDs   string    `db:"game_ids"`
}

type snapshotGameTableModel struct {
	ID        int64     `db:"id"`
	GameID    string    `db:"game_id"`
	MatchID   string    `db:"match_id"`
	League    string    `db:"league"`
	Number    int       `db:"game_number"`
	Team1     string    `db:"team1"`
	Team2     string    `db:"team2"`
	Winner    string    `db:"winner"`
	State     string    `db:"state"`
	StartTime time.Time `db:"start_time"`
}

type snapshotGameInsertModel struct {
	GameID    string    `db:"game_id"`
	MatchID   string    `db:"match_id"`
	League    string    `db:"league"`
	Number    int       `db:"game_number"`
	Team1     string    `db:"team1"`
	Team2     string    `db:"team2"`
	Winner    string    `db:"winner"`
	State     string    `db:"state"`
	StartTime time.Time `db:"start_time"`
}

type playerRecordTableModel struct {
	ID       int64  `db:"id"`
	GameID   string `db:"game_id"`
	Team     string `db:"team"`
	Player   string `db:"player"`
	Champion string `db:"champion"`
	Role     string `db:"role"`
}

type playerRecordInsertModel struct {
	GameID   string `db:"game_id"`
	Team     string `db:"team"`
	Player   string `db:"player"`
	Champion string `db:"champion"`
	Role     string `db:"role"`
}

type championStatTableModel struct {
	ID          int64   `db:"id"`
	StatKey     string  `db:"stat_key"`
	Player      string  `db:"player"`
	Champion    string  `db:"champion"`
	GamesPlayed int     `db:"games_played"`
	Wins        int     `db:"wins"`
	AvgKills    float64 `db:"avg_kills"`
	AvgDeaths   float64 `db:"avg_deaths"`
	AvgAssists  float64 `db:"avg_assists"`
}

type championStatInsertModel struct {
	StatKey     string  `db:"stat_key"`
	Player      string  `db:"player"`
	Champion    string  `db:"champion"`
	GamesPlayed int     `db:"games_played"`
	Wins        int     `db:"wins"`
	AvgKills    float64 `db:"avg_kills"`
	AvgDeaths   float64 `db:"avg_deaths"`
	AvgAssists  float64 `db:"avg_assists"`
}
