package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/match"
	"github.com/riskibarqy/lol-pickem/internal/domain/snapshot"
)

// SnapshotStore keeps the snapshot in a single JSON file. Writes go to a
// temp file in the same directory and rename into place, so readers never
// see a torn document. Concurrent writers are not coordinated beyond that;
// the last rename wins.
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

func (s *SnapshotStore) Load(_ context.Context) (snapshot.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return snapshot.Snapshot{}, false, nil
	}
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("read snapshot file %s: %w", s.path, err)
	}

	var doc snapshotDocument
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("decode snapshot file %s: %w", s.path, err)
	}
	return doc.toDomain(), true, nil
}

func (s *SnapshotStore) Save(_ context.Context, snap snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := sonic.Marshal(documentFrom(snap))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot file %s: %w", s.path, err)
	}
	return nil
}

type snapshotDocument struct {
	GeneratedAt   time.Time                     `json:"generatedAt"`
	Matches       []matchDocument               `json:"matches"`
	Games         []gameDocument                `json:"games"`
	PlayerRecords []playerRecordDocument        `json:"playerRecords"`
	ChampionStats map[string]championStatColumn `json:"championStats"`
}

type matchDocument struct {
	ID        string    `json:"id"`
	League    string    `json:"league"`
	StartTime time.Time `json:"startTime"`
	State     string    `json:"state"`
	BestOf    int       `json:"bestOf"`
	Team1     string    `json:"team1"`
	Team2     string    `json:"team2"`
	Winner    string    `json:"winner,omitempty"`
	GameIDs   []string  `json:"gameIds,omitempty"`
}

type gameDocument struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"matchId"`
	League    string    `json:"league"`
	Number    int       `json:"number"`
	Team1     string    `json:"team1"`
	Team2     string    `json:"team2"`
	Winner    string    `json:"winner,omitempty"`
	State     string    `json:"state"`
	StartTime time.Time `json:"startTime"`
}

type playerRecordDocument struct {
	GameID   string `json:"gameId"`
	Team     string `json:"team"`
	Player   string `json:"player"`
	Champion string `json:"champion"`
	Role     string `json:"role"`
}

type championStatColumn struct {
	Player      string  `json:"player"`
	Champion    string  `json:"champion"`
	GamesPlayed int     `json:"gamesPlayed"`
	Wins        int     `json:"wins"`
	AvgKills    float64 `json:"avgKills"`
	AvgDeaths   float64 `json:"avgDeaths"`
	AvgAssists  float64 `json:"avgAssists"`
}

func documentFrom(snap snapshot.Snapshot) snapshotDocument {
	doc := snapshotDocument{
		GeneratedAt:   snap.GeneratedAt,
		Matches:       make([]matchDocument, 0, len(snap.Matches)),
		Games:         make([]gameDocument, 0, len(snap.Games)),
		PlayerRecords: make([]playerRecordDocument, 0, len(snap.PlayerRecords)),
		ChampionStats: make(map[string]championStatColumn, len(snap.ChampionStats)),
	}
	for _, item := range snap.Matches {
		doc.Matches = append(doc.Matches, matchDocument{
			ID:        item.ID,
			League:    item.League,
			StartTime: item.StartTime,
			State:     item.State,
			BestOf:    item.BestOf,
			Team1:     item.Team1,
			Team2:     item.Team2,
			Winner:    item.Winner,
			GameIDs:   item.GameIDs,
		})
	}
	for _, item := range snap.Games {
		doc.Games = append(doc.Games, gameDocument{
			ID:        item.ID,
			MatchID:   item.MatchID,
			League:    item.League,
			Number:    item.Number,
			Team1:     item.Team1,
			Team2:     item.Team2,
			Winner:    item.Winner,
			State:     item.State,
			StartTime: item.StartTime,
		})
	}
	for _, item := range snap.PlayerRecords {
		doc.PlayerRecords = append(doc.PlayerRecords, playerRecordDocument(item))
	}
	for key, item := range snap.ChampionStats {
		doc.ChampionStats[key] = championStatColumn(item)
	}
	return doc
}

func (d snapshotDocument) toDomain() snapshot.Snapshot {
	snap := snapshot.Snapshot{
		GeneratedAt:   d.GeneratedAt,
		Matches:       make([]match.Match, 0, len(d.Matches)),
		Games:         make([]match.Game, 0, len(d.Games)),
		PlayerRecords: make([]snapshot.PlayerRecord, 0, len(d.PlayerRecords)),
		ChampionStats: make(map[string]champstats.ChampionStat, len(d.ChampionStats)),
	}
	for _, item := range d.Matches {
		snap.Matches = append(snap.Matches, match.Match{
			ID:        item.ID,
			League:    item.League,
			StartTime: item.StartTime,
			State:     item.State,
			BestOf:    item.BestOf,
			Team1:     item.Team1,
			Team2:     item.Team2,
			Winner:    item.Winner,
			GameIDs:   item.GameIDs,
		})
	}
	for _, item := range d.Games {
		snap.Games = append(snap.Games, match.Game{
			ID:        item.ID,
			MatchID:   item.MatchID,
			League:    item.League,
			Number:    item.Number,
			Team1:     item.Team1,
			Team2:     item.Team2,
			Winner:    item.Winner,
			State:     item.State,
			StartTime: item.StartTime,
		})
	}
	for _, item := range d.PlayerRecords {
		snap.PlayerRecords = append(snap.PlayerRecords, snapshot.PlayerRecord(item))
	}
	for key, item := range d.ChampionStats {
		snap.ChampionStats[key] = champstats.ChampionStat(item)
	}
	return snap
}
