package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/match"
	"github.com/riskibarqy/lol-pickem/internal/domain/snapshot"
	qb "github.com/riskibarqy/lol-pickem/internal/platform/querybuilder"
)

const gameIDSeparator = ","

// SnapshotStore persists the snapshot across four tables. Save replaces
// the whole document in one transaction, so readers see either the old or
// the new snapshot, never a mix.
type SnapshotStore struct {
	db *sqlx.DB
}

func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Load(ctx context.Context) (snapshot.Snapshot, bool, error) {
	metaQuery, metaArgs, err := qb.Select("*").From("snapshot_meta").
		Where(qb.Eq("id", 1)).
		ToSQL()
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("build select snapshot meta query: %w", err)
	}

	var meta snapshotMetaTableModel
	if err := s.db.GetContext(ctx, &meta, metaQuery, metaArgs...); err != nil {
		if isNotFound(err) {
			return snapshot.Snapshot{}, false, nil
		}
		return snapshot.Snapshot{}, false, fmt.Errorf("get snapshot meta: %w", err)
	}

	snap := snapshot.Snapshot{
		GeneratedAt:   meta.GeneratedAt.UTC(),
		ChampionStats: make(map[string]champstats.ChampionStat),
	}

	matchQuery, matchArgs, err := qb.Select("*").From("snapshot_matches").OrderBy("id").ToSQL()
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("build select snapshot matches query: %w", err)
	}
	var matchRows []snapshotMatchTableModel
	if err := s.db.SelectContext(ctx, &matchRows, matchQuery, matchArgs...); err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("select snapshot matches: %w", err)
	}
	for _, row := range matchRows {
		item := match.Match{
			ID:        row.MatchID,
			League:    row.League,
			StartTime: row.StartTime.UTC(),
			State:     row.State,
			BestOf:    row.BestOf,
			Team1:     row.Team1,
			Team2:     row.Team2,
			Winner:    row.Winner,
		}
		if row.GameIDs != "" {
			item.GameIDs = strings.Split(row.GameIDs, gameIDSeparator)
		}
		snap.Matches = append(snap.Matches, item)
	}

	gameQuery, gameArgs, err := qb.Select("*").From("snapshot_games").OrderBy("id").ToSQL()
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("build select snapshot games query: %w", err)
	}
	var gameRows []snapshotGameTableModel
	if err := s.db.SelectContext(ctx, &gameRows, gameQuery, gameArgs...); err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("select snapshot games: %w", err)
	}
	for _, row := range gameRows {
		snap.Games = append(snap.Games, match.Game{
			ID:        row.GameID,
			MatchID:   row.MatchID,
			League:    row.League,
			Number:    row.Number,
			Team1:     row.Team1,
			Team2:     row.Team2,
			Winner:    row.Winner,
			State:     row.State,
			StartTime: row.StartTime.UTC(),
		})
	}

	recordQuery, recordArgs, err := qb.Select("*").From("snapshot_player_records").OrderBy("id").ToSQL()
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("build select player records query: %w", err)
	}
	var recordRows []playerRecordTableModel
	if err := s.db.SelectContext(ctx, &recordRows, recordQuery, recordArgs...); err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("select player records: %w", err)
	}
	for _, row := range recordRows {
		snap.PlayerRecords = append(snap.PlayerRecords, snapshot.PlayerRecord{
			GameID:   row.GameID,
			Team:     row.Team,
			Player:   row.Player,
			Champion: row.Champion,
			Role:     row.Role,
		})
	}

	statQuery, statArgs, err := qb.Select("*").From("snapshot_champion_stats").OrderBy("id").ToSQL()
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("build select champion stats query: %w", err)
	}
	var statRows []championStatTableModel
	if err := s.db.SelectContext(ctx, &statRows, statQuery, statArgs...); err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("select champion stats: %w", err)
	}
	for _, row := range statRows {
		snap.ChampionStats[row.StatKey] = champstats.ChampionStat{
			Player:      row.Player,
			Champion:    row.Champion,
			GamesPlayed: row.GamesPlayed,
			Wins:        row.Wins,
			AvgKills:    row.AvgKills,
			AvgDeaths:   row.AvgDeaths,
			AvgAssists:  row.AvgAssists,
		}
	}

	return snap, true, nil
}

func (s *SnapshotStore) Save(ctx context.Context, snap snapshot.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save snapshot tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{"snapshot_matches", "snapshot_games", "snapshot_player_records", "snapshot_champion_stats"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	metaQuery, metaArgs, err := qb.InsertInto("snapshot_meta").
		Columns("id", "generated_at").
		Values(1, snap.GeneratedAt.UTC()).
		Suffix("ON CONFLICT (id) DO UPDATE SET generated_at = EXCLUDED.generated_at").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert snapshot meta query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, metaQuery, metaArgs...); err != nil {
		return fmt.Errorf("upsert snapshot meta: %w", err)
	}

	for _, item := range snap.Matches {
		insertModel := snapshotMatchInsertModel{
			MatchID:   item.ID,
			League:    item.League,
			StartTime: item.StartTime.UTC(),
			State:     item.State,
			BestOf:    item.BestOf,
			Team1:     item.Team1,
			Team2:     item.Team2,
			Winner:    item.Winner,
			GameIDs:   strings.Join(item.GameIDs, gameIDSeparator),
		}
		query, args, err := qb.InsertModel("snapshot_matches", insertModel, "")
		if err != nil {
			return fmt.Errorf("build insert snapshot match query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert snapshot match match_id=%s: %w", item.ID, err)
		}
	}

	for _, item := range snap.Games {
		insertModel := snapshotGameInsertModel{
			GameID:    item.ID,
			MatchID:   item.MatchID,
			League:    item.League,
			Number:    item.Number,
			Team1:     item.Team1,
			Team2:     item.Team2,
			Winner:    item.Winner,
			State:     item.State,
			StartTime: item.StartTime.UTC(),
		}
		query, args, err := qb.InsertModel("snapshot_games", insertModel, "")
		if err != nil {
			return fmt.Errorf("build insert snapshot game query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert snapshot game game_id=%s: %w", item.ID, err)
		}
	}

	for _, item := range snap.PlayerRecords {
		insertModel := playerRecordInsertModel{
			GameID:   item.GameID,
			Team:     item.Team,
			Player:   item.Player,
			Champion: item.Champion,
			Role:     item.Role,
		}
		query, args, err := qb.InsertModel("snapshot_player_records", insertModel, "")
		if err != nil {
			return fmt.Errorf("build insert player record query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert player record game_id=%s player=%s: %w", item.GameID, item.Player, err)
		}
	}

	statKeys := make([]string, 0, len(snap.ChampionStats))
	for key := range snap.ChampionStats {
		statKeys = append(statKeys, key)
	}
	// Stable insert order keeps reloads deterministic.
	sort.Strings(statKeys)
	for _, key := range statKeys {
		item := snap.ChampionStats[key]
		insertModel := championStatInsertModel{
			StatKey:     key,
			Player:      item.Player,
			Champion:    item.Champion,
			GamesPlayed: item.GamesPlayed,
			Wins:        item.Wins,
			AvgKills:    item.AvgKills,
			AvgDeaths:   item.AvgDeaths,
			AvgAssists:  item.AvgAssists,
		}
		query, args, err := qb.InsertModel("snapshot_champion_stats", insertModel, "")
		if err != nil {
			return fmt.Errorf("build insert champion stat query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert champion stat key=%s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save snapshot tx: %w", err)
	}
	return nil
}
