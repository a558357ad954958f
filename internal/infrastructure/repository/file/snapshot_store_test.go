package file

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/match"
	"github.com/riskibarqy/lol-pickem/internal/domain/snapshot"
)

func sampleSnapshot() snapshot.Snapshot {
	generatedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return snapshot.Snapshot{
		GeneratedAt: generatedAt,
		Matches: []match.Match{
			{ID: "m1", League: "LCK", StartTime: generatedAt.Add(-24 * time.Hour), State: "completed", BestOf: 3, Team1: "T1", Team2: "GEN", Winner: "T1", GameIDs: []string{"g1"}},
		},
		Games: []match.Game{
			{ID: "g1", MatchID: "m1", League: "LCK", Number: 1, Team1: "T1", Team2: "GEN", Winner: "T1", State: "completed", StartTime: generatedAt.Add(-24 * time.Hour)},
		},
		PlayerRecords: []snapshot.PlayerRecord{
			{GameID: "g1", Team: "T1", Player: "T1 Faker", Champion: "Azir", Role: "mid"},
		},
		ChampionStats: map[string]champstats.ChampionStat{
			champstats.Key("T1 Faker", "Azir"): {Player: "Faker", Champion: "Azir", GamesPlayed: 12, Wins: 8, AvgKills: 3.25, AvgDeaths: 1.9, AvgAssists: 6.5},
		},
	}
}

func TestSnapshotStore_SaveThenLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "snapshot.json")
	store := NewSnapshotStore(path)

	want := sampleSnapshot()
	if err := store.Save(context.Background(), want); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	got, found, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if !found {
		t.Fatal("expected snapshot to be found")
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestSnapshotStore_MissingFileIsNotAnError(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore(filepath.Join(t.TempDir(), "nope.json"))
	_, found, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected no snapshot")
	}
}

func TestSnapshotStore_CorruptFileFailsLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := NewSnapshotStore(path)
	if _, _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSnapshotStore_SaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewSnapshotStore(filepath.Join(dir, "snapshot.json"))
	if err := store.Save(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "snapshot.json" {
		t.Fatalf("expected only snapshot.json, got=%v", entries)
	}
}
