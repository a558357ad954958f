package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/match"
	"github.com/riskibarqy/lol-pickem/internal/domain/snapshot"
	"github.com/riskibarqy/lol-pickem/internal/platform/cache"
)

type stubPipeline struct {
	runs int
	err  error
	run  func(ctx context.Context) error
}

func (s *stubPipeline) Run(ctx context.Context, _ []string) (PipelineRunReport, error) {
	s.runs++
	if s.run != nil {
		if err := s.run(ctx); err != nil {
			return PipelineRunReport{}, err
		}
	}
	return PipelineRunReport{}, s.err
}

func gamesFixtureSnapshot(generatedAt time.Time) snapshot.Snapshot {
	return snapshot.Snapshot{
		GeneratedAt: generatedAt,
		Games: []match.Game{
			{ID: "g1", MatchID: "m1", League: "LCK", Number: 1, Team1: "T1", Team2: "GEN", Winner: "T1", State: "completed", StartTime: generatedAt.Add(-48 * time.Hour)},
			{ID: "g2", MatchID: "m2", League: "LPL", Number: 1, Team1: "BLG", Team2: "TES", Winner: "BLG", State: "completed", StartTime: generatedAt.Add(-2 * time.Hour)},
		},
		PlayerRecords: []snapshot.PlayerRecord{
			{GameID: "g1", Team: "T1", Player: "T1 Faker", Champion: "Azir", Role: "mid"},
		},
		ChampionStats: map[string]champstats.ChampionStat{
			champstats.Key("T1 Faker", "Azir"): {Player: "Faker", Champion: "Azir", GamesPlayed: 12, Wins: 8},
		},
	}
}

func TestListGames_ServesFreshCache(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &memSnapshotStore{snap: gamesFixtureSnapshot(now.Add(-time.Hour)), found: true}
	pipeline := &stubPipeline{}
	service := NewGamesService(GamesServiceConfig{
		Store:    store,
		Pipeline: pipeline,
		Now:      func() time.Time { return now },
	})

	result, err := service.ListGames(context.Background(), GamesQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != SourceCache {
		t.Fatalf("expected cache source, got=%s", result.Source)
	}
	if pipeline.runs != 0 {
		t.Fatalf("expected no pipeline run, got=%d", pipeline.runs)
	}
	if len(result.Games) != 2 {
		t.Fatalf("expected 2 games, got=%d", len(result.Games))
	}

	roster := result.Games[0].Players
	if len(roster) != 1 || roster[0].Stats == nil {
		t.Fatalf("expected stats on g1 roster, got=%+v", roster)
	}
	if roster[0].Stats.WinRate == nil || *roster[0].Stats.WinRate != float64(8)/float64(12) {
		t.Fatalf("unexpected win rate %+v", roster[0].Stats.WinRate)
	}
}

func TestListGames_FiltersByLeagueAndDays(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &memSnapshotStore{snap: gamesFixtureSnapshot(now.Add(-time.Hour)), found: true}
	service := NewGamesService(GamesServiceConfig{Store: store, Now: func() time.Time { return now }})

	result, err := service.ListGames(context.Background(), GamesQuery{Leagues: []string{"lpl"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Games) != 1 || result.Games[0].League != "LPL" {
		t.Fatalf("unexpected filtered games %+v", result.Games)
	}

	result, err = service.ListGames(context.Background(), GamesQuery{Days: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Games) != 1 || result.Games[0].ID != "g2" {
		t.Fatalf("expected only the recent game, got=%+v", result.Games)
	}
}

func TestListGames_StaleCacheTriggersRefresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &memSnapshotStore{snap: gamesFixtureSnapshot(now.Add(-3 * time.Hour)), found: true}
	pipeline := &stubPipeline{run: func(ctx context.Context) error {
		return store.Save(ctx, gamesFixtureSnapshot(now))
	}}
	service := NewGamesService(GamesServiceConfig{
		Store:    store,
		Pipeline: pipeline,
		Now:      func() time.Time { return now },
	})

	result, err := service.ListGames(context.Background(), GamesQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != SourceAPI {
		t.Fatalf("expected api source, got=%s", result.Source)
	}
	if pipeline.runs != 1 {
		t.Fatalf("expected one pipeline run, got=%d", pipeline.runs)
	}
}

func TestListGames_SeedServesWhenRefreshFails(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seed := &memSnapshotStore{snap: gamesFixtureSnapshot(now.Add(-100 * time.Hour)), found: true}
	service := NewGamesService(GamesServiceConfig{
		Store:    &memSnapshotStore{},
		Seed:     seed,
		Pipeline: &stubPipeline{err: ErrDependencyUnavailable},
		Now:      func() time.Time { return now },
	})

	result, err := service.ListGames(context.Background(), GamesQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != SourceSeed {
		t.Fatalf("expected seed source, got=%s", result.Source)
	}
}

func TestListGames_NoSnapshotAnywhereFails(t *testing.T) {
	t.Parallel()

	service := NewGamesService(GamesServiceConfig{
		Store:    &memSnapshotStore{},
		Pipeline: &stubPipeline{err: ErrDependencyUnavailable},
	})

	_, err := service.ListGames(context.Background(), GamesQuery{})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got=%v", err)
	}
}

func TestListGames_RefreshBypassesResponseCache(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &memSnapshotStore{snap: gamesFixtureSnapshot(now.Add(-time.Hour)), found: true}
	pipeline := &stubPipeline{run: func(ctx context.Context) error {
		return store.Save(ctx, gamesFixtureSnapshot(now))
	}}
	service := NewGamesService(GamesServiceConfig{
		Store:     store,
		Pipeline:  pipeline,
		Responses: cache.NewStore(time.Minute),
		Now:       func() time.Time { return now },
	})

	if _, err := service.ListGames(context.Background(), GamesQuery{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := service.ListGames(context.Background(), GamesQuery{Refresh: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != SourceAPI {
		t.Fatalf("expected api source on forced refresh, got=%s", result.Source)
	}
	if pipeline.runs != 1 {
		t.Fatalf("expected one pipeline run, got=%d", pipeline.runs)
	}

	if _, err := service.ListGames(context.Background(), GamesQuery{Days: -1}); err == nil {
		t.Fatal("expected error for negative days")
	}
}
