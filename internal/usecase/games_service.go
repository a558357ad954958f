package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/snapshot"
	"github.com/riskibarqy/lol-pickem/internal/platform/cache"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
)

// Snapshot sources, reported alongside the games payload.
const (
	SourceCache = "cache"
	SourceSeed  = "seed"
	SourceAPI   = "api"
)

// PipelineRunner triggers a snapshot refresh. Satisfied by PipelineService.
type PipelineRunner interface {
	Run(ctx context.Context, leagues []string) (PipelineRunReport, error)
}

// ChampionStatView is the read-side shape of a player+champion aggregate.
// WinRate stays nil on zero games so "no data" never reads as "never wins".
type ChampionStatView struct {
	Player      string   `json:"player"`
	Champion    string   `json:"champion"`
	GamesPlayed int      `json:"gamesPlayed"`
	Wins        int      `json:"wins"`
	WinRate     *float64 `json:"winRate,omitempty"`
	AvgKills    float64  `json:"avgKills"`
	AvgDeaths   float64  `json:"avgDeaths"`
	AvgAssists  float64  `json:"avgAssists"`
}

// PlayerView is one roster slot in a game response.
type PlayerView struct {
	Player   string            `json:"player,omitempty"`
	Champion string            `json:"champion"`
	Role     string            `json:"role"`
	Team     string            `json:"team"`
	Stats    *ChampionStatView `json:"stats,omitempty"`
}

// GameView is one game with its merged rosters.
type GameView struct {
	ID        string       `json:"id"`
	MatchID   string       `json:"matchId"`
	League    string       `json:"league"`
	Number    int          `json:"number"`
	Team1     string       `json:"team1"`
	Team2     string       `json:"team2"`
	Winner    string       `json:"winner,omitempty"`
	State     string       `json:"state"`
	StartTime time.Time    `json:"startTime"`
	Players   []PlayerView `json:"players"`
}

// GamesResult is the games listing with the snapshot source that served it.
type GamesResult struct {
	Games       []GameView `json:"games"`
	Source      string     `json:"source"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// GamesQuery filters the listing. Zero Days means the full snapshot window.
type GamesQuery struct {
	Leagues []string
	Days    int
	Refresh bool
}

// GamesService serves the games listing from the freshest snapshot it can
// get: the stored one when young enough, a forced or fallback pipeline run,
// then the committed seed file.
type GamesService struct {
	store     snapshot.Store
	seed      snapshot.Store
	pipeline  PipelineRunner
	responses *cache.Store
	logger    *logging.Logger
	maxAge    time.Duration
	now       func() time.Time
}

type GamesServiceConfig struct {
	Store     snapshot.Store
	Seed      snapshot.Store
	Pipeline  PipelineRunner
	Responses *cache.Store
	Logger    *logging.Logger
	MaxAge    time.Duration
	Now       func() time.Time
}

func NewGamesService(cfg GamesServiceConfig) *GamesService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &GamesService{
		store:     cfg.Store,
		seed:      cfg.Seed,
		pipeline:  cfg.Pipeline,
		responses: cfg.Responses,
		logger:    logger,
		maxAge:    maxAge,
		now:       now,
	}
}

// ListGames returns games filtered by league and recency together with the
// source that produced them.
func (s *GamesService) ListGames(ctx context.Context, query GamesQuery) (GamesResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GamesService.ListGames")
	defer span.End()

	leagues := normalizeLeagues(query.Leagues)
	if query.Days < 0 {
		return GamesResult{}, fmt.Errorf("%w: days must not be negative", ErrInvalidInput)
	}

	if query.Refresh {
		if s.responses != nil {
			s.responses.Flush(ctx)
		}
		return s.buildResult(ctx, leagues, query.Days, true)
	}

	key := responseCacheKey(leagues, query.Days)
	if s.responses == nil {
		return s.buildResult(ctx, leagues, query.Days, false)
	}

	value, err := s.responses.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.buildResult(ctx, leagues, query.Days, false)
	})
	if err != nil {
		return GamesResult{}, err
	}
	result, ok := value.(GamesResult)
	if !ok {
		return GamesResult{}, fmt.Errorf("unexpected cached value type %T", value)
	}
	return result, nil
}

func (s *GamesService) buildResult(ctx context.Context, leagues []string, days int, refresh bool) (GamesResult, error) {
	snap, source, err := s.loadSnapshot(ctx, leagues, refresh)
	if err != nil {
		return GamesResult{}, err
	}

	result := GamesResult{
		Games:       filterGames(snap, leagues, days, s.now()),
		Source:      source,
		GeneratedAt: snap.GeneratedAt,
	}
	return result, nil
}

func (s *GamesService) loadSnapshot(ctx context.Context, leagues []string, refresh bool) (snapshot.Snapshot, string, error) {
	snap, found, err := s.store.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot load failed", "error", err)
	}
	fresh := found && s.now().Sub(snap.GeneratedAt) <= s.maxAge

	if fresh && !refresh {
		return snap, SourceCache, nil
	}

	if s.pipeline != nil {
		if _, runErr := s.pipeline.Run(ctx, leagues); runErr != nil {
			s.logger.WarnContext(ctx, "pipeline refresh failed", "error", runErr)
		} else if refreshed, ok, loadErr := s.store.Load(ctx); loadErr == nil && ok {
			return refreshed, SourceAPI, nil
		}
	}

	if s.seed != nil {
		if seeded, ok, seedErr := s.seed.Load(ctx); seedErr == nil && ok {
			return seeded, SourceSeed, nil
		} else if seedErr != nil {
			s.logger.WarnContext(ctx, "seed snapshot load failed", "error", seedErr)
		}
	}

	// A stale snapshot still beats an empty answer.
	if found {
		return snap, SourceCache, nil
	}
	return snapshot.Snapshot{}, "", fmt.Errorf("%w: no snapshot available", ErrDependencyUnavailable)
}

func filterGames(snap snapshot.Snapshot, leagues []string, days int, now time.Time) []GameView {
	leagueSet := make(map[string]struct{}, len(leagues))
	for _, league := range leagues {
		leagueSet[league] = struct{}{}
	}
	var cutoff time.Time
	if days > 0 {
		cutoff = now.Add(-time.Duration(days) * 24 * time.Hour)
	}

	recordsByGame := make(map[string][]snapshot.PlayerRecord, len(snap.Games))
	for _, record := range snap.PlayerRecords {
		recordsByGame[record.GameID] = append(recordsByGame[record.GameID], record)
	}

	out := make([]GameView, 0, len(snap.Games))
	for _, game := range snap.Games {
		if len(leagueSet) > 0 {
			if _, ok := leagueSet[strings.ToUpper(game.League)]; !ok {
				continue
			}
		}
		if !cutoff.IsZero() && game.StartTime.Before(cutoff) {
			continue
		}

		view := GameView{
			ID:        game.ID,
			MatchID:   game.MatchID,
			League:    game.League,
			Number:    game.Number,
			Team1:     game.Team1,
			Team2:     game.Team2,
			Winner:    game.Winner,
			State:     game.State,
			StartTime: game.StartTime,
		}
		for _, record := range recordsByGame[game.ID] {
			player := PlayerView{
				Player:   record.Player,
				Champion: record.Champion,
				Role:     record.Role,
				Team:     record.Team,
			}
			if stat, ok := snap.ChampionStats[champstats.Key(record.Player, record.Champion)]; ok {
				player.Stats = statView(stat)
			}
			view.Players = append(view.Players, player)
		}
		out = append(out, view)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].Number < out[j].Number
	})
	return out
}

func statView(stat champstats.ChampionStat) *ChampionStatView {
	view := &ChampionStatView{
		Player:      stat.Player,
		Champion:    stat.Champion,
		GamesPlayed: stat.GamesPlayed,
		Wins:        stat.Wins,
		AvgKills:    stat.AvgKills,
		AvgDeaths:   stat.AvgDeaths,
		AvgAssists:  stat.AvgAssists,
	}
	if rate, ok := stat.WinRate(); ok {
		view.WinRate = &rate
	}
	return view
}

func normalizeLeagues(leagues []string) []string {
	out := make([]string, 0, len(leagues))
	seen := make(map[string]struct{}, len(leagues))
	for _, league := range leagues {
		league = strings.ToUpper(strings.TrimSpace(league))
		if league == "" {
			continue
		}
		if _, dup := seen[league]; dup {
			continue
		}
		seen[league] = struct{}{}
		out = append(out, league)
	}
	sort.Strings(out)
	return out
}

func responseCacheKey(leagues []string, days int) string {
	return fmt.Sprintf("games:%s:%d", strings.Join(leagues, ","), days)
}
