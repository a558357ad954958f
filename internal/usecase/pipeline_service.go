package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ants "github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/match"
	"github.com/riskibarqy/lol-pickem/internal/domain/snapshot"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

const defaultMaxNewStats = 100

// PipelineService builds the snapshot in three steps: schedule fan-out per
// league, draft fetch per game, then a capped stat fill. Stats already in
// the previous snapshot carry forward for free; at most MaxNewStats new
// lookups run per invocation and the rest wait for the next run.
//
// Concurrent runs against the same store are unsupported. The store keeps
// writes atomic, so the worst case is last-writer-wins.
type PipelineService struct {
	schedule     ScheduleProvider
	drafts       DraftProvider
	reconciler   *Reconciler
	store        snapshot.Store
	logger       *logging.Logger
	leagueIDs    map[string]int64
	windowDays   int
	maxNewStats  int
	draftWorkers int
	now          func() time.Time
}

type PipelineConfig struct {
	Schedule     ScheduleProvider
	Drafts       DraftProvider
	Reconciler   *Reconciler
	Store        snapshot.Store
	Logger       *logging.Logger
	LeagueIDs    map[string]int64
	WindowDays   int
	MaxNewStats  int
	DraftWorkers int
	Now          func() time.Time
}

func NewPipelineService(cfg PipelineConfig) *PipelineService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = 14
	}
	maxNewStats := cfg.MaxNewStats
	if maxNewStats <= 0 {
		maxNewStats = defaultMaxNewStats
	}
	draftWorkers := cfg.DraftWorkers
	if draftWorkers <= 0 {
		draftWorkers = 2
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &PipelineService{
		schedule:     cfg.Schedule,
		drafts:       cfg.Drafts,
		reconciler:   cfg.Reconciler,
		store:        cfg.Store,
		logger:       logger,
		leagueIDs:    cfg.LeagueIDs,
		windowDays:   windowDays,
		maxNewStats:  maxNewStats,
		draftWorkers: draftWorkers,
		now:          now,
	}
}

// PipelineRunReport summarizes one pipeline invocation.
type PipelineRunReport struct {
	Leagues       []string      `json:"leagues"`
	Matches       int           `json:"matches"`
	Games         int           `json:"games"`
	DraftsFetched int           `json:"draftsFetched"`
	DraftsMissing int           `json:"draftsMissing"`
	StatsCached   int           `json:"statsCached"`
	StatsFetched  int           `json:"statsFetched"`
	StatsFailed   int           `json:"statsFailed"`
	StatsDeferred int           `json:"statsDeferred"`
	Duration      time.Duration `json:"duration"`
}

// Run refreshes the snapshot for the given leagues. An empty list means
// every configured league.
func (s *PipelineService) Run(ctx context.Context, leagues []string) (PipelineRunReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.Run")
	defer span.End()

	started := s.now()
	resolved, err := s.resolveLeagues(leagues)
	if err != nil {
		return PipelineRunReport{}, err
	}

	report := PipelineRunReport{Leagues: resolved}
	since := started.Add(-time.Duration(s.windowDays) * 24 * time.Hour)

	prior, _, err := s.store.Load(ctx)
	if err != nil {
		return PipelineRunReport{}, fmt.Errorf("load prior snapshot: %w", err)
	}

	matches, games := s.fetchSchedules(ctx, resolved, since)
	report.Matches = len(matches)
	report.Games = len(games)

	records, draftsFetched, draftsMissing := s.fetchDrafts(ctx, games)
	report.DraftsFetched = draftsFetched
	report.DraftsMissing = draftsMissing

	next := snapshot.Snapshot{
		GeneratedAt:   started.UTC(),
		Matches:       matches,
		Games:         games,
		PlayerRecords: records,
		ChampionStats: cloneStats(prior.ChampionStats),
	}

	// Intermediate save so a failed stat fill still leaves fresh games
	// and rosters behind.
	if err := s.store.Save(ctx, next); err != nil {
		return report, fmt.Errorf("save intermediate snapshot: %w", err)
	}

	cached, fetched, failed, deferred := s.fillStats(ctx, &next)
	report.StatsCached = cached
	report.StatsFetched = fetched
	report.StatsFailed = failed
	report.StatsDeferred = deferred

	if err := s.store.Save(ctx, next); err != nil {
		return report, fmt.Errorf("save snapshot: %w", err)
	}

	report.Duration = s.now().Sub(started)
	s.logger.InfoContext(ctx, "pipeline run finished",
		"leagues", strings.Join(resolved, ","),
		"matches", report.Matches,
		"games", report.Games,
		"drafts_fetched", report.DraftsFetched,
		"drafts_missing", report.DraftsMissing,
		"stats_cached", report.StatsCached,
		"stats_fetched", report.StatsFetched,
		"stats_failed", report.StatsFailed,
		"stats_deferred", report.StatsDeferred,
		"duration", report.Duration.String(),
	)
	return report, nil
}

func (s *PipelineService) resolveLeagues(leagues []string) ([]string, error) {
	if len(leagues) == 0 {
		all := make([]string, 0, len(s.leagueIDs))
		for league := range s.leagueIDs {
			all = append(all, league)
		}
		sort.Strings(all)
		return all, nil
	}

	resolved := make([]string, 0, len(leagues))
	seen := make(map[string]struct{}, len(leagues))
	for _, league := range leagues {
		league = strings.ToUpper(strings.TrimSpace(league))
		if league == "" {
			continue
		}
		if _, ok := s.leagueIDs[league]; !ok {
			return nil, fmt.Errorf("%w: unknown league %q", ErrInvalidInput, league)
		}
		if _, dup := seen[league]; dup {
			continue
		}
		seen[league] = struct{}{}
		resolved = append(resolved, league)
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: no leagues requested", ErrInvalidInput)
	}
	return resolved, nil
}

type leagueFetch struct {
	league  string
	matches []match.Match
	games   []match.Game
	err     error
}

func (s *PipelineService) fetchSchedules(ctx context.Context, leagues []string, since time.Time) ([]match.Match, []match.Game) {
	runner := pool.NewWithResults[leagueFetch]().WithMaxGoroutines(len(leagues))
	for _, league := range leagues {
		league := league
		runner.Go(func() leagueFetch {
			return s.fetchLeague(ctx, league, since)
		})
	}
	results := runner.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].league < results[j].league })

	matches := make([]match.Match, 0, 32)
	games := make([]match.Game, 0, 64)
	for _, result := range results {
		if result.err != nil {
			// Other leagues still count; this one retries next run.
			s.logger.WarnContext(ctx, "league schedule fetch failed", "league", result.league, "error", result.err)
			continue
		}
		matches = append(matches, result.matches...)
		games = append(games, result.games...)
	}
	return matches, games
}

func (s *PipelineService) fetchLeague(ctx context.Context, league string, since time.Time) leagueFetch {
	completed, err := s.schedule.FetchCompletedMatches(ctx, league, s.leagueIDs[league], since)
	if err != nil {
		return leagueFetch{league: league, err: err}
	}

	out := leagueFetch{league: league}
	for _, item := range completed {
		series := match.Match{
			ID:        item.ID,
			League:    league,
			StartTime: item.StartTime,
			State:     item.State,
			BestOf:    item.BestOf,
			Team1:     item.Team1,
			Team2:     item.Team2,
			Winner:    item.Winner,
		}
		externalGames, err := s.schedule.FetchMatchGames(ctx, item.ID)
		if err != nil {
			// The match still counts; its games fill in next run.
			s.logger.WarnContext(ctx, "match games fetch failed", "league", league, "match_id", item.ID, "error", err)
			out.matches = append(out.matches, series)
			continue
		}
		for _, game := range externalGames {
			series.GameIDs = append(series.GameIDs, game.ID)
			out.games = append(out.games, match.Game{
				ID:        game.ID,
				MatchID:   item.ID,
				League:    league,
				Number:    game.Number,
				Team1:     item.Team1,
				Team2:     item.Team2,
				Winner:    item.Winner,
				State:     game.State,
				StartTime: item.StartTime,
			})
		}
		out.matches = append(out.matches, series)
	}
	return out
}

type draftFetch struct {
	index   int
	players []MergedPlayer
	found   bool
	err     error
}

func (s *PipelineService) fetchDrafts(ctx context.Context, games []match.Game) ([]snapshot.PlayerRecord, int, int) {
	if len(games) == 0 {
		return nil, 0, 0
	}

	workers, err := ants.NewPool(s.draftWorkers)
	if err != nil {
		s.logger.ErrorContext(ctx, "draft worker pool init failed", "error", err)
		return nil, 0, 0
	}
	defer workers.Release()

	var wg sync.WaitGroup
	var fetched, missing atomic.Int64
	results := make(chan draftFetch, len(games))

	for i, game := range games {
		i, game := i, game
		wg.Add(1)
		submitErr := workers.Submit(func() {
			defer wg.Done()
			participants, err := s.drafts.FetchGameWindow(ctx, game.ID)
			if err != nil {
				missing.Add(1)
				results <- draftFetch{index: i, err: err}
				return
			}
			if len(participants) == 0 {
				missing.Add(1)
				results <- draftFetch{index: i}
				return
			}
			fetched.Add(1)
			merged := MergeGame(game, participants, nil)
			results <- draftFetch{index: i, players: merged.Players, found: true}
		})
		if submitErr != nil {
			wg.Done()
			missing.Add(1)
			s.logger.WarnContext(ctx, "draft fetch submit failed", "game_id", game.ID, "error", submitErr)
		}
	}

	wg.Wait()
	close(results)

	byIndex := make(map[int]draftFetch, len(games))
	for result := range results {
		if result.err != nil {
			s.logger.WarnContext(ctx, "draft fetch failed", "game_id", games[result.index].ID, "error", result.err)
			continue
		}
		byIndex[result.index] = result
	}

	records := make([]snapshot.PlayerRecord, 0, len(games)*10)
	for i, game := range games {
		result, ok := byIndex[i]
		if !ok || !result.found {
			continue
		}
		for _, player := range result.players {
			records = append(records, snapshot.PlayerRecord{
				GameID:   game.ID,
				Team:     player.Team,
				Player:   player.Player,
				Champion: player.Champion,
				Role:     player.Role,
			})
		}
	}
	return records, int(fetched.Load()), int(missing.Load())
}

// fillStats resolves stats for unique (player, champion) pairs in
// first-seen input order. Pairs already in the snapshot cost nothing;
// new lookups stop at the per-run cap and failed lookups stay absent so
// the next run retries them.
func (s *PipelineService) fillStats(ctx context.Context, snap *snapshot.Snapshot) (cached, fetched, failed, deferred int) {
	if snap.ChampionStats == nil {
		snap.ChampionStats = make(map[string]champstats.ChampionStat)
	}

	seen := make(map[string]struct{}, len(snap.PlayerRecords))
	for _, record := range snap.PlayerRecords {
		if record.Player == "" || record.Champion == "" {
			continue
		}
		key := champstats.Key(record.Player, record.Champion)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, ok := snap.ChampionStats[key]; ok {
			cached++
			continue
		}
		if fetched >= s.maxNewStats {
			deferred++
			continue
		}

		fetched++
		stat, err := s.reconciler.Resolve(ctx, record.Player, record.Champion)
		if err != nil {
			failed++
			s.logger.WarnContext(ctx, "stat fetch failed", "player", record.Player, "champion", record.Champion, "error", err)
			continue
		}
		if stat == nil {
			continue
		}
		snap.ChampionStats[key] = champstats.ChampionStat{
			Player:      stat.Player,
			Champion:    record.Champion,
			GamesPlayed: stat.GamesPlayed,
			Wins:        stat.Wins,
			AvgKills:    stat.AvgKills,
			AvgDeaths:   stat.AvgDeaths,
			AvgAssists:  stat.AvgAssists,
		}
	}
	return cached, fetched, failed, deferred
}

func cloneStats(src map[string]champstats.ChampionStat) map[string]champstats.ChampionStat {
	out := make(map[string]champstats.ChampionStat, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
