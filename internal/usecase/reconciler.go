package usecase

import (
	"context"
	"strings"

	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
)

// Reconciler resolves a broadcast display name ("T1 Faker") to a wiki page
// with recorded games on a champion. Strategies run in order and the first
// row with GamesPlayed > 0 wins.
//
// The substring fallback keeps the first grouped row, so a short name that
// is embedded in a longer page name can resolve to the wrong player.
type Reconciler struct {
	stats  StatsProvider
	logger *logging.Logger
}

func NewReconciler(stats StatsProvider, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{stats: stats, logger: logger}
}

// Resolve returns the champion aggregate for the player behind displayName,
// or nil when no strategy produced a row with games.
func (r *Reconciler) Resolve(ctx context.Context, displayName, champion string) (*ExternalChampionStat, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Reconciler.Resolve")
	defer span.End()

	displayName = strings.TrimSpace(displayName)
	champion = strings.TrimSpace(champion)
	if displayName == "" || champion == "" {
		return nil, nil
	}

	shortName := lastNameToken(displayName)

	type attempt struct {
		strategy string
		query    string
		run      func(context.Context) (*ExternalChampionStat, error)
	}

	attempts := make([]attempt, 0, 3)
	if shortName != "" {
		attempts = append(attempts, attempt{
			strategy: "short_name_exact",
			query:    shortName,
			run: func(ctx context.Context) (*ExternalChampionStat, error) {
				return r.stats.FetchChampionStats(ctx, shortName, champion)
			},
		})
	}
	if displayName != shortName {
		attempts = append(attempts, attempt{
			strategy: "display_name_exact",
			query:    displayName,
			run: func(ctx context.Context) (*ExternalChampionStat, error) {
				return r.stats.FetchChampionStats(ctx, displayName, champion)
			},
		})
	}
	if shortName != "" {
		attempts = append(attempts, attempt{
			strategy: "short_name_substring",
			query:    shortName,
			run: func(ctx context.Context) (*ExternalChampionStat, error) {
				return r.stats.SearchChampionStats(ctx, shortName, champion)
			},
		})
	}

	for _, item := range attempts {
		stat, err := item.run(ctx)
		if err != nil {
			return nil, err
		}
		if stat != nil && stat.GamesPlayed > 0 {
			r.logger.DebugContext(ctx, "reconciled player name",
				"strategy", item.strategy,
				"query", item.query,
				"champion", champion,
				"resolved", stat.Player,
				"games_played", stat.GamesPlayed,
			)
			return stat, nil
		}
		r.logger.DebugContext(ctx, "reconcile strategy missed",
			"strategy", item.strategy,
			"query", item.query,
			"champion", champion,
		)
	}

	return nil, nil
}

// lastNameToken strips the team prefix from a broadcast display name.
func lastNameToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// teamTagOf returns the team prefix of a broadcast display name, empty when
// the name has no prefix.
func teamTagOf(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[:len(fields)-1], " ")
}
