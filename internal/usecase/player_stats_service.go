package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
)

const recentGamesLimit = 10

// PlayerGameView is one recent game line in a player-stats response.
type PlayerGameView struct {
	GameID   string `json:"gameId,omitempty"`
	Date     string `json:"date"`
	Team     string `json:"team"`
	Opponent string `json:"opponent"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	Assists  int    `json:"assists"`
	Win      bool   `json:"win"`
}

// PlayerStatsResult is the aggregate for one player on one champion plus
// their most recent games. AvgKDA stays nil when the player has no games.
type PlayerStatsResult struct {
	Player      string           `json:"player"`
	Champion    string           `json:"champion"`
	GamesPlayed int              `json:"gamesPlayed"`
	Wins        int              `json:"wins"`
	WinRate     *float64         `json:"winRate,omitempty"`
	AvgKills    float64          `json:"avgKills"`
	AvgDeaths   float64          `json:"avgDeaths"`
	AvgAssists  float64          `json:"avgAssists"`
	AvgKDA      *float64         `json:"avgKDA,omitempty"`
	RecentGames []PlayerGameView `json:"recentGames"`
}

// PlayerStatsService answers live player+champion lookups against the
// historical source, resolving display names the same way the pipeline does.
type PlayerStatsService struct {
	reconciler *Reconciler
	games      PlayerGamesProvider
	logger     *logging.Logger
}

func NewPlayerStatsService(reconciler *Reconciler, games PlayerGamesProvider, logger *logging.Logger) *PlayerStatsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PlayerStatsService{reconciler: reconciler, games: games, logger: logger}
}

// GetPlayerStats aggregates one player's record on one champion.
func (s *PlayerStatsService) GetPlayerStats(ctx context.Context, player, champion string) (PlayerStatsResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerStatsService.GetPlayerStats")
	defer span.End()

	player = strings.TrimSpace(player)
	champion = strings.TrimSpace(champion)
	if player == "" {
		return PlayerStatsResult{}, fmt.Errorf("%w: player is required", ErrInvalidInput)
	}
	if champion == "" {
		return PlayerStatsResult{}, fmt.Errorf("%w: champion is required", ErrInvalidInput)
	}

	stat, err := s.reconciler.Resolve(ctx, player, champion)
	if err != nil {
		return PlayerStatsResult{}, fmt.Errorf("resolve player=%s champion=%s: %w", player, champion, err)
	}

	result := PlayerStatsResult{
		Player:      player,
		Champion:    champion,
		RecentGames: []PlayerGameView{},
	}
	if stat == nil {
		return result, nil
	}

	result.Player = stat.Player
	result.GamesPlayed = stat.GamesPlayed
	result.Wins = stat.Wins
	result.AvgKills = stat.AvgKills
	result.AvgDeaths = stat.AvgDeaths
	result.AvgAssists = stat.AvgAssists

	if stat.GamesPlayed > 0 {
		rate := float64(stat.Wins) / float64(stat.GamesPlayed)
		result.WinRate = &rate

		kda := stat.AvgKills + stat.AvgAssists
		if stat.AvgDeaths > 0 {
			kda = kda / stat.AvgDeaths
		}
		result.AvgKDA = &kda
	}

	recent, err := s.games.FetchPlayerGamesOnChampion(ctx, stat.Player, champion, recentGamesLimit)
	if err != nil {
		// The aggregate already answers the question; recent games are
		// best effort.
		s.logger.WarnContext(ctx, "recent games fetch failed", "player", stat.Player, "champion", champion, "error", err)
		return result, nil
	}
	for _, game := range recent {
		if len(result.RecentGames) >= recentGamesLimit {
			break
		}
		result.RecentGames = append(result.RecentGames, PlayerGameView{
			GameID:   game.GameID,
			Date:     game.DateUTC,
			Team:     game.Team,
			Opponent: game.Opponent,
			Kills:    game.Kills,
			Deaths:   game.Deaths,
			Assists:  game.Assists,
			Win:      game.Win,
		})
	}
	return result, nil
}
