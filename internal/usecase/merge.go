package usecase

import (
	"sort"
	"strings"

	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/match"
)

// MergedPlayer is one roster slot of a merged game. Stats is nil when the
// player has no recorded history on the champion.
type MergedPlayer struct {
	Player   string
	Champion string
	Role     string
	Team     string
	Stats    *champstats.ChampionStat
}

// MergedGameRecord joins one game with its draft and the stats index.
type MergedGameRecord struct {
	Game    match.Game
	Players []MergedPlayer
}

var roleRank = map[string]int{
	"top":     0,
	"jungle":  1,
	"mid":     2,
	"bot":     3,
	"support": 4,
}

var positionalRoles = [5]string{"Top", "Jungle", "Mid", "Bot", "Support"}

// MergeGame is pure and deterministic: the same inputs always produce the
// same record.
//
// A full draft (>= 10 participants) partitions into the two rosters by
// team-name equality against the game's teams, falling back on the draft
// side for names without a recognizable prefix. Each roster sorts by role
// order top, jungle, mid, bot, support with unknown roles last.
//
// A partial or missing draft degrades to pick-only rosters: champions in
// pick order with positional roles and empty player names, so stats never
// attach to them.
func MergeGame(game match.Game, participants []ExternalDraftParticipant, statsIndex map[string]champstats.ChampionStat) MergedGameRecord {
	record := MergedGameRecord{Game: game}

	if len(participants) >= 10 {
		roster1 := make([]ExternalDraftParticipant, 0, 5)
		roster2 := make([]ExternalDraftParticipant, 0, 5)
		for _, participant := range participants {
			switch rosterIndexFor(participant, game) {
			case 0:
				roster1 = append(roster1, participant)
			default:
				roster2 = append(roster2, participant)
			}
		}
		sortRoster(roster1)
		sortRoster(roster2)

		record.Players = make([]MergedPlayer, 0, len(participants))
		record.Players = appendRoster(record.Players, roster1, game.Team1, statsIndex)
		record.Players = appendRoster(record.Players, roster2, game.Team2, statsIndex)
		return record
	}

	bluePicks, redPicks := splitPicksBySide(participants)
	record.Players = appendPickOnlyRoster(record.Players, bluePicks, game.Team1)
	record.Players = appendPickOnlyRoster(record.Players, redPicks, game.Team2)
	return record
}

func rosterIndexFor(participant ExternalDraftParticipant, game match.Game) int {
	tag := teamTagOf(participant.SummonerName)
	if tag != "" {
		if strings.EqualFold(tag, game.Team1) {
			return 0
		}
		if strings.EqualFold(tag, game.Team2) {
			return 1
		}
	}
	if strings.EqualFold(participant.Side, "blue") {
		return 0
	}
	return 1
}

func sortRoster(roster []ExternalDraftParticipant) {
	sort.SliceStable(roster, func(i, j int) bool {
		left, leftKnown := roleRank[normalizeRole(roster[i].Role)]
		right, rightKnown := roleRank[normalizeRole(roster[j].Role)]
		if leftKnown != rightKnown {
			return leftKnown
		}
		if leftKnown && left != right {
			return left < right
		}
		return roster[i].ParticipantID < roster[j].ParticipantID
	})
}

func appendRoster(dst []MergedPlayer, roster []ExternalDraftParticipant, team string, statsIndex map[string]champstats.ChampionStat) []MergedPlayer {
	for _, participant := range roster {
		player := MergedPlayer{
			Player:   strings.TrimSpace(participant.SummonerName),
			Champion: strings.TrimSpace(participant.Champion),
			Role:     normalizeRole(participant.Role),
			Team:     team,
		}
		if stat, ok := statsIndex[champstats.Key(player.Player, player.Champion)]; ok {
			copied := stat
			player.Stats = &copied
		}
		dst = append(dst, player)
	}
	return dst
}

func splitPicksBySide(participants []ExternalDraftParticipant) ([]ExternalDraftParticipant, []ExternalDraftParticipant) {
	blue := make([]ExternalDraftParticipant, 0, 5)
	red := make([]ExternalDraftParticipant, 0, 5)
	for _, participant := range participants {
		if strings.TrimSpace(participant.Champion) == "" {
			continue
		}
		if strings.EqualFold(participant.Side, "red") {
			red = append(red, participant)
		} else {
			blue = append(blue, participant)
		}
	}
	sort.SliceStable(blue, func(i, j int) bool { return blue[i].ParticipantID < blue[j].ParticipantID })
	sort.SliceStable(red, func(i, j int) bool { return red[i].ParticipantID < red[j].ParticipantID })
	return blue, red
}

func appendPickOnlyRoster(dst []MergedPlayer, picks []ExternalDraftParticipant, team string) []MergedPlayer {
	for i, pick := range picks {
		if i >= len(positionalRoles) {
			break
		}
		dst = append(dst, MergedPlayer{
			Champion: strings.TrimSpace(pick.Champion),
			Role:     positionalRoles[i],
			Team:     team,
		})
	}
	return dst
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "top":
		return "top"
	case "jungle", "jng":
		return "jungle"
	case "mid", "middle":
		return "mid"
	case "bot", "bottom", "adc":
		return "bot"
	case "support", "utility", "sup":
		return "support"
	default:
		return strings.ToLower(strings.TrimSpace(role))
	}
}
