package usecase

import (
	"reflect"
	"testing"

	"github.com/riskibarqy/lol-pickem/internal/domain/champstats"
	"github.com/riskibarqy/lol-pickem/internal/domain/match"
)

func fullDraft() []ExternalDraftParticipant {
	return []ExternalDraftParticipant{
		{ParticipantID: 3, SummonerName: "T1 Faker", Champion: "Azir", Role: "mid", Side: "blue"},
		{ParticipantID: 1, SummonerName: "T1 Zeus", Champion: "Jax", Role: "top", Side: "blue"},
		{ParticipantID: 5, SummonerName: "T1 Keria", Champion: "Renata Glasc", Role: "support", Side: "blue"},
		{ParticipantID: 2, SummonerName: "T1 Oner", Champion: "Vi", Role: "jungle", Side: "blue"},
		{ParticipantID: 4, SummonerName: "T1 Gumayusi", Champion: "Jinx", Role: "bottom", Side: "blue"},
		{ParticipantID: 8, SummonerName: "GEN Chovy", Champion: "Ahri", Role: "mid", Side: "red"},
		{ParticipantID: 6, SummonerName: "GEN Kiin", Champion: "Rumble", Role: "top", Side: "red"},
		{ParticipantID: 10, SummonerName: "GEN Duro", Champion: "Alistar", Role: "support", Side: "red"},
		{ParticipantID: 7, SummonerName: "GEN Canyon", Champion: "Sejuani", Role: "jungle", Side: "red"},
		{ParticipantID: 9, SummonerName: "GEN Ruler", Champion: "Kaisa", Role: "bottom", Side: "red"},
	}
}

func testGame() match.Game {
	return match.Game{ID: "g1", MatchID: "m1", League: "LCK", Number: 1, Team1: "T1", Team2: "GEN"}
}

func TestMergeGame_PartitionsAndSortsFullDraft(t *testing.T) {
	t.Parallel()

	record := MergeGame(testGame(), fullDraft(), nil)
	if len(record.Players) != 10 {
		t.Fatalf("expected 10 players, got=%d", len(record.Players))
	}

	wantOrder := []string{"T1 Zeus", "T1 Oner", "T1 Faker", "T1 Gumayusi", "T1 Keria",
		"GEN Kiin", "GEN Canyon", "GEN Chovy", "GEN Ruler", "GEN Duro"}
	for i, want := range wantOrder {
		if record.Players[i].Player != want {
			t.Fatalf("slot %d: expected %s, got=%s", i, want, record.Players[i].Player)
		}
	}
	for i := 0; i < 5; i++ {
		if record.Players[i].Team != "T1" {
			t.Fatalf("slot %d: expected team T1, got=%s", i, record.Players[i].Team)
		}
	}
	for i := 5; i < 10; i++ {
		if record.Players[i].Team != "GEN" {
			t.Fatalf("slot %d: expected team GEN, got=%s", i, record.Players[i].Team)
		}
	}
	if record.Players[3].Role != "bot" {
		t.Fatalf("expected normalized role bot, got=%s", record.Players[3].Role)
	}
}

func TestMergeGame_AttachesStatsByExactKey(t *testing.T) {
	t.Parallel()

	stats := map[string]champstats.ChampionStat{
		champstats.Key("T1 Faker", "Azir"): {Player: "Faker", Champion: "Azir", GamesPlayed: 12, Wins: 8},
	}

	record := MergeGame(testGame(), fullDraft(), stats)
	var faker *MergedPlayer
	for i := range record.Players {
		if record.Players[i].Player == "T1 Faker" {
			faker = &record.Players[i]
		} else if record.Players[i].Stats != nil {
			t.Fatalf("unexpected stats on %s", record.Players[i].Player)
		}
	}
	if faker == nil || faker.Stats == nil {
		t.Fatal("expected stats attached to T1 Faker")
	}
	if faker.Stats.GamesPlayed != 12 {
		t.Fatalf("unexpected games played %d", faker.Stats.GamesPlayed)
	}
}

func TestMergeGame_PickOnlyFallback(t *testing.T) {
	t.Parallel()

	partial := []ExternalDraftParticipant{
		{ParticipantID: 1, Champion: "Jax", Side: "blue"},
		{ParticipantID: 2, Champion: "Vi", Side: "blue"},
		{ParticipantID: 6, Champion: "Rumble", Side: "red"},
	}

	record := MergeGame(testGame(), partial, nil)
	if len(record.Players) != 3 {
		t.Fatalf("expected 3 players, got=%d", len(record.Players))
	}
	if record.Players[0].Role != "Top" || record.Players[0].Champion != "Jax" || record.Players[0].Team != "T1" {
		t.Fatalf("unexpected first slot %+v", record.Players[0])
	}
	if record.Players[1].Role != "Jungle" || record.Players[1].Champion != "Vi" {
		t.Fatalf("unexpected second slot %+v", record.Players[1])
	}
	if record.Players[2].Role != "Top" || record.Players[2].Team != "GEN" {
		t.Fatalf("unexpected red slot %+v", record.Players[2])
	}
	for _, player := range record.Players {
		if player.Player != "" {
			t.Fatalf("expected empty player name, got=%s", player.Player)
		}
		if player.Stats != nil {
			t.Fatalf("expected nil stats on pick-only slot")
		}
	}
}

func TestMergeGame_UnknownRolesSortLast(t *testing.T) {
	t.Parallel()

	draft := fullDraft()
	draft[0].Role = "flex"

	record := MergeGame(testGame(), draft, nil)
	if record.Players[4].Player != "T1 Faker" {
		t.Fatalf("expected unknown role last on roster, got=%s", record.Players[4].Player)
	}
}

func TestMergeGame_Deterministic(t *testing.T) {
	t.Parallel()

	stats := map[string]champstats.ChampionStat{
		champstats.Key("GEN Ruler", "Kaisa"): {Player: "Ruler", Champion: "Kaisa", GamesPlayed: 9, Wins: 7},
	}
	first := MergeGame(testGame(), fullDraft(), stats)
	second := MergeGame(testGame(), fullDraft(), stats)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical output for identical input")
	}
}
