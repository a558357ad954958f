package usecase

import (
	"context"
	"errors"
	"testing"
)

type statsCall struct {
	kind  string
	query string
}

type stubStatsProvider struct {
	calls   []statsCall
	fetch   map[string]*ExternalChampionStat
	search  map[string]*ExternalChampionStat
	fetchErr error
}

func (s *stubStatsProvider) FetchChampionStats(_ context.Context, player, champion string) (*ExternalChampionStat, error) {
	s.calls = append(s.calls, statsCall{kind: "fetch", query: player})
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.fetch[player+"|"+champion], nil
}

func (s *stubStatsProvider) SearchChampionStats(_ context.Context, fragment, champion string) (*ExternalChampionStat, error) {
	s.calls = append(s.calls, statsCall{kind: "search", query: fragment})
	return s.search[fragment+"|"+champion], nil
}

func TestReconcilerResolve_ShortNameExactWins(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{
		fetch: map[string]*ExternalChampionStat{
			"Faker|Azir": {Player: "Faker", Champion: "Azir", GamesPlayed: 12, Wins: 8},
		},
	}
	reconciler := NewReconciler(provider, nil)

	stat, err := reconciler.Resolve(context.Background(), "T1 Faker", "Azir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat == nil || stat.Player != "Faker" {
		t.Fatalf("unexpected stat %+v", stat)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("expected 1 lookup, got=%d", len(provider.calls))
	}
}

func TestReconcilerResolve_FallsBackThroughChain(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{
		search: map[string]*ExternalChampionStat{
			"Peyz|Kaisa": {Player: "Peyz (Kim Su-hwan)", Champion: "Kaisa", GamesPlayed: 4, Wins: 3},
		},
	}
	reconciler := NewReconciler(provider, nil)

	stat, err := reconciler.Resolve(context.Background(), "GEN Peyz", "Kaisa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat == nil || stat.GamesPlayed != 4 {
		t.Fatalf("unexpected stat %+v", stat)
	}

	want := []statsCall{
		{kind: "fetch", query: "Peyz"},
		{kind: "fetch", query: "GEN Peyz"},
		{kind: "search", query: "Peyz"},
	}
	if len(provider.calls) != len(want) {
		t.Fatalf("expected %d lookups, got=%d", len(want), len(provider.calls))
	}
	for i, call := range want {
		if provider.calls[i] != call {
			t.Fatalf("lookup %d: expected %+v, got=%+v", i, call, provider.calls[i])
		}
	}
}

func TestReconcilerResolve_RejectsZeroGameRows(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{
		fetch: map[string]*ExternalChampionStat{
			"Faker|Azir": {Player: "Faker", Champion: "Azir", GamesPlayed: 0},
		},
	}
	reconciler := NewReconciler(provider, nil)

	stat, err := reconciler.Resolve(context.Background(), "T1 Faker", "Azir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat != nil {
		t.Fatalf("expected miss for zero-game row, got=%+v", stat)
	}
	if len(provider.calls) != 3 {
		t.Fatalf("expected full chain of 3 lookups, got=%d", len(provider.calls))
	}
}

func TestReconcilerResolve_PropagatesProviderError(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{fetchErr: ErrRateLimited}
	reconciler := NewReconciler(provider, nil)

	_, err := reconciler.Resolve(context.Background(), "T1 Faker", "Azir")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limited error, got=%v", err)
	}
}

func TestReconcilerResolve_EmptyInputsAreAMiss(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{}
	reconciler := NewReconciler(provider, nil)

	stat, err := reconciler.Resolve(context.Background(), "  ", "Azir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat != nil || len(provider.calls) != 0 {
		t.Fatalf("expected no lookups, got stat=%+v calls=%d", stat, len(provider.calls))
	}
}

func TestLastNameToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"T1 Faker":      "Faker",
		"Faker":         "Faker",
		"Top Esports 369": "369",
		"  ":            "",
	}
	for input, want := range cases {
		if got := lastNameToken(input); got != want {
			t.Fatalf("lastNameToken(%q): expected %q, got=%q", input, want, got)
		}
	}
}
