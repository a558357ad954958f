package leaguepedia

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/lol-pickem/internal/usecase"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.mu.Unlock()
	return nil
}

func TestFetchChampionStats_ParsesAggregateRow(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("action"); got != "cargoquery" {
			t.Errorf("unexpected action %s", got)
		}
		if got := query.Get("tables"); got != "ScoreboardPlayers" {
			t.Errorf("unexpected tables %s", got)
		}
		where := query.Get("where")
		if where != `ScoreboardPlayers.Link="Faker" AND ScoreboardPlayers.Champion="Azir" AND ScoreboardPlayers.DateTime_UTC >= "2024-01-01 00:00:00"` {
			t.Errorf("unexpected where clause %s", where)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cargoquery":[{"title":{
			"Link":"Faker","Champion":"Azir","GamesPlayed":"12","Wins":"8",
			"AvgKills":"3.25","AvgDeaths":"1.9166666666667","AvgAssists":"6.5"
		}}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Clock: newFakeClock()})
	stat, err := client.FetchChampionStats(context.Background(), "Faker", "Azir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat == nil {
		t.Fatal("expected a stat row")
	}
	if stat.Player != "Faker" || stat.Champion != "Azir" {
		t.Fatalf("unexpected identity %s/%s", stat.Player, stat.Champion)
	}
	if stat.GamesPlayed != 12 || stat.Wins != 8 {
		t.Fatalf("unexpected counts games=%d wins=%d", stat.GamesPlayed, stat.Wins)
	}
	if stat.AvgKills != 3.25 {
		t.Fatalf("unexpected avg kills %f", stat.AvgKills)
	}
}

func TestFetchChampionStats_NoRowsIsAMiss(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cargoquery":[]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Clock: newFakeClock()})
	stat, err := client.FetchChampionStats(context.Background(), "Nobody", "Azir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat != nil {
		t.Fatalf("expected nil stat, got=%+v", stat)
	}
}

func TestSearchChampionStats_UsesSubstringMatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		where := r.URL.Query().Get("where")
		if where != `ScoreboardPlayers.Link LIKE "%Chovy%" AND ScoreboardPlayers.Champion="Ahri" AND ScoreboardPlayers.DateTime_UTC >= "2024-01-01 00:00:00"` {
			t.Errorf("unexpected where clause %s", where)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cargoquery":[{"title":{"Link":"Chovy","Champion":"Ahri","GamesPlayed":"7","Wins":"5","AvgKills":"4","AvgDeaths":"1.5","AvgAssists":"5"}}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Clock: newFakeClock()})
	stat, err := client.SearchChampionStats(context.Background(), "Chovy", "Ahri")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat == nil || stat.Player != "Chovy" {
		t.Fatalf("unexpected stat %+v", stat)
	}
}

func TestDoCargo_RetriesRateLimitedPayloadThenFails(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"code":"ratelimited","info":"too many requests"}}`))
	}))
	defer server.Close()

	clock := newFakeClock()
	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 3, Clock: clock})

	start := clock.Now()
	_, err := client.FetchChampionStats(context.Background(), "Faker", "Azir")
	if !errors.Is(err, usecase.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got=%v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("expected 4 attempts, got=%d", got)
	}
	// Each rejected attempt adds a 30s cooldown before the next start.
	if waited := clock.Now().Sub(start); waited < 90*time.Second {
		t.Fatalf("expected at least 90s of cooldown waits, got=%s", waited)
	}
}

func TestDoCargo_RecoversAfterRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"cargoquery":[{"title":{"Link":"Faker","Champion":"Azir","GamesPlayed":"12","Wins":"8","AvgKills":"3","AvgDeaths":"2","AvgAssists":"6"}}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 2, Clock: newFakeClock()})
	stat, err := client.FetchChampionStats(context.Background(), "Faker", "Azir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat == nil || stat.GamesPlayed != 12 {
		t.Fatalf("unexpected stat %+v", stat)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got=%d", got)
	}
}

func TestFetchPlayerGamesOnChampion_DerivesOpponent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("order_by"); got != "SG.DateTime_UTC DESC" {
			t.Errorf("unexpected order_by %s", got)
		}
		if got := query.Get("limit"); got != "2" {
			t.Errorf("unexpected limit %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cargoquery":[
			{"title":{"Link":"Faker","Champion":"Azir","Kills":"5","Deaths":"1","Assists":"7","PlayerWin":"Yes","Team":"T1","Team1":"T1","Team2":"GEN","DateUTC":"2026-08-20 09:00:00","GameId":"g2"}},
			{"title":{"Link":"Faker","Champion":"Azir","Kills":"2","Deaths":"3","Assists":"4","PlayerWin":"No","Team":"T1","Team1":"HLE","Team2":"T1","DateUTC":"2026-08-18 09:00:00","GameId":"g1"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Clock: newFakeClock()})
	games, err := client.FetchPlayerGamesOnChampion(context.Background(), "Faker", "Azir", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got=%d", len(games))
	}
	if games[0].Opponent != "GEN" || !games[0].Win {
		t.Fatalf("unexpected first game %+v", games[0])
	}
	if games[1].Opponent != "HLE" || games[1].Win {
		t.Fatalf("unexpected second game %+v", games[1])
	}
}

func TestQuoteCargo_EscapesQuotes(t *testing.T) {
	t.Parallel()

	if got := quoteCargo(`He"ro`); got != `"He\"ro"` {
		t.Fatalf("unexpected quoted value %s", got)
	}
}
