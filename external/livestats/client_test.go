package livestats

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const windowPayload = `{
	"esportsGameId":"g1",
	"esportsMatchId":"m1",
	"gameMetadata":{
		"patchVersion":"16.15",
		"blueTeamMetadata":{"esportsTeamId":"100","participantMetadata":[
			{"participantId":1,"summonerName":"T1 Zeus","championId":"Jax","role":"top"},
			{"participantId":2,"summonerName":"T1 Oner","championId":"Vi","role":"jungle"},
			{"participantId":3,"summonerName":"T1 Faker","championId":"Azir","role":"mid"},
			{"participantId":4,"summonerName":"T1 Gumayusi","championId":"Jinx","role":"bottom"},
			{"participantId":5,"summonerName":"T1 Keria","championId":"Renata Glasc","role":"support"}
		]},
		"redTeamMetadata":{"esportsTeamId":"200","participantMetadata":[
			{"participantId":6,"summonerName":"GEN Kiin","championId":"Rumble","role":"top"},
			{"participantId":7,"summonerName":"GEN Canyon","championId":"Sejuani","role":"jungle"},
			{"participantId":8,"summonerName":"GEN Chovy","championId":"Ahri","role":"mid"},
			{"participantId":9,"summonerName":"GEN Ruler","championId":"Kaisa","role":"bottom"},
			{"participantId":10,"summonerName":"GEN Duro","championId":"Alistar","role":"support"}
		]}
	},
	"frames":[]
}`

func TestFetchGameWindow_ParsesBothSides(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/window/g1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(windowPayload))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MinInterval: time.Millisecond})
	participants, err := client.FetchGameWindow(context.Background(), "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(participants) != 10 {
		t.Fatalf("expected 10 participants, got=%d", len(participants))
	}
	if participants[0].SummonerName != "T1 Zeus" || participants[0].Side != "blue" {
		t.Fatalf("unexpected first participant %+v", participants[0])
	}
	if participants[9].SummonerName != "GEN Duro" || participants[9].Side != "red" {
		t.Fatalf("unexpected last participant %+v", participants[9])
	}
	if participants[2].Champion != "Azir" || participants[2].Role != "mid" {
		t.Fatalf("unexpected mid participant %+v", participants[2])
	}
}

func TestFetchGameWindow_MissingWindowIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MinInterval: time.Millisecond})
	participants, err := client.FetchGameWindow(context.Background(), "gone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if participants != nil {
		t.Fatalf("expected nil participants, got=%v", participants)
	}
}

func TestFetchGameWindow_NotFoundIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MinInterval: time.Millisecond})
	participants, err := client.FetchGameWindow(context.Background(), "gone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if participants != nil {
		t.Fatalf("expected nil participants, got=%v", participants)
	}
}

func TestFetchGameWindow_MalformedWindowIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"gameMetadata":`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MinInterval: time.Millisecond})
	participants, err := client.FetchGameWindow(context.Background(), "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if participants != nil {
		t.Fatalf("expected nil participants, got=%v", participants)
	}
}

func TestFetchGameWindow_RequiresGameID(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:0", MinInterval: time.Millisecond})
	if _, err := client.FetchGameWindow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty game id")
	}
}
