package httpapi

import "testing"

func TestShouldCreateHTTPAPISpan(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want bool
	}{
		{name: "httpapi.Handler.ListGames", want: true},
		{name: "httpapi.Handler.CreatePrediction", want: true},
		{name: "httpapi.writeJSON", want: false},
		{name: "httpapi.CORS", want: false},
		{name: "usecase.GamesService.ListGames", want: false},
	}
	for _, tc := range cases {
		if got := shouldCreateHTTPAPISpan(tc.name); got != tc.want {
			t.Fatalf("shouldCreateHTTPAPISpan(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
