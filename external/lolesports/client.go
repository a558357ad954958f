package lolesports

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
	"github.com/riskibarqy/lol-pickem/internal/platform/resilience"
	"github.com/riskibarqy/lol-pickem/internal/usecase"
)

const (
	defaultBaseURL = "https://esports-api.lolesports.com/persisted/gw"
	defaultLocale  = "en-US"
	maxBodyBytes   = 6 << 20
)

var errEsportsTransient = crerr.New("esports transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the LoL Esports persisted gateway.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreakerFromConfig(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchCompletedMatches lists finished series for a league since the cutoff.
func (c *Client) FetchCompletedMatches(ctx context.Context, league string, leagueID int64, since time.Time) ([]usecase.ExternalMatch, error) {
	if leagueID <= 0 {
		return nil, fmt.Errorf("%w: league id must be greater than zero", usecase.ErrInvalidInput)
	}

	var envelope scheduleEnvelope
	query := map[string]string{
		"hl":       defaultLocale,
		"leagueId": strconv.FormatInt(leagueID, 10),
	}
	if err := c.doJSON(ctx, "/getSchedule", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch schedule league=%s: %w", league, err)
	}

	out := make([]usecase.ExternalMatch, 0, len(envelope.Data.Schedule.Events))
	for _, event := range envelope.Data.Schedule.Events {
		if event.Type != "match" || event.State != "completed" {
			continue
		}
		startTime, ok := parseEventTime(event.StartTime)
		if !ok {
			c.logger.WarnContext(ctx, "skip schedule event with unparseable start time",
				"league", league,
				"match_id", event.Match.ID,
				"start_time", event.StartTime,
			)
			continue
		}
		if startTime.Before(since) {
			continue
		}
		if event.Match.ID == "" || len(event.Match.Teams) < 2 {
			continue
		}

		item := usecase.ExternalMatch{
			ID:        event.Match.ID,
			League:    league,
			StartTime: startTime,
			State:     event.State,
			BestOf:    event.Match.Strategy.Count,
			Team1:     strings.TrimSpace(event.Match.Teams[0].Name),
			Team2:     strings.TrimSpace(event.Match.Teams[1].Name),
		}
		for _, team := range event.Match.Teams {
			if strings.EqualFold(team.Result.Outcome, "win") {
				item.Winner = strings.TrimSpace(team.Name)
				break
			}
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// FetchMatchGames expands a match into its per-game records.
func (c *Client) FetchMatchGames(ctx context.Context, matchID string) ([]usecase.ExternalGame, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput)
	}

	var envelope eventDetailsEnvelope
	query := map[string]string{
		"hl": defaultLocale,
		"id": matchID,
	}
	if err := c.doJSON(ctx, "/getEventDetails", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch event details match_id=%s: %w", matchID, err)
	}

	games := envelope.Data.Event.Match.Games
	out := make([]usecase.ExternalGame, 0, len(games))
	for _, game := range games {
		if game.ID == "" {
			continue
		}
		out = append(out, usecase.ExternalGame{
			ID:     game.ID,
			Number: game.Number,
			State:  game.State,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "esports circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: schedule provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	key := path + "?" + values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isEsportsCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode schedule payload: %v", usecase.ErrMalformedResponse, err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errEsportsTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errEsportsTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if resp.StatusCode == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", usecase.ErrRateLimited, resp.StatusCode, abbreviateBody(raw))
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errEsportsTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "esports request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func parseEventTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if value == "" || apiKey == "" {
		return value
	}
	return strings.ReplaceAll(value, apiKey, "REDACTED")
}

func isEsportsCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errEsportsTransient) || stderrors.Is(err, usecase.ErrRateLimited)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

type scheduleEnvelope struct {
	Data struct {
		Schedule struct {
			Events []scheduleEvent `json:"events"`
		} `json:"schedule"`
	} `json:"data"`
}

type scheduleEvent struct {
	StartTime string `json:"startTime"`
	State     string `json:"state"`
	Type      string `json:"type"`
	League    struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"league"`
	Match struct {
		ID       string              `json:"id"`
		Teams    []scheduleEventTeam `json:"teams"`
		Strategy struct {
			Type  string `json:"type"`
			Count int    `json:"count"`
		} `json:"strategy"`
	} `json:"match"`
}

type scheduleEventTeam struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Result struct {
		Outcome  string `json:"outcome"`
		GameWins int    `json:"gameWins"`
	} `json:"result"`
}

type eventDetailsEnvelope struct {
	Data struct {
		Event struct {
			Match struct {
				Games []eventDetailsGame `json:"games"`
			} `json:"match"`
		} `json:"event"`
	} `json:"data"`
}

type eventDetailsGame struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	State  string `json:"state"`
}
