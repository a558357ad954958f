package leaguepedia

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
	"github.com/riskibarqy/lol-pickem/internal/platform/ratelimit"
	"github.com/riskibarqy/lol-pickem/internal/platform/resilience"
	"github.com/riskibarqy/lol-pickem/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultBaseURL     = "https://lol.fandom.com/api.php"
	defaultSeasonFloor = "2024-01-01"
	maxBodyBytes       = 6 << 20
)

var errCargoTransient = crerr.New("leaguepedia transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	MinInterval    time.Duration
	Cooldown       time.Duration
	SeasonFloor    string
	Clock          ratelimit.Clock
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client queries the Leaguepedia cargo tables. The wiki rate limits hard,
// so every request start goes through a shared limiter and a reported
// "ratelimited" payload pushes a cooldown before the next start.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	seasonFloor    string
	limiter        *ratelimit.Limiter
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
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = 8 * time.Second
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	seasonFloor := strings.TrimSpace(cfg.SeasonFloor)
	if seasonFloor == "" {
		seasonFloor = defaultSeasonFloor
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		maxRetries:  maxInt(cfg.MaxRetries, 0),
		seasonFloor: seasonFloor,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			MinInterval: minInterval,
			Cooldown:    cooldown,
		}, cfg.Clock),
		logger:         logger,
		breaker:        resilience.NewCircuitBreakerFromConfig(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchChampionStats aggregates one player's history on one champion,
// matching the wiki page name exactly. A player the wiki does not know
// returns (nil, nil).
func (c *Client) FetchChampionStats(ctx context.Context, player, champion string) (*usecase.ExternalChampionStat, error) {
	player = strings.TrimSpace(player)
	champion = strings.TrimSpace(champion)
	if player == "" || champion == "" {
		return nil, fmt.Errorf("%w: player and champion are required", usecase.ErrInvalidInput)
	}

	where := c.statsWhere(fmt.Sprintf("ScoreboardPlayers.Link=%s", quoteCargo(player)), champion)
	rows, err := c.championStatRows(ctx, where, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SearchChampionStats is the fallback lookup for names the exact match
// misses. It substring-matches the page name and keeps the first grouped
// row, which can land on the wrong player when the fragment is generic.
func (c *Client) SearchChampionStats(ctx context.Context, fragment, champion string) (*usecase.ExternalChampionStat, error) {
	fragment = strings.TrimSpace(fragment)
	champion = strings.TrimSpace(champion)
	if fragment == "" || champion == "" {
		return nil, fmt.Errorf("%w: fragment and champion are required", usecase.ErrInvalidInput)
	}

	where := c.statsWhere(fmt.Sprintf("ScoreboardPlayers.Link LIKE %s", quoteCargo("%"+fragment+"%")), champion)
	rows, err := c.championStatRows(ctx, where, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FetchPlayerGamesOnChampion lists a player's recent games on a champion,
// newest first.
func (c *Client) FetchPlayerGamesOnChampion(ctx context.Context, player, champion string, limit int) ([]usecase.ExternalPlayerGame, error) {
	player = strings.TrimSpace(player)
	champion = strings.TrimSpace(champion)
	if player == "" || champion == "" {
		return nil, fmt.Errorf("%w: player and champion are required", usecase.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	where := buildClause(
		fmt.Sprintf("SP.Link=%s", quoteCargo(player)),
		fmt.Sprintf("SP.Champion=%s", quoteCargo(champion)),
		fmt.Sprintf("SP.DateTime_UTC >= %s", quoteCargo(c.seasonFloor+" 00:00:00")),
	)

	params := url.Values{}
	params.Set("action", "cargoquery")
	params.Set("format", "json")
	params.Set("tables", "ScoreboardPlayers=SP,ScoreboardGames=SG")
	params.Set("join_on", "SP.GameId=SG.GameId")
	params.Set("fields", "SP.Link=Link,SP.Champion=Champion,SP.Kills=Kills,SP.Deaths=Deaths,SP.Assists=Assists,SP.PlayerWin=PlayerWin,SP.Team=Team,SG.Team1=Team1,SG.Team2=Team2,SG.DateTime_UTC=DateUTC,SG.GameId=GameId")
	params.Set("where", where)
	params.Set("order_by", "SG.DateTime_UTC DESC")
	params.Set("limit", strconv.Itoa(limit))

	rows, err := c.doCargo(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetch player games player=%s champion=%s: %w", player, champion, err)
	}

	out := make([]usecase.ExternalPlayerGame, 0, len(rows))
	for _, row := range rows {
		team := row.field("Team")
		opponent := row.field("Team1")
		if strings.EqualFold(opponent, team) {
			opponent = row.field("Team2")
		}
		out = append(out, usecase.ExternalPlayerGame{
			GameID:   row.field("GameId"),
			DateUTC:  row.field("DateUTC"),
			Team:     team,
			Opponent: opponent,
			Champion: row.field("Champion"),
			Kills:    row.intField("Kills"),
			Deaths:   row.intField("Deaths"),
			Assists:  row.intField("Assists"),
			Win:      strings.EqualFold(row.field("PlayerWin"), "Yes"),
		})
	}
	return out, nil
}

func (c *Client) championStatRows(ctx context.Context, where string, limit int) ([]usecase.ExternalChampionStat, error) {
	params := url.Values{}
	params.Set("action", "cargoquery")
	params.Set("format", "json")
	params.Set("tables", "ScoreboardPlayers")
	params.Set("fields", strings.Join([]string{
		"ScoreboardPlayers.Link=Link",
		"ScoreboardPlayers.Champion=Champion",
		"COUNT(*)=GamesPlayed",
		`SUM(CASE WHEN ScoreboardPlayers.PlayerWin="Yes" THEN 1 ELSE 0 END)=Wins`,
		"AVG(ScoreboardPlayers.Kills)=AvgKills",
		"AVG(ScoreboardPlayers.Deaths)=AvgDeaths",
		"AVG(ScoreboardPlayers.Assists)=AvgAssists",
	}, ","))
	params.Set("where", where)
	params.Set("group_by", "ScoreboardPlayers.Link,ScoreboardPlayers.Champion")
	params.Set("limit", strconv.Itoa(limit))

	rows, err := c.doCargo(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetch champion stats: %w", err)
	}

	out := make([]usecase.ExternalChampionStat, 0, len(rows))
	for _, row := range rows {
		out = append(out, usecase.ExternalChampionStat{
			Player:      row.field("Link"),
			Champion:    row.field("Champion"),
			GamesPlayed: row.intField("GamesPlayed"),
			Wins:        row.intField("Wins"),
			AvgKills:    row.floatField("AvgKills"),
			AvgDeaths:   row.floatField("AvgDeaths"),
			AvgAssists:  row.floatField("AvgAssists"),
		})
	}
	return out, nil
}

func (c *Client) statsWhere(playerClause, champion string) string {
	return buildClause(
		playerClause,
		fmt.Sprintf("ScoreboardPlayers.Champion=%s", quoteCargo(champion)),
		fmt.Sprintf("ScoreboardPlayers.DateTime_UTC >= %s", quoteCargo(c.seasonFloor+" 00:00:00")),
	)
}

func (c *Client) doCargo(ctx context.Context, params url.Values) ([]cargoRow, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "leaguepedia circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: stats provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + "?" + params.Encode()
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		rows, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isCargoCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return rows, reqErr
	})
	if err != nil {
		return nil, err
	}

	rows, ok := out.([]cargoRow)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return rows, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]cargoRow, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		rows, attemptErr := c.executeAttempt(ctx, req)
		if attemptErr == nil {
			return rows, nil
		}
		lastErr = attemptErr
		if !isCargoCircuitFailure(attemptErr) {
			return nil, attemptErr
		}
		if stderrors.Is(attemptErr, usecase.ErrRateLimited) {
			c.limiter.Penalize()
		}
	}

	c.logger.WarnContext(ctx, "leaguepedia request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) executeAttempt(ctx context.Context, req *http.Request) ([]cargoRow, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", errCargoTransient, err)
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errCargoTransient, readErr)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: provider status=%d body=%s", usecase.ErrRateLimited, resp.StatusCode, abbreviateBody(raw))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: provider status=%d body=%s", errCargoTransient, resp.StatusCode, abbreviateBody(raw))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}

	var envelope cargoEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode cargo payload: %v", usecase.ErrMalformedResponse, err)
	}
	if envelope.Error != nil {
		if strings.EqualFold(envelope.Error.Code, "ratelimited") {
			return nil, fmt.Errorf("%w: cargo error code=%s", usecase.ErrRateLimited, envelope.Error.Code)
		}
		return nil, fmt.Errorf("%w: cargo error code=%s info=%s", usecase.ErrMalformedResponse, envelope.Error.Code, envelope.Error.Info)
	}

	rows := make([]cargoRow, 0, len(envelope.CargoQuery))
	for _, item := range envelope.CargoQuery {
		rows = append(rows, item.Title)
	}
	return rows, nil
}

func buildClause(parts ...string) string {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	for i, part := range parts {
		if i > 0 {
			_, _ = bb.WriteString(" AND ")
		}
		_, _ = bb.WriteString(part)
	}
	return bb.String()
}

func quoteCargo(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}

func isCargoCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errCargoTransient) || stderrors.Is(err, usecase.ErrRateLimited)
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

type cargoEnvelope struct {
	CargoQuery []struct {
		Title cargoRow `json:"title"`
	} `json:"cargoquery"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

type cargoRow map[string]string

func (r cargoRow) field(name string) string {
	return strings.TrimSpace(r[name])
}

func (r cargoRow) intField(name string) int {
	value := r.field(name)
	if value == "" {
		return 0
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		return int(parsed)
	}
	return 0
}

func (r cargoRow) floatField(name string) float64 {
	value := r.field(name)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}
