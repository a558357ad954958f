package livestats

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
	"github.com/riskibarqy/lol-pickem/internal/platform/ratelimit"
	"github.com/riskibarqy/lol-pickem/internal/platform/resilience"
	"github.com/riskibarqy/lol-pickem/internal/usecase"
)

const (
	defaultBaseURL = "https://feed.lolesports.com/livestats/v1"
	maxBodyBytes   = 6 << 20
)

var errLiveStatsTransient = crerr.New("livestats transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	MinInterval    time.Duration
	Clock          ratelimit.Clock
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches the champion select window for finished games. The feed
// keeps no window for remakes and some older games, which reads as a miss
// rather than an error.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
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
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = 300 * time.Millisecond
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		maxRetries: maxInt(cfg.MaxRetries, 0),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			MinInterval: minInterval,
		}, cfg.Clock),
		logger:         logger,
		breaker:        resilience.NewCircuitBreakerFromConfig(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchGameWindow returns the participants of one game, or (nil, nil) when
// the feed has no window for it or the window cannot be decoded.
func (c *Client) FetchGameWindow(ctx context.Context, gameID string) ([]usecase.ExternalDraftParticipant, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("%w: game id is required", usecase.ErrInvalidInput)
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "livestats circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: draft provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + "/window/" + gameID
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errLiveStatsTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch game window game_id=%s: %w", gameID, err)
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	if raw == nil {
		return nil, nil
	}

	var envelope windowEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		// A garbled window is a miss, same as a missing one.
		c.logger.WarnContext(ctx, "livestats window payload undecodable", "game_id", gameID, "error", err)
		return nil, nil
	}

	participants := make([]usecase.ExternalDraftParticipant, 0, 10)
	participants = appendTeamParticipants(participants, envelope.GameMetadata.BlueTeamMetadata, "blue")
	participants = appendTeamParticipants(participants, envelope.GameMetadata.RedTeamMetadata, "red")
	if len(participants) == 0 {
		return nil, nil
	}

	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].ParticipantID < participants[j].ParticipantID
	})

	return participants, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
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

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errLiveStatsTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errLiveStatsTransient, readErr)
			case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
				return nil, nil
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				if len(strings.TrimSpace(string(raw))) == 0 {
					return nil, nil
				}
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errLiveStatsTransient, resp.StatusCode, abbreviateBody(raw))
			default:
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
	c.logger.WarnContext(ctx, "livestats request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func appendTeamParticipants(dst []usecase.ExternalDraftParticipant, team teamMetadata, side string) []usecase.ExternalDraftParticipant {
	for _, participant := range team.ParticipantMetadata {
		name := strings.TrimSpace(participant.SummonerName)
		champion := strings.TrimSpace(participant.ChampionID)
		if name == "" && champion == "" {
			continue
		}
		dst = append(dst, usecase.ExternalDraftParticipant{
			ParticipantID: participant.ParticipantID,
			SummonerName:  name,
			Champion:      champion,
			Role:          strings.ToLower(strings.TrimSpace(participant.Role)),
			Side:          side,
		})
	}
	return dst
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

type windowEnvelope struct {
	EsportsGameID  string `json:"esportsGameId"`
	EsportsMatchID string `json:"esportsMatchId"`
	GameMetadata   struct {
		PatchVersion     string       `json:"patchVersion"`
		BlueTeamMetadata teamMetadata `json:"blueTeamMetadata"`
		RedTeamMetadata  teamMetadata `json:"redTeamMetadata"`
	} `json:"gameMetadata"`
}

type teamMetadata struct {
	EsportsTeamID       string `json:"esportsTeamId"`
	ParticipantMetadata []struct {
		ParticipantID   int    `json:"participantId"`
		EsportsPlayerID string `json:"esportsPlayerId"`
		SummonerName    string `json:"summonerName"`
		ChampionID      string `json:"championId"`
		Role            string `json:"role"`
	} `json:"participantMetadata"`
}
