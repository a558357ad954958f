package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/lol-pickem/external/leaguepedia"
	"github.com/riskibarqy/lol-pickem/external/livestats"
	"github.com/riskibarqy/lol-pickem/external/lolesports"
	"github.com/riskibarqy/lol-pickem/internal/config"
	"github.com/riskibarqy/lol-pickem/internal/domain/prediction"
	"github.com/riskibarqy/lol-pickem/internal/domain/snapshot"
	cachedrepo "github.com/riskibarqy/lol-pickem/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/lol-pickem/internal/infrastructure/repository/file"
	"github.com/riskibarqy/lol-pickem/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/lol-pickem/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/lol-pickem/internal/interfaces/httpapi"
	"github.com/riskibarqy/lol-pickem/internal/platform/cache"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
	"github.com/riskibarqy/lol-pickem/internal/platform/ratelimit"
	"github.com/riskibarqy/lol-pickem/internal/platform/resilience"
	"github.com/riskibarqy/lol-pickem/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// App holds the wired services behind the HTTP API and the pipeline CLI.
type App struct {
	Config      config.Config
	Logger      *logging.Logger
	Pipeline    *usecase.PipelineService
	Games       *usecase.GamesService
	PlayerStats *usecase.PlayerStatsService
	Predictions *usecase.PredictionService
	Router      http.Handler

	db *sqlx.DB
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	clock := ratelimit.SystemClock()

	scheduleClient := lolesports.NewClient(lolesports.ClientConfig{
		BaseURL:    cfg.EsportsBaseURL,
		APIKey:     cfg.EsportsAPIKey,
		Timeout:    cfg.EsportsTimeout,
		MaxRetries: cfg.EsportsMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.EsportsCircuitEnabled,
			FailureThreshold: cfg.EsportsCircuitFailureCount,
			OpenTimeout:      cfg.EsportsCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.EsportsCircuitHalfOpenMaxReq,
		},
	})
	draftClient := livestats.NewClient(livestats.ClientConfig{
		BaseURL:     cfg.LiveStatsBaseURL,
		Timeout:     cfg.LiveStatsTimeout,
		MaxRetries:  cfg.LiveStatsMaxRetries,
		MinInterval: cfg.LiveStatsMinInterval,
		Clock:       clock,
		Logger:      logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.LiveStatsCircuitEnabled,
			FailureThreshold: cfg.LiveStatsCircuitFailureCount,
			OpenTimeout:      cfg.LiveStatsCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.LiveStatsCircuitHalfOpenMaxReq,
		},
	})
	statsClient := leaguepedia.NewClient(leaguepedia.ClientConfig{
		BaseURL:     cfg.LeaguepediaBaseURL,
		Timeout:     cfg.LeaguepediaTimeout,
		MaxRetries:  cfg.LeaguepediaMaxRetries,
		MinInterval: cfg.LeaguepediaMinInterval,
		Cooldown:    cfg.LeaguepediaCooldown,
		SeasonFloor: cfg.LeaguepediaSeasonFloor,
		Clock:       clock,
		Logger:      logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.LeaguepediaCircuitEnabled,
			FailureThreshold: cfg.LeaguepediaCircuitFailureCount,
			OpenTimeout:      cfg.LeaguepediaCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.LeaguepediaCircuitHalfOpenMaxReq,
		},
	})

	var (
		store          snapshot.Store
		predictionRepo prediction.Repository
		db             *sqlx.DB
	)
	switch cfg.SnapshotBackend {
	case "postgres":
		opened, err := openDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		store = postgres.NewSnapshotStore(db)
		predictionRepo = postgres.NewPredictionRepository(db)
	default:
		store = file.NewSnapshotStore(cfg.SnapshotPath)
		predictionRepo = memory.NewPredictionRepository()
	}
	seed := file.NewSnapshotStore(cfg.SeedSnapshotPath)

	reconciler := usecase.NewReconciler(statsClient, logger)
	pipeline := usecase.NewPipelineService(usecase.PipelineConfig{
		Schedule:     scheduleClient,
		Drafts:       draftClient,
		Reconciler:   reconciler,
		Store:        store,
		Logger:       logger,
		LeagueIDs:    cfg.EsportsLeagueIDByName,
		WindowDays:   cfg.ScheduleWindowDays,
		MaxNewStats:  cfg.MaxNewStatsPerRun,
		DraftWorkers: cfg.DraftWorkers,
	})

	var responses *cache.Store
	if cfg.CacheEnabled {
		responses = cache.NewStore(cfg.CacheTTL)
		predictionRepo = cachedrepo.NewPredictionRepository(predictionRepo, cache.NewStore(cfg.CacheTTL))
	}

	games := usecase.NewGamesService(usecase.GamesServiceConfig{
		Store:     store,
		Seed:      seed,
		Pipeline:  pipeline,
		Responses: responses,
		Logger:    logger,
		MaxAge:    cfg.SnapshotMaxAge,
	})
	playerStats := usecase.NewPlayerStatsService(reconciler, statsClient, logger)
	predictions := usecase.NewPredictionService(predictionRepo, store, logger, nil)

	handler := httpapi.NewHandler(games, playerStats, predictions, pipeline, logger)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Pipeline:    pipeline,
		Games:       games,
		PlayerStats: playerStats,
		Predictions: predictions,
		Router:      router,
		db:          db,
	}, nil
}

// HTTPServer builds the listener around the wired router.
func (a *App) HTTPServer() (*http.Server, error) {
	if a.Config.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	return &http.Server{
		Addr:         a.Config.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  a.Config.ReadTimeout,
		WriteTimeout: a.Config.WriteTimeout,
	}, nil
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
