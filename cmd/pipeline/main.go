package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/riskibarqy/lol-pickem/internal/app"
	"github.com/riskibarqy/lol-pickem/internal/config"
	"github.com/riskibarqy/lol-pickem/internal/platform/logging"
)

// One-shot snapshot refresh, meant for cron.
func main() {
	leaguesFlag := flag.String("leagues", "", "comma-separated league codes, empty means all configured")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("close app", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var leagues []string
	for _, part := range strings.Split(*leaguesFlag, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			leagues = append(leagues, trimmed)
		}
	}

	report, err := application.Pipeline.Run(ctx, leagues)
	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("pipeline run finished",
		"leagues", strings.Join(report.Leagues, ","),
		"matches", report.Matches,
		"games", report.Games,
		"drafts_fetched", report.DraftsFetched,
		"drafts_missing", report.DraftsMissing,
		"stats_cached", report.StatsCached,
		"stats_fetched", report.StatsFetched,
		"stats_failed", report.StatsFailed,
		"stats_deferred", report.StatsDeferred,
		"duration", report.Duration,
	)
}
