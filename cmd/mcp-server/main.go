package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/cache"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/config"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/dataset"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/mcp"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/prediction"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/scoring"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/service"
)

func main() {
	cfg := config.LoadLiteConfig()

	// Stdout carries the MCP protocol; logs go to stderr.
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	provider := dataset.NewProvider(logger)
	if err := provider.Load(cfg.DataDir, cfg.GeneFile); err != nil {
		logger.WithError(err).Fatal("Failed to load data tables")
	}

	scorer := scoring.NewEngine(provider, domain.DefaultScoringConfig(), logger)
	predictor := prediction.NewEngine(provider, domain.DefaultPredictionConfig(), logger)
	queryCache := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
	engine := service.NewEngine(provider, scorer, predictor, queryCache, logger)

	server := mcp.NewServer(engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("MCP server failed")
	}
	logger.Info("MCP server stopped")
}
