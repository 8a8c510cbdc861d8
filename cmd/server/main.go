package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/api"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/cache"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/config"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/dataset"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/prediction"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/review"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/scoring"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	// Load the data tables
	provider := dataset.NewProvider(logger)
	if err := provider.Load(cfg.Data.Dir, cfg.Data.GeneFile); err != nil {
		logger.WithError(err).Fatal("Failed to load data tables")
	}

	// Assemble the engine
	scorer := scoring.NewEngine(provider, cfg.Scoring, logger)
	predictor := prediction.NewEngine(provider, cfg.Prediction, logger)
	queryCache := cache.NewMemoryCache(cfg.Cache.MaxItems, cfg.Cache.TTL)
	engine := service.NewEngine(provider, scorer, predictor, queryCache, logger)
	sessions := service.NewSessionManager(engine, logger)

	reviews, err := review.NewSQLiteStore(cfg.Data.ReviewDBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open review store")
	}
	defer reviews.Close()

	server := api.NewServer(cfg, engine, sessions, reviews, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting MPV clinical decision support server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from the logging configuration.
func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
