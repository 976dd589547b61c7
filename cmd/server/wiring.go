package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/api"
	"github.com/tarang-screening-server/internal/database"
	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/feedback"
	"github.com/tarang-screening-server/internal/repository"
	"github.com/tarang-screening-server/internal/service"
	"github.com/tarang-screening-server/pkg/external"
)

func newLogger(cfg domain.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}
	return logger, nil
}

// app holds the PostgreSQL-backed services shared by serve and mcp.
type app struct {
	db        *database.DB
	cache     *external.CacheClient
	reviews   feedback.Store
	screening *service.ScreeningService
	outcomes  *service.OutcomeService
	logger    *logrus.Logger
}

func buildApp(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*app, error) {
	a := &app{logger: logger}

	dbConfig := database.ConfigFrom(cfg.Database)
	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db

	cache, err := external.NewCacheClient(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create classifier cache: %w", err)
	}
	a.cache = cache

	reviews, err := newReviewStore(cfg, dbConfig.URL())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reviews = reviews

	classifier, err := newClassifier(cfg, cache, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var primary domain.Narrator
	if cfg.Narrative.Endpoint != "" {
		primary = external.NewHTTPNarrator(external.HTTPNarratorConfig{
			Endpoint: cfg.Narrative.Endpoint,
			APIKey:   cfg.Narrative.APIKey,
			Model:    cfg.Narrative.Model,
			Timeout:  cfg.Narrative.Timeout,
		}, logger)
	}

	sessions := repository.NewSessionRepository(db.Pool, logger)
	progress := repository.NewProgressRepository(db.Pool, logger)

	a.screening = service.NewScreeningService(
		logger,
		service.NewFusionEngine(logger, cfg.Engine.Fusion),
		classifier,
		service.NewFallbackNarrator(primary, cfg.Narrative.Timeout, logger),
		sessions,
		cfg.Server.ReportBase,
	)
	a.outcomes = service.NewOutcomeService(logger, sessions, progress, cfg.Engine.Trend)

	return a, nil
}

func newReviewStore(cfg *domain.Config, databaseURL string) (feedback.Store, error) {
	switch cfg.Review.Backend {
	case "postgres":
		url := cfg.Review.Postgres
		if url == "" {
			url = databaseURL
		}
		store, err := feedback.NewPostgresStoreFromURL(url)
		if err != nil {
			return nil, fmt.Errorf("failed to open review store: %w", err)
		}
		return store, nil
	default:
		store, err := feedback.NewSQLiteStore(filepath.Join(cfg.Review.DataDir, "reviews.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to open review store: %w", err)
		}
		return store, nil
	}
}

// newClassifier returns nil when neither a model artifact nor an endpoint is
// configured, leaving fusion on the rule-based path.
func newClassifier(cfg *domain.Config, cache *external.CacheClient, logger *logrus.Logger) (service.ProbabilitySource, error) {
	c := cfg.Classifier
	resilience := external.ResilientClassifierConfig{Timeout: c.Timeout}

	var inner domain.Classifier
	switch {
	case c.ModelPath != "":
		model, err := external.LoadLogisticModel(c.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load classifier model: %w", err)
		}
		inner = model
		resilience.Info = model.Info()
		if resilience.Info.DatasetSource == "" {
			resilience.Info.DatasetSource = c.DatasetSource
		}
	case c.Endpoint != "":
		inner = external.NewHTTPClassifier(external.HTTPClassifierConfig{
			Endpoint:  c.Endpoint,
			APIKey:    c.APIKey,
			Timeout:   c.Timeout,
			RateLimit: c.RateLimit,
		})
		resilience.Info = domain.ModelInfo{
			ModelType:     "remote",
			DatasetSource: c.DatasetSource,
		}
	default:
		logger.Info("No classifier configured, using rule-based fusion only")
		return nil, nil
	}

	return external.NewResilientClassifier(inner, cache, resilience, logger), nil
}

func (a *app) healthChecks() map[string]api.HealthCheck {
	return map[string]api.HealthCheck{
		"database": a.db.Health,
		"cache":    a.cache.Ping,
	}
}

func (a *app) Close() {
	if a.reviews != nil {
		if err := a.reviews.Close(); err != nil {
			a.logger.WithError(err).Error("Failed to close review store")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.WithError(err).Error("Failed to close cache")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
