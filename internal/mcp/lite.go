package mcp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tarang-screening-server/internal/config"
	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/feedback"
	"github.com/tarang-screening-server/internal/repository"
	"github.com/tarang-screening-server/internal/service"
	"github.com/tarang-screening-server/pkg/external"
)

// LiteServer is a standalone MCP server backed by SQLite files in the data
// directory. It needs no Postgres or Redis.
type LiteServer struct {
	config      *config.LiteConfig
	server      *Server
	store       *repository.SQLiteStore
	reviewStore feedback.Store
	cache       *external.CacheClient
	logger      *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithReviewStore sets a custom review store.
func WithReviewStore(store feedback.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.reviewStore = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer opens the local stores and registers every tool.
func NewLiteServer(cfg *config.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logrus.New(),
	}

	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		server.logger.SetLevel(level)
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := repository.NewSQLiteStore(cfg.ScreeningDBPath(), server.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open screening store: %w", err)
	}
	server.store = store

	if server.reviewStore == nil {
		reviews, err := feedback.NewSQLiteStore(cfg.ReviewDBPath())
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create review store: %w", err)
		}
		server.reviewStore = reviews
	}

	var classifier service.ProbabilitySource
	if cfg.ModelPath != "" {
		rc, err := server.loadClassifier()
		if err != nil {
			server.Close()
			return nil, err
		}
		classifier = rc
	}

	fusionParams := domain.DefaultFusionParams()
	trendParams := domain.DefaultTrendParams()

	screening := service.NewScreeningService(
		server.logger,
		service.NewFusionEngine(server.logger, fusionParams),
		classifier,
		service.NewFallbackNarrator(nil, 0, server.logger),
		store,
		cfg.ReportBase,
	)
	outcomes := service.NewOutcomeService(server.logger, store, store, trendParams)

	server.server = NewServer(ServerInfo{Name: "tarang-screening-lite", Version: "v1.0.0"}, Services{
		Screening: screening,
		Outcomes:  outcomes,
		Reviews:   server.reviewStore,
		ExportDir: cfg.ExportDir(),
	}, server.logger)

	server.logger.WithFields(logrus.Fields{
		"data_dir":   cfg.DataDir,
		"classifier": cfg.ModelPath != "",
	}).Info("Lite server initialized")
	return server, nil
}

func (s *LiteServer) loadClassifier() (*external.ResilientClassifier, error) {
	model, err := external.LoadLogisticModel(s.config.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifier model: %w", err)
	}

	cache, err := external.NewCacheClient(domain.CacheConfig{LocalSize: s.config.CacheMaxItems})
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier cache: %w", err)
	}
	s.cache = cache

	return external.NewResilientClassifier(model, cache, external.ResilientClassifierConfig{
		Timeout: s.config.ClassifierTimeout,
		Info:    model.Info(),
	}, s.logger), nil
}

// Server returns the tool server, for in-process transports.
func (s *LiteServer) Server() *Server {
	return s.server
}

// Start serves over stdio.
func (s *LiteServer) Start(ctx context.Context) error {
	return s.server.Start(ctx)
}

// Close releases the stores and the cache.
func (s *LiteServer) Close() error {
	if s.reviewStore != nil {
		if err := s.reviewStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close review store")
		}
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
