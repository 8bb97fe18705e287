// Package main provides the entry point for the onco-tier HTTP server: the
// full deployment with PostgreSQL persistence and optional Redis caching.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/onco-tier-server/internal/api"
	"github.com/onco-tier-server/internal/config"
	"github.com/onco-tier-server/internal/database"
	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/internal/geneconfig"
	"github.com/onco-tier-server/internal/repository"
	"github.com/onco-tier-server/internal/service"
	"github.com/onco-tier-server/internal/tiering"
	"github.com/onco-tier-server/pkg/external"
	"github.com/onco-tier-server/pkg/narrative"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Connect to PostgreSQL and run migrations
	db, err := database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	runner, err := database.NewMigrationRunner(database.URL(cfg.Database), "migrations", logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration runner")
	}
	if err := runner.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	runner.Close()

	// Evidence cache: Redis when configured, in-process LRU otherwise
	var cache external.EvidenceCache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := external.NewRedisCache(cfg.Cache)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		cache = redisCache
	} else {
		logger.Info("No Redis URL configured, using in-process evidence cache")
		cache = external.NewMemoryCache(cfg.Cache)
	}

	// Narrative generation is optional; without an API key the server still
	// classifies and phrases results from templates.
	narrativeClient, err := narrative.NewClient(cfg.Narrative)
	if err != nil && !errors.Is(err, narrative.ErrDisabled) {
		logger.WithError(err).Fatal("Failed to create narrative client")
	}
	if narrativeClient == nil {
		logger.Info("Narrative generation disabled, using template narratives")
	}

	evidence := buildEvidenceService(cfg.ExternalAPI, cache, narrativeClient, logger)
	defer evidence.Close()

	registry, err := external.NewGeneRegistry(cfg.ExternalAPI.OncoKB, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create gene registry")
	}

	geneCfg, err := loadGeneConfig(cfg.GeneConfig.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load gene configuration")
	}

	engine := tiering.NewEngine(logger, geneCfg, registry)

	var generator domain.NarrativeGenerator
	if narrativeClient != nil {
		generator = narrative.WithFallback(narrativeClient, logger)
	} else {
		generator = narrative.WithFallback(nil, logger)
	}

	repo := repository.NewAssessmentRepository(db.Pool, logger)
	assessments := service.NewAssessmentService(logger, evidence, engine, generator, repo)

	// Start the HTTP server
	server := api.NewServer(cfg.Server, cfg.Logging.Level, assessments, evidence, logger)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting onco-tier server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the application logger from configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}

	return logger
}

// loadGeneConfig loads the curated gene rule tables, falling back to the
// built-in defaults when no path is configured.
func loadGeneConfig(path string, logger *logrus.Logger) (*geneconfig.Config, error) {
	if path == "" {
		logger.Info("Using built-in gene configuration")
		return geneconfig.Default(), nil
	}
	return geneconfig.Load(path)
}

// buildEvidenceService wires the evidence source clients behind the
// resilience layer.
func buildEvidenceService(cfg domain.ExternalAPIConfig, cache external.EvidenceCache, extractor *narrative.Client, logger *logrus.Logger) *external.ResilientEvidenceService {
	var knowledge external.KnowledgeExtractor
	if extractor != nil {
		knowledge = narrative.NewExtractor(extractor)
	}

	return external.NewResilientEvidenceService(
		external.NewOpenFDAClient(cfg.OpenFDA),
		external.NewCIViCClient(cfg.CIViC),
		external.NewClinVarClient(cfg.ClinVar),
		external.NewCOSMICClient(cfg.COSMIC),
		external.NewCGIClient(cfg.CGI),
		external.NewVICCClient(cfg.VICC),
		external.NewTrialsClient(cfg.ClinicalTrials),
		external.NewLiteratureService(external.NewPubMedClient(cfg.PubMed), knowledge, logger),
		cache,
		logger,
	)
}
