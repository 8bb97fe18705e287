// Package mcp provides the MCP server implementation.
// This file contains the lightweight stdio server that requires no external
// databases: evidence is cached in memory and history persisted to SQLite.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	litecfg "github.com/onco-tier-server/internal/config"
	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/internal/geneconfig"
	"github.com/onco-tier-server/internal/history"
	"github.com/onco-tier-server/internal/service"
	"github.com/onco-tier-server/internal/tiering"
	"github.com/onco-tier-server/pkg/external"
	"github.com/onco-tier-server/pkg/narrative"
)

// Server is the lightweight MCP server. It assembles the full assessment
// pipeline against the public evidence APIs with in-memory caching only.
type Server struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	service   *service.AssessmentService
	evidence  *external.ResilientEvidenceService
	engine    *tiering.Engine
	history   history.Store
	cache     *external.MemoryCache
	logger    *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithHistoryStore sets a custom history store.
func WithHistoryStore(store history.Store) ServerOption {
	return func(s *Server) error {
		s.history = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer creates a new MCP server instance. It requires no external
// databases: assessments are persisted to SQLite under the data directory.
func NewServer(cfg *litecfg.LiteConfig, opts ...ServerOption) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logrus.New(),
	}

	// Configure default logger
	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	server.logger.SetLevel(level)

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Initialize history store if not provided
	if server.history == nil {
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.history = store
	}

	server.cache = external.NewMemoryCache(domain.CacheConfig{
		MaxItems:   cfg.CacheMaxItems,
		DefaultTTL: cfg.CacheTTL,
	})

	// Narrative generation and literature extraction are optional; without an
	// OpenAI key classification still runs with template narratives.
	narrativeClient, err := narrative.NewClient(domain.NarrativeConfig{
		APIKey: cfg.OpenAIAPIKey,
	})
	if err != nil && !errors.Is(err, narrative.ErrDisabled) {
		return nil, fmt.Errorf("failed to create narrative client: %w", err)
	}

	server.evidence = buildEvidenceService(cfg, server.cache, narrativeClient, server.logger)

	registry, err := external.NewGeneRegistry(domain.SourceConfig{
		BaseURL:   "https://www.oncokb.org/api/v1",
		APIKey:    cfg.OncoKBAPIKey,
		Timeout:   30 * time.Second,
		RateLimit: 5,
	}, server.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gene registry: %w", err)
	}

	server.engine = tiering.NewEngine(server.logger, geneconfig.Default(), registry)

	var generator domain.NarrativeGenerator
	if narrativeClient != nil {
		generator = narrative.WithFallback(narrativeClient, server.logger)
	} else {
		generator = narrative.WithFallback(nil, server.logger)
	}

	server.service = service.NewAssessmentService(server.logger, server.evidence, server.engine, generator, nil)

	// Create MCP server
	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "onco-tier-server",
		Version: "v0.1.0",
	}, nil)

	server.registerTools()

	server.logger.Info("MCP server initialized successfully")
	return server, nil
}

// buildEvidenceService wires the public evidence source clients behind the
// resilience layer.
func buildEvidenceService(cfg *litecfg.LiteConfig, cache external.EvidenceCache, extractor *narrative.Client, logger *logrus.Logger) *external.ResilientEvidenceService {
	pubmed := external.NewPubMedClient(domain.SourceConfig{
		BaseURL:   "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
		APIKey:    cfg.ClinVarAPIKey, // PubMed uses the same NCBI API key
		RateLimit: 3,
		Timeout:   30 * time.Second,
	})

	var knowledge external.KnowledgeExtractor
	if extractor != nil {
		knowledge = narrative.NewExtractor(extractor)
	}

	return external.NewResilientEvidenceService(
		external.NewOpenFDAClient(domain.SourceConfig{
			BaseURL:   "https://api.fda.gov",
			RateLimit: 4,
			Timeout:   30 * time.Second,
		}),
		external.NewCIViCClient(domain.SourceConfig{
			BaseURL:   "https://civicdb.org/api",
			RateLimit: 10,
			Timeout:   30 * time.Second,
		}),
		external.NewClinVarClient(domain.SourceConfig{
			BaseURL:   "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			APIKey:    cfg.ClinVarAPIKey,
			RateLimit: 3,
			Timeout:   30 * time.Second,
		}),
		external.NewCOSMICClient(domain.SourceConfig{
			BaseURL:   "https://cancer.sanger.ac.uk/cosmic/api",
			APIKey:    cfg.COSMICAPIKey,
			RateLimit: 5,
			Timeout:   30 * time.Second,
		}),
		external.NewCGIClient(domain.SourceConfig{
			BaseURL:   "https://www.cancergenomeinterpreter.org/api/v1",
			RateLimit: 5,
			Timeout:   30 * time.Second,
		}),
		external.NewVICCClient(domain.SourceConfig{
			BaseURL:   "https://search.cancervariants.org/api/v1",
			RateLimit: 10,
			Timeout:   30 * time.Second,
		}),
		external.NewTrialsClient(domain.SourceConfig{
			BaseURL:   "https://clinicaltrials.gov/api/v2",
			RateLimit: 10,
			Timeout:   30 * time.Second,
		}),
		external.NewLiteratureService(pubmed, knowledge, logger),
		cache,
		logger,
	)
}

// registerTools registers all tools with the MCP SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "classify_variant",
		Description: "Classify a somatic variant into AMP/ASCO/CAP tiers (I-IV) using aggregated evidence from openFDA, CIViC, ClinVar, COSMIC, CGI, VICC, ClinicalTrials.gov and PubMed. Returns the tier, sublevel, justification and a narrative.",
	}, s.handleClassifyVariant)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "evidence_summary",
		Description: "Gather raw evidence for a variant and summarize it: counts per source, clinical significance, dominant drug signal and conflicts.",
	}, s.handleEvidenceSummary)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "drug_aggregate",
		Description: "Aggregate evidence by drug for a variant: per-drug sensitive/resistant counts, best evidence level and net signal.",
	}, s.handleDrugAggregate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "assessment_history",
		Description: "List previously classified variants from the local history, newest first.",
	}, s.handleHistory)

	s.logger.WithField("tool_count", 4).Info("Registered MCP tools")
}

// Start runs the MCP server over stdio until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting onco-tier MCP server...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
		}
	}
	if s.evidence != nil {
		if err := s.evidence.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close evidence service")
		}
	}
	return nil
}

// HistoryStore returns the history store for external access.
func (s *Server) HistoryStore() history.Store {
	return s.history
}
