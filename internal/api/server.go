package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/onco-tier-server/internal/domain"
)

const maxBatchSize = 100

// AssessmentService is the slice of the assessment pipeline the HTTP layer uses.
type AssessmentService interface {
	Assess(ctx context.Context, req domain.AssessmentRequest) (*domain.AssessmentResponse, error)
	AssessBatchWithProgress(ctx context.Context, requests []domain.AssessmentRequest, onItem func(index int, item domain.BatchItemResult)) []domain.BatchItemResult
	GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error)
	ListAssessmentsByGene(ctx context.Context, gene string, limit int) ([]*domain.AssessmentRecord, error)
}

// HealthReporter exposes upstream circuit state for the health endpoint.
type HealthReporter interface {
	BreakerStates() map[string]string
}

// Server represents the HTTP server
type Server struct {
	cfg      domain.ServerConfig
	service  AssessmentService
	health   HealthReporter
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
	notifier *BatchNotifier
}

// NewServer creates a new HTTP server instance
func NewServer(cfg domain.ServerConfig, logLevel string, service AssessmentService, health HealthReporter, logger *logrus.Logger) *Server {
	// Set Gin mode based on environment
	if logLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware())
	router.Use(securityHeaders())
	router.Use(requestLogger(logger))

	server := &Server{
		cfg:      cfg,
		service:  service,
		health:   health,
		logger:   logger,
		router:   router,
		notifier: NewBatchNotifier(),
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the gin engine, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server started")

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/assess", s.handleAssess)
		v1.POST("/assess/batch", s.handleAssessBatch)
		v1.GET("/assess/stream", s.handleBatchStream)
		v1.GET("/assessments", s.handleListAssessments)
		v1.GET("/assessments/:id", s.handleGetAssessment)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	payload := gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	}
	if s.health != nil {
		payload["sources"] = s.health.BreakerStates()
	}
	c.JSON(http.StatusOK, payload)
}

// handleAssess classifies a single variant.
func (s *Server) handleAssess(c *gin.Context) {
	var req domain.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	resp, err := s.service.Assess(c.Request.Context(), req)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		s.renderError(c, http.StatusBadGateway, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type batchRequest struct {
	Requests []domain.AssessmentRequest `json:"requests" binding:"required"`
}

// handleAssessBatch classifies up to maxBatchSize variants concurrently,
// broadcasting per-item progress to any connected websocket clients.
func (s *Server) handleAssessBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Requests) == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("requests must not be empty"))
		return
	}
	if len(req.Requests) > maxBatchSize {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("batch size %d exceeds maximum of %d", len(req.Requests), maxBatchSize))
		return
	}

	batchID := uuid.New().String()
	total := len(req.Requests)

	s.notifier.Broadcast(BatchEvent{
		Type:    "started",
		BatchID: batchID,
		Total:   total,
	})

	var processed int64
	results := s.service.AssessBatchWithProgress(c.Request.Context(), req.Requests, func(index int, item domain.BatchItemResult) {
		s.notifier.Broadcast(BatchEvent{
			Type:    "item",
			BatchID: batchID,
			Total:   total,
			Item:    &item,
		})
		s.notifier.Broadcast(BatchEvent{
			Type:      "progress",
			BatchID:   batchID,
			Total:     total,
			Processed: int(atomic.AddInt64(&processed, 1)),
		})
	})

	s.notifier.Broadcast(BatchEvent{
		Type:      "completed",
		BatchID:   batchID,
		Total:     total,
		Processed: total,
	})

	c.JSON(http.StatusOK, gin.H{
		"batch_id": batchID,
		"total":    total,
		"results":  results,
	})
}

// handleBatchStream upgrades the connection and streams batch progress events.
func (s *Server) handleBatchStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	s.logger.WithField("remote", conn.RemoteAddr().String()).Info("Batch websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.WithError(err).Warn("Batch websocket unexpected close")
			}
			break
		}
	}
}

// handleGetAssessment retrieves a persisted assessment by ID.
func (s *Server) handleGetAssessment(c *gin.Context) {
	id := c.Param("id")

	record, err := s.service.GetAssessment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("assessment %s not found", id))
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleListAssessments lists persisted assessments for a gene.
func (s *Server) handleListAssessments(c *gin.Context) {
	gene := c.Query("gene")
	if gene == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("gene query parameter is required"))
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	records, err := s.service.ListAssessmentsByGene(c.Request.Context(), gene, limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gene":        gene,
		"count":       len(records),
		"assessments": records,
	})
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
