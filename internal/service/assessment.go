// Package service orchestrates the assessment pipeline: evidence gathering,
// tier classification, narrative generation and persistence.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/onco-tier-server/internal/domain"
)

// batchConcurrency bounds the number of variants assessed in parallel.
const batchConcurrency = 4

// AssessmentService runs the full pipeline for one variant or a batch.
type AssessmentService struct {
	logger     *logrus.Logger
	fetcher    domain.EvidenceFetcher
	classifier domain.TierClassifier
	narrative  domain.NarrativeGenerator
	repo       domain.AssessmentRepository
}

// NewAssessmentService wires the pipeline. repo may be nil when persistence
// is not configured; narrative must never be nil (use the fallback generator).
func NewAssessmentService(
	logger *logrus.Logger,
	fetcher domain.EvidenceFetcher,
	classifier domain.TierClassifier,
	narrative domain.NarrativeGenerator,
	repo domain.AssessmentRepository,
) *AssessmentService {
	return &AssessmentService{
		logger:     logger,
		fetcher:    fetcher,
		classifier: classifier,
		narrative:  narrative,
		repo:       repo,
	}
}

// Assess runs the pipeline for one gene+variant pair. Persistence failure is
// logged, never surfaced: the assessment result is already complete by then.
func (s *AssessmentService) Assess(ctx context.Context, req domain.AssessmentRequest) (*domain.AssessmentResponse, error) {
	start := time.Now()

	gene := strings.ToUpper(strings.TrimSpace(req.Gene))
	variant := strings.TrimSpace(req.Variant)
	if gene == "" {
		return nil, domain.NewValidationError("gene", "gene symbol is required", req.Gene)
	}
	if variant == "" {
		return nil, domain.NewValidationError("variant", "variant notation is required", req.Variant)
	}

	s.logger.WithFields(logrus.Fields{
		"gene":       gene,
		"variant":    variant,
		"tumor_type": req.TumorType,
	}).Info("Starting assessment")

	record, err := s.fetcher.FetchEvidence(ctx, gene, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to gather evidence for %s %s: %w", gene, variant, err)
	}

	result, err := s.classifier.Classify(ctx, record, req.TumorType)
	if err != nil {
		return nil, fmt.Errorf("failed to classify %s %s: %w", gene, variant, err)
	}

	stats := s.classifier.ComputeStats(record, req.TumorType)
	aggregates := s.classifier.AggregateByDrug(record)

	narrative, err := s.narrative.Generate(ctx, result, summarizeEvidence(record, stats))
	if err != nil {
		// The fallback generator never errors; any other implementation that
		// does still must not sink the assessment.
		s.logger.WithField("error", err.Error()).Warn("Narrative generation failed")
		narrative = domain.Narrative{
			Summary:   fmt.Sprintf("Variant classified as Tier %s.", result.Tier),
			Rationale: result.Justification,
			Fallback:  true,
		}
	}

	response := &domain.AssessmentResponse{
		ID:             uuid.New().String(),
		Gene:           gene,
		Variant:        variant,
		TumorType:      req.TumorType,
		Result:         result,
		Stats:          stats,
		DrugAggregates: aggregates,
		Narrative:      narrative,
		ProcessingTime: time.Since(start),
		Timestamp:      time.Now(),
	}

	s.persist(ctx, response)

	s.logger.WithFields(logrus.Fields{
		"gene":     gene,
		"variant":  variant,
		"tier":     string(result.Tier),
		"sublevel": string(result.Sublevel),
		"duration": response.ProcessingTime.String(),
	}).Info("Assessment completed")

	return response, nil
}

// AssessBatch assesses every request concurrently. Each item is isolated: a
// failure or panic in one variant is reported on that item only, and results
// come back in request order.
func (s *AssessmentService) AssessBatch(ctx context.Context, requests []domain.AssessmentRequest) []domain.BatchItemResult {
	return s.AssessBatchWithProgress(ctx, requests, nil)
}

// AssessBatchWithProgress behaves like AssessBatch and additionally invokes
// onItem as each variant finishes. onItem may be called from multiple
// goroutines and must be safe for concurrent use.
func (s *AssessmentService) AssessBatchWithProgress(ctx context.Context, requests []domain.AssessmentRequest, onItem func(index int, item domain.BatchItemResult)) []domain.BatchItemResult {
	results := make([]domain.BatchItemResult, len(requests))
	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)
		go func(idx int, req domain.AssessmentRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			report := func(item domain.BatchItemResult) {
				results[idx] = item
				if onItem != nil {
					onItem(idx, item)
				}
			}

			defer func() {
				if r := recover(); r != nil {
					s.logger.WithFields(logrus.Fields{
						"gene":    req.Gene,
						"variant": req.Variant,
						"panic":   fmt.Sprintf("%v", r),
					}).Error("Assessment panicked")
					report(domain.BatchItemResult{
						Request: req,
						Error:   fmt.Sprintf("internal error assessing %s %s", req.Gene, req.Variant),
					})
				}
			}()

			assessment, err := s.Assess(ctx, req)
			if err != nil {
				report(domain.BatchItemResult{Request: req, Error: err.Error()})
				return
			}
			report(domain.BatchItemResult{Request: req, Assessment: assessment})
		}(i, req)
	}

	wg.Wait()
	return results
}

// GetAssessment loads a persisted assessment by ID.
func (s *AssessmentService) GetAssessment(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	if s.repo == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// ListAssessmentsByGene returns recent persisted assessments for a gene.
func (s *AssessmentService) ListAssessmentsByGene(ctx context.Context, gene string, limit int) ([]*domain.AssessmentRecord, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListByGene(ctx, strings.ToUpper(strings.TrimSpace(gene)), limit)
}

func (s *AssessmentService) persist(ctx context.Context, resp *domain.AssessmentResponse) {
	if s.repo == nil {
		return
	}
	rec := &domain.AssessmentRecord{
		ID:            resp.ID,
		Gene:          resp.Gene,
		Variant:       resp.Variant,
		TumorType:     resp.TumorType,
		Tier:          resp.Result.Tier,
		Sublevel:      resp.Result.Sublevel,
		Justification: resp.Result.Justification,
		Narrative:     resp.Narrative.Summary,
		CreatedAt:     resp.Timestamp,
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		s.logger.WithFields(logrus.Fields{
			"assessment_id": resp.ID,
			"error":         err.Error(),
		}).Warn("Failed to persist assessment")
	}
}

// summarizeEvidence renders a compact plain-text view of the record for the
// narrative model.
func summarizeEvidence(record *domain.EvidenceRecord, stats domain.EvidenceStats) string {
	builder := &strings.Builder{}
	if len(record.FDAApprovals) > 0 {
		fmt.Fprintf(builder, "FDA approvals mentioning gene: %d\n", len(record.FDAApprovals))
	}
	if record.ClinVar != nil {
		fmt.Fprintf(builder, "ClinVar: %s\n", record.ClinVar.Significance)
	}
	if len(record.CIViCEvidence) > 0 {
		fmt.Fprintf(builder, "CIViC evidence items: %d\n", len(record.CIViCEvidence))
	}
	if len(record.VICCEvidence) > 0 {
		fmt.Fprintf(builder, "VICC associations: %d\n", len(record.VICCEvidence))
	}
	if len(record.ClinicalTrials) > 0 {
		fmt.Fprintf(builder, "Registered trials: %d\n", len(record.ClinicalTrials))
	}
	if record.Literature != nil && record.Literature.Confidence > 0 {
		fmt.Fprintf(builder, "Literature extraction confidence: %.2f\n", record.Literature.Confidence)
	}
	fmt.Fprintf(builder, "Sensitivity signals: %d, resistance signals: %d, dominant: %s\n",
		stats.SensitivityCount, stats.ResistanceCount, stats.DominantSignal)
	for _, c := range stats.Conflicts {
		fmt.Fprintf(builder, "Conflicting evidence for %s (%d sensitivity vs %d resistance)\n",
			c.Drug, c.SensitivityCount, c.ResistanceCount)
	}
	return builder.String()
}
