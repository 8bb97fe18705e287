package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/internal/history"
)

// ClassifyVariantParams defines parameters for the classify_variant tool
type ClassifyVariantParams struct {
	Gene      string `json:"gene"`
	Variant   string `json:"variant"`
	TumorType string `json:"tumor_type,omitempty"`
}

// EvidenceSummaryParams defines parameters for the evidence_summary tool
type EvidenceSummaryParams struct {
	Gene      string `json:"gene"`
	Variant   string `json:"variant"`
	TumorType string `json:"tumor_type,omitempty"`
}

// EvidenceSummaryResult defines the result structure for the evidence_summary tool
type EvidenceSummaryResult struct {
	Gene         string               `json:"gene"`
	Variant      string               `json:"variant"`
	TumorType    string               `json:"tumor_type,omitempty"`
	SourceCounts map[string]int       `json:"source_counts"`
	Stats        domain.EvidenceStats `json:"stats"`
	Gathered     string               `json:"gathered_at"`
}

// DrugAggregateParams defines parameters for the drug_aggregate tool
type DrugAggregateParams struct {
	Gene    string `json:"gene"`
	Variant string `json:"variant"`
}

// DrugAggregateResult defines the result structure for the drug_aggregate tool
type DrugAggregateResult struct {
	Gene    string                 `json:"gene"`
	Variant string                 `json:"variant"`
	Drugs   []domain.DrugAggregate `json:"drugs"`
}

// HistoryParams defines parameters for the assessment_history tool
type HistoryParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// HistoryResult defines the result structure for the assessment_history tool
type HistoryResult struct {
	Total   int64            `json:"total"`
	Entries []*history.Entry `json:"entries"`
}

// handleClassifyVariant handles the classify_variant tool invocation
func (s *Server) handleClassifyVariant(ctx context.Context, req *mcp.CallToolRequest, params ClassifyVariantParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "classify_variant").Info("Tool invoked")

	if params.Gene == "" || params.Variant == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("gene and variant are required")), nil, nil
	}

	assessment, err := s.service.Assess(ctx, domain.AssessmentRequest{
		Gene:      params.Gene,
		Variant:   params.Variant,
		TumorType: params.TumorType,
	})
	if err != nil {
		return s.createErrorResult("Classification failed", err), nil, nil
	}

	s.recordHistory(ctx, assessment)

	text := fmt.Sprintf("%s %s classified as Tier %s", assessment.Gene, assessment.Variant, assessment.Result.Tier)
	if assessment.Result.Sublevel != "" {
		text += fmt.Sprintf(" (%s)", assessment.Result.Sublevel)
	}
	text += ". " + assessment.Narrative.Summary

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, assessment, nil
}

// handleEvidenceSummary handles the evidence_summary tool invocation
func (s *Server) handleEvidenceSummary(ctx context.Context, req *mcp.CallToolRequest, params EvidenceSummaryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "evidence_summary").Info("Tool invoked")

	if params.Gene == "" || params.Variant == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("gene and variant are required")), nil, nil
	}

	gene := strings.ToUpper(strings.TrimSpace(params.Gene))
	record, err := s.evidence.FetchEvidence(ctx, gene, strings.TrimSpace(params.Variant))
	if err != nil {
		return s.createErrorResult("Evidence gathering failed", err), nil, nil
	}

	stats := s.engine.ComputeStats(record, params.TumorType)
	counts := map[string]int{
		"fda_approvals":    len(record.FDAApprovals),
		"civic_evidence":   len(record.CIViCEvidence),
		"civic_assertions": len(record.CIViCAssertions),
		"cosmic":           len(record.COSMIC),
		"cgi_biomarkers":   len(record.CGIBiomarkers),
		"vicc_evidence":    len(record.VICCEvidence),
		"clinical_trials":  len(record.ClinicalTrials),
	}
	if record.ClinVar != nil {
		counts["clinvar"] = 1
	}
	if record.Literature != nil {
		counts["literature"] = 1
	}

	result := EvidenceSummaryResult{
		Gene:         record.Gene,
		Variant:      record.Variant,
		TumorType:    params.TumorType,
		SourceCounts: counts,
		Stats:        stats,
		Gathered:     record.GatheredAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Evidence for %s %s: %d CIViC items, %d FDA approvals, %d trials, dominant signal %s",
					record.Gene, record.Variant, counts["civic_evidence"], counts["fda_approvals"], counts["clinical_trials"], stats.DominantSignal),
			},
		},
	}, result, nil
}

// handleDrugAggregate handles the drug_aggregate tool invocation
func (s *Server) handleDrugAggregate(ctx context.Context, req *mcp.CallToolRequest, params DrugAggregateParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "drug_aggregate").Info("Tool invoked")

	if params.Gene == "" || params.Variant == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("gene and variant are required")), nil, nil
	}

	gene := strings.ToUpper(strings.TrimSpace(params.Gene))
	record, err := s.evidence.FetchEvidence(ctx, gene, strings.TrimSpace(params.Variant))
	if err != nil {
		return s.createErrorResult("Evidence gathering failed", err), nil, nil
	}

	aggregates := s.engine.AggregateByDrug(record)
	result := DrugAggregateResult{
		Gene:    record.Gene,
		Variant: record.Variant,
		Drugs:   aggregates,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("%d drugs with evidence for %s %s", len(aggregates), record.Gene, record.Variant),
			},
		},
	}, result, nil
}

// handleHistory handles the assessment_history tool invocation
func (s *Server) handleHistory(ctx context.Context, req *mcp.CallToolRequest, params HistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "assessment_history").Info("Tool invoked")

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, err := s.history.List(ctx, limit, params.Offset)
	if err != nil {
		return s.createErrorResult("History lookup failed", err), nil, nil
	}

	total, err := s.history.Count(ctx)
	if err != nil {
		return s.createErrorResult("History lookup failed", err), nil, nil
	}

	result := HistoryResult{Total: total, Entries: entries}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("%d of %d assessments", len(entries), total),
			},
		},
	}, result, nil
}

// recordHistory persists a completed assessment; failures are logged only.
func (s *Server) recordHistory(ctx context.Context, assessment *domain.AssessmentResponse) {
	if s.history == nil {
		return
	}
	entry := &history.Entry{
		Gene:          assessment.Gene,
		Variant:       assessment.Variant,
		TumorType:     assessment.TumorType,
		Tier:          assessment.Result.Tier,
		Sublevel:      assessment.Result.Sublevel,
		Justification: assessment.Result.Justification,
		Narrative:     assessment.Narrative.Summary,
	}
	if err := s.history.Save(ctx, entry); err != nil {
		s.logger.WithError(err).Warn("Failed to record assessment history")
	}
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
