package external

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/onco-tier-server/internal/domain"
)

// CGIAPIClient queries the Cancer Genome Interpreter biomarkers endpoint.
type CGIAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCGIClient creates a new CGI API client.
func NewCGIClient(cfg domain.SourceConfig) *CGIAPIClient {
	return &CGIAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
	}
}

type cgiBiomarkerResponse struct {
	Biomarkers []struct {
		Gene          string `json:"gene"`
		Alteration    string `json:"alteration"`
		Drugs         string `json:"drug"`
		Association   string `json:"association"`
		TumorType     string `json:"tumor_type"`
		EvidenceLevel string `json:"evidence_level"`
		FDAApproved   bool   `json:"fda_approved"`
	} `json:"biomarkers"`
}

// FetchBiomarkers returns biomarkers matching the exact variant.
func (c *CGIAPIClient) FetchBiomarkers(ctx context.Context, gene, variant string) ([]domain.CGIBiomarker, error) {
	all, err := c.FetchGeneBiomarkers(ctx, gene)
	if err != nil {
		return nil, err
	}
	var matched []domain.CGIBiomarker
	for _, bm := range all {
		if strings.EqualFold(bm.Variant, variant) || strings.Contains(strings.ToUpper(bm.Variant), strings.ToUpper(variant)) {
			matched = append(matched, bm)
		}
	}
	return matched, nil
}

// FetchGeneBiomarkers returns every biomarker recorded for a gene.
func (c *CGIAPIClient) FetchGeneBiomarkers(ctx context.Context, gene string) ([]domain.CGIBiomarker, error) {
	params := url.Values{"gene": {strings.ToUpper(gene)}}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	fullURL := fmt.Sprintf("%s/biomarkers?%s", c.baseURL, params.Encode())

	var resp cgiBiomarkerResponse
	if err := getJSON(ctx, c.httpClient, c.limiter, fullURL, &resp); err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("CGI biomarker query failed: %w", err)
	}

	biomarkers := make([]domain.CGIBiomarker, 0, len(resp.Biomarkers))
	for _, bm := range resp.Biomarkers {
		biomarkers = append(biomarkers, domain.CGIBiomarker{
			Gene:        strings.ToUpper(bm.Gene),
			Variant:     bm.Alteration,
			Drugs:       splitDrugList(bm.Drugs),
			Association: bm.Association,
			TumorType:   bm.TumorType,
			FDAApproved: bm.FDAApproved || strings.Contains(strings.ToLower(bm.EvidenceLevel), "fda"),
			Level:       parseCGILevel(bm.EvidenceLevel),
		})
	}
	return biomarkers, nil
}

// splitDrugList handles CGI's semicolon or plus separated drug fields.
func splitDrugList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '+' || r == ','
	})
	drugs := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			drugs = append(drugs, f)
		}
	}
	return drugs
}

func parseCGILevel(level string) domain.EvidenceLevel {
	l := strings.ToLower(level)
	switch {
	case strings.Contains(l, "fda") || strings.Contains(l, "guideline"):
		return domain.LevelA
	case strings.Contains(l, "clinical trial") || strings.Contains(l, "late trial"):
		return domain.LevelB
	case strings.Contains(l, "early trial") || strings.Contains(l, "case report"):
		return domain.LevelC
	case strings.Contains(l, "pre-clinical") || strings.Contains(l, "preclinical"):
		return domain.LevelD
	default:
		return domain.ParseEvidenceLevel(level)
	}
}
