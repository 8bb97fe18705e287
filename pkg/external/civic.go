package external

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/onco-tier-server/internal/domain"
)

// CIViCAPIClient queries the CIViC REST API for evidence items and curated
// assertions.
type CIViCAPIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCIViCClient creates a new CIViC API client.
func NewCIViCClient(cfg domain.SourceConfig) *CIViCAPIClient {
	return &CIViCAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
	}
}

type civicEvidenceResponse struct {
	Records []civicEvidenceItem `json:"records"`
}

type civicEvidenceItem struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	EvidenceLevel string `json:"evidence_level"`
	EvidenceType  string `json:"evidence_type"`
	Significance  string `json:"significance"`
	Rating        int    `json:"rating"`
	Disease       struct {
		Name string `json:"name"`
	} `json:"disease"`
	Therapies []struct {
		Name string `json:"name"`
	} `json:"therapies"`
	Variant struct {
		Name string `json:"name"`
	} `json:"variant"`
}

type civicAssertionResponse struct {
	Records []struct {
		ID            int    `json:"id"`
		AMPLevel      string `json:"amp_level"`
		AssertionType string `json:"assertion_type"`
		Significance  string `json:"significance"`
		NCCNGuideline struct {
			Name string `json:"name"`
		} `json:"nccn_guideline"`
		FDACompanionTest bool `json:"fda_companion_test"`
		Disease          struct {
			Name string `json:"name"`
		} `json:"disease"`
		Therapies []struct {
			Name string `json:"name"`
		} `json:"therapies"`
		Variant struct {
			Name string `json:"name"`
		} `json:"variant"`
	} `json:"records"`
}

// FetchEvidence returns evidence items for the exact gene+variant pair.
func (c *CIViCAPIClient) FetchEvidence(ctx context.Context, gene, variant string) ([]domain.CIViCEvidence, error) {
	items, err := c.fetchEvidenceItems(ctx, gene)
	if err != nil {
		return nil, err
	}
	var matched []domain.CIViCEvidence
	for _, item := range items {
		if strings.EqualFold(item.Variant, variant) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// FetchGeneEvidence returns all evidence items for a gene, any variant. Used
// for the gene-level therapeutic aggregation.
func (c *CIViCAPIClient) FetchGeneEvidence(ctx context.Context, gene string) ([]domain.CIViCEvidence, error) {
	return c.fetchEvidenceItems(ctx, gene)
}

func (c *CIViCAPIClient) fetchEvidenceItems(ctx context.Context, gene string) ([]domain.CIViCEvidence, error) {
	params := url.Values{
		"gene":  {strings.ToUpper(gene)},
		"count": {"100"},
	}
	fullURL := fmt.Sprintf("%s/evidence_items?%s", c.baseURL, params.Encode())

	var resp civicEvidenceResponse
	if err := getJSON(ctx, c.httpClient, c.limiter, fullURL, &resp); err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("CIViC evidence query failed: %w", err)
	}

	evidence := make([]domain.CIViCEvidence, 0, len(resp.Records))
	for _, rec := range resp.Records {
		evidence = append(evidence, domain.CIViCEvidence{
			ID:           strconv.Itoa(rec.ID),
			Gene:         strings.ToUpper(gene),
			Variant:      rec.Variant.Name,
			Disease:      rec.Disease.Name,
			Drugs:        therapyNames(rec.Therapies),
			Level:        domain.ParseEvidenceLevel(rec.EvidenceLevel),
			Type:         parseEvidenceType(rec.EvidenceType),
			Significance: rec.Significance,
			Description:  rec.Description,
			Rating:       rec.Rating,
		})
	}
	return evidence, nil
}

// FetchAssertions returns curated assertions for the gene+variant pair.
func (c *CIViCAPIClient) FetchAssertions(ctx context.Context, gene, variant string) ([]domain.CIViCAssertion, error) {
	params := url.Values{
		"gene":  {strings.ToUpper(gene)},
		"count": {"50"},
	}
	fullURL := fmt.Sprintf("%s/assertions?%s", c.baseURL, params.Encode())

	var resp civicAssertionResponse
	if err := getJSON(ctx, c.httpClient, c.limiter, fullURL, &resp); err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("CIViC assertion query failed: %w", err)
	}

	var assertions []domain.CIViCAssertion
	for _, rec := range resp.Records {
		if !strings.EqualFold(rec.Variant.Name, variant) {
			continue
		}
		assertions = append(assertions, domain.CIViCAssertion{
			ID:            strconv.Itoa(rec.ID),
			Gene:          strings.ToUpper(gene),
			Variant:       rec.Variant.Name,
			Disease:       rec.Disease.Name,
			Drugs:         therapyNames(rec.Therapies),
			AMPTier:       rec.AssertionType,
			AMPLevel:      rec.AMPLevel,
			NCCNGuideline: rec.NCCNGuideline.Name,
			FDACompanion:  rec.FDACompanionTest,
			Significance:  rec.Significance,
			Type:          domain.Predictive,
			Level:         domain.ParseEvidenceLevel(rec.AMPLevel),
		})
	}
	return assertions, nil
}

func therapyNames(therapies []struct {
	Name string `json:"name"`
}) []string {
	names := make([]string, 0, len(therapies))
	for _, t := range therapies {
		if t.Name != "" {
			names = append(names, strings.ToLower(t.Name))
		}
	}
	return names
}

func parseEvidenceType(s string) domain.EvidenceType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PREDICTIVE":
		return domain.Predictive
	case "PROGNOSTIC":
		return domain.Prognostic
	case "DIAGNOSTIC":
		return domain.Diagnostic
	default:
		return domain.EvidenceType(strings.ToUpper(s))
	}
}
