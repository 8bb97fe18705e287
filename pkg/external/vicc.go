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

// VICCAPIClient queries the VICC meta-knowledgebase search endpoint, which
// federates CIViC, OncoKB, JAX-CKB and other interpretation sources.
type VICCAPIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewVICCClient creates a new VICC metaKB client.
func NewVICCClient(cfg domain.SourceConfig) *VICCAPIClient {
	return &VICCAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
	}
}

type viccSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				Source      string `json:"source"`
				Association struct {
					EvidenceLevel string `json:"evidence_level"`
					ResponseType  string `json:"response_type"`
					Phenotype     struct {
						Description string `json:"description"`
					} `json:"phenotype"`
					EnvironmentalContexts []struct {
						Description string `json:"description"`
					} `json:"environmentalContexts"`
					EvidenceType string `json:"evidence_type"`
				} `json:"association"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FetchAssociations returns metaKB associations for the gene+variant pair
// with the sensitivity/resistance direction precomputed from response_type.
func (v *VICCAPIClient) FetchAssociations(ctx context.Context, gene, variant string) ([]domain.VICCEvidence, error) {
	return v.query(ctx, gene, fmt.Sprintf("%s %s", strings.ToUpper(gene), variant), variant)
}

// FetchGeneAssociations returns metaKB associations at gene scope.
func (v *VICCAPIClient) FetchGeneAssociations(ctx context.Context, gene string) ([]domain.VICCEvidence, error) {
	return v.query(ctx, gene, strings.ToUpper(gene), "")
}

func (v *VICCAPIClient) query(ctx context.Context, gene, term, variant string) ([]domain.VICCEvidence, error) {
	params := url.Values{
		"q":    {term},
		"size": {"100"},
	}
	fullURL := fmt.Sprintf("%s/associations?%s", v.baseURL, params.Encode())

	var resp viccSearchResponse
	if err := getJSON(ctx, v.httpClient, v.limiter, fullURL, &resp); err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("VICC association query failed: %w", err)
	}

	evidence := make([]domain.VICCEvidence, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		assoc := hit.Source.Association
		direction := strings.ToLower(assoc.ResponseType)
		var drugs []string
		for _, ec := range assoc.EnvironmentalContexts {
			if name := strings.ToLower(strings.TrimSpace(ec.Description)); name != "" {
				drugs = append(drugs, name)
			}
		}
		evidence = append(evidence, domain.VICCEvidence{
			ID:            hit.ID,
			Gene:          strings.ToUpper(gene),
			Variant:       variant,
			Disease:       assoc.Phenotype.Description,
			Drugs:         drugs,
			Level:         domain.ParseEvidenceLevel(assoc.EvidenceLevel),
			Type:          parseEvidenceType(assoc.EvidenceType),
			Direction:     assoc.ResponseType,
			IsSensitivity: strings.Contains(direction, "sensitiv") || strings.Contains(direction, "responsive"),
			IsResistance:  strings.Contains(direction, "resistan"),
			Source:        hit.Source.Source,
		})
	}
	return evidence, nil
}
