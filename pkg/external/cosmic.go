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

// COSMICAPIClient queries the COSMIC mutation search endpoint. COSMIC access
// requires a licensed API key; without one the client returns empty results
// so classification degrades instead of failing.
type COSMICAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCOSMICClient creates a new COSMIC API client.
func NewCOSMICClient(cfg domain.SourceConfig) *COSMICAPIClient {
	return &COSMICAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
	}
}

type cosmicSearchResponse struct {
	Mutations []struct {
		MutationID   string   `json:"mutation_id"`
		GeneName     string   `json:"gene_name"`
		AAMutation   string   `json:"aa_mutation"`
		Histologies  []string `json:"histologies"`
		SampleCount  int      `json:"sample_count"`
		FATHMMScore  string   `json:"fathmm_prediction"`
	} `json:"mutations"`
}

// FetchMutations returns COSMIC records for the gene+variant pair.
func (c *COSMICAPIClient) FetchMutations(ctx context.Context, gene, variant string) ([]domain.COSMICEvidence, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	params := url.Values{
		"gene":    {strings.ToUpper(gene)},
		"mut":     {variant},
		"api_key": {c.apiKey},
	}
	fullURL := fmt.Sprintf("%s/search/mutations?%s", c.baseURL, params.Encode())

	var resp cosmicSearchResponse
	if err := getJSON(ctx, c.httpClient, c.limiter, fullURL, &resp); err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("COSMIC mutation query failed: %w", err)
	}

	mutations := make([]domain.COSMICEvidence, 0, len(resp.Mutations))
	for _, m := range resp.Mutations {
		mutations = append(mutations, domain.COSMICEvidence{
			MutationID:   m.MutationID,
			Gene:         strings.ToUpper(gene),
			Variant:      m.AAMutation,
			TumorTypes:   m.Histologies,
			SampleCount:  m.SampleCount,
			Significance: m.FATHMMScore,
		})
	}
	return mutations, nil
}
