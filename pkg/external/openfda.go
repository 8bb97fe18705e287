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

// OpenFDAClient queries the openFDA drug label endpoint for approvals that
// mention a gene in their indications text.
type OpenFDAClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOpenFDAClient creates a new openFDA API client.
func NewOpenFDAClient(cfg domain.SourceConfig) *OpenFDAClient {
	return &OpenFDAClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
	}
}

type openFDALabelResponse struct {
	Results []struct {
		IndicationsAndUsage []string `json:"indications_and_usage"`
		OpenFDA             struct {
			BrandName   []string `json:"brand_name"`
			GenericName []string `json:"generic_name"`
		} `json:"openfda"`
	} `json:"results"`
}

// FetchApprovals searches drug labels whose indications mention the gene and
// converts each into an FDAApproval with the raw indication text preserved
// for downstream pattern matching.
func (c *OpenFDAClient) FetchApprovals(ctx context.Context, gene string) ([]domain.FDAApproval, error) {
	params := url.Values{
		"search": {fmt.Sprintf(`indications_and_usage:"%s"`, gene)},
		"limit":  {"25"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	fullURL := fmt.Sprintf("%s/drug/label.json?%s", c.baseURL, params.Encode())

	var resp openFDALabelResponse
	if err := getJSON(ctx, c.httpClient, c.limiter, fullURL, &resp); err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("openFDA label query failed: %w", err)
	}

	approvals := make([]domain.FDAApproval, 0, len(resp.Results))
	for _, result := range resp.Results {
		indication := strings.Join(result.IndicationsAndUsage, " ")
		if indication == "" {
			continue
		}
		drugs := result.OpenFDA.GenericName
		if len(drugs) == 0 {
			drugs = result.OpenFDA.BrandName
		}
		approvals = append(approvals, domain.FDAApproval{
			Gene:       strings.ToUpper(gene),
			Drugs:      lowercaseAll(drugs),
			Indication: indication,
			Level:      domain.LevelA,
		})
	}
	return approvals, nil
}

func lowercaseAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
