package external

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/onco-tier-server/internal/domain"
)

// ClinVarAPIClient handles interactions with ClinVar via NCBI E-utilities.
type ClinVarAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClinVarClient creates a new ClinVar API client.
func NewClinVarClient(cfg domain.SourceConfig) *ClinVarAPIClient {
	return &ClinVarAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
	}
}

type clinVarSearchResponse struct {
	XMLName xml.Name `xml:"eSearchResult"`
	IDList  struct {
		IDs []string `xml:"Id"`
	} `xml:"IdList"`
	Count int `xml:"Count"`
}

type clinVarSummaryResponse struct {
	XMLName         xml.Name `xml:"eSummaryResult"`
	DocumentSummary []struct {
		UID                  string `xml:"uid,attr"`
		Title                string `xml:"title"`
		ClinicalSignificance struct {
			ReviewStatus string `xml:"ReviewStatus"`
			Description  string `xml:"Description"`
		} `xml:"clinical_significance"`
		Conditions []struct {
			Name string `xml:"Name"`
		} `xml:"trait_set>trait"`
	} `xml:"DocumentSummary"`
}

// FetchVariant searches ClinVar for the gene+variant pair and returns the
// first matching record, or nil when ClinVar has nothing.
func (c *ClinVarAPIClient) FetchVariant(ctx context.Context, gene, variant string) (*domain.ClinVarEvidence, error) {
	ids, err := c.search(ctx, gene, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to search variant in ClinVar: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	record, err := c.summary(ctx, ids[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get ClinVar summary: %w", err)
	}
	return record, nil
}

func (c *ClinVarAPIClient) search(ctx context.Context, gene, variant string) ([]string, error) {
	term := fmt.Sprintf("%s[gene] AND %s", strings.ToUpper(gene), variant)
	params := url.Values{
		"db":      {"clinvar"},
		"term":    {term},
		"retmode": {"xml"},
		"retmax":  {"5"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	fullURL := fmt.Sprintf("%s/esearch.fcgi?%s", c.baseURL, params.Encode())

	var resp clinVarSearchResponse
	if err := getXML(ctx, c.httpClient, c.limiter, fullURL, &resp); err != nil {
		return nil, err
	}
	return resp.IDList.IDs, nil
}

func (c *ClinVarAPIClient) summary(ctx context.Context, variationID string) (*domain.ClinVarEvidence, error) {
	params := url.Values{
		"db":      {"clinvar"},
		"id":      {variationID},
		"retmode": {"xml"},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	fullURL := fmt.Sprintf("%s/esummary.fcgi?%s", c.baseURL, params.Encode())

	var resp clinVarSummaryResponse
	if err := getXML(ctx, c.httpClient, c.limiter, fullURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.DocumentSummary) == 0 {
		return nil, nil
	}

	doc := resp.DocumentSummary[0]
	condition := ""
	if len(doc.Conditions) > 0 {
		condition = doc.Conditions[0].Name
	}
	return &domain.ClinVarEvidence{
		VariationID:  doc.UID,
		Significance: doc.ClinicalSignificance.Description,
		ReviewStatus: doc.ClinicalSignificance.ReviewStatus,
		Condition:    condition,
	}, nil
}
