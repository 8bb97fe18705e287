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

// TrialsAPIClient queries the ClinicalTrials.gov v2 studies endpoint.
type TrialsAPIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewTrialsClient creates a new ClinicalTrials.gov API client.
func NewTrialsClient(cfg domain.SourceConfig) *TrialsAPIClient {
	return &TrialsAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
	}
}

type trialsSearchResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			StatusModule struct {
				OverallStatus string `json:"overallStatus"`
			} `json:"statusModule"`
			DesignModule struct {
				Phases []string `json:"phases"`
			} `json:"designModule"`
			ConditionsModule struct {
				Conditions []string `json:"conditions"`
			} `json:"conditionsModule"`
			ArmsInterventionsModule struct {
				Interventions []struct {
					Name string `json:"name"`
					Type string `json:"type"`
				} `json:"interventions"`
			} `json:"armsInterventionsModule"`
			EligibilityModule struct {
				EligibilityCriteria string `json:"eligibilityCriteria"`
			} `json:"eligibilityModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

// FetchTrials searches trials mentioning the gene; a trial is flagged
// variant-specific when the variant appears in its title or eligibility
// criteria.
func (t *TrialsAPIClient) FetchTrials(ctx context.Context, gene, variant string) ([]domain.ClinicalTrial, error) {
	params := url.Values{
		"query.term": {fmt.Sprintf("%s mutation", strings.ToUpper(gene))},
		"pageSize":   {"25"},
	}
	fullURL := fmt.Sprintf("%s/studies?%s", t.baseURL, params.Encode())

	var resp trialsSearchResponse
	if err := getJSON(ctx, t.httpClient, t.limiter, fullURL, &resp); err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("ClinicalTrials.gov query failed: %w", err)
	}

	variantLower := strings.ToLower(variant)
	trials := make([]domain.ClinicalTrial, 0, len(resp.Studies))
	for _, study := range resp.Studies {
		ps := study.ProtocolSection
		var drugs []string
		for _, iv := range ps.ArmsInterventionsModule.Interventions {
			if strings.EqualFold(iv.Type, "drug") && iv.Name != "" {
				drugs = append(drugs, strings.ToLower(iv.Name))
			}
		}
		variantSpecific := variantLower != "" &&
			(strings.Contains(strings.ToLower(ps.IdentificationModule.BriefTitle), variantLower) ||
				strings.Contains(strings.ToLower(ps.EligibilityModule.EligibilityCriteria), variantLower))

		phase := ""
		if len(ps.DesignModule.Phases) > 0 {
			phase = ps.DesignModule.Phases[0]
		}
		trials = append(trials, domain.ClinicalTrial{
			NCTID:           ps.IdentificationModule.NCTID,
			Title:           ps.IdentificationModule.BriefTitle,
			Status:          ps.StatusModule.OverallStatus,
			Phase:           phase,
			Conditions:      ps.ConditionsModule.Conditions,
			Drugs:           drugs,
			VariantSpecific: variantSpecific,
		})
	}
	return trials, nil
}
