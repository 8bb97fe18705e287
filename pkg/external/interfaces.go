// Package external contains the HTTP clients for the public evidence sources
// (openFDA, CIViC, ClinVar, COSMIC, CGI, VICC metaKB, ClinicalTrials.gov,
// PubMed) plus the resilience layer that fans out to all of them and
// assembles one EvidenceRecord.
package external

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/onco-tier-server/internal/domain"
)

// FDAClient fetches drug-label approvals for a gene.
type FDAClient interface {
	FetchApprovals(ctx context.Context, gene string) ([]domain.FDAApproval, error)
}

// CIViCClient fetches evidence items and curated assertions.
type CIViCClient interface {
	FetchEvidence(ctx context.Context, gene, variant string) ([]domain.CIViCEvidence, error)
	FetchAssertions(ctx context.Context, gene, variant string) ([]domain.CIViCAssertion, error)
	FetchGeneEvidence(ctx context.Context, gene string) ([]domain.CIViCEvidence, error)
}

// ClinVarClient fetches the ClinVar record for a variant.
type ClinVarClient interface {
	FetchVariant(ctx context.Context, gene, variant string) (*domain.ClinVarEvidence, error)
}

// COSMICClient fetches somatic mutation records.
type COSMICClient interface {
	FetchMutations(ctx context.Context, gene, variant string) ([]domain.COSMICEvidence, error)
}

// CGIClient fetches Cancer Genome Interpreter biomarkers.
type CGIClient interface {
	FetchBiomarkers(ctx context.Context, gene, variant string) ([]domain.CGIBiomarker, error)
	FetchGeneBiomarkers(ctx context.Context, gene string) ([]domain.CGIBiomarker, error)
}

// VICCClient fetches VICC meta-knowledgebase associations.
type VICCClient interface {
	FetchAssociations(ctx context.Context, gene, variant string) ([]domain.VICCEvidence, error)
	FetchGeneAssociations(ctx context.Context, gene string) ([]domain.VICCEvidence, error)
}

// TrialsClient fetches registered clinical trials.
type TrialsClient interface {
	FetchTrials(ctx context.Context, gene, variant string) ([]domain.ClinicalTrial, error)
}

// LiteratureClient fetches structured literature knowledge for a variant.
type LiteratureClient interface {
	FetchKnowledge(ctx context.Context, gene, variant string) (*domain.LiteratureKnowledge, error)
}

// EvidenceCache stores assembled evidence records.
type EvidenceCache interface {
	Get(ctx context.Context, key string) (*domain.EvidenceRecord, bool, error)
	Set(ctx context.Context, key string, record *domain.EvidenceRecord) error
	Invalidate(ctx context.Context, key string) error
	Close() error
}

// newLimiter builds a per-second rate limiter; zero means unbounded.
func newLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, out interface{}) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// getXML performs a rate-limited GET and decodes the XML body into out.
func getXML(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, out interface{}) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
