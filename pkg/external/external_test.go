package external

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onco-tier-server/internal/domain"
)

func testSourceConfig(baseURL string) domain.SourceConfig {
	return domain.SourceConfig{
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestOpenFDAClient_FetchApprovals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("search"), "EGFR")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{
					"indications_and_usage": ["TAGRISSO is indicated for metastatic NSCLC with EGFR exon 19 deletions or exon 21 L858R mutations"],
					"openfda": {"brand_name": ["TAGRISSO"], "generic_name": ["Osimertinib"]}
				},
				{
					"indications_and_usage": [],
					"openfda": {"generic_name": ["unused"]}
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewOpenFDAClient(testSourceConfig(server.URL))
	approvals, err := client.FetchApprovals(context.Background(), "EGFR")
	require.NoError(t, err)
	require.Len(t, approvals, 1)

	assert.Equal(t, "EGFR", approvals[0].Gene)
	assert.Equal(t, []string{"osimertinib"}, approvals[0].Drugs)
	assert.Contains(t, approvals[0].Indication, "exon 19 deletions")
	assert.Equal(t, domain.LevelA, approvals[0].Level)
}

func TestOpenFDAClient_NotFoundMeansNoApprovals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOpenFDAClient(testSourceConfig(server.URL))
	approvals, err := client.FetchApprovals(context.Background(), "OBSCUREGENE")
	require.NoError(t, err)
	assert.Empty(t, approvals)
}

func TestCIViCClient_FetchEvidenceFiltersVariant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"records": [
				{
					"id": 12,
					"evidence_level": "A",
					"evidence_type": "Predictive",
					"significance": "Sensitivity/Response",
					"rating": 5,
					"disease": {"name": "Melanoma"},
					"therapies": [{"name": "Vemurafenib"}],
					"variant": {"name": "V600E"}
				},
				{
					"id": 13,
					"evidence_level": "B",
					"evidence_type": "Predictive",
					"significance": "Sensitivity/Response",
					"disease": {"name": "Melanoma"},
					"therapies": [{"name": "Dabrafenib"}],
					"variant": {"name": "V600K"}
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewCIViCClient(testSourceConfig(server.URL))

	matched, err := client.FetchEvidence(context.Background(), "BRAF", "V600E")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "12", matched[0].ID)
	assert.Equal(t, domain.LevelA, matched[0].Level)
	assert.Equal(t, domain.Predictive, matched[0].Type)
	assert.Equal(t, []string{"vemurafenib"}, matched[0].Drugs)

	all, err := client.FetchGeneEvidence(context.Background(), "BRAF")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCIViCClient_FetchAssertions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"records": [
				{
					"id": 7,
					"amp_level": "Tier I - Level A",
					"assertion_type": "Predictive",
					"significance": "Sensitivity/Response",
					"nccn_guideline": {"name": "Non-Small Cell Lung Cancer"},
					"fda_companion_test": true,
					"disease": {"name": "Lung Non-small Cell Carcinoma"},
					"therapies": [{"name": "Osimertinib"}],
					"variant": {"name": "T790M"}
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewCIViCClient(testSourceConfig(server.URL))
	assertions, err := client.FetchAssertions(context.Background(), "EGFR", "T790M")
	require.NoError(t, err)
	require.Len(t, assertions, 1)
	assert.Equal(t, "Non-Small Cell Lung Cancer", assertions[0].NCCNGuideline)
	assert.True(t, assertions[0].FDACompanion)
}

func TestClinVarClient_FetchVariant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		switch {
		case r.URL.Path == "/esearch.fcgi":
			w.Write([]byte(`<?xml version="1.0"?>
				<eSearchResult>
					<Count>1</Count>
					<IdList><Id>376280</Id></IdList>
				</eSearchResult>`))
		case r.URL.Path == "/esummary.fcgi":
			assert.Equal(t, "376280", r.URL.Query().Get("id"))
			w.Write([]byte(`<?xml version="1.0"?>
				<eSummaryResult>
					<DocumentSummary uid="376280">
						<title>NM_004333.6(BRAF):c.1799T&gt;A (p.Val600Glu)</title>
						<clinical_significance>
							<ReviewStatus>criteria provided, multiple submitters</ReviewStatus>
							<Description>Pathogenic</Description>
						</clinical_significance>
						<trait_set><trait><Name>Melanoma</Name></trait></trait_set>
					</DocumentSummary>
				</eSummaryResult>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClinVarClient(testSourceConfig(server.URL))
	record, err := client.FetchVariant(context.Background(), "BRAF", "V600E")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "376280", record.VariationID)
	assert.Equal(t, "Pathogenic", record.Significance)
	assert.Equal(t, "Melanoma", record.Condition)
}

func TestClinVarClient_NoMatchReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><eSearchResult><Count>0</Count><IdList></IdList></eSearchResult>`))
	}))
	defer server.Close()

	client := NewClinVarClient(testSourceConfig(server.URL))
	record, err := client.FetchVariant(context.Background(), "BRAF", "Q999X")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestCGIClient_ParsesBiomarkers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"biomarkers": [
				{
					"gene": "KRAS",
					"alteration": "G12D",
					"drug": "Cetuximab;Panitumumab",
					"association": "Resistant",
					"tumor_type": "Colorectal adenocarcinoma",
					"evidence_level": "FDA guidelines"
				},
				{
					"gene": "KRAS",
					"alteration": "G12C",
					"drug": "Sotorasib",
					"association": "Responsive",
					"tumor_type": "Lung adenocarcinoma",
					"evidence_level": "Late trials"
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewCGIClient(testSourceConfig(server.URL))

	matched, err := client.FetchBiomarkers(context.Background(), "KRAS", "G12D")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, []string{"cetuximab", "panitumumab"}, matched[0].Drugs)
	assert.Equal(t, "Resistant", matched[0].Association)
	assert.True(t, matched[0].FDAApproved)
	assert.Equal(t, domain.LevelA, matched[0].Level)

	all, err := client.FetchGeneBiomarkers(context.Background(), "KRAS")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSplitDrugList(t *testing.T) {
	tests := []struct {
		raw      string
		expected []string
	}{
		{"Dabrafenib + Trametinib", []string{"dabrafenib", "trametinib"}},
		{"Cetuximab;Panitumumab", []string{"cetuximab", "panitumumab"}},
		{"Imatinib", []string{"imatinib"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, splitDrugList(tt.raw), "raw: %q", tt.raw)
	}
}

func TestVICCClient_DirectionFromResponseType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hits": {
				"hits": [
					{
						"_id": "civic:1",
						"_source": {
							"source": "civic",
							"association": {
								"evidence_level": "A",
								"response_type": "Sensitivity",
								"evidence_type": "Predictive",
								"phenotype": {"description": "Melanoma"},
								"environmentalContexts": [{"description": "Vemurafenib"}]
							}
						}
					},
					{
						"_id": "oncokb:2",
						"_source": {
							"source": "oncokb",
							"association": {
								"evidence_level": "B",
								"response_type": "Resistant",
								"evidence_type": "Predictive",
								"phenotype": {"description": "Colorectal Cancer"},
								"environmentalContexts": [{"description": "Cetuximab"}]
							}
						}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewVICCClient(testSourceConfig(server.URL))
	evidence, err := client.FetchAssociations(context.Background(), "BRAF", "V600E")
	require.NoError(t, err)
	require.Len(t, evidence, 2)

	assert.True(t, evidence[0].IsSensitivity)
	assert.False(t, evidence[0].IsResistance)
	assert.Equal(t, []string{"vemurafenib"}, evidence[0].Drugs)
	assert.Equal(t, domain.LevelA, evidence[0].Level)

	assert.True(t, evidence[1].IsResistance)
	assert.False(t, evidence[1].IsSensitivity)
	assert.Equal(t, "oncokb", evidence[1].Source)
}

func TestTrialsClient_VariantSpecificFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"studies": [
				{
					"protocolSection": {
						"identificationModule": {"nctId": "NCT100", "briefTitle": "Sotorasib in KRAS G12C Mutant NSCLC"},
						"statusModule": {"overallStatus": "RECRUITING"},
						"designModule": {"phases": ["PHASE2"]},
						"conditionsModule": {"conditions": ["Non-Small Cell Lung Cancer"]},
						"armsInterventionsModule": {"interventions": [{"name": "Sotorasib", "type": "DRUG"}, {"name": "CT scan", "type": "PROCEDURE"}]},
						"eligibilityModule": {"eligibilityCriteria": "Documented KRAS G12C mutation"}
					}
				},
				{
					"protocolSection": {
						"identificationModule": {"nctId": "NCT200", "briefTitle": "Chemotherapy in KRAS Mutant Tumors"},
						"statusModule": {"overallStatus": "COMPLETED"},
						"armsInterventionsModule": {"interventions": [{"name": "Docetaxel", "type": "DRUG"}]},
						"eligibilityModule": {"eligibilityCriteria": "Any KRAS mutation"}
					}
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewTrialsClient(testSourceConfig(server.URL))
	trials, err := client.FetchTrials(context.Background(), "KRAS", "G12C")
	require.NoError(t, err)
	require.Len(t, trials, 2)

	assert.True(t, trials[0].VariantSpecific)
	assert.Equal(t, "RECRUITING", trials[0].Status)
	assert.Equal(t, []string{"sotorasib"}, trials[0].Drugs)
	assert.Equal(t, "PHASE2", trials[0].Phase)

	assert.False(t, trials[1].VariantSpecific)
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	cache := NewMemoryCache(domain.CacheConfig{})
	ctx := context.Background()

	record := &domain.EvidenceRecord{Gene: "BRAF", Variant: "V600E"}
	key := record.Key()

	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, key, record))

	got, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "BRAF", got.Gene)

	require.NoError(t, cache.Invalidate(ctx, key))
	_, found, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGeneRegistry_StaticFallback(t *testing.T) {
	registry, err := NewGeneRegistry(domain.SourceConfig{Timeout: time.Second}, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, registry.IsKnownCancerGene(ctx, "TP53"))
	assert.True(t, registry.IsKnownCancerGene(ctx, "braf"))
	assert.False(t, registry.IsKnownCancerGene(ctx, "FAKEGENE123"))
	assert.False(t, registry.IsKnownCancerGene(ctx, ""))

	// Second lookup is served from the LRU.
	assert.True(t, registry.IsKnownCancerGene(ctx, "TP53"))
}

func TestGeneRegistry_RefreshesFromOncoKB(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/utils/cancerGeneList", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"hugoSymbol": "NEWGENE1"}, {"hugoSymbol": "TP53"}]`))
	}))
	defer server.Close()

	registry, err := NewGeneRegistry(testSourceConfig(server.URL), testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, registry.IsKnownCancerGene(ctx, "NEWGENE1"))
	assert.True(t, registry.IsKnownCancerGene(ctx, "TP53"))
	// BRAF is in the static fallback but not in the fetched list.
	assert.False(t, registry.IsKnownCancerGene(ctx, "BRAF"))
}

func TestGeneRegistry_FetchFailureKeepsStaticList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry, err := NewGeneRegistry(testSourceConfig(server.URL), testLogger())
	require.NoError(t, err)

	assert.True(t, registry.IsKnownCancerGene(context.Background(), "BRAF"))
}

// Stub clients for the resilience tests.

type stubFDA struct {
	approvals []domain.FDAApproval
	err       error
}

func (s *stubFDA) FetchApprovals(context.Context, string) ([]domain.FDAApproval, error) {
	return s.approvals, s.err
}

type stubCIViC struct {
	evidence   []domain.CIViCEvidence
	assertions []domain.CIViCAssertion
	geneEv     []domain.CIViCEvidence
	err        error
}

func (s *stubCIViC) FetchEvidence(context.Context, string, string) ([]domain.CIViCEvidence, error) {
	return s.evidence, s.err
}

func (s *stubCIViC) FetchAssertions(context.Context, string, string) ([]domain.CIViCAssertion, error) {
	return s.assertions, s.err
}

func (s *stubCIViC) FetchGeneEvidence(context.Context, string) ([]domain.CIViCEvidence, error) {
	return s.geneEv, s.err
}

type stubClinVar struct {
	record *domain.ClinVarEvidence
	err    error
}

func (s *stubClinVar) FetchVariant(context.Context, string, string) (*domain.ClinVarEvidence, error) {
	return s.record, s.err
}

type stubCOSMIC struct {
	mutations []domain.COSMICEvidence
	err       error
}

func (s *stubCOSMIC) FetchMutations(context.Context, string, string) ([]domain.COSMICEvidence, error) {
	return s.mutations, s.err
}

type stubCGI struct {
	biomarkers []domain.CGIBiomarker
	geneBm     []domain.CGIBiomarker
	err        error
}

func (s *stubCGI) FetchBiomarkers(context.Context, string, string) ([]domain.CGIBiomarker, error) {
	return s.biomarkers, s.err
}

func (s *stubCGI) FetchGeneBiomarkers(context.Context, string) ([]domain.CGIBiomarker, error) {
	return s.geneBm, s.err
}

type stubVICC struct {
	evidence []domain.VICCEvidence
	geneEv   []domain.VICCEvidence
	err      error
}

func (s *stubVICC) FetchAssociations(context.Context, string, string) ([]domain.VICCEvidence, error) {
	return s.evidence, s.err
}

func (s *stubVICC) FetchGeneAssociations(context.Context, string) ([]domain.VICCEvidence, error) {
	return s.geneEv, s.err
}

type stubTrials struct {
	trials []domain.ClinicalTrial
	err    error
}

func (s *stubTrials) FetchTrials(context.Context, string, string) ([]domain.ClinicalTrial, error) {
	return s.trials, s.err
}

type stubLiterature struct {
	knowledge *domain.LiteratureKnowledge
	err       error
}

func (s *stubLiterature) FetchKnowledge(context.Context, string, string) (*domain.LiteratureKnowledge, error) {
	return s.knowledge, s.err
}

func newStubService(t *testing.T, fda *stubFDA, civic *stubCIViC, clinvar *stubClinVar, cosmic *stubCOSMIC, cgi *stubCGI, vicc *stubVICC, trials *stubTrials, lit *stubLiterature, cache EvidenceCache) *ResilientEvidenceService {
	t.Helper()
	return NewResilientEvidenceService(fda, civic, clinvar, cosmic, cgi, vicc, trials, lit, cache, testLogger())
}

func TestResilientService_AssemblesRecord(t *testing.T) {
	svc := newStubService(t,
		&stubFDA{approvals: []domain.FDAApproval{{Gene: "BRAF", Drugs: []string{"vemurafenib"}, Indication: "melanoma with BRAF V600E", Level: domain.LevelA}}},
		&stubCIViC{
			evidence: []domain.CIViCEvidence{{ID: "1", Level: domain.LevelA, Type: domain.Predictive}},
			geneEv:   []domain.CIViCEvidence{{ID: "1"}, {ID: "2"}},
		},
		&stubClinVar{record: &domain.ClinVarEvidence{Significance: "Pathogenic"}},
		&stubCOSMIC{mutations: []domain.COSMICEvidence{{MutationID: "COSM476"}}},
		&stubCGI{geneBm: []domain.CGIBiomarker{{Gene: "BRAF"}}},
		&stubVICC{evidence: []domain.VICCEvidence{{ID: "v1", IsSensitivity: true}}},
		&stubTrials{trials: []domain.ClinicalTrial{{NCTID: "NCT1", Status: "RECRUITING"}}},
		&stubLiterature{},
		nil,
	)

	record, err := svc.FetchEvidence(context.Background(), "BRAF", "V600E")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "BRAF", record.Gene)
	assert.Len(t, record.FDAApprovals, 1)
	assert.Len(t, record.CIViCEvidence, 1)
	assert.NotNil(t, record.ClinVar)
	assert.Len(t, record.COSMIC, 1)
	assert.Len(t, record.VICCEvidence, 1)
	assert.Len(t, record.ClinicalTrials, 1)
	assert.False(t, record.GatheredAt.IsZero())

	require.NotNil(t, record.GeneLevel)
	assert.Len(t, record.GeneLevel.CIViCEvidence, 2)
	assert.Len(t, record.GeneLevel.CGIBiomarkers, 1)
}

func TestResilientService_PartialFailureStillSucceeds(t *testing.T) {
	svc := newStubService(t,
		&stubFDA{err: errors.New("upstream 500")},
		&stubCIViC{evidence: []domain.CIViCEvidence{{ID: "1"}}},
		&stubClinVar{err: errors.New("timeout")},
		&stubCOSMIC{},
		&stubCGI{},
		&stubVICC{},
		&stubTrials{},
		&stubLiterature{},
		nil,
	)

	record, err := svc.FetchEvidence(context.Background(), "BRAF", "V600E")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Empty(t, record.FDAApprovals)
	assert.Nil(t, record.ClinVar)
	assert.Len(t, record.CIViCEvidence, 1)
}

func TestResilientService_AllSourcesFailed(t *testing.T) {
	boom := errors.New("down")
	svc := newStubService(t,
		&stubFDA{err: boom},
		&stubCIViC{err: boom},
		&stubClinVar{err: boom},
		&stubCOSMIC{err: boom},
		&stubCGI{err: boom},
		&stubVICC{err: boom},
		&stubTrials{err: boom},
		&stubLiterature{err: boom},
		nil,
	)

	record, err := svc.FetchEvidence(context.Background(), "BRAF", "V600E")
	require.Error(t, err)
	assert.Nil(t, record)
	assert.Contains(t, err.Error(), "all evidence sources failed")
}

func TestResilientService_CacheHitSkipsUpstream(t *testing.T) {
	cache := NewMemoryCache(domain.CacheConfig{})
	cached := &domain.EvidenceRecord{Gene: "BRAF", Variant: "V600E", ClinVar: &domain.ClinVarEvidence{Significance: "Pathogenic"}}
	require.NoError(t, cache.Set(context.Background(), cached.Key(), cached))

	boom := errors.New("should not be called")
	svc := newStubService(t,
		&stubFDA{err: boom}, &stubCIViC{err: boom}, &stubClinVar{err: boom},
		&stubCOSMIC{err: boom}, &stubCGI{err: boom}, &stubVICC{err: boom},
		&stubTrials{err: boom}, &stubLiterature{err: boom},
		cache,
	)

	record, err := svc.FetchEvidence(context.Background(), "BRAF", "V600E")
	require.NoError(t, err)
	require.NotNil(t, record.ClinVar)
	assert.Equal(t, "Pathogenic", record.ClinVar.Significance)
}

func TestResilientService_CachesAssembledRecord(t *testing.T) {
	cache := NewMemoryCache(domain.CacheConfig{})
	svc := newStubService(t,
		&stubFDA{}, &stubCIViC{evidence: []domain.CIViCEvidence{{ID: "1"}}}, &stubClinVar{},
		&stubCOSMIC{}, &stubCGI{}, &stubVICC{}, &stubTrials{}, &stubLiterature{},
		cache,
	)

	record, err := svc.FetchEvidence(context.Background(), "BRAF", "V600E")
	require.NoError(t, err)

	got, found, err := cache.Get(context.Background(), record.Key())
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got.CIViCEvidence, 1)
}

func TestResilientService_RejectsMissingIdentity(t *testing.T) {
	svc := newStubService(t,
		&stubFDA{}, &stubCIViC{}, &stubClinVar{}, &stubCOSMIC{},
		&stubCGI{}, &stubVICC{}, &stubTrials{}, &stubLiterature{}, nil,
	)

	_, err := svc.FetchEvidence(context.Background(), "", "V600E")
	require.Error(t, err)

	_, err = svc.FetchEvidence(context.Background(), "BRAF", "")
	require.Error(t, err)
}

func TestResilientService_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	svc := newStubService(t,
		&stubFDA{err: errors.New("down")},
		&stubCIViC{evidence: []domain.CIViCEvidence{{ID: "1"}}},
		&stubClinVar{}, &stubCOSMIC{}, &stubCGI{}, &stubVICC{},
		&stubTrials{}, &stubLiterature{}, nil,
	)

	for i := 0; i < 5; i++ {
		_, err := svc.FetchEvidence(context.Background(), "BRAF", "V600E")
		require.NoError(t, err)
	}

	states := svc.BreakerStates()
	assert.Equal(t, "open", states["openFDA"])
	assert.Equal(t, "closed", states["CIViC"])
}
