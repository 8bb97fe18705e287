package tiering

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/internal/geneconfig"
)

func newTestResolver(t *testing.T) *FDAResolver {
	t.Helper()
	return NewFDAResolver(geneconfig.Default())
}

func TestFDAResolver_ExplicitVariantInIndication(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "BRAF", Variant: "V600E",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "BRAF", Drugs: []string{"vemurafenib"}, TumorType: "Melanoma",
				Indication: "treatment of patients with unresectable or metastatic melanoma with BRAF V600E mutation"},
		},
	}

	assert.True(t, resolver.HasFDAForVariantInTumor(record, "Melanoma"))
	assert.False(t, resolver.HasFDAForVariantInTumor(record, "Colorectal Cancer"),
		"approval must be tumor-matched")
}

func TestFDAResolver_ExclusionPhrase(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "EGFR", Variant: "T790M",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "EGFR", Drugs: []string{"erlotinib"}, TumorType: "NSCLC",
				Indication: "non-small cell lung cancer without the T790M mutation"},
		},
	}

	assert.False(t, resolver.HasFDAForVariantInTumor(record, "NSCLC"),
		"a negated variant mention must not grant approval")
}

func TestFDAResolver_SpecialRuleKITD816V(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "KIT", Variant: "D816V",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "KIT", Drugs: []string{"avapritinib"}, TumorType: "Systemic Mastocytosis",
				Indication: "adults with advanced systemic mastocytosis harboring KIT D816V"},
		},
	}

	assert.True(t, resolver.HasFDAForVariantInTumor(record, "Systemic Mastocytosis"),
		"D816V is approved in mastocytosis")
	assert.False(t, resolver.HasFDAForVariantInTumor(record, "Gastrointestinal Stromal Tumor"),
		"the GIST exclusion rule denies the mastocytosis approval")
}

func TestFDAResolver_VariantClassCodonRange(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "EGFR", Variant: "E746_A750del",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "EGFR", Drugs: []string{"osimertinib"}, TumorType: "NSCLC",
				Indication: "metastatic non-small cell lung cancer with EGFR exon 19 deletions"},
		},
	}

	assert.True(t, resolver.HasFDAForVariantInTumor(record, "NSCLC"),
		"codon 746 falls inside the exon 19 range")
}

func TestFDAResolver_InvestigationalOnlyOverride(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "KRAS", Variant: "G12C",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "KRAS", Drugs: []string{"sotorasib"}, TumorType: "Pancreatic Cancer",
				Indication: "pancreatic cancer with KRAS G12C mutation"},
		},
	}

	assert.False(t, resolver.HasFDAForVariantInTumor(record, "Pancreatic Cancer"),
		"the investigational-only table overrides indication matching")
}

func TestFDAResolver_CIViCHighQualityEvidence(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "ALK", Variant: "F1174L",
		CIViCEvidence: []domain.CIViCEvidence{
			{Gene: "ALK", Variant: "F1174L", Disease: "Neuroblastoma",
				Drugs: []string{"lorlatinib"}, Level: domain.LevelB, Type: domain.Predictive,
				Significance: "Sensitivity/Response",
				Description:  "ALK F1174L confers sensitivity to lorlatinib"},
		},
	}

	assert.True(t, resolver.HasFDAForVariantInTumor(record, "Neuroblastoma"))
	assert.False(t, resolver.HasFDAForVariantInTumor(record, "Melanoma"))
}

func TestFDAResolver_CIViCLevelCInsufficient(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "ALK", Variant: "F1174L",
		CIViCEvidence: []domain.CIViCEvidence{
			{Gene: "ALK", Variant: "F1174L", Disease: "Neuroblastoma",
				Drugs: []string{"crizotinib"}, Level: domain.LevelC, Type: domain.Predictive,
				Significance: "Sensitivity/Response", Description: "case report"},
		},
	}

	assert.False(t, resolver.HasFDAForVariantInTumor(record, "Neuroblastoma"))
}

func TestFDAResolver_CIViCAssertion(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "ERBB2", Variant: "Amplification",
		CIViCAssertions: []domain.CIViCAssertion{
			{Gene: "ERBB2", Variant: "Amplification", Disease: "Breast Cancer",
				Drugs: []string{"trastuzumab"}, NCCNGuideline: "Breast Cancer",
				Significance: "Sensitivity/Response", Type: domain.Predictive},
		},
	}

	assert.True(t, resolver.HasFDAForVariantInTumor(record, "Breast Cancer"))
}

func TestFDAResolver_CGIFDAApproved(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "PDGFRA", Variant: "D842V",
		CGIBiomarkers: []domain.CGIBiomarker{
			{Gene: "PDGFRA", Variant: "D842V", Drugs: []string{"avapritinib"},
				Association: "Responsive", TumorType: "GIST", FDAApproved: true},
		},
	}

	assert.True(t, resolver.HasFDAForVariantInTumor(record, "Gastrointestinal Stromal Tumor"))
}

func TestFDAResolver_CGIResistantNotApproval(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "KRAS", Variant: "G12D",
		CGIBiomarkers: []domain.CGIBiomarker{
			{Gene: "KRAS", Variant: "G12D", Drugs: []string{"cetuximab"},
				Association: "Resistant", TumorType: "Colorectal Cancer", FDAApproved: true},
		},
	}

	assert.False(t, resolver.HasFDAForVariantInTumor(record, "Colorectal Cancer"),
		"a resistance biomarker never counts as variant approval")
}

func TestFDAResolver_OffTumorApproval(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "BRAF", Variant: "V600E",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "BRAF", Drugs: []string{"vemurafenib"}, TumorType: "Melanoma",
				Indication: "melanoma with BRAF V600E mutation"},
		},
	}

	assert.True(t, resolver.HasOffTumorApproval(record, "Colorectal Cancer"))
	assert.False(t, resolver.HasOffTumorApproval(record, "Melanoma"),
		"an on-tumor approval is not an off-tumor match")
}

func TestFDAResolver_OffTumorRespectsSpecialRules(t *testing.T) {
	resolver := newTestResolver(t)
	record := &domain.EvidenceRecord{
		Gene: "KIT", Variant: "D816V",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "KIT", Drugs: []string{"avapritinib"}, TumorType: "Systemic Mastocytosis",
				Indication: "advanced systemic mastocytosis harboring KIT D816V"},
		},
	}

	assert.False(t, resolver.HasOffTumorApproval(record, "Gastrointestinal Stromal Tumor"),
		"the GIST exclusion applies to the off-tumor fallback too")
}

func TestFDAResolver_TierISublevel(t *testing.T) {
	resolver := newTestResolver(t)

	fdaRecord := &domain.EvidenceRecord{
		Gene: "BRAF", Variant: "V600E",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "BRAF", Drugs: []string{"vemurafenib"}, TumorType: "Melanoma",
				Indication: "melanoma with BRAF V600E"},
		},
	}
	assert.Equal(t, domain.SublevelA, resolver.TierISublevel(fdaRecord, "Melanoma"))

	civicBRecord := &domain.EvidenceRecord{
		Gene: "ALK", Variant: "F1174L",
		CIViCEvidence: []domain.CIViCEvidence{
			{Gene: "ALK", Variant: "F1174L", Disease: "Neuroblastoma",
				Drugs: []string{"lorlatinib"}, Level: domain.LevelB, Type: domain.Predictive,
				Significance: "Sensitivity/Response"},
		},
	}
	assert.Equal(t, domain.SublevelB, resolver.TierISublevel(civicBRecord, "Neuroblastoma"))

	emptyRecord := &domain.EvidenceRecord{Gene: "X", Variant: "Y"}
	assert.Equal(t, domain.SublevelA, resolver.TierISublevel(emptyRecord, "Melanoma"),
		"sublevel falls back to A")
}

func TestVariantCodon(t *testing.T) {
	tests := []struct {
		variant string
		want    int
		ok      bool
	}{
		{"V600E", 600, true},
		{"D816V", 816, true},
		{"p.Thr790Met", 790, true},
		{"E746_A750del", 746, true},
		{"amplification", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := variantCodon(tt.variant)
		assert.Equal(t, tt.ok, ok, tt.variant)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.variant)
		}
	}
}

func TestTierIIISublevel(t *testing.T) {
	assert.Equal(t, domain.SublevelA, TierIIISublevel("general"))
	assert.Equal(t, domain.SublevelC, TierIIISublevel("prognostic_only"))
	assert.Equal(t, domain.SublevelB, TierIIISublevel("vus_cancer_gene"))
	assert.Equal(t, domain.SublevelB, TierIIISublevel("predicted_damaging"))
	assert.Equal(t, domain.SublevelD, TierIIISublevel("no_evidence"))
}
