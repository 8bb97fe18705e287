package domain

import (
	"fmt"
	"strings"
	"time"
)

// FDAApproval is one FDA drug-label approval relevant to a gene.
type FDAApproval struct {
	Gene            string        `json:"gene"`
	Variant         string        `json:"variant,omitempty"`
	Drugs           []string      `json:"drugs"`
	Indication      string        `json:"indication"`
	TumorType       string        `json:"tumor_type"`
	LineOfTherapy   string        `json:"line_of_therapy,omitempty"`
	ApprovalType    string        `json:"approval_type,omitempty"`
	VariantExplicit bool          `json:"variant_explicit"`
	Level           EvidenceLevel `json:"level"`
}

// CIViCEvidence is one CIViC evidence item.
type CIViCEvidence struct {
	ID           string        `json:"id"`
	Gene         string        `json:"gene"`
	Variant      string        `json:"variant"`
	Disease      string        `json:"disease"`
	Drugs        []string      `json:"drugs"`
	Level        EvidenceLevel `json:"level"`
	Type         EvidenceType  `json:"type"`
	Significance string        `json:"significance"`
	Description  string        `json:"description,omitempty"`
	Rating       int           `json:"rating,omitempty"`
}

// CIViCAssertion is a curated CIViC assertion (stronger than raw evidence).
type CIViCAssertion struct {
	ID            string        `json:"id"`
	Gene          string        `json:"gene"`
	Variant       string        `json:"variant"`
	Disease       string        `json:"disease"`
	Drugs         []string      `json:"drugs"`
	AMPTier       string        `json:"amp_tier,omitempty"`
	AMPLevel      string        `json:"amp_level,omitempty"`
	NCCNGuideline string        `json:"nccn_guideline,omitempty"`
	FDACompanion  bool          `json:"fda_companion_test"`
	Significance  string        `json:"significance"`
	Type          EvidenceType  `json:"type"`
	Level         EvidenceLevel `json:"level"`
}

// ClinVarEvidence is the ClinVar record for the variant.
type ClinVarEvidence struct {
	VariationID  string `json:"variation_id"`
	Significance string `json:"clinical_significance"`
	ReviewStatus string `json:"review_status,omitempty"`
	Condition    string `json:"condition,omitempty"`
}

// COSMICEvidence is a COSMIC somatic mutation record.
type COSMICEvidence struct {
	MutationID   string   `json:"mutation_id"`
	Gene         string   `json:"gene"`
	Variant      string   `json:"variant"`
	TumorTypes   []string `json:"tumor_types"`
	SampleCount  int      `json:"sample_count"`
	Significance string   `json:"significance,omitempty"`
}

// CGIBiomarker is a Cancer Genome Interpreter biomarker entry.
type CGIBiomarker struct {
	Gene        string        `json:"gene"`
	Variant     string        `json:"variant"`
	Drugs       []string      `json:"drugs"`
	Association string        `json:"association"` // Responsive / Resistant
	TumorType   string        `json:"tumor_type"`
	FDAApproved bool          `json:"fda_approved"`
	Level       EvidenceLevel `json:"level"`
}

// VICCEvidence is a VICC meta-knowledgebase entry with precomputed direction.
type VICCEvidence struct {
	ID           string        `json:"id"`
	Gene         string        `json:"gene"`
	Variant      string        `json:"variant"`
	Disease      string        `json:"disease"`
	Drugs        []string      `json:"drugs"`
	Level        EvidenceLevel `json:"level"`
	Type         EvidenceType  `json:"type"`
	Direction    string        `json:"direction,omitempty"`
	IsSensitivity bool         `json:"is_sensitivity"`
	IsResistance  bool         `json:"is_resistance"`
	Source        string       `json:"source,omitempty"`
}

// ClinicalTrial is one registered trial matching the gene or variant.
type ClinicalTrial struct {
	NCTID           string   `json:"nct_id"`
	Title           string   `json:"title,omitempty"`
	Status          string   `json:"status"`
	Phase           string   `json:"phase,omitempty"`
	Conditions      []string `json:"conditions,omitempty"`
	Drugs           []string `json:"drugs,omitempty"`
	VariantSpecific bool     `json:"variant_specific"`
}

// DrugAssociation is one structured drug relationship extracted from literature.
type DrugAssociation struct {
	Drug         string `json:"drug"`
	IsPredictive bool   `json:"is_predictive"` // drug-selection impact vs. prognostic association
	Context      string `json:"context,omitempty"`
}

// LiteratureKnowledge is the LLM-extracted structured view of the literature
// for one gene+variant, with an overall extraction confidence.
type LiteratureKnowledge struct {
	PMIDs           []string          `json:"pmids,omitempty"`
	SensitiveTo     []DrugAssociation `json:"sensitive_to,omitempty"`
	ResistantTo     []DrugAssociation `json:"resistant_to,omitempty"`
	SuggestedTier   string            `json:"suggested_tier,omitempty"`
	TherapeuticNote string            `json:"therapeutic_note,omitempty"`
	Confidence      float64           `json:"confidence"`
}

// FunctionalPredictions holds the scalar functional-annotation scores.
type FunctionalPredictions struct {
	CADDScore         float64 `json:"cadd_score,omitempty"`
	HasCADD           bool    `json:"has_cadd"`
	PolyPhen2         string  `json:"polyphen2,omitempty"`        // probably_damaging / possibly_damaging / benign
	AlphaMissense     string  `json:"alpha_missense,omitempty"`   // likely_pathogenic / ambiguous / likely_benign
	AlphaMissenseScore float64 `json:"alpha_missense_score,omitempty"`
}

// EvidenceRecord owns all evidence collected for one (gene, variant) pair.
// Gene and Variant are immutable identity keys. Every evidence list may be
// empty; absence of evidence is a valid, common state. The record is never
// mutated once tier classification begins.
type EvidenceRecord struct {
	Gene    string `json:"gene"`
	Variant string `json:"variant"`

	FDAApprovals    []FDAApproval    `json:"fda_approvals,omitempty"`
	CIViCEvidence   []CIViCEvidence  `json:"civic_evidence,omitempty"`
	CIViCAssertions []CIViCAssertion `json:"civic_assertions,omitempty"`
	ClinVar         *ClinVarEvidence `json:"clinvar,omitempty"`
	COSMIC          []COSMICEvidence `json:"cosmic,omitempty"`
	CGIBiomarkers   []CGIBiomarker   `json:"cgi_biomarkers,omitempty"`
	VICCEvidence    []VICCEvidence   `json:"vicc_evidence,omitempty"`
	ClinicalTrials  []ClinicalTrial  `json:"clinical_trials,omitempty"`
	Literature      *LiteratureKnowledge `json:"literature,omitempty"`

	Predictions FunctionalPredictions `json:"predictions"`

	// GeneLevel holds evidence gathered at gene scope (all variants of the
	// gene), used by the gene-level therapeutic aggregation rule.
	GeneLevel *GeneLevelEvidence `json:"gene_level,omitempty"`

	GatheredAt time.Time `json:"gathered_at,omitempty"`
}

// GeneLevelEvidence aggregates evidence across all variants of the gene.
type GeneLevelEvidence struct {
	CIViCEvidence []CIViCEvidence `json:"civic_evidence,omitempty"`
	VICCEvidence  []VICCEvidence  `json:"vicc_evidence,omitempty"`
	CGIBiomarkers []CGIBiomarker  `json:"cgi_biomarkers,omitempty"`
}

// Validate rejects records missing the identity keys. This is the only
// input shape that classification refuses to process.
func (r *EvidenceRecord) Validate() error {
	if r == nil {
		return NewValidationError("record", "evidence record is required", nil)
	}
	if strings.TrimSpace(r.Gene) == "" {
		return NewValidationError("gene", "gene symbol is required", r.Gene)
	}
	if strings.TrimSpace(r.Variant) == "" {
		return NewValidationError("variant", "variant notation is required", r.Variant)
	}
	return nil
}

// Key returns the canonical gene:variant identity string.
func (r *EvidenceRecord) Key() string {
	return fmt.Sprintf("%s:%s", strings.ToUpper(r.Gene), r.Variant)
}

// HasPredictiveDrugEvidence reports whether any source carries PREDICTIVE
// evidence that names at least one drug.
func (r *EvidenceRecord) HasPredictiveDrugEvidence() bool {
	for _, ev := range r.CIViCEvidence {
		if ev.Type == Predictive && len(ev.Drugs) > 0 {
			return true
		}
	}
	for _, ev := range r.VICCEvidence {
		if ev.Type == Predictive && len(ev.Drugs) > 0 {
			return true
		}
	}
	for _, bm := range r.CGIBiomarkers {
		if len(bm.Drugs) > 0 {
			return true
		}
	}
	for _, ap := range r.FDAApprovals {
		if len(ap.Drugs) > 0 {
			return true
		}
	}
	if r.Literature != nil && (len(r.Literature.SensitiveTo) > 0 || len(r.Literature.ResistantTo) > 0) {
		return true
	}
	return false
}

// IsEmpty reports whether no evidence of any kind was gathered.
func (r *EvidenceRecord) IsEmpty() bool {
	return len(r.FDAApprovals) == 0 &&
		len(r.CIViCEvidence) == 0 &&
		len(r.CIViCAssertions) == 0 &&
		r.ClinVar == nil &&
		len(r.COSMIC) == 0 &&
		len(r.CGIBiomarkers) == 0 &&
		len(r.VICCEvidence) == 0 &&
		len(r.ClinicalTrials) == 0 &&
		(r.Literature == nil || r.Literature.Confidence == 0)
}
