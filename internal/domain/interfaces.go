package domain

import "context"

// EvidenceFetcher aggregates evidence from all external sources into one
// EvidenceRecord. A failed or timed-out source yields an empty contribution
// for that source; the record may therefore be partially empty.
type EvidenceFetcher interface {
	FetchEvidence(ctx context.Context, gene, variant string) (*EvidenceRecord, error)
}

// CancerGeneRegistry answers whether a gene is a recognized cancer gene.
// Implementations combine an externally fetched list with a static fallback;
// lookups must never fail outright.
type CancerGeneRegistry interface {
	IsKnownCancerGene(ctx context.Context, gene string) bool
}

// NarrativeGenerator phrases an already-computed TierResult. Implementations
// must always return a usable Narrative; on model failure the justification
// text is carried verbatim with Fallback set.
type NarrativeGenerator interface {
	Generate(ctx context.Context, result TierResult, evidenceSummary string) (Narrative, error)
	Enabled() bool
}

// TierClassifier is the decision-engine contract exposed to request handlers.
// Classification itself is pure; the context is threaded through for the
// cancer-gene registry lookup only.
type TierClassifier interface {
	Classify(ctx context.Context, record *EvidenceRecord, tumorType string) (TierResult, error)
	ComputeStats(record *EvidenceRecord, tumorType string) EvidenceStats
	AggregateByDrug(record *EvidenceRecord) []DrugAggregate
}

// AssessmentRepository persists completed assessments.
type AssessmentRepository interface {
	Save(ctx context.Context, rec *AssessmentRecord) error
	GetByID(ctx context.Context, id string) (*AssessmentRecord, error)
	ListByGene(ctx context.Context, gene string, limit int) ([]*AssessmentRecord, error)
}
