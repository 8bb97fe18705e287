package tiering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onco-tier-server/internal/domain"
)

// staticRegistry is a test double for the cancer-gene registry.
type staticRegistry map[string]bool

func (r staticRegistry) IsKnownCancerGene(_ context.Context, gene string) bool {
	return r[gene]
}

func TestResolveGeneContext(t *testing.T) {
	tests := []struct {
		name         string
		gene         string
		registry     staticRegistry
		wantRole     domain.GeneRole
		wantCancer   bool
	}{
		{"DDR gene", "BRCA1", nil, domain.DDR, true},
		{"Oncogene", "KRAS", nil, domain.Oncogene, true},
		{"Tumor suppressor", "TP53", nil, domain.TumorSuppressor, true},
		{"Lowercase symbol", "braf", nil, domain.Oncogene, true},
		{"Registry-only cancer gene", "NTRK1", staticRegistry{"NTRK1": true}, domain.RoleUnknown, true},
		{"Unknown gene", "FAKEGENE123", nil, domain.RoleUnknown, false},
		{"Unknown gene with registry miss", "FAKEGENE123", staticRegistry{}, domain.RoleUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var registry domain.CancerGeneRegistry
			if tt.registry != nil {
				registry = tt.registry
			}
			gc := ResolveGeneContext(context.Background(), registry, tt.gene)
			assert.Equal(t, tt.wantRole, gc.Role)
			assert.Equal(t, tt.wantCancer, gc.IsCancerGene)
		})
	}
}

func TestAssessLOF_NotationHeuristics(t *testing.T) {
	tests := []struct {
		name    string
		variant string
		want    domain.LOFState
	}{
		{"Nonsense star", "R213*", domain.LOF},
		{"Nonsense Ter", "Q1756Ter", domain.LOF},
		{"Frameshift suffix", "E23fs", domain.LOF},
		{"Frameshift with stop", "S1982fs*22", domain.LOF},
		{"Deletion keyword", "exon 11 deletion", domain.LOF},
		{"Splice site", "c.5074+1G>A", domain.LOF},
		{"Plain missense no predictions", "V600E", domain.LOFUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lof := AssessLOF(tt.variant, domain.FunctionalPredictions{})
			assert.Equal(t, tt.want, lof.State)
			assert.NotEmpty(t, lof.Rationale)
		})
	}
}

func TestAssessLOF_FunctionalScores(t *testing.T) {
	damaging := AssessLOF("A123T", domain.FunctionalPredictions{
		PolyPhen2: "probably_damaging",
		HasCADD:   true, CADDScore: 28.5,
	})
	assert.Equal(t, domain.LOF, damaging.State)
	assert.Greater(t, damaging.Confidence, 0.5)

	tolerated := AssessLOF("A123T", domain.FunctionalPredictions{
		PolyPhen2: "benign",
		HasCADD:   true, CADDScore: 3.2,
	})
	assert.Equal(t, domain.Tolerated, tolerated.State)

	conflicting := AssessLOF("A123T", domain.FunctionalPredictions{
		PolyPhen2: "probably_damaging",
		HasCADD:   true, CADDScore: 3.2,
	})
	assert.Equal(t, domain.LOFUnknown, conflicting.State)

	noSignal := AssessLOF("A123T", domain.FunctionalPredictions{})
	assert.Equal(t, domain.LOFUnknown, noSignal.State)
	assert.Zero(t, noSignal.Confidence)
}

func TestAssessLOF_CADDThreshold(t *testing.T) {
	atThreshold := AssessLOF("A123T", domain.FunctionalPredictions{HasCADD: true, CADDScore: 20.0})
	assert.Equal(t, domain.LOF, atThreshold.State, "CADD 20 is damaging")

	below := AssessLOF("A123T", domain.FunctionalPredictions{HasCADD: true, CADDScore: 19.9})
	assert.Equal(t, domain.Tolerated, below.State)
}

func TestPredictedDamaging(t *testing.T) {
	damaging, summary := PredictedDamaging(domain.FunctionalPredictions{
		HasCADD: true, CADDScore: 25, AlphaMissense: "likely_pathogenic",
	})
	assert.True(t, damaging)
	assert.Contains(t, summary, "CADD 25.0")
	assert.Contains(t, summary, "AlphaMissense")

	none, _ := PredictedDamaging(domain.FunctionalPredictions{HasCADD: true, CADDScore: 10})
	assert.False(t, none)

	empty, _ := PredictedDamaging(domain.FunctionalPredictions{})
	assert.False(t, empty)
}
