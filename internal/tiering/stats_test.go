package tiering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onco-tier-server/internal/domain"
)

func viccSensitivity(drug, disease string, level domain.EvidenceLevel) domain.VICCEvidence {
	return domain.VICCEvidence{
		Gene: "EGFR", Variant: "L858R", Disease: disease,
		Drugs: []string{drug}, Level: level, Type: domain.Predictive,
		IsSensitivity: true,
	}
}

func viccResistance(drug, disease string, level domain.EvidenceLevel) domain.VICCEvidence {
	return domain.VICCEvidence{
		Gene: "EGFR", Variant: "T790M", Disease: disease,
		Drugs: []string{drug}, Level: level, Type: domain.Predictive,
		IsResistance: true,
	}
}

func TestComputeStats_DominantSignal(t *testing.T) {
	tests := []struct {
		name        string
		sensitivity int
		resistance  int
		want        domain.DominantSignal
	}{
		{"No signals", 0, 0, domain.DominantNone},
		{"Resistance only", 0, 3, domain.ResistanceOnly},
		{"Sensitivity only", 4, 0, domain.SensitivityOnly},
		{"Sensitivity dominant at 80 percent", 4, 1, domain.DominantSensitivity},
		{"Resistance dominant at 80 percent", 1, 4, domain.DominantResistance},
		{"Mixed below threshold", 3, 2, domain.DominantMixed},
		{"Exactly at threshold", 8, 2, domain.DominantSensitivity},
		{"Just under threshold", 7, 2, domain.DominantMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &domain.EvidenceRecord{Gene: "EGFR", Variant: "L858R"}
			for i := 0; i < tt.sensitivity; i++ {
				record.VICCEvidence = append(record.VICCEvidence,
					viccSensitivity("erlotinib", "NSCLC", domain.LevelB))
			}
			for i := 0; i < tt.resistance; i++ {
				record.VICCEvidence = append(record.VICCEvidence,
					viccResistance("gefitinib", "NSCLC", domain.LevelB))
			}
			stats := ComputeStats(record, "NSCLC")
			assert.Equal(t, tt.want, stats.DominantSignal)
			assert.Equal(t, tt.sensitivity, stats.SensitivityCount)
			assert.Equal(t, tt.resistance, stats.ResistanceCount)
		})
	}
}

func TestComputeStats_OrderIndependent(t *testing.T) {
	forward := &domain.EvidenceRecord{
		Gene: "EGFR", Variant: "L858R",
		VICCEvidence: []domain.VICCEvidence{
			viccSensitivity("erlotinib", "NSCLC", domain.LevelA),
			viccResistance("erlotinib", "NSCLC", domain.LevelB),
			viccSensitivity("osimertinib", "NSCLC", domain.LevelB),
		},
	}
	reversed := &domain.EvidenceRecord{
		Gene: "EGFR", Variant: "L858R",
		VICCEvidence: []domain.VICCEvidence{
			viccSensitivity("osimertinib", "NSCLC", domain.LevelB),
			viccResistance("erlotinib", "NSCLC", domain.LevelB),
			viccSensitivity("erlotinib", "NSCLC", domain.LevelA),
		},
	}

	a := ComputeStats(forward, "NSCLC")
	b := ComputeStats(reversed, "NSCLC")
	assert.Equal(t, a.DominantSignal, b.DominantSignal)
	assert.Equal(t, a.SensitivityCount, b.SensitivityCount)
	assert.Equal(t, a.ResistanceCount, b.ResistanceCount)
	assert.Equal(t, a.Conflicts, b.Conflicts)
}

func TestComputeStats_ConflictsSurfaced(t *testing.T) {
	record := &domain.EvidenceRecord{
		Gene: "EGFR", Variant: "L858R",
		VICCEvidence: []domain.VICCEvidence{
			viccSensitivity("erlotinib", "NSCLC", domain.LevelA),
			viccResistance("erlotinib", "NSCLC", domain.LevelB),
		},
	}

	stats := ComputeStats(record, "NSCLC")
	require.Len(t, stats.Conflicts, 1)
	conflict := stats.Conflicts[0]
	assert.Equal(t, "erlotinib", conflict.Drug)
	assert.Equal(t, 1, conflict.SensitivityCount)
	assert.Equal(t, 1, conflict.ResistanceCount)
	assert.NotEmpty(t, conflict.SensitivityContext)
	assert.NotEmpty(t, conflict.ResistanceContext)
}

func TestComputeStats_CIViCSignificanceClassification(t *testing.T) {
	record := &domain.EvidenceRecord{
		Gene: "BRAF", Variant: "V600E",
		CIViCEvidence: []domain.CIViCEvidence{
			{Gene: "BRAF", Variant: "V600E", Disease: "Melanoma", Drugs: []string{"vemurafenib"},
				Level: domain.LevelA, Type: domain.Predictive, Significance: "Sensitivity/Response"},
			{Gene: "BRAF", Variant: "V600E", Disease: "Melanoma", Drugs: []string{"vemurafenib"},
				Level: domain.LevelB, Type: domain.Predictive, Significance: "Resistance"},
			{Gene: "BRAF", Variant: "V600E", Disease: "Melanoma", Drugs: []string{"vemurafenib"},
				Level: domain.LevelC, Type: domain.Prognostic, Significance: "Poor Outcome"},
		},
	}

	stats := ComputeStats(record, "Melanoma")
	assert.Equal(t, 1, stats.SensitivityCount, "prognostic items must not count")
	assert.Equal(t, 1, stats.ResistanceCount)
	assert.Equal(t, 1, stats.SensitivityByLevel[domain.LevelA])
	assert.Equal(t, 1, stats.ResistanceByLevel[domain.LevelB])
}

func TestComputeStats_TumorFiltering(t *testing.T) {
	record := &domain.EvidenceRecord{
		Gene: "EGFR", Variant: "L858R",
		VICCEvidence: []domain.VICCEvidence{
			viccSensitivity("erlotinib", "NSCLC", domain.LevelA),
			viccSensitivity("erlotinib", "Glioblastoma", domain.LevelB),
		},
	}

	stats := ComputeStats(record, "non-small cell lung cancer")
	assert.Equal(t, 1, stats.SensitivityCount, "off-tumor evidence must be filtered")

	unfiltered := ComputeStats(record, "")
	assert.Equal(t, 2, unfiltered.SensitivityCount, "empty tumor type counts everything")
}

func TestComputeStats_FDAApprovedFlag(t *testing.T) {
	record := &domain.EvidenceRecord{
		Gene: "BRAF", Variant: "V600E",
		FDAApprovals: []domain.FDAApproval{
			{Gene: "BRAF", Drugs: []string{"vemurafenib"}, TumorType: "Melanoma",
				Indication: "treatment of melanoma with BRAF V600E mutation"},
		},
	}

	assert.True(t, ComputeStats(record, "Melanoma").HasFDAApproved)
	assert.False(t, ComputeStats(record, "Colorectal Cancer").HasFDAApproved)
}

func TestComputeStats_NilRecord(t *testing.T) {
	stats := ComputeStats(nil, "Melanoma")
	assert.Equal(t, domain.DominantNone, stats.DominantSignal)
	assert.Zero(t, stats.SensitivityCount)
	assert.Zero(t, stats.ResistanceCount)
}
