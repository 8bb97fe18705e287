// Package domain contains core business entities and types for somatic variant
// actionability classification following the AMP/ASCO/CAP tier system.
//
// Reference: Li et al. (2017) Standards and Guidelines for the Interpretation and
// Reporting of Sequence Variants in Cancer. J Mol Diagn. 19(1):4-23.
package domain

import "strings"

// Tier represents the AMP/ASCO/CAP clinical actionability tier of a variant.
type Tier string

const (
	TierI       Tier = "I"
	TierII      Tier = "II"
	TierIII     Tier = "III"
	TierIV      Tier = "IV"
	TierUnknown Tier = "UNKNOWN"
)

// Sublevel refines a tier (A strongest down to D); empty for Tier IV/Unknown.
type Sublevel string

const (
	SublevelA    Sublevel = "A"
	SublevelB    Sublevel = "B"
	SublevelC    Sublevel = "C"
	SublevelD    Sublevel = "D"
	SublevelNone Sublevel = ""
)

// EvidenceLevel is the source-provided confidence ranking, A highest
// (FDA-label grade) down to D (preclinical/case report).
type EvidenceLevel string

const (
	LevelA       EvidenceLevel = "A"
	LevelB       EvidenceLevel = "B"
	LevelC       EvidenceLevel = "C"
	LevelD       EvidenceLevel = "D"
	LevelUnknown EvidenceLevel = "UNKNOWN"
)

// EvidenceType categorizes what a piece of evidence speaks to.
type EvidenceType string

const (
	Predictive EvidenceType = "PREDICTIVE"
	Prognostic EvidenceType = "PROGNOSTIC"
	Diagnostic EvidenceType = "DIAGNOSTIC"
)

// GeneRole is the biological role of a cancer gene.
type GeneRole string

const (
	Oncogene        GeneRole = "ONCOGENE"
	TumorSuppressor GeneRole = "TSG"
	DDR             GeneRole = "DDR"
	RoleUnknown     GeneRole = "UNKNOWN"
)

// DrugSignal is the per-drug net therapeutic signal after aggregation.
type DrugSignal string

const (
	SignalSensitive DrugSignal = "SENSITIVE"
	SignalResistant DrugSignal = "RESISTANT"
	SignalMixed     DrugSignal = "MIXED"
)

// DominantSignal summarizes the overall sensitivity/resistance balance of a record.
type DominantSignal string

const (
	DominantNone        DominantSignal = "none"
	DominantSensitivity DominantSignal = "sensitivity_dominant"
	DominantResistance  DominantSignal = "resistance_dominant"
	SensitivityOnly     DominantSignal = "sensitivity_only"
	ResistanceOnly      DominantSignal = "resistance_only"
	DominantMixed       DominantSignal = "mixed"
)

// LOFState is the tri-state loss-of-function assessment of a variant.
type LOFState string

const (
	LOF        LOFState = "LOF"
	Tolerated  LOFState = "TOLERATED"
	LOFUnknown LOFState = "UNKNOWN"
)

// IsValid reports whether the tier is one of the AMP/ASCO/CAP tiers.
func (t Tier) IsValid() bool {
	switch t {
	case TierI, TierII, TierIII, TierIV, TierUnknown:
		return true
	default:
		return false
	}
}

// String returns the string form for logging and reports.
func (t Tier) String() string { return string(t) }

// ClinicalSignificance returns a reporting description of the tier.
func (t Tier) ClinicalSignificance() string {
	switch t {
	case TierI:
		return "Variant of strong clinical significance"
	case TierII:
		return "Variant of potential clinical significance"
	case TierIII:
		return "Variant of unknown clinical significance"
	case TierIV:
		return "Benign or likely benign variant"
	default:
		return "Unclassified variant"
	}
}

// RequiresClinicalAction reports whether the tier implies actionable follow-up.
func (t Tier) RequiresClinicalAction() bool {
	return t == TierI || t == TierII
}

func (s Sublevel) IsValid() bool {
	switch s {
	case SublevelA, SublevelB, SublevelC, SublevelD, SublevelNone:
		return true
	default:
		return false
	}
}

func (s Sublevel) String() string { return string(s) }

// Rank orders evidence levels for comparison; A is best (0), unknown worst.
func (l EvidenceLevel) Rank() int {
	switch l {
	case LevelA:
		return 0
	case LevelB:
		return 1
	case LevelC:
		return 2
	case LevelD:
		return 3
	default:
		return 4
	}
}

// Better reports whether l ranks strictly above other.
func (l EvidenceLevel) Better(other EvidenceLevel) bool {
	return l.Rank() < other.Rank()
}

// IsHighQuality reports whether the level is A or B.
func (l EvidenceLevel) IsHighQuality() bool {
	return l == LevelA || l == LevelB
}

// ParseEvidenceLevel normalizes free-text level strings from external sources.
func ParseEvidenceLevel(s string) EvidenceLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "LEVEL A", "1", "1A":
		return LevelA
	case "B", "LEVEL B", "2", "1B", "2A":
		return LevelB
	case "C", "LEVEL C", "3", "2B":
		return LevelC
	case "D", "LEVEL D", "4":
		return LevelD
	default:
		return LevelUnknown
	}
}

func (e EvidenceType) IsValid() bool {
	switch e {
	case Predictive, Prognostic, Diagnostic:
		return true
	default:
		return false
	}
}

func (r GeneRole) IsValid() bool {
	switch r {
	case Oncogene, TumorSuppressor, DDR, RoleUnknown:
		return true
	default:
		return false
	}
}

func (s LOFState) IsValid() bool {
	switch s {
	case LOF, Tolerated, LOFUnknown:
		return true
	default:
		return false
	}
}
