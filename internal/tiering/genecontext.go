package tiering

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/onco-tier-server/internal/domain"
)

// caddDamagingThreshold is the fixed CADD phred cutoff for a damaging call.
const caddDamagingThreshold = 20.0

// geneRoles is the curated biological-role table. DDR membership takes
// precedence because LOF in these genes carries direct therapeutic meaning
// (PARP inhibitor / platinum sensitivity).
var geneRoles = map[string]domain.GeneRole{
	// DNA damage repair
	"BRCA1": domain.DDR, "BRCA2": domain.DDR, "ATM": domain.DDR,
	"ATR": domain.DDR, "PALB2": domain.DDR, "CHEK2": domain.DDR,
	"RAD51B": domain.DDR, "RAD51C": domain.DDR, "RAD51D": domain.DDR,
	"BARD1": domain.DDR, "BRIP1": domain.DDR, "FANCA": domain.DDR,
	"MLH1": domain.DDR, "MSH2": domain.DDR, "MSH6": domain.DDR, "PMS2": domain.DDR,

	// Oncogenes
	"KRAS": domain.Oncogene, "NRAS": domain.Oncogene, "HRAS": domain.Oncogene,
	"BRAF": domain.Oncogene, "EGFR": domain.Oncogene, "KIT": domain.Oncogene,
	"PIK3CA": domain.Oncogene, "ALK": domain.Oncogene, "RET": domain.Oncogene,
	"MET": domain.Oncogene, "ERBB2": domain.Oncogene, "FLT3": domain.Oncogene,
	"JAK2": domain.Oncogene, "IDH1": domain.Oncogene, "IDH2": domain.Oncogene,
	"MYC": domain.Oncogene, "CCND1": domain.Oncogene, "MDM2": domain.Oncogene,
	"FGFR1": domain.Oncogene, "FGFR2": domain.Oncogene, "FGFR3": domain.Oncogene,
	"PDGFRA": domain.Oncogene, "ABL1": domain.Oncogene, "AKT1": domain.Oncogene,

	// Tumor suppressors
	"TP53": domain.TumorSuppressor, "PTEN": domain.TumorSuppressor,
	"RB1": domain.TumorSuppressor, "APC": domain.TumorSuppressor,
	"SMAD4": domain.TumorSuppressor, "VHL": domain.TumorSuppressor,
	"NF1": domain.TumorSuppressor, "NF2": domain.TumorSuppressor,
	"CDKN2A": domain.TumorSuppressor, "STK11": domain.TumorSuppressor,
	"ARID1A": domain.TumorSuppressor, "SMARCA4": domain.TumorSuppressor,
	"POLE": domain.TumorSuppressor, "FBXW7": domain.TumorSuppressor,
	"KEAP1": domain.TumorSuppressor, "BAP1": domain.TumorSuppressor,
}

// ResolveGeneContext classifies a gene's biological role from the curated
// table and the injected cancer-gene registry. A nil registry is treated as
// an empty list; any gene with a curated role is a cancer gene regardless.
func ResolveGeneContext(ctx context.Context, registry domain.CancerGeneRegistry, gene string) domain.GeneContext {
	symbol := strings.ToUpper(strings.TrimSpace(gene))
	role, curated := geneRoles[symbol]
	if !curated {
		role = domain.RoleUnknown
	}
	isCancerGene := curated
	if !isCancerGene && registry != nil {
		isCancerGene = registry.IsKnownCancerGene(ctx, symbol)
	}
	return domain.GeneContext{Gene: symbol, Role: role, IsCancerGene: isCancerGene}
}

// Notation patterns that imply a truncated or absent protein product.
var (
	frameshiftPattern = regexp.MustCompile(`(?i)(fs\*?\d*$|fs\b|frameshift)`)
	nonsensePattern   = regexp.MustCompile(`(?i)([A-Z]\d+\*|[A-Z]\d+(Ter|X)$|nonsense|stop[- ]gain)`)
	deletionPattern   = regexp.MustCompile(`(?i)(^|[^a-z])(del(etion)?|loss)([^a-z]|$)`)
	splicePattern     = regexp.MustCompile(`(?i)(splice|[+-]\d+[ACGT]>[ACGT])`)
)

// AssessLOF combines variant-notation heuristics with the available
// functional predictors into a tri-state loss-of-function call. Absent any
// signal the state is UNKNOWN; the permissive treatment of UNKNOWN is the
// caller's decision (the engine grants it only to DDR genes).
func AssessLOF(variant string, preds domain.FunctionalPredictions) domain.LOFAssessment {
	v := strings.TrimSpace(variant)

	switch {
	case nonsensePattern.MatchString(v):
		return domain.LOFAssessment{State: domain.LOF, Confidence: 0.95,
			Rationale: "nonsense variant introduces a premature stop codon"}
	case frameshiftPattern.MatchString(v):
		return domain.LOFAssessment{State: domain.LOF, Confidence: 0.95,
			Rationale: "frameshift variant disrupts the reading frame"}
	case splicePattern.MatchString(v):
		return domain.LOFAssessment{State: domain.LOF, Confidence: 0.85,
			Rationale: "splice-site variant is expected to disrupt the transcript"}
	case deletionPattern.MatchString(v):
		return domain.LOFAssessment{State: domain.LOF, Confidence: 0.8,
			Rationale: "deletion is expected to remove functional protein"}
	}

	var damaging, tolerated []string

	switch strings.ToLower(preds.PolyPhen2) {
	case "probably_damaging", "probably damaging":
		damaging = append(damaging, "PolyPhen2 probably damaging")
	case "possibly_damaging", "possibly damaging":
		damaging = append(damaging, "PolyPhen2 possibly damaging")
	case "benign":
		tolerated = append(tolerated, "PolyPhen2 benign")
	}

	if preds.HasCADD {
		if preds.CADDScore >= caddDamagingThreshold {
			damaging = append(damaging, fmt.Sprintf("CADD %.1f", preds.CADDScore))
		} else {
			tolerated = append(tolerated, fmt.Sprintf("CADD %.1f", preds.CADDScore))
		}
	}

	switch strings.ToLower(preds.AlphaMissense) {
	case "likely_pathogenic", "pathogenic":
		damaging = append(damaging, "AlphaMissense likely pathogenic")
	case "ambiguous":
		damaging = append(damaging, "AlphaMissense ambiguous")
	case "likely_benign", "benign":
		tolerated = append(tolerated, "AlphaMissense likely benign")
	}

	switch {
	case len(damaging) > 0 && len(tolerated) == 0:
		return domain.LOFAssessment{
			State:      domain.LOF,
			Confidence: 0.6 + 0.1*float64(min(len(damaging), 3)),
			Rationale:  "functional predictors damaging: " + strings.Join(damaging, ", "),
		}
	case len(tolerated) > 0 && len(damaging) == 0:
		return domain.LOFAssessment{
			State:      domain.Tolerated,
			Confidence: 0.6,
			Rationale:  "functional predictors tolerated: " + strings.Join(tolerated, ", "),
		}
	case len(damaging) > 0 && len(tolerated) > 0:
		return domain.LOFAssessment{
			State:      domain.LOFUnknown,
			Confidence: 0.3,
			Rationale: "functional predictors disagree: " +
				strings.Join(damaging, ", ") + " vs " + strings.Join(tolerated, ", "),
		}
	default:
		return domain.LOFAssessment{
			State:      domain.LOFUnknown,
			Confidence: 0,
			Rationale:  "no notation signal and no functional predictions available",
		}
	}
}

// PredictedDamaging reports whether any functional predictor flags the
// variant as damaging (CADD uses the fixed >=20 threshold).
func PredictedDamaging(preds domain.FunctionalPredictions) (bool, string) {
	var hits []string
	if p := strings.ToLower(preds.PolyPhen2); strings.Contains(p, "damaging") {
		hits = append(hits, "PolyPhen2 "+preds.PolyPhen2)
	}
	if preds.HasCADD && preds.CADDScore >= caddDamagingThreshold {
		hits = append(hits, fmt.Sprintf("CADD %.1f", preds.CADDScore))
	}
	if a := strings.ToLower(preds.AlphaMissense); strings.Contains(a, "pathogenic") {
		hits = append(hits, "AlphaMissense "+preds.AlphaMissense)
	}
	if len(hits) == 0 {
		return false, ""
	}
	return true, strings.Join(hits, ", ")
}
