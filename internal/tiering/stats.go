package tiering

import (
	"sort"
	"strings"

	"github.com/onco-tier-server/internal/domain"
)

// dominantSignalThreshold is the fraction of total signals one side must
// reach before it is called dominant. Fixed design constant.
const dominantSignalThreshold = 0.8

// drugBucket accumulates directional signals for one drug during the stats pass.
type drugBucket struct {
	sensitivity         int
	resistance          int
	sensitivityContexts []string
	resistanceContexts  []string
}

// ComputeStats iterates the record's VICC and CIViC PREDICTIVE evidence,
// classifies each item as sensitivity or resistance, accumulates per-level
// counts and per-drug buckets, and surfaces same-drug conflicts verbatim.
// tumorType restricts counting to matching diseases when non-empty.
func ComputeStats(record *domain.EvidenceRecord, tumorType string) domain.EvidenceStats {
	stats := domain.EvidenceStats{
		SensitivityByLevel: make(map[domain.EvidenceLevel]int),
		ResistanceByLevel:  make(map[domain.EvidenceLevel]int),
	}
	buckets := make(map[string]*drugBucket)

	record = withNonNil(record)

	for _, ev := range record.VICCEvidence {
		if tumorType != "" && ev.Disease != "" && !TumorTypesMatch(tumorType, ev.Disease) {
			continue
		}
		context := ev.Source + " " + ev.Disease
		switch {
		case ev.IsSensitivity:
			stats.SensitivityCount++
			stats.SensitivityByLevel[ev.Level]++
			accumulate(buckets, ev.Drugs, true, context)
		case ev.IsResistance:
			stats.ResistanceCount++
			stats.ResistanceByLevel[ev.Level]++
			accumulate(buckets, ev.Drugs, false, context)
		}
	}

	for _, ev := range record.CIViCEvidence {
		if ev.Type != domain.Predictive {
			continue
		}
		if tumorType != "" && ev.Disease != "" && !TumorTypesMatch(tumorType, ev.Disease) {
			continue
		}
		sig := strings.ToUpper(ev.Significance)
		context := "CIViC " + ev.Disease
		switch {
		case strings.Contains(sig, "SENSITIVITY") || strings.Contains(sig, "RESPONSE"):
			stats.SensitivityCount++
			stats.SensitivityByLevel[ev.Level]++
			accumulate(buckets, ev.Drugs, true, context)
		case strings.Contains(sig, "RESISTANCE"):
			stats.ResistanceCount++
			stats.ResistanceByLevel[ev.Level]++
			accumulate(buckets, ev.Drugs, false, context)
		}
	}

	for _, ap := range record.FDAApprovals {
		if tumorType == "" || TumorTypesMatch(tumorType, ap.TumorType) || TumorTypesMatch(tumorType, ap.Indication) {
			stats.HasFDAApproved = true
			break
		}
	}

	stats.Conflicts = collectConflicts(buckets)
	stats.DominantSignal = dominantSignal(stats.SensitivityCount, stats.ResistanceCount)
	return stats
}

// accumulate records one directional observation for every drug an item names.
func accumulate(buckets map[string]*drugBucket, drugs []string, sensitivity bool, context string) {
	for _, drug := range drugs {
		key := strings.ToLower(strings.TrimSpace(drug))
		if key == "" {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &drugBucket{}
			buckets[key] = b
		}
		if sensitivity {
			b.sensitivity++
			b.sensitivityContexts = append(b.sensitivityContexts, context)
		} else {
			b.resistance++
			b.resistanceContexts = append(b.resistanceContexts, context)
		}
	}
}

// collectConflicts reports every drug seen with both directions. Conflicts
// are surfaced with both contexts verbatim; no side is picked here.
func collectConflicts(buckets map[string]*drugBucket) []domain.DrugConflict {
	var conflicts []domain.DrugConflict
	for drug, b := range buckets {
		if b.sensitivity > 0 && b.resistance > 0 {
			conflicts = append(conflicts, domain.DrugConflict{
				Drug:               drug,
				SensitivityContext: strings.Join(b.sensitivityContexts, "; "),
				ResistanceContext:  strings.Join(b.resistanceContexts, "; "),
				SensitivityCount:   b.sensitivity,
				ResistanceCount:    b.resistance,
			})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Drug < conflicts[j].Drug })
	return conflicts
}

// dominantSignal classifies the overall balance; order-independent by
// construction since it only consumes totals.
func dominantSignal(sens, res int) domain.DominantSignal {
	total := sens + res
	switch {
	case total == 0:
		return domain.DominantNone
	case sens == 0:
		return domain.ResistanceOnly
	case res == 0:
		return domain.SensitivityOnly
	case float64(sens) >= dominantSignalThreshold*float64(total):
		return domain.DominantSensitivity
	case float64(res) >= dominantSignalThreshold*float64(total):
		return domain.DominantResistance
	default:
		return domain.DominantMixed
	}
}

// withNonNil lets stats and aggregation treat a nil record as empty.
func withNonNil(record *domain.EvidenceRecord) *domain.EvidenceRecord {
	if record == nil {
		return &domain.EvidenceRecord{}
	}
	return record
}
