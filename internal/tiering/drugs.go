package tiering

import (
	"sort"
	"strings"

	"github.com/onco-tier-server/internal/domain"
)

// netSignalRatio is the minimum count ratio for one direction to win an
// otherwise mixed drug rollup. Fixed design constant.
const netSignalRatio = 3

// drugRollup accumulates all observations for one drug across sources.
type drugRollup struct {
	drug              string
	sensitivityCount  int
	resistanceCount   int
	sensitivityLevels []domain.EvidenceLevel
	resistanceLevels  []domain.EvidenceLevel
	diseases          map[string]struct{}
}

// AggregateByDrug rolls up every evidence source by drug name into a net
// signal weighted by evidence-level priority. Output is sorted by best level
// ascending then total count descending, then drug name for determinism.
func AggregateByDrug(record *domain.EvidenceRecord) []domain.DrugAggregate {
	record = withNonNil(record)
	rollups := make(map[string]*drugRollup)

	for _, ev := range record.CIViCEvidence {
		if ev.Type != domain.Predictive {
			continue
		}
		sig := strings.ToUpper(ev.Significance)
		switch {
		case strings.Contains(sig, "SENSITIVITY") || strings.Contains(sig, "RESPONSE"):
			addRollup(rollups, ev.Drugs, ev.Level, ev.Disease, true)
		case strings.Contains(sig, "RESISTANCE"):
			addRollup(rollups, ev.Drugs, ev.Level, ev.Disease, false)
		}
	}
	for _, ev := range record.VICCEvidence {
		switch {
		case ev.IsSensitivity:
			addRollup(rollups, ev.Drugs, ev.Level, ev.Disease, true)
		case ev.IsResistance:
			addRollup(rollups, ev.Drugs, ev.Level, ev.Disease, false)
		}
	}
	for _, bm := range record.CGIBiomarkers {
		level := bm.Level
		if level == "" {
			level = domain.LevelB
		}
		if strings.EqualFold(bm.Association, "resistant") {
			addRollup(rollups, bm.Drugs, level, bm.TumorType, false)
		} else {
			addRollup(rollups, bm.Drugs, level, bm.TumorType, true)
		}
	}
	for _, ap := range record.FDAApprovals {
		addRollup(rollups, ap.Drugs, domain.LevelA, ap.TumorType, true)
	}

	aggregates := make([]domain.DrugAggregate, 0, len(rollups))
	for _, r := range rollups {
		aggregates = append(aggregates, r.finish())
	}
	sort.Slice(aggregates, func(i, j int) bool {
		a, b := aggregates[i], aggregates[j]
		if a.BestLevel.Rank() != b.BestLevel.Rank() {
			return a.BestLevel.Rank() < b.BestLevel.Rank()
		}
		at := a.SensitivityCount + a.ResistanceCount
		bt := b.SensitivityCount + b.ResistanceCount
		if at != bt {
			return at > bt
		}
		return a.Drug < b.Drug
	})
	return aggregates
}

func addRollup(rollups map[string]*drugRollup, drugs []string, level domain.EvidenceLevel, disease string, sensitivity bool) {
	for _, drug := range drugs {
		key := strings.ToLower(strings.TrimSpace(drug))
		if key == "" {
			continue
		}
		r, ok := rollups[key]
		if !ok {
			r = &drugRollup{drug: key, diseases: make(map[string]struct{})}
			rollups[key] = r
		}
		if disease != "" {
			r.diseases[disease] = struct{}{}
		}
		if sensitivity {
			r.sensitivityCount++
			r.sensitivityLevels = append(r.sensitivityLevels, level)
		} else {
			r.resistanceCount++
			r.resistanceLevels = append(r.resistanceLevels, level)
		}
	}
}

func (r *drugRollup) finish() domain.DrugAggregate {
	diseases := make([]string, 0, len(r.diseases))
	for d := range r.diseases {
		diseases = append(diseases, d)
	}
	sort.Strings(diseases)
	sortLevels(r.sensitivityLevels)
	sortLevels(r.resistanceLevels)
	return domain.DrugAggregate{
		Drug:              r.drug,
		SensitivityCount:  r.sensitivityCount,
		ResistanceCount:   r.resistanceCount,
		SensitivityLevels: r.sensitivityLevels,
		ResistanceLevels:  r.resistanceLevels,
		Diseases:          diseases,
		BestLevel:         bestLevel(r.sensitivityLevels, r.resistanceLevels),
		NetSignal:         netSignal(r.sensitivityCount, r.resistanceCount),
	}
}

func sortLevels(levels []domain.EvidenceLevel) {
	sort.Slice(levels, func(i, j int) bool { return levels[i].Rank() < levels[j].Rank() })
}

func bestLevel(groups ...[]domain.EvidenceLevel) domain.EvidenceLevel {
	best := domain.LevelUnknown
	for _, levels := range groups {
		for _, l := range levels {
			if l.Better(best) {
				best = l
			}
		}
	}
	return best
}

// netSignal resolves a drug's direction: a clean sweep wins outright, a
// 3x count advantage wins, anything closer stays MIXED.
func netSignal(sens, res int) domain.DrugSignal {
	switch {
	case sens > 0 && res == 0:
		return domain.SignalSensitive
	case res > 0 && sens == 0:
		return domain.SignalResistant
	case sens >= netSignalRatio*res:
		return domain.SignalSensitive
	case res >= netSignalRatio*sens:
		return domain.SignalResistant
	default:
		return domain.SignalMixed
	}
}
