package tiering

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/internal/geneconfig"
)

// FDAResolver answers whether an FDA-approved therapy exists specifically for
// a variant in a tumor type. All matching rules live in the geneconfig tables
// so they can be extended without touching this code path.
type FDAResolver struct {
	cfg *geneconfig.Config
}

// NewFDAResolver builds a resolver over the given rule tables; a nil config
// falls back to the built-in defaults.
func NewFDAResolver(cfg *geneconfig.Config) *FDAResolver {
	if cfg == nil {
		cfg = geneconfig.Default()
	}
	return &FDAResolver{cfg: cfg}
}

// HasFDAForVariantInTumor runs the approval check chain, short-circuiting on
// the first step that answers:
//
//  1. investigational-only gene/tumor pairs deny outright
//  2. variant explicitly named in a tumor-matched indication text
//  3. gene mention plus variant-class match in a tumor-matched approval
//  4. CIViC level A/B predictive sensitivity evidence, tumor-matched
//  5. CIViC assertions with NCCN backing or a Tier I assertion
//  6. CGI biomarkers flagged FDA-approved with non-resistance association
func (f *FDAResolver) HasFDAForVariantInTumor(record *domain.EvidenceRecord, tumorType string) bool {
	record = withNonNil(record)
	gene := strings.ToUpper(strings.TrimSpace(record.Gene))
	variant := strings.TrimSpace(record.Variant)

	if f.cfg.IsInvestigationalOnly(gene, tumorType) {
		return false
	}

	gc, hasClass := f.cfg.GeneClass(gene)

	for _, ap := range record.FDAApprovals {
		if !approvalMatchesTumor(ap, tumorType) {
			continue
		}
		indication := strings.ToLower(ap.Indication)

		// A negated variant mention poisons the whole approval item, the
		// variant-class pass included.
		if f.excludedByPhrase(indication, variant) {
			continue
		}
		if hasClass && specialRuleDenies(gc, variant, tumorType, indication) {
			continue
		}

		if variantNamedInIndication(indication, variant) || ap.VariantExplicit {
			return true
		}
		if approvalMentionsGene(ap, indication, gene) && f.variantCoveredByClass(gc, hasClass, variant, indication) {
			return true
		}
	}

	for _, ev := range record.CIViCEvidence {
		if !ev.Level.IsHighQuality() || ev.Type != domain.Predictive {
			continue
		}
		if !isSensitivitySignificance(ev.Significance) {
			continue
		}
		if !TumorTypesMatch(tumorType, ev.Disease) {
			continue
		}
		if mentionsVariantOrGene(ev.Description, ev.Variant, gene, variant) {
			return true
		}
	}

	for _, as := range record.CIViCAssertions {
		if !isSensitivitySignificance(as.Significance) {
			continue
		}
		if !TumorTypesMatch(tumorType, as.Disease) {
			continue
		}
		if as.NCCNGuideline != "" || isTierIAssertion(as.AMPTier) {
			return true
		}
	}

	for _, bm := range record.CGIBiomarkers {
		if !bm.FDAApproved || strings.EqualFold(bm.Association, "resistant") {
			continue
		}
		if TumorTypesMatch(tumorType, bm.TumorType) {
			return true
		}
	}

	return false
}

// HasOffTumorApproval reports whether the gene+variant matches an approval's
// criteria in some tumor type other than the queried one. Special rules still
// apply: a tumor-context exclusion denies the off-tumor fallback too.
func (f *FDAResolver) HasOffTumorApproval(record *domain.EvidenceRecord, tumorType string) bool {
	record = withNonNil(record)
	gene := strings.ToUpper(strings.TrimSpace(record.Gene))
	variant := strings.TrimSpace(record.Variant)
	gc, hasClass := f.cfg.GeneClass(gene)

	for _, ap := range record.FDAApprovals {
		if tumorType != "" && approvalMatchesTumor(ap, tumorType) {
			continue
		}
		indication := strings.ToLower(ap.Indication)
		if hasClass && specialRuleDenies(gc, variant, tumorType, indication) {
			continue
		}
		if variantNamedInIndication(indication, variant) || ap.VariantExplicit {
			if !f.excludedByPhrase(indication, variant) {
				return true
			}
			continue
		}
		if approvalMentionsGene(ap, indication, gene) && f.variantCoveredByClass(gc, hasClass, variant, indication) {
			return true
		}
	}
	return false
}

// variantCoveredByClass applies the per-gene variant-class tables. A gene
// with no configured class defaults to approve unless it is flagged to
// require an explicit match.
func (f *FDAResolver) variantCoveredByClass(gc geneconfig.GeneClass, hasClass bool, variant, indication string) bool {
	if !hasClass {
		return true
	}
	if len(gc.VariantClasses) == 0 {
		return !gc.RequireExplicit
	}
	for _, vc := range gc.VariantClasses {
		if variantClassMatches(vc, variant, indication) {
			return true
		}
	}
	return !gc.RequireExplicit && len(gc.VariantClasses) == 0
}

func variantClassMatches(vc geneconfig.VariantClassRule, variant, indication string) bool {
	v := strings.ToLower(strings.TrimSpace(variant))

	for _, ex := range vc.ExcludeVariants {
		if strings.EqualFold(ex, variant) {
			return false
		}
	}
	for _, ex := range vc.ExcludePatterns {
		if ex != "" && strings.Contains(indication, strings.ToLower(ex)) {
			return false
		}
	}

	for _, cand := range vc.Variants {
		if cand == "*" || strings.EqualFold(cand, variant) {
			return true
		}
	}
	for _, p := range vc.Patterns {
		if p != "" && strings.Contains(indication, strings.ToLower(p)) {
			return true
		}
	}
	if codon, ok := variantCodon(v); ok {
		for _, cr := range vc.CodonRanges {
			if codon >= cr.Start && codon <= cr.End {
				return true
			}
		}
	}
	return false
}

// specialRuleDenies applies per-variant exception rules. When the tumor
// context matches an exclusion substring: a plain rule denies outright, an
// unless_explicit rule denies unless the variant literally appears in the
// indication text.
func specialRuleDenies(gc geneconfig.GeneClass, variant, tumorType, indication string) bool {
	tumor := strings.ToLower(strings.TrimSpace(tumorType))
	v := strings.ToLower(strings.TrimSpace(variant))
	for _, sr := range gc.SpecialRules {
		if !strings.EqualFold(sr.Variant, variant) {
			continue
		}
		for _, excl := range sr.TumorExcludes {
			if tumor == "" || !strings.Contains(tumor, strings.ToLower(excl)) {
				continue
			}
			if sr.UnlessExplicit && strings.Contains(indication, v) {
				continue
			}
			return true
		}
	}
	return false
}

// excludedByPhrase reports whether the indication names the variant only in a
// negated context ("without the <variant>", "excluding <variant>", ...). The
// phrase must precede the variant mention within a short window.
func (f *FDAResolver) excludedByPhrase(indication, variant string) bool {
	v := strings.ToLower(strings.TrimSpace(variant))
	if v == "" {
		return false
	}
	for _, phrase := range f.cfg.ExclusionPhrases {
		p := strings.ToLower(phrase)
		idx := 0
		for {
			rel := strings.Index(indication[idx:], p)
			if rel < 0 {
				break
			}
			at := idx + rel + len(p)
			window := indication[at:min(at+60, len(indication))]
			if strings.Contains(window, v) {
				return true
			}
			idx = at
		}
	}
	return false
}

func approvalMatchesTumor(ap domain.FDAApproval, tumorType string) bool {
	if tumorType == "" {
		return false
	}
	if ap.TumorType != "" && TumorTypesMatch(tumorType, ap.TumorType) {
		return true
	}
	return strings.Contains(strings.ToLower(ap.Indication), strings.ToLower(strings.TrimSpace(tumorType)))
}

func approvalMentionsGene(ap domain.FDAApproval, indication, gene string) bool {
	if strings.EqualFold(ap.Gene, gene) {
		return true
	}
	return strings.Contains(indication, strings.ToLower(gene))
}

func variantNamedInIndication(indication, variant string) bool {
	v := strings.ToLower(strings.TrimSpace(variant))
	return v != "" && strings.Contains(indication, v)
}

func mentionsVariantOrGene(description, evVariant, gene, variant string) bool {
	if strings.EqualFold(evVariant, variant) {
		return true
	}
	desc := strings.ToLower(description)
	return strings.Contains(desc, strings.ToLower(variant)) ||
		strings.Contains(desc, strings.ToLower(gene))
}

func isSensitivitySignificance(significance string) bool {
	s := strings.ToUpper(significance)
	return strings.Contains(s, "SENSITIVITY") || strings.Contains(s, "RESPONSE")
}

func isTierIAssertion(ampTier string) bool {
	t := strings.ToUpper(strings.ReplaceAll(ampTier, " ", "_"))
	return t == "TIER_I" || t == "I" || strings.HasPrefix(t, "TIER_I_")
}

var codonPattern = regexp.MustCompile(`^(?:p\.)?[a-z]{1,3}(\d+)`)

// variantCodon extracts the codon position from protein notation such as
// V600E, D816V or p.Thr790Met.
func variantCodon(variant string) (int, bool) {
	m := codonPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(variant)))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// TierISublevel resolves the sublevel once the approval chain matched: A for
// FDA-approved, CIViC level A, NCCN-backed, Tier I assertions, or CGI
// FDA-approved evidence; B for CIViC level B; A as the fallback.
func (f *FDAResolver) TierISublevel(record *domain.EvidenceRecord, tumorType string) domain.Sublevel {
	record = withNonNil(record)

	for _, ap := range record.FDAApprovals {
		if approvalMatchesTumor(ap, tumorType) {
			return domain.SublevelA
		}
	}
	hasCIViCB := false
	for _, ev := range record.CIViCEvidence {
		if ev.Type != domain.Predictive || !isSensitivitySignificance(ev.Significance) {
			continue
		}
		if ev.Level == domain.LevelA {
			return domain.SublevelA
		}
		if ev.Level == domain.LevelB {
			hasCIViCB = true
		}
	}
	for _, as := range record.CIViCAssertions {
		if as.NCCNGuideline != "" || isTierIAssertion(as.AMPTier) {
			return domain.SublevelA
		}
	}
	for _, bm := range record.CGIBiomarkers {
		if bm.FDAApproved && !strings.EqualFold(bm.Association, "resistant") {
			return domain.SublevelA
		}
	}
	if hasCIViCB {
		return domain.SublevelB
	}
	return domain.SublevelA
}

// TierIIISublevel maps the classification context of a Tier III outcome to a
// sublevel.
func TierIIISublevel(context string) domain.Sublevel {
	switch context {
	case "general":
		return domain.SublevelA
	case "prognostic_only":
		return domain.SublevelC
	case "vus_cancer_gene", "predicted_damaging":
		return domain.SublevelB
	case "no_evidence":
		return domain.SublevelD
	default:
		return domain.SublevelD
	}
}
