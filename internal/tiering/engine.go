package tiering

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/internal/geneconfig"
)

// literatureConfidenceThreshold gates LLM-extracted literature knowledge;
// extractions below it never influence the tier. Fixed design constant.
const literatureConfidenceThreshold = 0.7

// Engine classifies a variant into an AMP/ASCO/CAP tier by walking an
// explicit, ordered rule table. The first matching rule wins. Everything the
// rules consult comes from the EvidenceRecord and the geneconfig tables, so
// classifying the same record twice always yields the same result.
type Engine struct {
	logger   *logrus.Logger
	cfg      *geneconfig.Config
	resolver *FDAResolver
	registry domain.CancerGeneRegistry
	rules    []tierRule
}

// tierRule pairs a name with a predicate-and-outcome evaluator. A nil result
// means the rule does not apply and evaluation continues down the table.
type tierRule struct {
	name string
	eval func(ctx context.Context, ec *evalContext) *domain.TierResult
}

// evalContext carries the per-classification inputs plus lazily computed
// aggregations shared across rules.
type evalContext struct {
	record    *domain.EvidenceRecord
	tumorType string

	stats     *domain.EvidenceStats
	geneCtx   *domain.GeneContext
	engineRef *Engine
}

// NewEngine builds the decision engine. A nil config falls back to the
// built-in rule tables; a nil registry means only curated-role genes count as
// cancer genes.
func NewEngine(logger *logrus.Logger, cfg *geneconfig.Config, registry domain.CancerGeneRegistry) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg == nil {
		cfg = geneconfig.Default()
	}
	e := &Engine{
		logger:   logger,
		cfg:      cfg,
		resolver: NewFDAResolver(cfg),
		registry: registry,
	}
	e.rules = []tierRule{
		{"benign_override", e.evalBenignOverride},
		{"subtype_defining", e.evalSubtypeDefining},
		{"fda_variant_tumor", e.evalFDAVariantTumor},
		{"literature_tier_i", e.evalLiteratureTierI},
		{"variant_specific_trials", e.evalVariantTrials},
		{"investigational_only", e.evalInvestigationalOnly},
		{"resistance_marker", e.evalResistanceMarker},
		{"prognostic_only", e.evalPrognosticOnly},
		{"fda_other_tumor", e.evalFDAOtherTumor},
		{"gene_level_therapeutics", e.evalGeneLevelTherapeutics},
		{"gene_context", e.evalGeneContext},
		{"predicted_damaging", e.evalPredictedDamaging},
		{"vus_cancer_gene", e.evalVUSCancerGene},
		{"default", e.evalDefault},
	}
	return e
}

// Classify walks the rule table top to bottom and returns the first match.
// The terminal default rule always matches, so any record that passes
// identity validation produces a result.
func (e *Engine) Classify(ctx context.Context, record *domain.EvidenceRecord, tumorType string) (domain.TierResult, error) {
	if err := record.Validate(); err != nil {
		return domain.TierResult{}, err
	}

	log := e.logger.WithFields(logrus.Fields{
		"gene":       record.Gene,
		"variant":    record.Variant,
		"tumor_type": tumorType,
	})
	log.Debug("Starting tier classification")

	ec := &evalContext{record: record, tumorType: tumorType, engineRef: e}
	for _, rule := range e.rules {
		if result := rule.eval(ctx, ec); result != nil {
			log.WithFields(logrus.Fields{
				"rule":     rule.name,
				"tier":     result.Tier,
				"sublevel": result.Sublevel,
			}).Info("Tier classification complete")
			return *result, nil
		}
	}

	// Unreachable: the default rule always matches.
	return domain.TierResult{Tier: domain.TierIII, Sublevel: domain.SublevelD,
		Justification: "No applicable classification rule"}, nil
}

// ComputeStats implements domain.TierClassifier.
func (e *Engine) ComputeStats(record *domain.EvidenceRecord, tumorType string) domain.EvidenceStats {
	return ComputeStats(record, tumorType)
}

// AggregateByDrug implements domain.TierClassifier.
func (e *Engine) AggregateByDrug(record *domain.EvidenceRecord) []domain.DrugAggregate {
	return AggregateByDrug(record)
}

func (ec *evalContext) evidenceStats() domain.EvidenceStats {
	if ec.stats == nil {
		s := ComputeStats(ec.record, ec.tumorType)
		ec.stats = &s
	}
	return *ec.stats
}

func (ec *evalContext) geneContext(ctx context.Context) domain.GeneContext {
	if ec.geneCtx == nil {
		gc := ResolveGeneContext(ctx, ec.engineRef.registry, ec.record.Gene)
		ec.geneCtx = &gc
	}
	return *ec.geneCtx
}

// Rule 1: a ClinVar benign call wins over everything, including gene-class
// approvals. A benign variant must never inherit a gene-level drug approval.
func (e *Engine) evalBenignOverride(_ context.Context, ec *evalContext) *domain.TierResult {
	cv := ec.record.ClinVar
	if cv == nil {
		return nil
	}
	sig := strings.ToLower(cv.Significance)
	if !strings.Contains(sig, "benign") || strings.Contains(sig, "pathogenic") {
		return nil
	}
	return &domain.TierResult{
		Tier:     domain.TierIV,
		Sublevel: domain.SublevelNone,
		Justification: fmt.Sprintf("ClinVar classifies %s %s as %s",
			ec.record.Gene, ec.record.Variant, cv.Significance),
	}
}

// Rule 2: variants that define a prognostic molecular subtype per literature
// consensus, such as POLE exonuclease hotspots in endometrial cancer.
func (e *Engine) evalSubtypeDefining(_ context.Context, ec *evalContext) *domain.TierResult {
	rule, ok := e.cfg.SubtypeFor(ec.record.Gene, ec.record.Variant, ec.tumorType)
	if !ok {
		return nil
	}
	just := fmt.Sprintf("%s %s defines a molecular subtype", ec.record.Gene, ec.record.Variant)
	if rule.Note != "" {
		just += ": " + rule.Note
	}
	return &domain.TierResult{Tier: domain.TierI, Sublevel: domain.SublevelB, Justification: just}
}

// Rule 3: FDA or guideline approval for this exact variant in this tumor.
func (e *Engine) evalFDAVariantTumor(_ context.Context, ec *evalContext) *domain.TierResult {
	if !e.resolver.HasFDAForVariantInTumor(ec.record, ec.tumorType) {
		return nil
	}
	return &domain.TierResult{
		Tier:     domain.TierI,
		Sublevel: e.resolver.TierISublevel(ec.record, ec.tumorType),
		Justification: fmt.Sprintf("FDA-approved or guideline-backed therapy exists for %s %s in %s",
			ec.record.Gene, ec.record.Variant, ec.tumorType),
	}
}

// Rule 4: high-confidence LLM-extracted literature knowledge recommending
// Tier I with predictive therapeutic options.
func (e *Engine) evalLiteratureTierI(_ context.Context, ec *evalContext) *domain.TierResult {
	lit := ec.record.Literature
	if lit == nil || lit.Confidence < literatureConfidenceThreshold {
		return nil
	}
	if normalizeTier(lit.SuggestedTier) != domain.TierI {
		return nil
	}
	var drugs []string
	for _, assoc := range lit.SensitiveTo {
		if assoc.IsPredictive {
			drugs = append(drugs, e.cfg.NormalizeDrug(assoc.Drug))
		}
	}
	if len(drugs) == 0 {
		return nil
	}
	return &domain.TierResult{
		Tier:     domain.TierI,
		Sublevel: domain.SublevelB,
		Justification: fmt.Sprintf("Peer-reviewed literature (confidence %.2f) supports sensitivity to %s",
			lit.Confidence, strings.Join(drugs, ", ")),
	}
}

// Rule 5: active clinical trials enrolling for this specific variant.
func (e *Engine) evalVariantTrials(_ context.Context, ec *evalContext) *domain.TierResult {
	for _, trial := range ec.record.ClinicalTrials {
		if trial.VariantSpecific && isActiveTrialStatus(trial.Status) {
			return &domain.TierResult{
				Tier:     domain.TierII,
				Sublevel: domain.SublevelD,
				Justification: fmt.Sprintf("Active clinical trial %s is enrolling for %s %s",
					trial.NCTID, ec.record.Gene, ec.record.Variant),
			}
		}
	}
	return nil
}

// Rule 6: gene/tumor pairs where targeted therapy has failed clinically.
// Short-circuits before the resistance and prognostic checks.
func (e *Engine) evalInvestigationalOnly(_ context.Context, ec *evalContext) *domain.TierResult {
	if !e.cfg.IsInvestigationalOnly(ec.record.Gene, ec.tumorType) {
		return nil
	}
	return &domain.TierResult{
		Tier:     domain.TierIII,
		Sublevel: TierIIISublevel("general"),
		Justification: fmt.Sprintf("Targeted therapy against %s is investigational only in %s",
			ec.record.Gene, nonEmptyTumor(ec.tumorType)),
	}
}

// Rule 7: a resistance marker with no approved targeted alternative. Curated
// sources count directly; literature resistance must be corroborated by a
// matching curated drug, otherwise prognostic associations would masquerade
// as actionable resistance.
func (e *Engine) evalResistanceMarker(_ context.Context, ec *evalContext) *domain.TierResult {
	stats := ec.evidenceStats()
	if stats.SensitivityCount > 0 {
		return nil
	}
	curated := curatedResistanceDrugs(ec.record, e.cfg)

	hasCuratedHQ := false
	for _, ev := range ec.record.CIViCEvidence {
		if ev.Type == domain.Predictive && ev.Level.IsHighQuality() &&
			strings.Contains(strings.ToUpper(ev.Significance), "RESISTANCE") {
			hasCuratedHQ = true
		}
	}
	for _, ev := range ec.record.VICCEvidence {
		if ev.IsResistance && ev.Level.IsHighQuality() {
			hasCuratedHQ = true
		}
	}
	for _, bm := range ec.record.CGIBiomarkers {
		if strings.EqualFold(bm.Association, "resistant") &&
			(bm.Level.IsHighQuality() || bm.Level == "" || bm.Level == domain.LevelUnknown) {
			hasCuratedHQ = true
		}
	}

	corroborated := false
	if lit := ec.record.Literature; lit != nil && lit.Confidence >= literatureConfidenceThreshold {
		for _, assoc := range lit.ResistantTo {
			if !assoc.IsPredictive {
				continue
			}
			if _, ok := curated[e.cfg.NormalizeDrug(assoc.Drug)]; ok {
				corroborated = true
				break
			}
		}
	}

	if !hasCuratedHQ && !corroborated {
		return nil
	}
	drugs := make([]string, 0, len(curated))
	for d := range curated {
		drugs = append(drugs, d)
	}
	drugText := strings.Join(sortedStrings(drugs), ", ")
	if drugText == "" {
		drugText = "targeted therapy"
	}
	return &domain.TierResult{
		Tier:     domain.TierII,
		Sublevel: domain.SublevelD,
		Justification: fmt.Sprintf("%s %s predicts resistance to %s with no approved targeted alternative",
			ec.record.Gene, ec.record.Variant, drugText),
	}
}

// Rule 8: record carries only prognostic or diagnostic evidence, no
// predictive drug evidence anywhere.
func (e *Engine) evalPrognosticOnly(_ context.Context, ec *evalContext) *domain.TierResult {
	if ec.record.HasPredictiveDrugEvidence() {
		return nil
	}
	best := domain.LevelUnknown
	found := false
	for _, ev := range ec.record.CIViCEvidence {
		if ev.Type == domain.Prognostic || ev.Type == domain.Diagnostic {
			found = true
			if ev.Level.Better(best) {
				best = ev.Level
			}
		}
	}
	for _, ev := range ec.record.VICCEvidence {
		if ev.Type == domain.Prognostic || ev.Type == domain.Diagnostic {
			found = true
			if ev.Level.Better(best) {
				best = ev.Level
			}
		}
	}
	if !found {
		return nil
	}
	just := fmt.Sprintf("%s %s carries prognostic or diagnostic evidence only (best level %s)",
		ec.record.Gene, ec.record.Variant, best)
	if best == domain.LevelD || best == domain.LevelUnknown {
		return &domain.TierResult{Tier: domain.TierIII, Sublevel: TierIIISublevel("prognostic_only"), Justification: just}
	}
	return &domain.TierResult{Tier: domain.TierII, Sublevel: domain.SublevelC, Justification: just}
}

// Rule 9: the variant matches an approval's criteria in a different tumor type.
func (e *Engine) evalFDAOtherTumor(_ context.Context, ec *evalContext) *domain.TierResult {
	if !e.resolver.HasOffTumorApproval(ec.record, ec.tumorType) {
		return nil
	}
	return &domain.TierResult{
		Tier:     domain.TierII,
		Sublevel: domain.SublevelA,
		Justification: fmt.Sprintf("FDA approval exists for %s %s in a different tumor type",
			ec.record.Gene, ec.record.Variant),
	}
}

// Rule 10: therapeutic evidence aggregated across all variants of the gene.
func (e *Engine) evalGeneLevelTherapeutics(_ context.Context, ec *evalContext) *domain.TierResult {
	gl := ec.record.GeneLevel
	if gl == nil {
		return nil
	}
	pseudo := &domain.EvidenceRecord{
		Gene:          ec.record.Gene,
		Variant:       ec.record.Variant,
		CIViCEvidence: gl.CIViCEvidence,
		VICCEvidence:  gl.VICCEvidence,
		CGIBiomarkers: gl.CGIBiomarkers,
	}
	aggregates := AggregateByDrug(pseudo)
	if len(aggregates) == 0 {
		return nil
	}

	gene := ec.record.Gene
	for _, agg := range aggregates {
		if agg.NetSignal == domain.SignalMixed {
			return &domain.TierResult{
				Tier:     domain.TierII,
				Sublevel: domain.SublevelC,
				Justification: fmt.Sprintf("Conflicting gene-level evidence for %s response to %s",
					gene, agg.Drug),
			}
		}
	}
	var lowQuality *domain.DrugAggregate
	var otherTumorHQ *domain.DrugAggregate
	for i, agg := range aggregates {
		if agg.NetSignal != domain.SignalSensitive {
			continue
		}
		if agg.BestLevel.IsHighQuality() {
			if aggregateMatchesTumor(agg, ec.tumorType) {
				return &domain.TierResult{
					Tier:     domain.TierII,
					Sublevel: domain.SublevelB,
					Justification: fmt.Sprintf("High-quality gene-level sensitivity evidence for %s to %s in %s",
						gene, agg.Drug, nonEmptyTumor(ec.tumorType)),
				}
			}
			if otherTumorHQ == nil {
				otherTumorHQ = &aggregates[i]
			}
		} else if lowQuality == nil {
			lowQuality = &aggregates[i]
		}
	}
	if otherTumorHQ != nil {
		return &domain.TierResult{
			Tier:     domain.TierII,
			Sublevel: domain.SublevelD,
			Justification: fmt.Sprintf("High-quality gene-level sensitivity evidence for %s to %s in other tumor types",
				gene, otherTumorHQ.Drug),
		}
	}
	if lowQuality != nil {
		return &domain.TierResult{
			Tier:     domain.TierII,
			Sublevel: domain.SublevelD,
			Justification: fmt.Sprintf("Preclinical or case-report gene-level sensitivity evidence for %s to %s",
				gene, lowQuality.Drug),
		}
	}
	return nil
}

// Rule 11: no variant-specific or gene-level evidence applies; fall back on
// the gene's biological role. Unknown LOF is treated permissively only for
// DDR genes, never for oncogenes or tumor suppressors.
func (e *Engine) evalGeneContext(ctx context.Context, ec *evalContext) *domain.TierResult {
	gc := ec.geneContext(ctx)
	if !gc.IsCancerGene {
		return nil
	}
	lof := AssessLOF(ec.record.Variant, ec.record.Predictions)

	switch gc.Role {
	case domain.DDR:
		if lof.State == domain.Tolerated {
			return &domain.TierResult{
				Tier:     domain.TierIII,
				Sublevel: domain.SublevelB,
				Justification: fmt.Sprintf("%s variant in DDR gene %s predicted tolerated: %s",
					ec.record.Variant, gc.Gene, lof.Rationale),
			}
		}
		return &domain.TierResult{
			Tier:     domain.TierII,
			Sublevel: domain.SublevelD,
			Justification: fmt.Sprintf("Loss of function in DDR gene %s suggests potential PARP inhibitor or platinum sensitivity (%s)",
				gc.Gene, lof.Rationale),
		}
	case domain.Oncogene:
		return &domain.TierResult{
			Tier:     domain.TierIII,
			Sublevel: domain.SublevelB,
			Justification: fmt.Sprintf("%s %s lacks hotspot evidence of oncogenic activation; effect unknown",
				gc.Gene, ec.record.Variant),
		}
	case domain.TumorSuppressor:
		if lof.State == domain.LOF {
			return &domain.TierResult{
				Tier:     domain.TierIII,
				Sublevel: domain.SublevelB,
				Justification: fmt.Sprintf("Predicted loss of function in tumor suppressor %s supports pathogenicity but is not directly targetable (%s)",
					gc.Gene, lof.Rationale),
			}
		}
		return &domain.TierResult{
			Tier:     domain.TierIII,
			Sublevel: domain.SublevelC,
			Justification: fmt.Sprintf("%s %s in tumor suppressor without loss-of-function prediction",
				gc.Gene, ec.record.Variant),
		}
	default:
		// Cancer gene with no curated role: defer to the VUS rules below.
		return nil
	}
}

// Rule 12: nothing curated applies but functional predictors call the variant
// damaging.
func (e *Engine) evalPredictedDamaging(_ context.Context, ec *evalContext) *domain.TierResult {
	damaging, summary := PredictedDamaging(ec.record.Predictions)
	if !damaging {
		return nil
	}
	return &domain.TierResult{
		Tier:     domain.TierIII,
		Sublevel: TierIIISublevel("predicted_damaging"),
		Justification: fmt.Sprintf("Functional predictors indicate a damaging effect for %s %s: %s",
			ec.record.Gene, ec.record.Variant, summary),
	}
}

// Rule 13: variant of uncertain significance in a recognized cancer gene.
func (e *Engine) evalVUSCancerGene(ctx context.Context, ec *evalContext) *domain.TierResult {
	if !ec.geneContext(ctx).IsCancerGene {
		return nil
	}
	return &domain.TierResult{
		Tier:     domain.TierIII,
		Sublevel: TierIIISublevel("vus_cancer_gene"),
		Justification: fmt.Sprintf("%s %s is a variant of uncertain significance in a known cancer gene",
			ec.record.Gene, ec.record.Variant),
	}
}

// Rule 14: the terminal case. No evidence, gene not cancer-associated.
func (e *Engine) evalDefault(_ context.Context, ec *evalContext) *domain.TierResult {
	return &domain.TierResult{
		Tier:          domain.TierIII,
		Sublevel:      TierIIISublevel("no_evidence"),
		Justification: "Investigational/emerging evidence only",
	}
}

// curatedResistanceDrugs collects normalized drug names from curated
// resistance sources (CGI, VICC, CIViC).
func curatedResistanceDrugs(record *domain.EvidenceRecord, cfg *geneconfig.Config) map[string]struct{} {
	drugs := make(map[string]struct{})
	add := func(list []string) {
		for _, d := range list {
			if n := cfg.NormalizeDrug(d); n != "" {
				drugs[n] = struct{}{}
			}
		}
	}
	for _, bm := range record.CGIBiomarkers {
		if strings.EqualFold(bm.Association, "resistant") {
			add(bm.Drugs)
		}
	}
	for _, ev := range record.VICCEvidence {
		if ev.IsResistance {
			add(ev.Drugs)
		}
	}
	for _, ev := range record.CIViCEvidence {
		if ev.Type == domain.Predictive && strings.Contains(strings.ToUpper(ev.Significance), "RESISTANCE") {
			add(ev.Drugs)
		}
	}
	return drugs
}

func aggregateMatchesTumor(agg domain.DrugAggregate, tumorType string) bool {
	for _, disease := range agg.Diseases {
		if TumorTypesMatch(tumorType, disease) {
			return true
		}
	}
	return false
}

func isActiveTrialStatus(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "recruiting") ||
		strings.Contains(s, "active") ||
		strings.Contains(s, "enrolling") ||
		strings.Contains(s, "available")
}

func normalizeTier(s string) domain.Tier {
	t := strings.ToUpper(strings.TrimSpace(s))
	t = strings.TrimPrefix(t, "TIER")
	t = strings.TrimSpace(strings.TrimPrefix(t, "_"))
	switch t {
	case "I", "1":
		return domain.TierI
	case "II", "2":
		return domain.TierII
	case "III", "3":
		return domain.TierIII
	case "IV", "4":
		return domain.TierIV
	default:
		return domain.TierUnknown
	}
}

func nonEmptyTumor(tumorType string) string {
	if strings.TrimSpace(tumorType) == "" {
		return "this tumor type"
	}
	return tumorType
}

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
