package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/onco-tier-server/internal/domain"
)

// ResilientEvidenceService implements domain.EvidenceFetcher. Each upstream
// source sits behind its own circuit breaker so a flapping service fails fast
// instead of dragging every assessment to its timeout. A failed source
// contributes nothing to the record; the fetch errors only when every source
// failed.
type ResilientEvidenceService struct {
	fda     FDAClient
	civic   CIViCClient
	clinvar ClinVarClient
	cosmic  COSMICClient
	cgi     CGIClient
	vicc    VICCClient
	trials  TrialsClient
	lit     LiteratureClient

	cache  EvidenceCache
	logger *logrus.Logger

	breakers map[string]*gobreaker.CircuitBreaker
}

// NewResilientEvidenceService wires the per-source circuit breakers around the
// given clients. cache may be nil, in which case every fetch goes upstream.
func NewResilientEvidenceService(
	fda FDAClient,
	civic CIViCClient,
	clinvar ClinVarClient,
	cosmic COSMICClient,
	cgi CGIClient,
	vicc VICCClient,
	trials TrialsClient,
	lit LiteratureClient,
	cache EvidenceCache,
	logger *logrus.Logger,
) *ResilientEvidenceService {
	svc := &ResilientEvidenceService{
		fda:      fda,
		civic:    civic,
		clinvar:  clinvar,
		cosmic:   cosmic,
		cgi:      cgi,
		vicc:     vicc,
		trials:   trials,
		lit:      lit,
		cache:    cache,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, name := range []string{"openFDA", "CIViC", "ClinVar", "COSMIC", "CGI", "VICC", "ClinicalTrials", "Literature"} {
		svc.breakers[name] = svc.newBreaker(name)
	}
	return svc
}

func (s *ResilientEvidenceService) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			s.logger.WithFields(logrus.Fields{
				"source": name,
				"from":   from.String(),
				"to":     to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// execute runs fn behind the named source's breaker.
func (s *ResilientEvidenceService) execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.breakers[name].Execute(fn)
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("%s unavailable (circuit breaker open)", name)
		}
		return nil, fmt.Errorf("%s query failed: %w", name, err)
	}
	return result, nil
}

// FetchEvidence implements domain.EvidenceFetcher. All sources are queried
// concurrently; gene-scope evidence (CIViC, VICC, CGI) is gathered alongside
// the variant-scope queries to feed gene-level aggregation.
func (s *ResilientEvidenceService) FetchEvidence(ctx context.Context, gene, variant string) (*domain.EvidenceRecord, error) {
	record := &domain.EvidenceRecord{
		Gene:    gene,
		Variant: variant,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, found, err := s.cache.Get(ctx, record.Key()); err == nil && found {
			return cached, nil
		}
	}

	type result struct {
		approvals  []domain.FDAApproval
		civicEv    []domain.CIViCEvidence
		assertions []domain.CIViCAssertion
		clinvar    *domain.ClinVarEvidence
		cosmic     []domain.COSMICEvidence
		cgi        []domain.CGIBiomarker
		vicc       []domain.VICCEvidence
		trials     []domain.ClinicalTrial
		literature *domain.LiteratureKnowledge
		geneCivic  []domain.CIViCEvidence
		geneVicc   []domain.VICCEvidence
		geneCgi    []domain.CGIBiomarker

		fdaErr, civicErr, clinvarErr, cosmicErr, cgiErr, viccErr, trialsErr, litErr error
	}

	results := make(chan result, 1)

	go func() {
		res := result{}
		done := make(chan struct{})

		go func() {
			out, err := s.execute("openFDA", func() (interface{}, error) {
				return s.fda.FetchApprovals(ctx, gene)
			})
			if err == nil {
				res.approvals = out.([]domain.FDAApproval)
			}
			res.fdaErr = err
			done <- struct{}{}
		}()

		// Variant evidence, curated assertions and gene-scope evidence share
		// one CIViC breaker: they hit the same service.
		go func() {
			out, err := s.execute("CIViC", func() (interface{}, error) {
				ev, err := s.civic.FetchEvidence(ctx, gene, variant)
				if err != nil {
					return nil, err
				}
				assertions, err := s.civic.FetchAssertions(ctx, gene, variant)
				if err != nil {
					return nil, err
				}
				geneEv, err := s.civic.FetchGeneEvidence(ctx, gene)
				if err != nil {
					return nil, err
				}
				return [3]interface{}{ev, assertions, geneEv}, nil
			})
			if err == nil {
				parts := out.([3]interface{})
				res.civicEv = parts[0].([]domain.CIViCEvidence)
				res.assertions = parts[1].([]domain.CIViCAssertion)
				res.geneCivic = parts[2].([]domain.CIViCEvidence)
			}
			res.civicErr = err
			done <- struct{}{}
		}()

		go func() {
			out, err := s.execute("ClinVar", func() (interface{}, error) {
				return s.clinvar.FetchVariant(ctx, gene, variant)
			})
			if err == nil {
				res.clinvar = out.(*domain.ClinVarEvidence)
			}
			res.clinvarErr = err
			done <- struct{}{}
		}()

		go func() {
			out, err := s.execute("COSMIC", func() (interface{}, error) {
				return s.cosmic.FetchMutations(ctx, gene, variant)
			})
			if err == nil {
				res.cosmic = out.([]domain.COSMICEvidence)
			}
			res.cosmicErr = err
			done <- struct{}{}
		}()

		go func() {
			out, err := s.execute("CGI", func() (interface{}, error) {
				bm, err := s.cgi.FetchBiomarkers(ctx, gene, variant)
				if err != nil {
					return nil, err
				}
				geneBm, err := s.cgi.FetchGeneBiomarkers(ctx, gene)
				if err != nil {
					return nil, err
				}
				return [2]interface{}{bm, geneBm}, nil
			})
			if err == nil {
				parts := out.([2]interface{})
				res.cgi = parts[0].([]domain.CGIBiomarker)
				res.geneCgi = parts[1].([]domain.CGIBiomarker)
			}
			res.cgiErr = err
			done <- struct{}{}
		}()

		go func() {
			out, err := s.execute("VICC", func() (interface{}, error) {
				ev, err := s.vicc.FetchAssociations(ctx, gene, variant)
				if err != nil {
					return nil, err
				}
				geneEv, err := s.vicc.FetchGeneAssociations(ctx, gene)
				if err != nil {
					return nil, err
				}
				return [2]interface{}{ev, geneEv}, nil
			})
			if err == nil {
				parts := out.([2]interface{})
				res.vicc = parts[0].([]domain.VICCEvidence)
				res.geneVicc = parts[1].([]domain.VICCEvidence)
			}
			res.viccErr = err
			done <- struct{}{}
		}()

		go func() {
			out, err := s.execute("ClinicalTrials", func() (interface{}, error) {
				return s.trials.FetchTrials(ctx, gene, variant)
			})
			if err == nil {
				res.trials = out.([]domain.ClinicalTrial)
			}
			res.trialsErr = err
			done <- struct{}{}
		}()

		go func() {
			out, err := s.execute("Literature", func() (interface{}, error) {
				return s.lit.FetchKnowledge(ctx, gene, variant)
			})
			if err == nil {
				res.literature = out.(*domain.LiteratureKnowledge)
			}
			res.litErr = err
			done <- struct{}{}
		}()

		for i := 0; i < 8; i++ {
			<-done
		}
		results <- res
	}()

	select {
	case res := <-results:
		record.FDAApprovals = res.approvals
		record.CIViCEvidence = res.civicEv
		record.CIViCAssertions = res.assertions
		record.ClinVar = res.clinvar
		record.COSMIC = res.cosmic
		record.CGIBiomarkers = res.cgi
		record.VICCEvidence = res.vicc
		record.ClinicalTrials = res.trials
		record.Literature = res.literature
		if len(res.geneCivic) > 0 || len(res.geneVicc) > 0 || len(res.geneCgi) > 0 {
			record.GeneLevel = &domain.GeneLevelEvidence{
				CIViCEvidence: res.geneCivic,
				VICCEvidence:  res.geneVicc,
				CGIBiomarkers: res.geneCgi,
			}
		}
		record.GatheredAt = time.Now()

		errs := []error{res.fdaErr, res.civicErr, res.clinvarErr, res.cosmicErr, res.cgiErr, res.viccErr, res.trialsErr, res.litErr}
		failed := 0
		for _, e := range errs {
			if e != nil {
				failed++
				s.logger.WithFields(logrus.Fields{
					"gene":    gene,
					"variant": variant,
					"error":   e.Error(),
				}).Warn("Evidence source failed, continuing without it")
			}
		}
		if failed == len(errs) {
			return nil, fmt.Errorf("all evidence sources failed for %s %s: FDA=%v, CIViC=%v, ClinVar=%v, COSMIC=%v, CGI=%v, VICC=%v, trials=%v, literature=%v",
				gene, variant, res.fdaErr, res.civicErr, res.clinvarErr, res.cosmicErr, res.cgiErr, res.viccErr, res.trialsErr, res.litErr)
		}

		if s.cache != nil {
			if err := s.cache.Set(ctx, record.Key(), record); err != nil {
				s.logger.WithField("error", err.Error()).Warn("Failed to cache evidence record")
			}
		}
		return record, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// BreakerStats returns the request counters for every source breaker.
func (s *ResilientEvidenceService) BreakerStats() map[string]gobreaker.Counts {
	stats := make(map[string]gobreaker.Counts, len(s.breakers))
	for name, cb := range s.breakers {
		stats[name] = cb.Counts()
	}
	return stats
}

// BreakerStates returns the current state of every source breaker, rendered
// as strings for health reporting.
func (s *ResilientEvidenceService) BreakerStates() map[string]string {
	states := make(map[string]string, len(s.breakers))
	for name, cb := range s.breakers {
		states[name] = cb.State().String()
	}
	return states
}

// InvalidateCache drops the cached record for one gene+variant.
func (s *ResilientEvidenceService) InvalidateCache(ctx context.Context, gene, variant string) error {
	if s.cache == nil {
		return nil
	}
	record := domain.EvidenceRecord{Gene: gene, Variant: variant}
	return s.cache.Invalidate(ctx, record.Key())
}

// Close releases the cache connection.
func (s *ResilientEvidenceService) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
