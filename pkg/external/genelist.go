package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/onco-tier-server/internal/domain"
)

// staticCancerGenes is the conservative fallback used when the OncoKB list
// cannot be fetched. It covers the genes most frequently queried in somatic
// reporting; the live list is much larger.
var staticCancerGenes = map[string]struct{}{
	"ABL1": {}, "AKT1": {}, "ALK": {}, "APC": {}, "ARID1A": {}, "ATM": {},
	"ATR": {}, "BAP1": {}, "BARD1": {}, "BRAF": {}, "BRCA1": {}, "BRCA2": {},
	"BRIP1": {}, "CDKN2A": {}, "CHEK2": {}, "EGFR": {}, "ERBB2": {},
	"FBXW7": {}, "FGFR1": {}, "FGFR2": {}, "FGFR3": {}, "FLT3": {},
	"HRAS": {}, "IDH1": {}, "IDH2": {}, "JAK2": {}, "KEAP1": {}, "KIT": {},
	"KRAS": {}, "MET": {}, "MLH1": {}, "MSH2": {}, "MSH6": {}, "MYC": {},
	"NF1": {}, "NF2": {}, "NRAS": {}, "NTRK1": {}, "NTRK2": {}, "NTRK3": {},
	"PALB2": {}, "PDGFRA": {}, "PIK3CA": {}, "PMS2": {}, "POLE": {},
	"PTEN": {}, "RAD51C": {}, "RAD51D": {}, "RB1": {}, "RET": {},
	"ROS1": {}, "SMAD4": {}, "SMARCA4": {}, "STK11": {}, "TP53": {}, "VHL": {},
}

// GeneRegistry answers cancer-gene membership from the OncoKB curated gene
// list, refreshed lazily and cached. Lookups never fail: a fetch error falls
// back to the last good list, then to the static set.
type GeneRegistry struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger

	cache      *lru.Cache
	refreshTTL time.Duration

	mu        sync.RWMutex
	genes     map[string]struct{}
	fetchedAt time.Time
}

// NewGeneRegistry creates the registry. The initial gene set is the static
// fallback; the OncoKB list replaces it on first successful lookup.
func NewGeneRegistry(cfg domain.SourceConfig, logger *logrus.Logger) (*GeneRegistry, error) {
	cache, err := lru.New(4096)
	if err != nil {
		return nil, fmt.Errorf("failed to create gene lookup cache: %w", err)
	}
	return &GeneRegistry{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    newLimiter(cfg.RateLimit),
		logger:     logger,
		cache:      cache,
		refreshTTL: 24 * time.Hour,
		genes:      staticCancerGenes,
	}, nil
}

type oncoKBGeneResponse []struct {
	HugoSymbol string `json:"hugoSymbol"`
}

// IsKnownCancerGene implements domain.CancerGeneRegistry.
func (g *GeneRegistry) IsKnownCancerGene(ctx context.Context, gene string) bool {
	symbol := strings.ToUpper(strings.TrimSpace(gene))
	if symbol == "" {
		return false
	}
	if hit, ok := g.cache.Get(symbol); ok {
		return hit.(bool)
	}

	g.refreshIfStale(ctx)

	g.mu.RLock()
	_, known := g.genes[symbol]
	g.mu.RUnlock()

	g.cache.Add(symbol, known)
	return known
}

// refreshIfStale pulls the OncoKB curated gene list at most once per TTL.
// Failure keeps whichever list is currently loaded.
func (g *GeneRegistry) refreshIfStale(ctx context.Context) {
	g.mu.RLock()
	stale := g.baseURL != "" && time.Since(g.fetchedAt) > g.refreshTTL
	g.mu.RUnlock()
	if !stale {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if time.Since(g.fetchedAt) <= g.refreshTTL {
		return
	}
	// Mark the attempt first so a failing endpoint is not hammered on every
	// lookup.
	g.fetchedAt = time.Now()

	fullURL := g.baseURL + "/utils/cancerGeneList"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	if err := g.limiter.Wait(ctx); err != nil {
		return
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.WithField("error", err.Error()).Warn("OncoKB gene list fetch failed, keeping current list")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		g.logger.WithField("status", resp.StatusCode).Warn("OncoKB gene list fetch failed, keeping current list")
		return
	}

	var payload oncoKBGeneResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		g.logger.WithField("error", err.Error()).Warn("OncoKB gene list decode failed, keeping current list")
		return
	}
	if len(payload) == 0 {
		return
	}

	genes := make(map[string]struct{}, len(payload))
	for _, entry := range payload {
		if symbol := strings.ToUpper(strings.TrimSpace(entry.HugoSymbol)); symbol != "" {
			genes[symbol] = struct{}{}
		}
	}
	g.genes = genes
	g.cache.Purge()
	g.logger.WithField("gene_count", len(genes)).Info("Refreshed OncoKB cancer gene list")
}
