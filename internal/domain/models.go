package domain

import "time"

// TierResult is the sole output of the tier decision engine.
// Invariant: Sublevel is non-empty only when Tier is I, II, or III.
type TierResult struct {
	Tier          Tier     `json:"tier"`
	Sublevel      Sublevel `json:"sublevel"`
	Justification string   `json:"justification"`
}

// DrugConflict reports a drug with both sensitivity and resistance evidence.
// Conflicts are surfaced verbatim, never auto-resolved.
type DrugConflict struct {
	Drug               string `json:"drug"`
	SensitivityContext string `json:"sensitivity_context"`
	ResistanceContext  string `json:"resistance_context"`
	SensitivityCount   int    `json:"sensitivity_count"`
	ResistanceCount    int    `json:"resistance_count"`
}

// EvidenceStats summarizes the sensitivity/resistance balance of a record.
type EvidenceStats struct {
	SensitivityCount   int                   `json:"sensitivity_count"`
	ResistanceCount    int                   `json:"resistance_count"`
	SensitivityByLevel map[EvidenceLevel]int `json:"sensitivity_by_level"`
	ResistanceByLevel  map[EvidenceLevel]int `json:"resistance_by_level"`
	Conflicts          []DrugConflict        `json:"conflicts,omitempty"`
	DominantSignal     DominantSignal        `json:"dominant_signal"`
	HasFDAApproved     bool                  `json:"has_fda_approved"`
}

// DrugAggregate is the per-drug rollup across all evidence sources.
type DrugAggregate struct {
	Drug              string          `json:"drug"`
	SensitivityCount  int             `json:"sensitivity_count"`
	ResistanceCount   int             `json:"resistance_count"`
	SensitivityLevels []EvidenceLevel `json:"sensitivity_levels,omitempty"`
	ResistanceLevels  []EvidenceLevel `json:"resistance_levels,omitempty"`
	Diseases          []string        `json:"diseases,omitempty"`
	BestLevel         EvidenceLevel   `json:"best_level"`
	NetSignal         DrugSignal      `json:"net_signal"`
}

// GeneContext is the derived biological role of a gene; a pure function of
// the gene symbol against the curated role table and the cancer-gene registry.
type GeneContext struct {
	Gene         string   `json:"gene"`
	Role         GeneRole `json:"role"`
	IsCancerGene bool     `json:"is_cancer_gene"`
}

// LOFAssessment is the tri-state loss-of-function call for a variant.
type LOFAssessment struct {
	State      LOFState `json:"state"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

// Narrative is the phrased explanation of an already-computed tier.
type Narrative struct {
	Summary         string `json:"summary"`
	Rationale       string `json:"rationale"`
	TherapeuticNote string `json:"therapeutic_note,omitempty"`
	Fallback        bool   `json:"fallback,omitempty"`
}

// AssessmentRequest is an incoming actionability assessment request.
type AssessmentRequest struct {
	Gene      string `json:"gene" binding:"required"`
	Variant   string `json:"variant" binding:"required"`
	TumorType string `json:"tumor_type,omitempty"`
}

// AssessmentResponse is the complete per-variant assessment.
type AssessmentResponse struct {
	ID             string          `json:"id"`
	Gene           string          `json:"gene"`
	Variant        string          `json:"variant"`
	TumorType      string          `json:"tumor_type,omitempty"`
	Result         TierResult      `json:"result"`
	Stats          EvidenceStats   `json:"stats"`
	DrugAggregates []DrugAggregate `json:"drug_aggregates,omitempty"`
	Narrative      Narrative       `json:"narrative"`
	ProcessingTime time.Duration   `json:"processing_time"`
	Timestamp      time.Time       `json:"timestamp"`
}

// BatchItemResult isolates one variant's outcome within a batch; a failed
// item carries Error and never aborts its siblings.
type BatchItemResult struct {
	Request    AssessmentRequest   `json:"request"`
	Assessment *AssessmentResponse `json:"assessment,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// AssessmentRecord is the persisted form of an assessment.
type AssessmentRecord struct {
	ID            string    `json:"id"`
	Gene          string    `json:"gene"`
	Variant       string    `json:"variant"`
	TumorType     string    `json:"tumor_type"`
	Tier          Tier      `json:"tier"`
	Sublevel      Sublevel  `json:"sublevel"`
	Justification string    `json:"justification"`
	Narrative     string    `json:"narrative"`
	CreatedAt     time.Time `json:"created_at"`
}

// Configuration models

// Config is the main application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	ExternalAPI ExternalAPIConfig `mapstructure:"external_api"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Narrative   NarrativeConfig   `mapstructure:"narrative"`
	GeneConfig  GeneConfigConfig  `mapstructure:"gene_config"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SourceConfig configures one external evidence source client.
type SourceConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RetryCount int           `mapstructure:"retry_count"`
}

// ExternalAPIConfig configures all external evidence sources.
type ExternalAPIConfig struct {
	OpenFDA        SourceConfig `mapstructure:"openfda"`
	CIViC          SourceConfig `mapstructure:"civic"`
	ClinVar        SourceConfig `mapstructure:"clinvar"`
	COSMIC         SourceConfig `mapstructure:"cosmic"`
	CGI            SourceConfig `mapstructure:"cgi"`
	VICC           SourceConfig `mapstructure:"vicc"`
	ClinicalTrials SourceConfig `mapstructure:"clinical_trials"`
	PubMed         SourceConfig `mapstructure:"pubmed"`
	OncoKB         SourceConfig `mapstructure:"oncokb"`
}

// CacheConfig configures the evidence cache. When RedisURL is empty, an
// in-process LRU cache is used instead.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxItems    int           `mapstructure:"max_items"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// NarrativeConfig configures the LLM narrative generator.
type NarrativeConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// GeneConfigConfig locates the typed gene/variant-class rule tables.
type GeneConfigConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
