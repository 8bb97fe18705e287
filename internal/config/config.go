// Package config provides configuration management for the tier server.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/onco-tier-server/internal/domain"
)

// Manager loads and validates the server configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig layers file, environment and default configuration.
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/onco-tier-server/")

	viper.SetEnvPrefix("ONCO_TIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "onco_tier")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	// Evidence source defaults
	viper.SetDefault("external_api.openfda.base_url", "https://api.fda.gov")
	viper.SetDefault("external_api.openfda.timeout", "30s")
	viper.SetDefault("external_api.openfda.rate_limit", 4)
	viper.SetDefault("external_api.openfda.retry_count", 3)

	viper.SetDefault("external_api.civic.base_url", "https://civicdb.org/api")
	viper.SetDefault("external_api.civic.timeout", "30s")
	viper.SetDefault("external_api.civic.rate_limit", 5)
	viper.SetDefault("external_api.civic.retry_count", 3)

	viper.SetDefault("external_api.clinvar.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	viper.SetDefault("external_api.clinvar.timeout", "30s")
	viper.SetDefault("external_api.clinvar.rate_limit", 3)
	viper.SetDefault("external_api.clinvar.retry_count", 3)

	viper.SetDefault("external_api.cosmic.base_url", "https://cancer.sanger.ac.uk/cosmic/api")
	viper.SetDefault("external_api.cosmic.timeout", "30s")
	viper.SetDefault("external_api.cosmic.rate_limit", 2)
	viper.SetDefault("external_api.cosmic.retry_count", 3)

	viper.SetDefault("external_api.cgi.base_url", "https://www.cancergenomeinterpreter.org/api/v1")
	viper.SetDefault("external_api.cgi.timeout", "30s")
	viper.SetDefault("external_api.cgi.rate_limit", 2)
	viper.SetDefault("external_api.cgi.retry_count", 3)

	viper.SetDefault("external_api.vicc.base_url", "https://search.cancervariants.org/api/v1")
	viper.SetDefault("external_api.vicc.timeout", "30s")
	viper.SetDefault("external_api.vicc.rate_limit", 5)
	viper.SetDefault("external_api.vicc.retry_count", 3)

	viper.SetDefault("external_api.clinical_trials.base_url", "https://clinicaltrials.gov/api/v2")
	viper.SetDefault("external_api.clinical_trials.timeout", "30s")
	viper.SetDefault("external_api.clinical_trials.rate_limit", 2)
	viper.SetDefault("external_api.clinical_trials.retry_count", 3)

	viper.SetDefault("external_api.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	viper.SetDefault("external_api.pubmed.timeout", "30s")
	viper.SetDefault("external_api.pubmed.rate_limit", 3)
	viper.SetDefault("external_api.pubmed.retry_count", 3)

	viper.SetDefault("external_api.oncokb.base_url", "https://www.oncokb.org/api/v1")
	viper.SetDefault("external_api.oncokb.timeout", "30s")
	viper.SetDefault("external_api.oncokb.rate_limit", 2)
	viper.SetDefault("external_api.oncokb.retry_count", 3)

	// Cache defaults; no redis_url means the in-process LRU is used
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.default_ttl", "6h")
	viper.SetDefault("cache.max_items", 2048)
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Narrative model defaults; disabled without an API key
	viper.SetDefault("narrative.base_url", "https://api.openai.com/v1")
	viper.SetDefault("narrative.model", "gpt-4.1-mini")
	viper.SetDefault("narrative.temperature", 0.2)
	viper.SetDefault("narrative.max_tokens", 800)
	viper.SetDefault("narrative.timeout", "30s")

	// Gene rule table path; empty means compiled-in defaults
	viper.SetDefault("gene_config.path", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration.
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetExternalAPIConfig returns external evidence source configuration.
func (m *Manager) GetExternalAPIConfig() *domain.ExternalAPIConfig {
	return &m.config.ExternalAPI
}

// GetServerConfig returns server configuration.
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	sources := map[string]domain.SourceConfig{
		"openfda":         config.ExternalAPI.OpenFDA,
		"civic":           config.ExternalAPI.CIViC,
		"clinvar":         config.ExternalAPI.ClinVar,
		"cgi":             config.ExternalAPI.CGI,
		"vicc":            config.ExternalAPI.VICC,
		"clinical_trials": config.ExternalAPI.ClinicalTrials,
		"pubmed":          config.ExternalAPI.PubMed,
	}
	for name, src := range sources {
		if src.BaseURL == "" {
			return fmt.Errorf("external_api.%s.base_url is required", name)
		}
		if src.Timeout <= 0 {
			return fmt.Errorf("external_api.%s.timeout must be positive", name)
		}
	}

	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", config.Logging.Level)
	}

	return nil
}
