// This file contains the lightweight configuration for standalone MCP
// operation: no database, no Redis, environment variables only.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for the standalone MCP server.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the assessment history database

	// Cache settings
	CacheMaxItems int
	CacheTTL      time.Duration

	// Optional API keys
	ClinVarAPIKey string // NCBI API key for higher rate limits
	COSMICAPIKey  string
	OncoKBAPIKey  string
	OpenAIAPIKey  string // Enables the narrative model

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	return &LiteConfig{
		DataDir:       filepath.Join(homeDir, ".onco-tier"),
		CacheMaxItems: 2048,
		CacheTTL:      6 * time.Hour,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables, falling back
// to defaults.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("ONCO_TIER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ONCO_TIER_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("ONCO_TIER_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	cfg.ClinVarAPIKey = os.Getenv("CLINVAR_API_KEY")
	cfg.COSMICAPIKey = os.Getenv("COSMIC_API_KEY")
	cfg.OncoKBAPIKey = os.Getenv("ONCOKB_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("ONCO_TIER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ONCO_TIER_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the assessment history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "assessments.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
