package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"ONCO_TIER_DATA_DIR",
		"ONCO_TIER_CACHE_MAX_ITEMS",
		"ONCO_TIER_CACHE_TTL",
		"ONCO_TIER_LOG_LEVEL",
		"ONCO_TIER_LOG_FORMAT",
		"CLINVAR_API_KEY",
		"COSMIC_API_KEY",
		"ONCOKB_API_KEY",
		"OPENAI_API_KEY",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 2048, cfg.CacheMaxItems)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 2048, cfg.CacheMaxItems)
	assert.Empty(t, cfg.OpenAIAPIKey)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("ONCO_TIER_DATA_DIR", "/tmp/test-onco-tier")
	os.Setenv("ONCO_TIER_CACHE_MAX_ITEMS", "500")
	os.Setenv("ONCO_TIER_CACHE_TTL", "12h")
	os.Setenv("ONCO_TIER_LOG_LEVEL", "debug")
	os.Setenv("CLINVAR_API_KEY", "test-key")
	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-onco-tier", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "test-key", cfg.ClinVarAPIKey)
}

func TestLoadLiteConfig_InvalidNumbersKeepDefaults(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("ONCO_TIER_CACHE_MAX_ITEMS", "not-a-number")
	os.Setenv("ONCO_TIER_CACHE_TTL", "not-a-duration")
	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, 2048, cfg.CacheMaxItems)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
}

func TestHistoryDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/data/onco"}
	assert.Equal(t, "/data/onco/assessments.db", cfg.HistoryDBPath())
}
