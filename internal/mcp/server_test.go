package mcp

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	litecfg "github.com/onco-tier-server/internal/config"
	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/internal/history"
)

func testConfig(t *testing.T) *litecfg.LiteConfig {
	t.Helper()

	cfg := litecfg.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewServer(t *testing.T) {
	server, err := NewServer(testConfig(t), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer server.Close()

	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.service)
	assert.NotNil(t, server.evidence)
	assert.NotNil(t, server.engine)
	assert.NotNil(t, server.history)
	assert.NotNil(t, server.cache)
}

func TestNewServer_CustomHistoryStore(t *testing.T) {
	store, err := history.NewSQLiteStore(t.TempDir() + "/custom.db")
	require.NoError(t, err)

	server, err := NewServer(testConfig(t), WithLogger(quietLogger()), WithHistoryStore(store))
	require.NoError(t, err)
	defer server.Close()

	assert.Equal(t, store, server.HistoryStore())
}

func TestHandleClassifyVariant_RequiresGeneAndVariant(t *testing.T) {
	server := &Server{logger: quietLogger()}

	result, payload, err := server.handleClassifyVariant(context.Background(), nil, ClassifyVariantParams{Gene: "BRAF"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Nil(t, payload)
}

func TestHandleEvidenceSummary_RequiresGeneAndVariant(t *testing.T) {
	server := &Server{logger: quietLogger()}

	result, _, err := server.handleEvidenceSummary(context.Background(), nil, EvidenceSummaryParams{Variant: "V600E"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleHistory(t *testing.T) {
	store, err := history.NewSQLiteStore(t.TempDir() + "/history.db")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &history.Entry{
		Gene: "BRAF", Variant: "V600E", TumorType: "melanoma",
		Tier: domain.TierI, Sublevel: domain.SublevelA,
	}))
	require.NoError(t, store.Save(ctx, &history.Entry{
		Gene: "KRAS", Variant: "G12C", TumorType: "lung",
		Tier: domain.TierII, Sublevel: domain.SublevelC,
	}))

	server := &Server{logger: quietLogger(), history: store}

	result, payload, err := server.handleHistory(ctx, nil, HistoryParams{Limit: 10})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	historyResult, ok := payload.(HistoryResult)
	require.True(t, ok)
	assert.Equal(t, int64(2), historyResult.Total)
	assert.Len(t, historyResult.Entries, 2)
}

func TestRecordHistory(t *testing.T) {
	store, err := history.NewSQLiteStore(t.TempDir() + "/history.db")
	require.NoError(t, err)
	defer store.Close()

	server := &Server{logger: quietLogger(), history: store}

	ctx := context.Background()
	server.recordHistory(ctx, &domain.AssessmentResponse{
		Gene:      "EGFR",
		Variant:   "L858R",
		TumorType: "lung",
		Result: domain.TierResult{
			Tier:          domain.TierI,
			Sublevel:      domain.SublevelA,
			Justification: "FDA-approved therapy for this tumor type",
		},
		Narrative: domain.Narrative{Summary: "Actionable variant."},
		Timestamp: time.Now(),
	})

	entry, err := store.Get(ctx, "EGFR", "L858R", "lung")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, domain.TierI, entry.Tier)
	assert.Equal(t, "Actionable variant.", entry.Narrative)
}
