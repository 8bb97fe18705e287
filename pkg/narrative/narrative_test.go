package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/pkg/external"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		body, err := jsonMarshalChat(content)
		require.NoError(t, err)
		w.Write(body)
	}))
}

func jsonMarshalChat(content string) ([]byte, error) {
	type message struct {
		Content string `json:"content"`
	}
	type choice struct {
		Message message `json:"message"`
	}
	type response struct {
		Choices []choice `json:"choices"`
	}
	resp := response{Choices: []choice{{Message: message{Content: content}}}}
	return json.Marshal(resp)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(domain.NarrativeConfig{})
	assert.ErrorIs(t, err, ErrDisabled)

	client, err := NewClient(domain.NarrativeConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.True(t, client.Enabled())
}

func TestClient_Generate(t *testing.T) {
	server := chatServer(t, `{"summary": "Tier I (A) variant with FDA-approved therapy.", "rationale": "Vemurafenib is approved for BRAF V600E melanoma.", "therapeutic_note": "Consider vemurafenib or dabrafenib."}`)
	defer server.Close()

	client, err := NewClient(domain.NarrativeConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	narrative, err := client.Generate(context.Background(), domain.TierResult{
		Tier:          domain.TierI,
		Sublevel:      domain.SublevelA,
		Justification: "FDA-approved therapy for this variant in this tumor type",
	}, "FDA: vemurafenib approved in melanoma")
	require.NoError(t, err)

	assert.Contains(t, narrative.Summary, "Tier I")
	assert.Contains(t, narrative.TherapeuticNote, "vemurafenib")
	assert.False(t, narrative.Fallback)
}

func TestClient_GenerateStripsMarkdownFence(t *testing.T) {
	server := chatServer(t, "```json\n{\"summary\": \"Tier III variant.\", \"rationale\": \"Limited evidence.\"}\n```")
	defer server.Close()

	client, err := NewClient(domain.NarrativeConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	narrative, err := client.Generate(context.Background(), domain.TierResult{Tier: domain.TierIII}, "")
	require.NoError(t, err)
	assert.Equal(t, "Tier III variant.", narrative.Summary)
}

func TestClient_GenerateRejectsEmptySummary(t *testing.T) {
	server := chatServer(t, `{"summary": "", "rationale": "something"}`)
	defer server.Close()

	client, err := NewClient(domain.NarrativeConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), domain.TierResult{Tier: domain.TierII}, "")
	assert.Error(t, err)
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, domain.TierResult, string) (domain.Narrative, error) {
	return domain.Narrative{}, errors.New("model unavailable")
}
func (failingGenerator) Enabled() bool { return true }

func TestFallbackGenerator_UsesStaticOnFailure(t *testing.T) {
	gen := WithFallback(failingGenerator{}, testLogger())

	result := domain.TierResult{
		Tier:          domain.TierII,
		Sublevel:      domain.SublevelC,
		Justification: "prognostic evidence only",
	}
	narrative, err := gen.Generate(context.Background(), result, "")
	require.NoError(t, err)

	assert.True(t, narrative.Fallback)
	assert.Contains(t, narrative.Summary, "Tier II (C)")
	assert.Contains(t, narrative.Rationale, "prognostic evidence only")
}

func TestFallbackGenerator_NilPrimary(t *testing.T) {
	gen := WithFallback(nil, testLogger())
	assert.False(t, gen.Enabled())

	narrative, err := gen.Generate(context.Background(), domain.TierResult{Tier: domain.TierIV, Justification: "benign variant"}, "")
	require.NoError(t, err)
	assert.True(t, narrative.Fallback)
	assert.Contains(t, narrative.Summary, "Tier IV")
}

func TestExtractor_ParsesKnowledge(t *testing.T) {
	server := chatServer(t, `{
		"pmids": ["12345"],
		"sensitive_to": [{"drug": "  Osimertinib ", "is_predictive": true, "context": "NSCLC"}],
		"resistant_to": [{"drug": "Erlotinib", "is_predictive": true}],
		"suggested_tier": "i",
		"confidence": 1.4
	}`)
	defer server.Close()

	client, err := NewClient(domain.NarrativeConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	extractor := NewExtractor(client)
	require.True(t, extractor.Enabled())

	knowledge, err := extractor.Extract(context.Background(), "EGFR", "T790M", []external.Abstract{
		{PMID: "12345", Title: "Osimertinib in T790M-positive NSCLC", Text: "..."},
	})
	require.NoError(t, err)
	require.NotNil(t, knowledge)

	require.Len(t, knowledge.SensitiveTo, 1)
	assert.Equal(t, "osimertinib", knowledge.SensitiveTo[0].Drug)
	assert.True(t, knowledge.SensitiveTo[0].IsPredictive)
	require.Len(t, knowledge.ResistantTo, 1)
	assert.Equal(t, "erlotinib", knowledge.ResistantTo[0].Drug)
	assert.Equal(t, "I", knowledge.SuggestedTier)
	assert.Equal(t, 1.0, knowledge.Confidence)
}

func TestExtractor_NoAbstractsMeansNoKnowledge(t *testing.T) {
	client, err := NewClient(domain.NarrativeConfig{APIKey: "test-key"})
	require.NoError(t, err)

	knowledge, err := NewExtractor(client).Extract(context.Background(), "EGFR", "T790M", nil)
	require.NoError(t, err)
	assert.Nil(t, knowledge)
}

func TestExtractor_DisabledWithoutClient(t *testing.T) {
	extractor := NewExtractor(nil)
	assert.False(t, extractor.Enabled())

	_, err := extractor.Extract(context.Background(), "EGFR", "T790M", []external.Abstract{{PMID: "1"}})
	assert.ErrorIs(t, err, ErrDisabled)
}
