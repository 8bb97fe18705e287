// Package narrative phrases already-computed tier results through an
// OpenAI-compatible chat model. The model never influences the tier: it only
// explains a decision the rule engine already made, and every failure path
// degrades to a deterministic fallback.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/onco-tier-server/internal/domain"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("narrative generator disabled")

// Client implements domain.NarrativeGenerator against an OpenAI-compatible
// chat completions endpoint.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

// NewClient constructs a Client if the supplied configuration carries an API
// key; without one it returns ErrDisabled.
func NewClient(cfg domain.NarrativeConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4.1-mini"
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 0.2
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temp,
		maxTokens:   maxTokens,
	}, nil
}

// Enabled reports whether the client can make outbound calls.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

const narrativeSystemPrompt = "You are a molecular pathologist writing the interpretation section of a somatic variant report. " +
	"You are given a finished tier classification and a summary of the supporting evidence. " +
	"Reply with a strict JSON object containing keys summary, rationale, and therapeutic_note. " +
	"summary is one sentence stating the tier and what it means for the patient. " +
	"rationale is two to three sentences explaining the evidence behind the tier without naming internal rule identifiers. " +
	"therapeutic_note mentions specific drugs when the evidence names any, otherwise it is an empty string. " +
	"Never change, question, or restate a different tier than the one supplied. Emit nothing outside the JSON object."

// Generate phrases the tier result. The tier in the output is always the
// caller's tier; a response that fails to parse is an error so the caller can
// fall back.
func (c *Client) Generate(ctx context.Context, result domain.TierResult, evidenceSummary string) (domain.Narrative, error) {
	if !c.Enabled() {
		return domain.Narrative{}, ErrDisabled
	}

	content, err := c.completeChat(ctx, narrativeSystemPrompt, c.buildUserPrompt(result, evidenceSummary))
	if err != nil {
		return domain.Narrative{}, err
	}

	var narrative domain.Narrative
	if err := json.Unmarshal([]byte(content), &narrative); err != nil {
		return domain.Narrative{}, fmt.Errorf("failed to parse narrative: %w", err)
	}
	narrative.Summary = strings.TrimSpace(narrative.Summary)
	narrative.Rationale = strings.TrimSpace(narrative.Rationale)
	narrative.TherapeuticNote = strings.TrimSpace(narrative.TherapeuticNote)
	if narrative.Summary == "" {
		return domain.Narrative{}, errors.New("narrative summary missing")
	}
	return narrative, nil
}

func (c *Client) buildUserPrompt(result domain.TierResult, evidenceSummary string) string {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Tier: %s\n", result.Tier)
	if result.Sublevel != "" {
		fmt.Fprintf(builder, "Sublevel: %s\n", result.Sublevel)
	}
	fmt.Fprintf(builder, "Classification basis: %s\n", result.Justification)
	if evidenceSummary != "" {
		fmt.Fprintf(builder, "Evidence summary:\n%s\n", evidenceSummary)
	}
	return builder.String()
}

// completeChat sends one system+user exchange and returns the normalized JSON
// body of the first choice.
func (c *Client) completeChat(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model":       c.model,
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return "", fmt.Errorf("chat model status %d: %v", resp.StatusCode, apiErr)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat model returned no choices")
	}

	content := normalizeJSONBlock(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("chat model returned empty content")
	}
	return content, nil
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// normalizeJSONBlock strips markdown fencing and returns the outermost JSON
// object in the model output.
func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}
