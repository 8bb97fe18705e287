package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/onco-tier-server/internal/domain"
	"github.com/onco-tier-server/pkg/external"
)

const extractorSystemPrompt = "You are a biomedical literature curator. Given abstracts about one gene variant, " +
	"reply with a strict JSON object containing keys pmids, sensitive_to, resistant_to, suggested_tier, therapeutic_note, and confidence. " +
	"sensitive_to and resistant_to are arrays of objects with keys drug, is_predictive, and context; " +
	"is_predictive is true only when the association affects drug selection for this specific variant, false for prognostic observations. " +
	"suggested_tier is one of I, II, III, IV, or an empty string when the abstracts do not support a level. " +
	"confidence is a decimal between 0 and 1 reflecting how directly the abstracts address this exact variant. " +
	"Only report drugs the abstracts actually name. Emit nothing outside the JSON object."

// Extractor turns PubMed abstracts into structured drug knowledge using the
// chat model. It implements external.KnowledgeExtractor.
type Extractor struct {
	client *Client
}

// NewExtractor wraps the chat client; client may be nil when disabled.
func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

// Enabled reports whether a model is configured.
func (e *Extractor) Enabled() bool {
	return e != nil && e.client.Enabled()
}

// Extract reads the abstracts and returns structured knowledge. Confidence
// outside [0,1] is clamped; an unparseable model response is an error so the
// caller can treat it as no literature evidence.
func (e *Extractor) Extract(ctx context.Context, gene, variant string, abstracts []external.Abstract) (*domain.LiteratureKnowledge, error) {
	if !e.Enabled() {
		return nil, ErrDisabled
	}
	if len(abstracts) == 0 {
		return nil, nil
	}

	content, err := e.client.completeChat(ctx, extractorSystemPrompt, buildExtractionPrompt(gene, variant, abstracts))
	if err != nil {
		return nil, err
	}

	var knowledge domain.LiteratureKnowledge
	if err := json.Unmarshal([]byte(content), &knowledge); err != nil {
		return nil, fmt.Errorf("failed to parse extracted knowledge: %w", err)
	}

	if knowledge.Confidence < 0 {
		knowledge.Confidence = 0
	}
	if knowledge.Confidence > 1 {
		knowledge.Confidence = 1
	}
	knowledge.SuggestedTier = strings.ToUpper(strings.TrimSpace(knowledge.SuggestedTier))
	normalizeAssociations(knowledge.SensitiveTo)
	normalizeAssociations(knowledge.ResistantTo)
	return &knowledge, nil
}

func normalizeAssociations(assocs []domain.DrugAssociation) {
	for i := range assocs {
		assocs[i].Drug = strings.ToLower(strings.TrimSpace(assocs[i].Drug))
	}
}

func buildExtractionPrompt(gene, variant string, abstracts []external.Abstract) string {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Gene: %s\nVariant: %s\n\n", strings.ToUpper(gene), variant)
	for _, a := range abstracts {
		fmt.Fprintf(builder, "PMID %s: %s\n%s\n\n", a.PMID, a.Title, a.Text)
	}
	return builder.String()
}
