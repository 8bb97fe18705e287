package narrative

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/onco-tier-server/internal/domain"
)

// FallbackGenerator wraps a primary generator and guarantees a usable
// narrative: on any primary failure it emits a deterministic text built from
// the engine's own justification, with Fallback set.
type FallbackGenerator struct {
	primary domain.NarrativeGenerator
	logger  *logrus.Logger
}

// WithFallback wraps primary; primary may be nil when no model is configured.
func WithFallback(primary domain.NarrativeGenerator, logger *logrus.Logger) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, logger: logger}
}

// Enabled reports whether the primary model is configured. The fallback
// itself always works.
func (f *FallbackGenerator) Enabled() bool {
	return f.primary != nil && f.primary.Enabled()
}

// Generate never returns an error: it either relays the primary narrative or
// phrases the tier deterministically from the classification justification.
func (f *FallbackGenerator) Generate(ctx context.Context, result domain.TierResult, evidenceSummary string) (domain.Narrative, error) {
	if f.Enabled() {
		narrative, err := f.primary.Generate(ctx, result, evidenceSummary)
		if err == nil {
			return narrative, nil
		}
		f.logger.WithFields(logrus.Fields{
			"tier":  string(result.Tier),
			"error": err.Error(),
		}).Warn("Narrative generation failed, using static fallback")
	}
	return Static(result), nil
}

// Static builds the deterministic narrative used when no model is available.
// The justification text is carried verbatim so the report stays traceable to
// the rule that fired.
func Static(result domain.TierResult) domain.Narrative {
	tierText := string(result.Tier)
	if result.Sublevel != "" {
		tierText = fmt.Sprintf("%s (%s)", result.Tier, result.Sublevel)
	}
	return domain.Narrative{
		Summary:   fmt.Sprintf("Variant classified as Tier %s.", tierText),
		Rationale: fmt.Sprintf("Classification based on: %s", result.Justification),
		Fallback:  true,
	}
}
