package handlers

import (
	"context"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/internal/store"
)

// PatternExtractionHandler mines patterns from the PatternStore under a
// caller-supplied filter set.
type PatternExtractionHandler struct {
	deps Deps
}

func (h *PatternExtractionHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.PatternExtractionInput](payload)
	if err != nil {
		return Result{}, err
	}

	if h.deps.Stores.Patterns == nil {
		return Result{}, retryclassifier.WithClass(retryclassifier.ClassInternalError,
			errNoPatternStore)
	}

	filters := store.PatternFilters{Limit: in.Limit}
	if domain, ok := in.Filters["domain"]; ok {
		filters.Domain = domain
	}
	if keywords, ok := in.Filters["keywords"]; ok {
		filters.Keywords = []string{keywords}
	}

	patterns, err := h.deps.Stores.Patterns.Lookup(ctx, filters)
	if err != nil {
		return Result{}, retryclassifier.Classify(err)
	}

	ids := make([]string, len(patterns))
	for i, p := range patterns {
		ids[i] = p.ID
	}

	return Result{Data: map[string]any{
		"patterns": patterns,
		"count":    len(patterns),
		"ids":      ids,
	}}, nil
}
