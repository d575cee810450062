package handlers

import (
	"context"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/store"
)

// InfrastructureScanHandler queries the vector store for infrastructure
// artifacts scoped by the payload, degrading to partial_results if the
// store is unavailable.
type InfrastructureScanHandler struct {
	deps Deps
}

func (h *InfrastructureScanHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.InfrastructureScanInput](payload)
	if err != nil {
		return Result{}, err
	}

	if h.deps.Stores.Vectors == nil {
		return Result{Data: map[string]any{"scope": in.Scope, "hits": []store.VectorHit{}},
			PartialResults: true, DegradedReasons: []string{"vector store not configured"}}, nil
	}

	hits, err := h.deps.Stores.Vectors.Search(ctx, nil, store.VectorFilter{Namespace: in.Scope, Metadata: in.Filters}, 50)
	if err != nil {
		return Result{Data: map[string]any{"scope": in.Scope, "hits": []store.VectorHit{}},
			PartialResults: true, DegradedReasons: []string{"vector search failed: " + err.Error()}}, nil
	}

	return Result{Data: map[string]any{"scope": in.Scope, "hits": hits, "count": len(hits)}}, nil
}
