package handlers

import (
	"context"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/store"
)

// ModelDiscoveryHandler discovers model definitions via the graph
// store, degrading to partial_results if the store is unavailable.
type ModelDiscoveryHandler struct {
	deps Deps
}

func (h *ModelDiscoveryHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.ModelDiscoveryInput](payload)
	if err != nil {
		return Result{}, err
	}

	if h.deps.Stores.Graph == nil {
		return Result{Data: map[string]any{"query": in.Query, "records": []store.GraphRecord{}},
			PartialResults: true, DegradedReasons: []string{"graph store not configured"}}, nil
	}

	records, err := h.deps.Stores.Graph.Query(ctx, in.Query)
	if err != nil {
		return Result{Data: map[string]any{"query": in.Query, "records": []store.GraphRecord{}},
			PartialResults: true, DegradedReasons: []string{"graph query failed: " + err.Error()}}, nil
	}

	return Result{Data: map[string]any{"query": in.Query, "records": records, "count": len(records)}}, nil
}
