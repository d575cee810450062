package handlers

import (
	"context"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/store"
)

// SchemaDiscoveryHandler introspects a store's schema scoped by the
// payload, degrading to partial_results if the store is unavailable.
type SchemaDiscoveryHandler struct {
	deps Deps
}

func (h *SchemaDiscoveryHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.SchemaDiscoveryInput](payload)
	if err != nil {
		return Result{}, err
	}

	if h.deps.Stores.Schema == nil {
		return Result{Data: map[string]any{"scope": in.Scope, "schema": store.SchemaInfo{}},
			PartialResults: true, DegradedReasons: []string{"schema store not configured"}}, nil
	}

	info, err := h.deps.Stores.Schema.Introspect(ctx, in.Scope)
	if err != nil {
		return Result{Data: map[string]any{"scope": in.Scope, "schema": store.SchemaInfo{}},
			PartialResults: true, DegradedReasons: []string{"schema introspection failed: " + err.Error()}}, nil
	}

	return Result{Data: map[string]any{"scope": in.Scope, "schema": info}}, nil
}
