// Package handlers implements C8: one stateless handler per operation
// type, registered in a static dispatch table. Grounded on
// examples/consumer-fx's handlers/order.go (one handler struct per
// domain event, constructor taking its collaborators explicitly rather
// than a service locator).
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/archon-labs/intelligence-engine/internal/analyzer"
	"github.com/archon-labs/intelligence-engine/internal/embedder"
	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/scorer"
	"github.com/archon-labs/intelligence-engine/internal/store"
	"github.com/archon-labs/intelligence-engine/pkg/observability"
)

// Result is what a handler returns on success. Data carries the
// operation-specific result body that the engine serializes into the
// completion envelope's payload.
type Result struct {
	Data            map[string]any
	PartialResults  bool
	DegradedReasons []string
}

// Handler executes one operation type against its typed payload.
type Handler interface {
	Execute(ctx context.Context, payload any) (Result, error)
}

// Deps bundles every collaborator a handler might need. A handler
// declares which fields it actually uses; the rest may be nil in tests
// that don't exercise that path.
type Deps struct {
	Analyzer *analyzer.Client
	Embedder *embedder.Client
	Stores   store.Stores
	Obs      observability.Observability
}

// Dispatcher is the static map[OperationType]Handler from spec §4.8.
// envelope.Validate already rejects unknown types before dispatch; a type
// that still reaches Dispatch unmapped is reported with ok=false, which
// the engine classifies as invalid_input.
type Dispatcher struct {
	handlers map[envelope.OperationType]Handler
}

// NewDispatcher wires every handler in spec §4.8 plus the
// dependency_audit expansion, all sharing deps.
func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{
		handlers: map[envelope.OperationType]Handler{
			envelope.OpQualityAssessment:       &QualityAssessmentHandler{deps: deps},
			envelope.OpOneXCompliance:          &OneXComplianceHandler{deps: deps},
			envelope.OpPatternExtraction:       &PatternExtractionHandler{deps: deps},
			envelope.OpArchitecturalCompliance: &ArchitecturalComplianceHandler{deps: deps},
			envelope.OpComprehensiveAnalysis:   &ComprehensiveAnalysisHandler{deps: deps},
			envelope.OpHybridScore:             &HybridScoreHandler{deps: deps},
			envelope.OpInfrastructureScan:      &InfrastructureScanHandler{deps: deps},
			envelope.OpModelDiscovery:          &ModelDiscoveryHandler{deps: deps},
			envelope.OpSchemaDiscovery:         &SchemaDiscoveryHandler{deps: deps},
			envelope.OpDependencyAudit:         &DependencyAuditHandler{deps: deps},
		},
	}
}

// Dispatch looks up and executes the handler for op. ok is false when op
// is not registered; the engine treats that as invalid_input.
func (d *Dispatcher) Dispatch(ctx context.Context, op envelope.OperationType, payload any) (Result, bool, error) {
	h, ok := d.handlers[op]
	if !ok {
		return Result{}, false, nil
	}
	result, err := h.Execute(ctx, payload)
	return result, true, err
}

// errNoPatternStore is returned by handlers whose operation has no
// meaningful degraded mode without a pattern store configured.
var errNoPatternStore = errors.New("handlers: pattern store not configured")

// errNoAnalyzer is returned by handlers for which entity extraction is
// the core of the operation, not an optional enrichment.
var errNoAnalyzer = errors.New("handlers: analyzer not configured")

func castPayload[T any](payload any) (T, error) {
	v, ok := payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("handlers: unexpected payload type %T", payload)
	}
	return v, nil
}
