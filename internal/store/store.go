// Package store defines the opaque external-collaborator capabilities
// named in spec §6: pattern lookup, vector search, graph query, and
// schema introspection. These are modeled as narrow interfaces so
// handlers (C8) depend only on the contract, never a concrete store —
// the re-architecture pattern spec §9 calls "module-level global clients
// ... make them constructor parameters with explicit lifecycle".
package store

import (
	"context"
	"time"
)

// Pattern is a success-pattern record. ParentID models the "pattern has
// parent pattern" relationship as an (id, parent_id) tuple per spec §9's
// re-architecture note, never an in-memory object pointer, so traversals
// can never cycle.
type Pattern struct {
	ID          string
	ParentID    string // empty when the pattern has no parent
	Keywords    []string
	QualityScore float64
	SuccessRate  float64
	Metadata     map[string]string
	CreatedAt    time.Time
}

// PatternFilters narrows a pattern_lookup query.
type PatternFilters struct {
	Keywords []string
	Domain   string
	MinScore float64
	Limit    int
}

// VectorHit is one vector_search result.
type VectorHit struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// VectorFilter narrows a vector_search query.
type VectorFilter struct {
	Namespace string
	Metadata  map[string]string
}

// GraphRecord is one graph_query result row.
type GraphRecord struct {
	Fields map[string]any
}

// SchemaInfo is the result of schema_introspect.
type SchemaInfo struct {
	Tables  []string
	Columns map[string][]string // table -> column names
}

// PatternStore backs pattern_lookup and is consulted by the
// pattern_extraction handler and optionally by hybrid_score.
type PatternStore interface {
	Lookup(ctx context.Context, filters PatternFilters) ([]Pattern, error)
}

// VectorStore backs vector_search, consulted by infrastructure_scan.
type VectorStore interface {
	Search(ctx context.Context, embedding []float64, filter VectorFilter, limit int) ([]VectorHit, error)
}

// GraphStore backs graph_query, consulted by model_discovery.
type GraphStore interface {
	Query(ctx context.Context, query string) ([]GraphRecord, error)
}

// SchemaStore backs schema_introspect, consulted by schema_discovery.
type SchemaStore interface {
	Introspect(ctx context.Context, scope string) (SchemaInfo, error)
}

// Stores bundles every opaque capability a handler might need. A handler
// declares which of these it actually calls; unused fields may be nil in
// tests.
type Stores struct {
	Patterns PatternStore
	Vectors  VectorStore
	Graph    GraphStore
	Schema   SchemaStore
}
