package store

import "context"

// NoopVectorStore, NoopGraphStore and NoopSchemaStore let handlers be
// exercised before a concrete vector/graph/schema backend is wired,
// matching spec §6's "may back these with any concrete store" latitude.
// Each returns an empty result and a nil error, so a handler consuming
// one completes normally with empty data; partial_results is not set.

type NoopVectorStore struct{}

func (NoopVectorStore) Search(context.Context, []float64, VectorFilter, int) ([]VectorHit, error) {
	return nil, nil
}

type NoopGraphStore struct{}

func (NoopGraphStore) Query(context.Context, string) ([]GraphRecord, error) {
	return nil, nil
}

type NoopSchemaStore struct{}

func (NoopSchemaStore) Introspect(context.Context, string) (SchemaInfo, error) {
	return SchemaInfo{}, nil
}
