// Package corrctx carries the correlation ID (C12) through a context.Context
// so every log line, outbound HTTP call, and outgoing envelope in the
// pipeline shares one identifier for a given record. Grounded on the
// teacher's context-first handler signatures, generalized from "no
// correlation propagation" to an explicit carried value.
package corrctx

import (
	"context"

	"github.com/archon-labs/intelligence-engine/pkg/observability"
)

type correlationIDKey struct{}

// With returns a context carrying correlationID, replacing any existing
// value.
func With(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

// From extracts the correlation ID carried by ctx, or "" if none was set.
func From(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey{}).(string)
	return v
}

// ShortPrefix returns a truncated correlation ID suitable for log-line
// grepping, per spec §4.12.
func ShortPrefix(correlationID string) string {
	const n = 8
	if len(correlationID) <= n {
		return correlationID
	}
	return correlationID[:n]
}

// HeaderName is the HTTP header used to propagate the correlation ID to
// outbound analyzer/embedder calls.
const HeaderName = "X-Correlation-ID"

// Logger returns obs's logger pre-bound with ctx's correlation ID via
// Logger.With, so callers never manually thread the ID into individual
// log calls.
func Logger(ctx context.Context, obs observability.Observability) observability.Logger {
	return obs.Logger().With(observability.String("correlation_id", From(ctx)))
}
