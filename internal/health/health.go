package health

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/archon-labs/intelligence-engine/internal/breaker"
	chiserver "github.com/archon-labs/intelligence-engine/pkg/http_server/chi_server"
	"github.com/archon-labs/intelligence-engine/pkg/observability"
)

// Heartbeat is a liveness signal the engine's main loop touches on every
// fetch iteration; a stale heartbeat means the loop is wedged.
type Heartbeat struct {
	lastBeat atomic.Int64 // unix nanos
}

// NewHeartbeat returns a Heartbeat initialized to the current time.
func NewHeartbeat(now time.Time) *Heartbeat {
	h := &Heartbeat{}
	h.Beat(now)
	return h
}

// Beat records now as the latest liveness signal.
func (h *Heartbeat) Beat(now time.Time) {
	h.lastBeat.Store(now.UnixNano())
}

// StaleSince reports how long it has been since the last Beat, as of now.
func (h *Heartbeat) StaleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, h.lastBeat.Load()))
}

// ReadinessInput is what the readiness check needs to observe, expressed
// as narrow function values so the health package never imports the
// engine or analyzer packages directly.
type ReadinessInput struct {
	Subscribed       func() bool
	AnalyzerBreaker  *breaker.Breaker
	EmbedderPing     func(ctx context.Context) error // nil disables the embedder check
	LivenessWindow   time.Duration
	Heartbeat        *Heartbeat
}

// NewServer builds the C11 HTTP surface by adapting
// pkg/http_server/chi_server wholesale: liveness and readiness checks
// are registered as chiserver.HealthCheckFunc, and /metrics exposes the
// collectors NewMetrics registered on the default registry.
func NewServer(port string, serviceName, serviceVersion, environment string, obs observability.Observability, in ReadinessInput) (*chiserver.Server, error) {
	if in.LivenessWindow <= 0 {
		in.LivenessWindow = 30 * time.Second
	}

	checks := map[string]chiserver.HealthCheckFunc{
		"main_loop": func(ctx context.Context) error {
			if in.Heartbeat == nil {
				return nil
			}
			if stale := in.Heartbeat.StaleSince(time.Now()); stale > in.LivenessWindow {
				return fmt.Errorf("main loop heartbeat stale for %s", stale)
			}
			return nil
		},
		"subscribed": func(ctx context.Context) error {
			if in.Subscribed != nil && !in.Subscribed() {
				return fmt.Errorf("not subscribed to request topics")
			}
			return nil
		},
		"analyzer_breaker": func(ctx context.Context) error {
			if in.AnalyzerBreaker == nil {
				return nil
			}
			if in.AnalyzerBreaker.CurrentState() == breaker.Open {
				return fmt.Errorf("analyzer circuit breaker open")
			}
			return nil
		},
	}
	if in.EmbedderPing != nil {
		checks["embedder"] = in.EmbedderPing
	}

	srv, err := chiserver.New(obs,
		chiserver.WithPort(port),
		chiserver.WithServiceName(serviceName),
		chiserver.WithServiceVersion(serviceVersion),
		chiserver.WithEnvironment(environment),
		chiserver.WithHealthChecks(checks),
		chiserver.WithMetrics(),
	)
	if err != nil {
		return nil, fmt.Errorf("health: build server: %w", err)
	}
	return srv, nil
}
