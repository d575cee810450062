package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/archon-labs/intelligence-engine/internal/breaker"
	"github.com/archon-labs/intelligence-engine/pkg/observability/noop"
)

func TestHeartbeatStaleness(t *testing.T) {
	now := time.Now()
	hb := NewHeartbeat(now)
	assert.Less(t, hb.StaleSince(now), time.Millisecond)

	later := now.Add(time.Minute)
	assert.GreaterOrEqual(t, hb.StaleSince(later), time.Minute)

	hb.Beat(later)
	assert.Less(t, hb.StaleSince(later), time.Millisecond)
}

func TestNewServerWiresHealthChecks(t *testing.T) {
	cb := breaker.New(breaker.DefaultConfig())
	srv, err := NewServer(":0", "intelligence-engine", "test", "test", noop.NewProvider(), ReadinessInput{
		AnalyzerBreaker: cb,
		Subscribed:      func() bool { return true },
		Heartbeat:       NewHeartbeat(time.Now()),
	})
	assert := assert.New(t)
	assert.NoError(err)
	assert.NotNil(srv)
}
