package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/handlers"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/pkg/observability/noop"

	"github.com/archon-labs/intelligence-engine/internal/bus"
)

type fakeBus struct {
	mu        sync.Mutex
	records   []bus.Record
	idx       int
	committed []bus.Record
	done      chan struct{}
	closed    bool
}

func newFakeBus(records []bus.Record) *fakeBus {
	return &fakeBus{records: records, done: make(chan struct{})}
}

func (f *fakeBus) FetchBatch(ctx context.Context, maxRecords int) ([]bus.Record, error) {
	f.mu.Lock()
	if f.idx >= len(f.records) {
		f.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
			return nil, nil
		}
	}
	end := f.idx + maxRecords
	if end > len(f.records) {
		end = len(f.records)
	}
	batch := f.records[f.idx:end]
	f.idx = end
	f.mu.Unlock()
	return batch, nil
}

func (f *fakeBus) Commit(ctx context.Context, records []bus.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, records...)
	if len(f.committed) == len(f.records) {
		select {
		case <-f.done:
		default:
			close(f.done)
		}
	}
	return nil
}

func (f *fakeBus) Publish(ctx context.Context, topic, key string, headers map[string]string, body []byte) error {
	return nil
}

func (f *fakeBus) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func buildRecord(t *testing.T, eventID, correlationID string) bus.Record {
	t.Helper()
	payload, err := json.Marshal(envelope.HybridScoreInput{
		PatternKeywords: []string{"a"},
		ContextKeywords: []string{"a"},
	})
	require.NoError(t, err)
	env := envelope.Envelope{
		EventID:       eventID,
		EventType:     envelope.OpHybridScore,
		Kind:          envelope.KindRequest,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
	body, err := json.Marshal(env)
	require.NoError(t, err)
	return bus.Record{Topic: "requests", Partition: 0, Offset: 0, Value: body}
}

func TestEngineProcessesAndCommitsRecord(t *testing.T) {
	record := buildRecord(t, "evt-1", "corr-1")
	fb := newFakeBus([]bus.Record{record})

	dispatcher := handlers.NewDispatcher(handlers.Deps{})
	e := New(Config{Concurrency: 2, MaxPollRecords: 10, ShutdownTimeout: time.Second}, fb, dispatcher,
		retryclassifier.DefaultBackoffConfig(), nil, nil, func(envelope.OperationType) string { return "results" }, noop.NewProvider())

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	go func() { _ = e.Start(ctx) }()

	select {
	case <-fb.done:
	case <-time.After(time.Second):
		t.Fatal("record was never committed")
	}
	cancel()

	fb.mu.Lock()
	committed := len(fb.committed)
	fb.mu.Unlock()
	assert.Equal(t, 1, committed)
}

func TestEngineCommitsOutOfOrderCompletionsInFetchOrder(t *testing.T) {
	records := []bus.Record{
		{Topic: "requests", Partition: 0, Offset: 0, Value: mustEnvelope(t, "evt-0", "corr-0")},
		{Topic: "requests", Partition: 0, Offset: 1, Value: mustEnvelope(t, "evt-1", "corr-1")},
		{Topic: "requests", Partition: 0, Offset: 2, Value: mustEnvelope(t, "evt-2", "corr-2")},
	}
	fb := newFakeBus(records)

	dispatcher := handlers.NewDispatcher(handlers.Deps{})
	e := New(Config{Concurrency: 3, MaxPollRecords: 10, ShutdownTimeout: time.Second}, fb, dispatcher,
		retryclassifier.DefaultBackoffConfig(), nil, nil, func(envelope.OperationType) string { return "results" }, noop.NewProvider())

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	go func() { _ = e.Start(ctx) }()

	select {
	case <-fb.done:
	case <-time.After(time.Second):
		t.Fatal("records were never all committed")
	}
	cancel()

	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.Len(t, fb.committed, 3)
	assert.Equal(t, int64(0), fb.committed[0].Offset)
	assert.Equal(t, int64(1), fb.committed[1].Offset)
	assert.Equal(t, int64(2), fb.committed[2].Offset)
}

func mustEnvelope(t *testing.T, eventID, correlationID string) []byte {
	t.Helper()
	payload, err := json.Marshal(envelope.HybridScoreInput{PatternKeywords: []string{"a"}, ContextKeywords: []string{"a"}})
	require.NoError(t, err)
	env := envelope.Envelope{
		EventID: eventID, EventType: envelope.OpHybridScore, Kind: envelope.KindRequest,
		CorrelationID: correlationID, Timestamp: time.Now().UTC(), Payload: payload,
	}
	body, err := json.Marshal(env)
	require.NoError(t, err)
	return body
}
