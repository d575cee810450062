// Package bus defines the minimal message-bus contract the consumer
// engine (C10) needs to own polling, dispatch, and manual offset commit
// itself, rather than delegating to a higher-level consumer abstraction
// that would hide the per-record commit discipline spec §4.10 requires.
// Grounded on pkg/messaging/kafka/consumer.go's direct use of
// *kafka.Reader/*kafka.Writer, generalized into an interface so the
// engine can be tested against a fake.
package bus

import (
	"context"
	"time"
)

// Record is one fetched message, carrying enough to both decode an
// envelope and commit its position back to the bus.
type Record struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Time      time.Time
}

// Reader fetches records from one or more subscribed topics and commits
// offsets on the engine's behalf. A single Reader instance is owned
// exclusively by the consumer engine (spec §3's "Ownership" invariant).
type Reader interface {
	// FetchBatch blocks until at least one record is available or ctx is
	// done, returning up to maxRecords records.
	FetchBatch(ctx context.Context, maxRecords int) ([]Record, error)

	// Commit advances the consumer's position past the given records.
	// Records from the same partition must be committed in the order
	// they were fetched; the engine enforces this, not the Reader.
	Commit(ctx context.Context, records []Record) error

	Close() error
}

// Writer publishes envelopes onto a named topic, keyed for co-location
// (spec §6: "the message key SHOULD be correlation_id").
type Writer interface {
	Publish(ctx context.Context, topic string, key string, headers map[string]string, body []byte) error
	Close() error
}

// Bus bundles a Reader and Writer behind a single lifecycle, mirroring
// pkg/messaging/kafka.Broker's NewConsumerFromBroker/NewProducerFromBroker
// pairing.
type Bus interface {
	Reader
	Writer
}
