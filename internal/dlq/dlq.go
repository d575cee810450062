// Package dlq implements C7: it publishes exactly one event per
// terminally-failed input, carrying the original envelope, final error
// class, full retry history, and a failure timestamp. Grounded on
// pkg/messaging/kafka/dlq.go's DLQMessage/NewDLQMessage/PublishToDLQStrategy
// shape, generalized from raw Kafka records to typed envelopes.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
	"github.com/archon-labs/intelligence-engine/internal/retryclassifier"
	"github.com/archon-labs/intelligence-engine/pkg/messaging"
	"github.com/archon-labs/intelligence-engine/pkg/observability"
)

// Attempt records one retry attempt's outcome, for the RetryHistory field
// required by spec §4.7.
type Attempt struct {
	AttemptNumber int           `json:"attempt_number"`
	Timestamp     time.Time     `json:"timestamp"`
	ErrorClass    retryclassifier.ErrorClass `json:"error_class"`
	Error         string        `json:"error"`
	Backoff       time.Duration `json:"backoff,omitempty"`
}

// Record is the serialized DLQ event body.
type Record struct {
	Original       envelope.Envelope `json:"original_envelope"`
	FinalErrorClass retryclassifier.ErrorClass `json:"final_error_class"`
	FinalError     string    `json:"final_error"`
	RetryHistory   []Attempt `json:"retry_history"`
	FailureSummary string    `json:"failure_summary"`
	FailedAt       time.Time `json:"failed_at"`
}

// Publisher emits terminal failures to the DLQ topic. Publication is
// synchronous and its error must be observed by the caller: per spec
// §4.7, the engine does not commit the source offset unless Publish
// succeeds.
type Publisher struct {
	publisher messaging.Publisher
	topic     string
	obs       observability.Observability
}

// New constructs a DLQ Publisher bound to a single topic.
func New(publisher messaging.Publisher, topic string, obs observability.Observability) *Publisher {
	return &Publisher{publisher: publisher, topic: topic, obs: obs}
}

// Publish serializes and sends a DLQ record. Returns an error when the
// publish itself fails; callers must treat that as "do not commit".
func (p *Publisher) Publish(ctx context.Context, original envelope.Envelope, finalErr *retryclassifier.ClassifiedError, history []Attempt) error {
	record := Record{
		Original:        original,
		FinalErrorClass: finalErr.Class,
		FinalError:      finalErr.Error(),
		RetryHistory:    history,
		FailureSummary:  fmt.Sprintf("terminal after %d attempt(s): %s", len(history)+1, finalErr.Class),
		FailedAt:        time.Now().UTC(),
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("dlq: encode record: %w", err)
	}

	headers := map[string]string{
		"dlq_original_event_type": string(original.EventType),
		"dlq_error_class":         string(finalErr.Class),
		"dlq_correlation_id":      original.CorrelationID,
		"dlq_attempts":            fmt.Sprintf("%d", len(history)+1),
	}

	if p.obs != nil {
		p.obs.Logger().Error(ctx, "publishing to DLQ",
			observability.String("correlation_id", original.CorrelationID),
			observability.String("error_class", string(finalErr.Class)),
			observability.Int("attempts", len(history)+1),
		)
	}

	msg := &messaging.Message{Body: body}
	if err := p.publisher.Publish(ctx, p.topic, original.CorrelationID, headers, msg); err != nil {
		return fmt.Errorf("dlq: publish: %w", err)
	}
	return nil
}
