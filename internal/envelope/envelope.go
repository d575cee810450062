// Package envelope defines the uniform message wrapper carried by every
// bus topic and the typed payloads per operation, grounded on the
// decode/validate shape of pkg/consumer/handler.go generalized from a
// single generic type parameter to a closed set of operation payloads.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationType discriminates the payload carried by a request envelope.
type OperationType string

const (
	OpQualityAssessment      OperationType = "quality_assessment"
	OpOneXCompliance         OperationType = "onex_compliance"
	OpPatternExtraction      OperationType = "pattern_extraction"
	OpArchitecturalCompliance OperationType = "architectural_compliance"
	OpComprehensiveAnalysis  OperationType = "comprehensive_analysis"
	OpHybridScore            OperationType = "hybrid_score"
	OpInfrastructureScan     OperationType = "infrastructure_scan"
	OpModelDiscovery         OperationType = "model_discovery"
	OpSchemaDiscovery        OperationType = "schema_discovery"
	OpDependencyAudit        OperationType = "dependency_audit"
)

// knownOperations is the closed set of operation types this build
// recognizes; anything else is a terminal validation error.
var knownOperations = map[OperationType]struct{}{
	OpQualityAssessment:       {},
	OpOneXCompliance:          {},
	OpPatternExtraction:       {},
	OpArchitecturalCompliance: {},
	OpComprehensiveAnalysis:   {},
	OpHybridScore:             {},
	OpInfrastructureScan:      {},
	OpModelDiscovery:          {},
	OpSchemaDiscovery:         {},
	OpDependencyAudit:         {},
}

// EventKind distinguishes request, completion, failure, retry and DLQ
// envelopes riding the same schema.
type EventKind string

const (
	KindRequest    EventKind = "request"
	KindCompletion EventKind = "completion"
	KindFailure    EventKind = "failure"
	KindRetry      EventKind = "retry"
	KindDLQ        EventKind = "dlq"
)

// Source identifies the producing service instance.
type Source struct {
	Service  string `json:"service"`
	Instance string `json:"instance"`
}

// RetryAttempt records one retry attempt's outcome. Carried on the
// envelope itself so the full history survives a retry's round trip
// through the bus (or an in-process redispatch) to wherever the record
// is eventually either completed or sent to the DLQ, per spec §4.7's
// retry_history requirement.
type RetryAttempt struct {
	AttemptNumber int           `json:"attempt_number"`
	Timestamp     time.Time     `json:"timestamp"`
	ErrorClass    string        `json:"error_class"`
	Error         string        `json:"error"`
	Backoff       time.Duration `json:"backoff,omitempty"`
}

// Envelope is the immutable wrapper carried by every message on every
// topic. A retried message is a new Envelope referencing the original
// via CorrelationID with RetryCount incremented.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     OperationType   `json:"event_type"`
	Kind          EventKind       `json:"kind"`
	CorrelationID string          `json:"correlation_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        Source          `json:"source"`
	Payload       json.RawMessage `json:"payload"`
	RetryCount    int             `json:"retry_count,omitempty"`
	RetryHistory  []RetryAttempt  `json:"retry_history,omitempty"`
}

// Validate checks the envelope-level invariants shared by every kind:
// non-empty identifiers, a parseable UTC timestamp, and a recognized
// event type. Payload-specific validation happens during Decode.
func (e Envelope) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Reason: "must not be empty"}
	}
	if e.CorrelationID == "" {
		return &ValidationError{Field: "correlation_id", Reason: "must not be empty"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "must not be zero"}
	}
	if _, known := knownOperations[e.EventType]; !known {
		return &ValidationError{Field: "event_type", Reason: fmt.Sprintf("unknown operation type %q", e.EventType)}
	}
	if e.RetryCount < 0 {
		return &ValidationError{Field: "retry_count", Reason: "must not be negative"}
	}
	return nil
}

// ValidationError reports a single field-level envelope or payload defect.
// It always maps to the invalid_input error class at the classifier.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("envelope field %q invalid: %s", e.Field, e.Reason)
}

// NewRetry derives a new request envelope for a retried attempt: same
// correlation ID and operation type, RetryCount incremented, fresh
// EventID and Timestamp, with attempt appended to RetryHistory so the
// full history survives to a terminal DLQ record.
func NewRetry(original Envelope, newEventID string, now time.Time, attempt RetryAttempt) Envelope {
	retry := original
	retry.EventID = newEventID
	retry.Kind = KindRetry
	retry.Timestamp = now
	retry.RetryCount = original.RetryCount + 1
	retry.RetryHistory = append(append([]RetryAttempt{}, original.RetryHistory...), attempt)
	return retry
}
