// Package retryclassifier implements C6: it maps any error produced while
// processing a record into a closed-set error class and a retryable
// verdict, and computes each retry's backoff delay (BackoffConfig.Delay);
// the engine schedules the retries themselves. Grounded on
// pkg/consumer/errors.go's typed-error style and pkg/httpclient/retry_policy.go's
// retry-policy shape, generalized from HTTP-only to the whole pipeline.
package retryclassifier

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/archon-labs/intelligence-engine/internal/breaker"
	"github.com/archon-labs/intelligence-engine/internal/envelope"
)

// ErrorClass is the closed taxonomy from spec §3/§7.
type ErrorClass string

const (
	ClassInvalidInput        ErrorClass = "invalid_input"
	ClassUnsupportedLanguage ErrorClass = "unsupported_language"
	ClassParsingError        ErrorClass = "parsing_error"
	ClassTimeout             ErrorClass = "timeout"
	ClassExternalService     ErrorClass = "external_service_error"
	ClassRateLimitExceeded   ErrorClass = "rate_limit_exceeded"
	ClassInternalError       ErrorClass = "internal_error"
	ClassCircuitBreakerOpen  ErrorClass = "circuit_breaker_open"
)

// retryable is the closed mapping of class to whether the scheduler
// should retry. Terminal classes go straight to DLQ.
var retryable = map[ErrorClass]bool{
	ClassInvalidInput:        false,
	ClassUnsupportedLanguage: false,
	ClassParsingError:        false,
	ClassTimeout:             true,
	ClassExternalService:     true,
	ClassRateLimitExceeded:   true,
	ClassInternalError:       false,
	ClassCircuitBreakerOpen:  true,
}

// ClassifiedError pairs a terminal/retryable verdict with the underlying
// cause, and is what every handler, client and engine stage returns on
// failure instead of an ad-hoc error value.
type ClassifiedError struct {
	Class     ErrorClass
	Retryable bool
	Cause     error
}

func (e *ClassifiedError) Error() string {
	return string(e.Class) + ": " + e.Cause.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// Classify maps an arbitrary error to a ClassifiedError. Errors that are
// already ClassifiedError (or wrap one) pass through unchanged so a
// handler's own classification is never second-guessed. Unknown error
// types default to internal_error: terminal, since the classifier cannot
// tell an implementation bug from a data issue without a typed error.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var existing *ClassifiedError
	if errors.As(err, &existing) {
		return existing
	}

	var valErr *envelope.ValidationError
	if errors.As(err, &valErr) {
		return classify(ClassInvalidInput, err)
	}

	if errors.Is(err, breaker.ErrOpen) {
		return classify(ClassCircuitBreakerOpen, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return classify(ClassTimeout, err)
	}

	var timeouter interface{ Timeout() bool }
	if errors.As(err, &timeouter) && timeouter.Timeout() {
		return classify(ClassTimeout, err)
	}

	return classify(ClassInternalError, err)
}

// WithClass wraps err as a ClassifiedError under an explicit class,
// letting callers (HTTP clients, handlers) make the classification
// decision the generic Classify heuristics cannot.
func WithClass(class ErrorClass, err error) *ClassifiedError {
	return classify(class, err)
}

func classify(class ErrorClass, err error) *ClassifiedError {
	return &ClassifiedError{Class: class, Retryable: retryable[class], Cause: err}
}

// BackoffConfig configures the exponential-with-jitter delay schedule.
type BackoffConfig struct {
	Base       time.Duration
	Cap        time.Duration
	MaxRetries int
}

// DefaultBackoffConfig matches spec §4.6 defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Base: 2 * time.Second, Cap: 60 * time.Second, MaxRetries: 3}
}

// Delay computes the backoff for retry attempt n (1-indexed): this is the
// delay before attempt n+1. Delegates the exponential-with-jitter
// schedule to cenkalti/backoff's ExponentialBackOff rather than
// hand-rolling one, matching pkg/messaging/kafka/consumer.go's existing
// use of the same library for its own retry loop.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Base
	b.MaxInterval = c.Cap
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()

	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
