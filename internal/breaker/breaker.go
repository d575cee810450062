// Package breaker implements C3: a closed/open/half-open circuit breaker
// guarding the external analyzer, grounded on the state-machine shape
// documented in other_examples' resilience package doc comment, with all
// breaker state guarded by a single sync.Mutex.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is one of the three breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Attempt when the breaker is open or when a
// half-open probe slot is already occupied.
var ErrOpen = errors.New("circuit breaker open")

// IsQualifyingFailure decides whether an error returned by the guarded
// call counts toward the consecutive-failure counter. The default
// excludes pure timeouts per spec §4.3's rationale that a slow dependency
// is not the same signal as a rejecting one.
type IsQualifyingFailure func(err error) bool

// IsTimeout reports whether err is a context deadline expiry or satisfies
// the standard net-style Timeout() bool interface. Kept self-contained
// here (rather than delegating to retryclassifier.Classify) since
// retryclassifier itself imports breaker, and breaker importing it back
// would be a cycle.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeouter interface{ Timeout() bool }
	return errors.As(err, &timeouter) && timeouter.Timeout()
}

// ExcludeTimeouts is the IsQualifyingFailure that treats a timeout as not
// counting toward the consecutive-failure tally, per spec §4.3's
// rationale that a slow dependency is not the same signal as a rejecting
// one. This is the default.
func ExcludeTimeouts(err error) bool { return !IsTimeout(err) }

// CountAll is the IsQualifyingFailure that counts every failure,
// including timeouts, toward the breaker's tally. Wired in when an
// operator sets CIRCUIT_BREAKER_EXCLUDE_TIMEOUTS=false.
func CountAll(error) bool { return true }

// Config configures threshold, timeout and probe behavior.
type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	SuccessThreshold int // half-open successes required to close; default 1
	IsQualifying     IsQualifyingFailure
	OnStateChange    func(from, to State)
}

// DefaultConfig matches spec §6 defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		SuccessThreshold: 1,
		IsQualifying:     ExcludeTimeouts,
	}
}

// Breaker is safe for concurrent use. All state transitions happen under
// a single mutex so concurrent callers observe a consistent state (the
// spec's "transitions are atomic" requirement).
type Breaker struct {
	cfg Config

	mu                     sync.Mutex
	state                  State
	consecutiveFailures    int
	openedAt               time.Time
	halfOpenProbesInFlight int
	halfOpenSuccesses      int
}

// New constructs a Breaker guarding a single dependency.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.IsQualifying == nil {
		cfg.IsQualifying = ExcludeTimeouts
	}
	return &Breaker{cfg: cfg, state: Closed}
}

// CurrentState reports the breaker's state, resolving an elapsed
// open-timeout into half_open as a side effect — matching spec §4.3's
// "when now - opened_at >= reset_timeout, transition to half_open".
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()
	return b.state
}

// Attempt runs fn only if the breaker admits the call: always in closed,
// never in open, and at most one concurrent probe in half_open. It
// updates state based on fn's outcome and the qualifying-failure policy.
func (b *Breaker) Attempt(fn func() error) error {
	if !b.admit() {
		return ErrOpen
	}

	err := fn()
	b.report(err)
	return err
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTransitionToHalfOpenLocked()

	switch b.state {
	case Closed:
		return true
	case Open:
		return false
	case HalfOpen:
		if b.halfOpenProbesInFlight > 0 {
			return false
		}
		b.halfOpenProbesInFlight++
		return true
	default:
		return false
	}
}

func (b *Breaker) report(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.halfOpenProbesInFlight--
		if err == nil {
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.cfg.SuccessThreshold {
				b.transitionLocked(Closed)
				b.consecutiveFailures = 0
				b.halfOpenSuccesses = 0
			}
			return
		}
		b.transitionLocked(Open)
		b.openedAt = time.Now()
		b.halfOpenSuccesses = 0
	case Closed:
		if err == nil {
			b.consecutiveFailures = 0
			return
		}
		if !b.cfg.IsQualifying(err) {
			return
		}
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.transitionLocked(Open)
			b.openedAt = time.Now()
		}
	}
}

func (b *Breaker) maybeTransitionToHalfOpenLocked() {
	if b.state == Open && time.Since(b.openedAt) >= b.cfg.ResetTimeout {
		b.transitionLocked(HalfOpen)
		b.halfOpenProbesInFlight = 0
		b.halfOpenSuccesses = 0
	}
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

// Snapshot reports the fields named in spec §3's Breaker state record,
// for the health/metrics surface (C11).
type Snapshot struct {
	State                  State
	ConsecutiveFailures    int
	OpenedAt               time.Time
	HalfOpenProbesInFlight int
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()
	return Snapshot{
		State:                  b.state,
		ConsecutiveFailures:    b.consecutiveFailures,
		OpenedAt:               b.openedAt,
		HalfOpenProbesInFlight: b.halfOpenProbesInFlight,
	}
}
