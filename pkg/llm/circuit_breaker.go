package llm

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned (wrapped) while the completion provider is being
// skipped.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitState is the breaker's view of the completion provider.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// CircuitBreakerConfig controls when the provider is skipped.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failed questions that opens the
	// circuit.
	Threshold int
	// ResetAfter is how long an open circuit waits before one probe call.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig opens after 5 consecutive failures and probes
// again after 30 seconds.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Threshold: 5, ResetAfter: 30 * time.Second}
}

// CircuitBreaker gates calls to a completion provider. Failures are counted
// per completed retry cycle, not per attempt.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
}

// NewCircuitBreaker returns a closed breaker. A non-positive threshold falls
// back to the default.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultCircuitBreakerConfig().Threshold
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now, state: CircuitClosed}
}

// Allow returns nil when a call may go to the provider. Once ResetAfter has
// passed, an open circuit lets a single probe through and rejects everything
// else until that probe is recorded.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		waited := cb.now().Sub(cb.openedAt)
		if waited <= cb.cfg.ResetAfter {
			return fmt.Errorf("%w: %d consecutive failures, retry in %s",
				ErrCircuitOpen, cb.failures, (cb.cfg.ResetAfter - waited).Round(time.Second))
		}
		cb.state = CircuitHalfOpen
		return nil
	case CircuitHalfOpen:
		return fmt.Errorf("%w: probe in flight", ErrCircuitOpen)
	default:
		return nil
	}
}

// Record feeds the outcome of a call back into the breaker. A nil err closes
// the circuit; a failed probe reopens it immediately.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		cb.state = CircuitClosed
		return
	}

	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= cb.cfg.Threshold {
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
