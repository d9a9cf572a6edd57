// Package healthcheck circuit breaker implementation
// Provides circuit breaker pattern for outbound calls to prevent cascading failures
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int `mapstructure:"failure_threshold"`

	// SuccessThreshold is the number of successes required to close the circuit when half-open
	SuccessThreshold int `mapstructure:"success_threshold"`

	// Timeout is how long the circuit stays open before probing again
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxRequests is the maximum number of concurrent probes when half-open
	MaxRequests int `mapstructure:"max_requests"`

	// OnStateChange is called when the state changes, outside the lock
	OnStateChange func(name string, from, to CircuitBreakerState)
}

// CircuitBreakerStatus represents the current status of a circuit breaker
type CircuitBreakerStatus struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	FailureCount    int       `json:"failure_count"`
	SuccessCount    int       `json:"success_count"`
	TotalRequests   int64     `json:"total_requests"`
	TotalRejections int64     `json:"total_rejections"`
	LastFailureTime time.Time `json:"last_failure_time,omitempty"`
	NextAttempt     time.Time `json:"next_attempt,omitempty"`
}

// CircuitBreaker implements the circuit breaker pattern. The protected call
// runs without holding the lock, so concurrent callers are not serialized.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	now    func() time.Time

	mu                   sync.Mutex
	state                CircuitBreakerState
	consecutiveFailures  int
	consecutiveSuccesses int
	inFlightProbes       int
	totalRequests        int64
	totalRejections      int64
	lastFailureTime      time.Time
	nextAttempt          time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute runs fn with circuit breaker protection. Context cancellation by the
// caller is not counted as a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	probe, transition, err := cb.before()
	cb.notify(transition)
	if err != nil {
		return err
	}

	callErr := fn(ctx)
	if callErr != nil && ctx.Err() != nil && errors.Is(callErr, ctx.Err()) {
		cb.notify(cb.release(probe))
		return callErr
	}

	cb.notify(cb.after(probe, callErr == nil))
	return callErr
}

type transition struct {
	from, to CircuitBreakerState
}

func (cb *CircuitBreaker) before() (bool, *transition, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	var t *transition
	if cb.state == StateOpen && !cb.now().Before(cb.nextAttempt) {
		t = cb.setState(StateHalfOpen)
	}

	switch cb.state {
	case StateClosed:
		return false, t, nil
	case StateHalfOpen:
		if cb.inFlightProbes >= cb.config.MaxRequests {
			cb.totalRejections++
			return false, t, fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
		}
		cb.inFlightProbes++
		return true, t, nil
	default:
		cb.totalRejections++
		return false, t, fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
	}
}

func (cb *CircuitBreaker) after(probe, success bool) *transition {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe && cb.inFlightProbes > 0 {
		cb.inFlightProbes--
	}

	if success {
		cb.consecutiveFailures = 0
		cb.consecutiveSuccesses++
		if cb.state == StateHalfOpen && cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
			return cb.setState(StateClosed)
		}
		return nil
	}

	cb.consecutiveSuccesses = 0
	cb.consecutiveFailures++
	cb.lastFailureTime = cb.now()
	switch cb.state {
	case StateClosed:
		if cb.consecutiveFailures >= cb.config.FailureThreshold {
			return cb.setState(StateOpen)
		}
	case StateHalfOpen:
		return cb.setState(StateOpen)
	}
	return nil
}

func (cb *CircuitBreaker) release(probe bool) *transition {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe && cb.inFlightProbes > 0 {
		cb.inFlightProbes--
	}
	return nil
}

// setState must be called with the lock held
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) *transition {
	if cb.state == newState {
		return nil
	}

	oldState := cb.state
	cb.state = newState

	switch newState {
	case StateOpen:
		cb.nextAttempt = cb.now().Add(cb.config.Timeout)
		cb.inFlightProbes = 0
	case StateHalfOpen:
		cb.consecutiveSuccesses = 0
	case StateClosed:
		cb.consecutiveFailures = 0
		cb.consecutiveSuccesses = 0
	}

	return &transition{from: oldState, to: newState}
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t != nil && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, t.from, t.to)
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Status returns the current status of the circuit breaker
func (cb *CircuitBreaker) Status() CircuitBreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := CircuitBreakerStatus{
		Name:            cb.name,
		State:           cb.state.String(),
		FailureCount:    cb.consecutiveFailures,
		SuccessCount:    cb.consecutiveSuccesses,
		TotalRequests:   cb.totalRequests,
		TotalRejections: cb.totalRejections,
		LastFailureTime: cb.lastFailureTime,
	}
	if cb.state == StateOpen {
		status.NextAttempt = cb.nextAttempt
	}
	return status
}

// Reset resets the circuit breaker to its initial state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	t := cb.setState(StateClosed)
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.inFlightProbes = 0
	cb.nextAttempt = time.Time{}
	cb.mu.Unlock()

	cb.notify(t)
}

// Checker reports an open circuit as degraded. The dependency behind the
// breaker is optional, so the service stays ready.
func (cb *CircuitBreaker) Checker() Checker {
	return NewCustomChecker(cb.name, func(context.Context) (Status, string, interface{}) {
		status := cb.Status()
		switch status.State {
		case StateOpen.String():
			return StatusDegraded, "circuit open", status
		case StateHalfOpen.String():
			return StatusDegraded, "circuit probing", status
		default:
			return StatusHealthy, "", status
		}
	})
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breakers
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}
