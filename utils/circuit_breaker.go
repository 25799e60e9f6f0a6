package utils

import (
	"context"
	"sync"
	"time"

	"pos-relay/internal/status"
)

// CircuitBreaker stops calling a failing dependency for a cool-down period.
// After Timeout one probe call is let through (half-open); its outcome
// closes or re-opens the circuit.
type CircuitBreaker struct {
	name        string
	maxFailures uint32
	timeout     time.Duration
	now         func() time.Time

	mutex   sync.Mutex
	state   State
	counts  Counts
	expiry  time.Time
	probing bool
}

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
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

type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func NewCircuitBreaker(name string, maxFailures uint32, timeout time.Duration) *CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
		state:       StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.currentState(cb.now())
}

func (cb *CircuitBreaker) Counts() Counts {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.counts
}

// Execute runs req unless the circuit is open. A panic inside req counts as
// a failure and is re-raised.
func (cb *CircuitBreaker) Execute(ctx context.Context, req func(ctx context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			cb.afterRequest(false)
			panic(e)
		}
	}()

	err := req(ctx)
	cb.afterRequest(err == nil)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.currentState(cb.now()) {
	case StateOpen:
		return status.ErrCircuitOpen
	case StateHalfOpen:
		if cb.probing {
			return status.ErrTooManyRequests
		}
		cb.probing = true
	}

	cb.counts.Requests++
	return nil
}

func (cb *CircuitBreaker) afterRequest(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	state := cb.currentState(cb.now())
	if state == StateHalfOpen {
		cb.probing = false
	}

	if success {
		cb.onSuccess(state)
	} else {
		cb.onFailure(state)
	}
}

func (cb *CircuitBreaker) onSuccess(state State) {
	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0

	if state == StateHalfOpen {
		cb.state = StateClosed
		cb.expiry = time.Time{}
	}
}

func (cb *CircuitBreaker) onFailure(state State) {
	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0

	if state == StateHalfOpen || cb.counts.ConsecutiveFailures >= cb.maxFailures {
		cb.state = StateOpen
		cb.expiry = cb.now().Add(cb.timeout)
	}
}

// currentState must be called with the mutex held.
func (cb *CircuitBreaker) currentState(now time.Time) State {
	if cb.state == StateOpen && !now.Before(cb.expiry) {
		cb.state = StateHalfOpen
		cb.probing = false
	}
	return cb.state
}
