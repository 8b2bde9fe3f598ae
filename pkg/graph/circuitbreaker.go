// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package graph

import (
	"sync"
	"time"
)

// CircuitState is one of Closed, Open, or HalfOpen.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards calls to a remote graph backend, tripping open
// after FailureThreshold consecutive failures and probing recovery after
// TimeoutSeconds via a single half-open trial window.
type CircuitBreaker struct {
	FailureThreshold int
	Timeout          time.Duration
	SuccessThreshold int

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// NewCircuitBreaker builds a breaker with spec §4.1 defaults:
// failure_threshold=5, timeout_seconds=60, success_threshold=2.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		SuccessThreshold: 2,
		state:            CircuitClosed,
	}
}

// Allow reports whether a call may proceed, and the seconds remaining
// before a retry would be allowed if the circuit is open. Calling Allow
// on an Open breaker past its timeout transitions it to HalfOpen.
func (b *CircuitBreaker) Allow() (ok bool, retryInSeconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitOpen {
		return true, 0
	}

	elapsed := time.Since(b.lastFailureTime)
	if elapsed >= b.Timeout {
		b.state = CircuitHalfOpen
		b.successCount = 0
		return true, 0
	}
	return false, (b.Timeout - elapsed).Seconds()
}

// RecordSuccess registers a successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitHalfOpen:
		b.successCount++
		if b.successCount >= b.SuccessThreshold {
			b.state = CircuitClosed
			b.failureCount = 0
			b.successCount = 0
		}
	case CircuitClosed:
		b.failureCount = 0
	}
}

// RecordFailure registers a failed call.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case CircuitHalfOpen:
		b.state = CircuitOpen
		b.successCount = 0
	case CircuitClosed:
		if b.failureCount >= b.FailureThreshold {
			b.state = CircuitOpen
		}
	}
}

// Reset forces the breaker back to Closed, clearing counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = CircuitClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
}

// State reports the current snapshot, for /health and metrics reporting.
func (b *CircuitBreaker) State() (state CircuitState, failureCount, successCount int, lastFailure time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.failureCount, b.successCount, b.lastFailureTime
}
