// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package graph

import (
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 3

	for i := 0; i < 3; i++ {
		ok, _ := b.Allow()
		if !ok {
			t.Fatalf("expected closed circuit to allow call %d", i)
		}
		b.RecordFailure()
	}

	ok, retry := b.Allow()
	if ok {
		t.Fatalf("expected circuit to be open after threshold failures")
	}
	if retry <= 0 {
		t.Errorf("expected positive retry-in estimate, got %v", retry)
	}
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 1
	b.SuccessThreshold = 2
	b.Timeout = time.Millisecond

	b.Allow()
	b.RecordFailure()

	state, _, _, _ := b.State()
	if state != CircuitOpen {
		t.Fatalf("expected open, got %s", state)
	}

	time.Sleep(2 * time.Millisecond)

	ok, _ := b.Allow()
	if !ok {
		t.Fatalf("expected half-open probe to be allowed after timeout")
	}
	state, _, _, _ = b.State()
	if state != CircuitHalfOpen {
		t.Fatalf("expected half-open, got %s", state)
	}

	b.RecordSuccess()
	b.RecordSuccess()

	state, _, _, _ = b.State()
	if state != CircuitClosed {
		t.Fatalf("expected closed after success threshold, got %s", state)
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 1
	b.Timeout = time.Millisecond

	b.Allow()
	b.RecordFailure()
	time.Sleep(2 * time.Millisecond)
	b.Allow()

	b.RecordFailure()

	state, _, _, _ := b.State()
	if state != CircuitOpen {
		t.Fatalf("expected reopen after half-open failure, got %s", state)
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 1
	b.RecordFailure()

	b.Reset()

	state, failures, _, _ := b.State()
	if state != CircuitClosed || failures != 0 {
		t.Fatalf("expected clean reset, got state=%s failures=%d", state, failures)
	}
}
