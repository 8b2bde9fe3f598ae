// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoRetriesTransientUntilSuccess(t *testing.T) {
	attempts := 0
	cfg := Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2}
	err := Do(context.Background(), cfg, func(error) bool { return true }, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsAfterMaxRetries(t *testing.T) {
	attempts := 0
	cfg := Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2}
	err := Do(context.Background(), cfg, func(error) bool { return true }, func() error {
		attempts++
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Fatalf("expected 1 initial + 2 retries = 3 attempts, got %d", attempts)
	}
}

func TestDoDoesNotRetryNonTransient(t *testing.T) {
	attempts := 0
	cfg := DefaultConfig()
	err := Do(context.Background(), cfg, func(error) bool { return false }, func() error {
		attempts++
		return errors.New("permanent")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for non-transient error, got %d", attempts)
	}
}

func TestBackoffGrowsExponentiallyAndCaps(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, Multiplier: 2}
	if got := cfg.Backoff(0); got != time.Second {
		t.Errorf("attempt 0: got %v", got)
	}
	if got := cfg.Backoff(1); got != 2*time.Second {
		t.Errorf("attempt 1: got %v", got)
	}
	if got := cfg.Backoff(10); got != 5*time.Second {
		t.Errorf("expected cap at MaxBackoff, got %v", got)
	}
}
