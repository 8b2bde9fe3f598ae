// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"errors"
	"testing"
)

func TestCoreErrorIsMatchesByKind(t *testing.T) {
	err := NewCircuitOpen(12.5)
	if !errors.Is(err, &CoreError{Kind: KindCircuitOpen}) {
		t.Fatalf("expected Is to match on Kind")
	}
	if errors.Is(err, &CoreError{Kind: KindTimeout}) {
		t.Fatalf("expected Is to not match a different Kind")
	}
}

func TestRetryableKinds(t *testing.T) {
	retryable := []*CoreError{NewNotConnected("x"), NewCircuitOpen(1), NewServiceUnavailable("x", nil)}
	for _, e := range retryable {
		if !e.Retryable() {
			t.Errorf("expected %s to be retryable", e.Kind)
		}
	}

	notRetryable := []*CoreError{NewQueryError("x", nil), NewSchemaError("x"), NewUnknownAgentType("x"), NewInvalidArgument("x"), NewNotFound("x"), NewIngestionError("x", nil), NewTimeout("x", nil)}
	for _, e := range notRetryable {
		if e.Retryable() {
			t.Errorf("expected %s to not be retryable", e.Kind)
		}
	}
}

func TestUnwrapExposesUnderlyingCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewQueryError("bad cypher", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected Unwrap to expose the underlying cause")
	}
}
