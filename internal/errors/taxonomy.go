// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import "fmt"

// Kind identifies one of the core's error categories (spec §7). Unlike
// UserError, which is meant for CLI display, Kind-tagged errors are meant
// to be inspected programmatically via errors.Is/errors.As across package
// boundaries (connector -> store -> facade).
type Kind string

const (
	KindNotConnected      Kind = "not_connected"
	KindCircuitOpen       Kind = "circuit_open"
	KindServiceUnavailable Kind = "service_unavailable"
	KindTimeout           Kind = "timeout"
	KindQueryError        Kind = "query_error"
	KindSchemaError       Kind = "schema_error"
	KindUnknownAgentType  Kind = "unknown_agent_type"
	KindInvalidArgument   Kind = "invalid_argument"
	KindNotFound          Kind = "not_found"
	KindIngestionError    Kind = "ingestion_error"
)

// CoreError wraps an underlying cause with a taxonomy Kind so callers can
// branch on category (retryable vs. not) without string matching.
type CoreError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &CoreError{Kind: KindCircuitOpen}) to match any
// CoreError of the same Kind, ignoring Msg/Err.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newCoreError(kind Kind, msg string, err error) *CoreError {
	return &CoreError{Kind: kind, Msg: msg, Err: err}
}

func NewNotConnected(msg string) *CoreError { return newCoreError(KindNotConnected, msg, nil) }

func NewCircuitOpen(retryInSeconds float64) *CoreError {
	return newCoreError(KindCircuitOpen, fmt.Sprintf("circuit open, retry in %.0fs", retryInSeconds), nil)
}

func NewServiceUnavailable(msg string, err error) *CoreError {
	return newCoreError(KindServiceUnavailable, msg, err)
}

func NewTimeout(msg string, err error) *CoreError { return newCoreError(KindTimeout, msg, err) }

func NewQueryError(msg string, err error) *CoreError { return newCoreError(KindQueryError, msg, err) }

func NewSchemaError(msg string) *CoreError { return newCoreError(KindSchemaError, msg, nil) }

func NewUnknownAgentType(name string) *CoreError {
	return newCoreError(KindUnknownAgentType, fmt.Sprintf("unknown agent type %q", name), nil)
}

func NewInvalidArgument(msg string) *CoreError { return newCoreError(KindInvalidArgument, msg, nil) }

func NewNotFound(msg string) *CoreError { return newCoreError(KindNotFound, msg, nil) }

func NewIngestionError(msg string, err error) *CoreError {
	return newCoreError(KindIngestionError, msg, err)
}

// Retryable reports whether a CoreError of this Kind is recoverable by
// retry or circuit-breaker reset, per spec §7's propagation policy.
func (e *CoreError) Retryable() bool {
	switch e.Kind {
	case KindNotConnected, KindCircuitOpen, KindServiceUnavailable:
		return true
	default:
		return false
	}
}
