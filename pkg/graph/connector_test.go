// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package graph

import (
	"context"
	"errors"
	"testing"

	coreerrors "github.com/kraklabs/agentmem/internal/errors"
)

type fakeStore struct {
	pingErr   error
	pingCalls int
}

func (f *fakeStore) Ping(ctx context.Context) error {
	f.pingCalls++
	return f.pingErr
}
func (f *fakeStore) EnsureConstraint(ctx context.Context, label, property string, unique bool) error {
	return nil
}
func (f *fakeStore) EnsureIndex(ctx context.Context, label string, properties []string) error {
	return nil
}
func (f *fakeStore) MergeNode(ctx context.Context, label string, match Key, setProps map[string]any) (*Node, error) {
	return &Node{Labels: []string{label}, Properties: setProps}, nil
}
func (f *fakeStore) GetNode(ctx context.Context, label string, match Key) (*Node, error) {
	return nil, nil
}
func (f *fakeStore) UpdateNode(ctx context.Context, label string, match Key, setProps map[string]any) error {
	return nil
}
func (f *fakeStore) DeleteNode(ctx context.Context, label string, match Key) error { return nil }
func (f *fakeStore) CreateEdge(ctx context.Context, edgeType, fromLabel string, from Key, toLabel string, to Key, props map[string]any) error {
	return nil
}
func (f *fakeStore) DeleteEdge(ctx context.Context, edgeType, fromLabel string, from Key, toLabel string, to Key) error {
	return nil
}
func (f *fakeStore) ListNodes(ctx context.Context, label string, match Key, limit int) ([]*Node, error) {
	return nil, nil
}
func (f *fakeStore) Neighbors(ctx context.Context, edgeType, fromLabel string, from Key, toLabel string, direction string) ([]*Node, error) {
	return nil, nil
}
func (f *fakeStore) Edges(ctx context.Context, edgeType, label string, match Key, direction string) ([]*Edge, error) {
	return nil, nil
}
func (f *fakeStore) Query(ctx context.Context, cypher string, params map[string]any) (*RowSet, error) {
	return &RowSet{}, nil
}
func (f *fakeStore) Execute(ctx context.Context, cypher string, params map[string]any) error {
	return nil
}
func (f *fakeStore) Close() error { return nil }

var errBoom = errors.New("boom")

func TestConnectorOpensCircuitAfterRepeatedTransientFailures(t *testing.T) {
	fs := &fakeStore{pingErr: errBoom}
	c := NewConnector(fs, func(error) bool { return true }, nil)
	c.retry.MaxRetries = 0
	c.breaker.FailureThreshold = 2

	for i := 0; i < 2; i++ {
		if err := c.Ping(context.Background()); err == nil {
			t.Fatalf("expected error from failing ping")
		}
	}

	err := c.Ping(context.Background())
	var ce *coreerrors.CoreError
	if !errors.As(err, &ce) || ce.Kind != coreerrors.KindCircuitOpen {
		t.Fatalf("expected CircuitOpen error, got %v", err)
	}
}

func TestConnectorPassesThroughNonTransientErrors(t *testing.T) {
	fs := &fakeStore{pingErr: errBoom}
	c := NewConnector(fs, func(error) bool { return false }, nil)

	err := c.Ping(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected underlying error to pass through unwrapped, got %v", err)
	}

	state, failures, _, _ := c.breaker.State()
	if state != CircuitClosed || failures != 0 {
		t.Fatalf("non-transient failures must not affect circuit health")
	}
}

func TestConnectorSucceedsAndClosesCircuit(t *testing.T) {
	fs := &fakeStore{}
	c := NewConnector(fs, func(error) bool { return true }, nil)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.pingCalls != 1 {
		t.Fatalf("expected exactly 1 ping call, got %d", fs.pingCalls)
	}
}
