// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package graph

import (
	"context"
	"log/slog"

	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/internal/retry"
)

// Connector wraps any Store with circuit-breaker protection and bounded
// exponential-backoff retry of transient failures, translating backend
// errors into the errors.CoreError taxonomy. It implements Store itself,
// so schema/memstore/retrieval code depends only on Store regardless of
// whether a Connector is interposed.
type Connector struct {
	inner   Store
	breaker *CircuitBreaker
	retry   retry.Config
	log     *slog.Logger

	// isTransient classifies an error from inner as retryable. The Neo4j
	// backend supplies neo4jgraph.IsTransient (connectivity errors,
	// ServiceUnavailable, SessionExpired); the embedded backend has nothing
	// transient and passes a func that always returns false.
	isTransient func(error) bool
}

// NewConnector builds a Connector around a Store. isTransient may be nil,
// in which case no errors are treated as retryable.
func NewConnector(inner Store, isTransient func(error) bool, logger *slog.Logger) *Connector {
	if isTransient == nil {
		isTransient = func(error) bool { return false }
	}
	return &Connector{
		inner:       inner,
		breaker:     NewCircuitBreaker(),
		retry:       retry.DefaultConfig(),
		log:         logging.OrDefault(logger),
		isTransient: isTransient,
	}
}

// Breaker exposes the circuit breaker for health/metrics reporting.
func (c *Connector) Breaker() *CircuitBreaker { return c.breaker }

// guard runs op through the circuit breaker and retry policy, uniformly
// for every Store method.
func (c *Connector) guard(ctx context.Context, op func() error) error {
	ok, retryIn := c.breaker.Allow()
	if !ok {
		return coreerrors.NewCircuitOpen(retryIn)
	}

	err := retry.Do(ctx, c.retry, c.isTransient, op)
	if err != nil {
		if c.isTransient(err) {
			c.breaker.RecordFailure()
			c.log.Warn("graph.connector.failure", "error", err)
			return coreerrors.NewServiceUnavailable("graph backend call failed", err)
		}
		// Non-transient errors (bad query, constraint violation) do not
		// affect circuit health.
		return err
	}

	c.breaker.RecordSuccess()
	return nil
}

func (c *Connector) Ping(ctx context.Context) error {
	return c.guard(ctx, func() error { return c.inner.Ping(ctx) })
}

func (c *Connector) EnsureConstraint(ctx context.Context, label, property string, unique bool) error {
	return c.guard(ctx, func() error { return c.inner.EnsureConstraint(ctx, label, property, unique) })
}

func (c *Connector) EnsureIndex(ctx context.Context, label string, properties []string) error {
	return c.guard(ctx, func() error { return c.inner.EnsureIndex(ctx, label, properties) })
}

func (c *Connector) MergeNode(ctx context.Context, label string, match Key, setProps map[string]any) (*Node, error) {
	var n *Node
	err := c.guard(ctx, func() error {
		var innerErr error
		n, innerErr = c.inner.MergeNode(ctx, label, match, setProps)
		return innerErr
	})
	return n, err
}

func (c *Connector) GetNode(ctx context.Context, label string, match Key) (*Node, error) {
	var n *Node
	err := c.guard(ctx, func() error {
		var innerErr error
		n, innerErr = c.inner.GetNode(ctx, label, match)
		return innerErr
	})
	return n, err
}

func (c *Connector) UpdateNode(ctx context.Context, label string, match Key, setProps map[string]any) error {
	return c.guard(ctx, func() error { return c.inner.UpdateNode(ctx, label, match, setProps) })
}

func (c *Connector) DeleteNode(ctx context.Context, label string, match Key) error {
	return c.guard(ctx, func() error { return c.inner.DeleteNode(ctx, label, match) })
}

func (c *Connector) CreateEdge(ctx context.Context, edgeType string, fromLabel string, from Key, toLabel string, to Key, props map[string]any) error {
	return c.guard(ctx, func() error {
		return c.inner.CreateEdge(ctx, edgeType, fromLabel, from, toLabel, to, props)
	})
}

func (c *Connector) DeleteEdge(ctx context.Context, edgeType string, fromLabel string, from Key, toLabel string, to Key) error {
	return c.guard(ctx, func() error {
		return c.inner.DeleteEdge(ctx, edgeType, fromLabel, from, toLabel, to)
	})
}

func (c *Connector) ListNodes(ctx context.Context, label string, match Key, limit int) ([]*Node, error) {
	var nodes []*Node
	err := c.guard(ctx, func() error {
		var innerErr error
		nodes, innerErr = c.inner.ListNodes(ctx, label, match, limit)
		return innerErr
	})
	return nodes, err
}

func (c *Connector) Neighbors(ctx context.Context, edgeType string, fromLabel string, from Key, toLabel string, direction string) ([]*Node, error) {
	var nodes []*Node
	err := c.guard(ctx, func() error {
		var innerErr error
		nodes, innerErr = c.inner.Neighbors(ctx, edgeType, fromLabel, from, toLabel, direction)
		return innerErr
	})
	return nodes, err
}

func (c *Connector) Edges(ctx context.Context, edgeType string, label string, match Key, direction string) ([]*Edge, error) {
	var edges []*Edge
	err := c.guard(ctx, func() error {
		var innerErr error
		edges, innerErr = c.inner.Edges(ctx, edgeType, label, match, direction)
		return innerErr
	})
	return edges, err
}

func (c *Connector) Query(ctx context.Context, cypher string, params map[string]any) (*RowSet, error) {
	var rs *RowSet
	err := c.guard(ctx, func() error {
		var innerErr error
		rs, innerErr = c.inner.Query(ctx, cypher, params)
		return innerErr
	})
	return rs, err
}

func (c *Connector) Execute(ctx context.Context, cypher string, params map[string]any) error {
	return c.guard(ctx, func() error { return c.inner.Execute(ctx, cypher, params) })
}

func (c *Connector) Close() error {
	return c.inner.Close()
}

var _ Store = (*Connector)(nil)
