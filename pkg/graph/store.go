// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package graph defines the property-graph wire protocol (L0 in the
// layering of SPEC_FULL.md): a small set of typed node/edge/query
// operations that both a real Neo4j-backed store and a single-process
// embedded store implement identically, so every layer above — schema,
// memory store, retrieval, consolidation — is backend-agnostic.
package graph

import (
	"context"
	"errors"
)

// ErrUnsupportedQuery is returned by the embedded backend's Query/Execute,
// which have no Cypher planner and only support the typed Store methods.
var ErrUnsupportedQuery = errors.New("graph: raw Cypher queries are not supported by this backend")

// Node is a single labeled, property-bearing vertex.
type Node struct {
	ID         string
	Labels     []string
	Properties map[string]any
}

// Edge is a directed, typed relationship between two nodes, optionally
// carrying its own properties (e.g. USED_BY.relevance_score).
type Edge struct {
	Type       string
	FromID     string
	ToID       string
	Properties map[string]any
}

// RowSet is the uniform tabular result shape returned by Query, mirroring
// a Cypher result set: ordered column names with one slice of values per
// row, column order matching Columns.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// Key is a natural-key predicate used to MATCH or MERGE a node without
// already knowing its generated ID, e.g. {"id": "file-abc123"} or
// {"agent_type": "architect"}.
type Key map[string]any

// Store is the operation surface every graph backend implements: Neo4j
// over Bolt, and the embedded bbolt-backed store. Higher layers depend
// only on this interface, never on a concrete backend.
type Store interface {
	// Ping verifies connectivity/liveness without side effects.
	Ping(ctx context.Context) error

	// EnsureConstraint creates a uniqueness (or existence, if unique is
	// false) constraint on label.property if it does not already exist.
	EnsureConstraint(ctx context.Context, label, property string, unique bool) error

	// EnsureIndex creates an index over label's properties if absent.
	EnsureIndex(ctx context.Context, label string, properties []string) error

	// MergeNode creates-or-updates the node matching (label, match),
	// applying setProps, and returns the resulting node.
	MergeNode(ctx context.Context, label string, match Key, setProps map[string]any) (*Node, error)

	// GetNode returns the node matching (label, match), or nil if none
	// exists (callers distinguish "not found" from error by a nil,nil
	// return).
	GetNode(ctx context.Context, label string, match Key) (*Node, error)

	// UpdateNode merges setProps onto the node matching (label, match).
	// It is an error if no such node exists.
	UpdateNode(ctx context.Context, label string, match Key, setProps map[string]any) error

	// DeleteNode removes the node matching (label, match) and all of its
	// relationships (DETACH DELETE semantics).
	DeleteNode(ctx context.Context, label string, match Key) error

	// CreateEdge MERGEs a typed edge between the two matched nodes,
	// applying props to the edge itself.
	CreateEdge(ctx context.Context, edgeType string, fromLabel string, from Key, toLabel string, to Key, props map[string]any) error

	// DeleteEdge removes a typed edge between the two matched nodes, if
	// present.
	DeleteEdge(ctx context.Context, edgeType string, fromLabel string, from Key, toLabel string, to Key) error

	// ListNodes returns up to limit nodes carrying label whose properties
	// match every entry in match (AND of equalities). limit <= 0 means
	// unbounded. Both backends implement this directly: Neo4j compiles it
	// to a parameterized MATCH/WHERE/LIMIT, the embedded backend scans
	// in-memory. Ordering is backend-defined; callers that need a
	// specific order sort the result themselves.
	ListNodes(ctx context.Context, label string, match Key, limit int) ([]*Node, error)

	// Neighbors returns the nodes reachable from the node matched by
	// (fromLabel, from) via one edge of edgeType, restricted to toLabel.
	// direction is "out" or "in".
	Neighbors(ctx context.Context, edgeType string, fromLabel string, from Key, toLabel string, direction string) ([]*Node, error)

	// Edges returns the edges of edgeType incident on the node matched by
	// (label, match), in direction "out" or "in", with edge properties
	// populated. Used where callers need edge-level data (USED.outcome,
	// VALIDATED.feedback_score) rather than just the neighboring node.
	Edges(ctx context.Context, edgeType string, label string, match Key, direction string) ([]*Edge, error)

	// Query runs an arbitrary parameterized Cypher read query and returns
	// a uniform row set. This is a Neo4j-only escape hatch for graph
	// shapes ListNodes/Neighbors cannot express (e.g. multi-hop
	// similarity/graph retrieval); the embedded backend returns
	// ErrUnsupportedQuery since it has no Cypher planner.
	Query(ctx context.Context, cypher string, params map[string]any) (*RowSet, error)

	// Execute runs an arbitrary parameterized Cypher write statement with
	// no tabular result expected. Same Neo4j-only caveat as Query.
	Execute(ctx context.Context, cypher string, params map[string]any) error

	// Close releases all resources held by the backend.
	Close() error
}
