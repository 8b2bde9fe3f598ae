// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package neo4jgraph is the remote graph.Store implementation: real
// parameterized Cypher over Bolt via the official Neo4j driver, used when
// GRAPH_BACKEND=remote (or GRAPH_BACKEND unset and a reachable Neo4j
// instance is detected by pkg/backend).
package neo4jgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kraklabs/agentmem/pkg/graph"
)

// Store implements graph.Store against a live Neo4j database.
type Store struct {
	driver neo4j.DriverWithContext
	dbName string
}

// Config names the connection the same way spec.md §6 names the
// GRAPH_URI / GRAPH_USER / GRAPH_PASSWORD environment variables.
type Config struct {
	URI      string
	User     string
	Password string
	// Database selects the Neo4j database name; empty uses the driver
	// default ("neo4j").
	Database string
}

// Open establishes the driver and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4jgraph: create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4jgraph: connect to %s: %w", cfg.URI, err)
	}
	return &Store{driver: driver, dbName: cfg.Database}, nil
}

func (s *Store) sessionConfig() neo4j.SessionConfig {
	cfg := neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite}
	if s.dbName != "" {
		cfg.DatabaseName = s.dbName
	}
	return cfg
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func quoteLabel(label string) string {
	// Labels in this codebase are always Go identifiers we control
	// (Memory, AgentType, CodeFile, ...), never user-supplied text.
	return label
}

func (s *Store) EnsureConstraint(ctx context.Context, label, property string, unique bool) error {
	name := strings.ToLower(fmt.Sprintf("%s_%s_%s", label, property, map[bool]string{true: "unique", false: "exists"}[unique]))
	var clause string
	if unique {
		clause = fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", name, quoteLabel(label), property)
	} else {
		clause = fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS NOT NULL", name, quoteLabel(label), property)
	}
	return s.Execute(ctx, clause, nil)
}

func (s *Store) EnsureIndex(ctx context.Context, label string, properties []string) error {
	name := strings.ToLower(fmt.Sprintf("%s_%s_idx", label, strings.Join(properties, "_")))
	clause := fmt.Sprintf("CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (%s)", name, quoteLabel(label), prefixedProps("n", properties))
	return s.Execute(ctx, clause, nil)
}

func prefixedProps(alias string, props []string) string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = alias + "." + p
	}
	return strings.Join(out, ", ")
}

func matchClause(alias string, match graph.Key) (string, map[string]any) {
	if len(match) == 0 {
		return "", map[string]any{}
	}
	parts := make([]string, 0, len(match))
	params := make(map[string]any, len(match))
	i := 0
	for k, v := range match {
		pk := fmt.Sprintf("m%d", i)
		parts = append(parts, fmt.Sprintf("%s.%s = $%s", alias, k, pk))
		params[pk] = v
		i++
	}
	return " WHERE " + strings.Join(parts, " AND "), params
}

func (s *Store) MergeNode(ctx context.Context, label string, match graph.Key, setProps map[string]any) (*graph.Node, error) {
	matchProps := make([]string, 0, len(match))
	params := map[string]any{}
	i := 0
	for k, v := range match {
		pk := fmt.Sprintf("k%d", i)
		matchProps = append(matchProps, fmt.Sprintf("%s: $%s", k, pk))
		params[pk] = v
		i++
	}
	params["setProps"] = setProps

	cypher := fmt.Sprintf("MERGE (n:%s {%s}) SET n += $setProps RETURN n", quoteLabel(label), strings.Join(matchProps, ", "))
	rs, err := s.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(rs.Rows) == 0 {
		return nil, fmt.Errorf("neo4jgraph: MERGE returned no row")
	}
	return rowToNode(rs.Rows[0][0], label)
}

func (s *Store) GetNode(ctx context.Context, label string, match graph.Key) (*graph.Node, error) {
	where, params := matchClause("n", match)
	cypher := fmt.Sprintf("MATCH (n:%s)%s RETURN n LIMIT 1", quoteLabel(label), where)
	rs, err := s.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(rs.Rows) == 0 {
		return nil, nil
	}
	return rowToNode(rs.Rows[0][0], label)
}

func (s *Store) UpdateNode(ctx context.Context, label string, match graph.Key, setProps map[string]any) error {
	where, params := matchClause("n", match)
	params["setProps"] = setProps
	cypher := fmt.Sprintf("MATCH (n:%s)%s SET n += $setProps", quoteLabel(label), where)
	return s.Execute(ctx, cypher, params)
}

func (s *Store) DeleteNode(ctx context.Context, label string, match graph.Key) error {
	where, params := matchClause("n", match)
	cypher := fmt.Sprintf("MATCH (n:%s)%s DETACH DELETE n", quoteLabel(label), where)
	return s.Execute(ctx, cypher, params)
}

func (s *Store) CreateEdge(ctx context.Context, edgeType string, fromLabel string, from graph.Key, toLabel string, to graph.Key, props map[string]any) error {
	fromWhere, fromParams := matchClause("a", from)
	toWhere, toParams := matchClause("b", to)
	params := map[string]any{"props": props}
	for k, v := range fromParams {
		params["from_"+k] = v
	}
	for k, v := range toParams {
		params["to_"+k] = v
	}
	fromWhere = renamePrefixed(fromWhere, "from_")
	toWhere = renamePrefixed(toWhere, "to_")

	cypher := fmt.Sprintf(
		"MATCH (a:%s)%s MATCH (b:%s)%s MERGE (a)-[r:%s]->(b) SET r += $props",
		quoteLabel(fromLabel), fromWhere, quoteLabel(toLabel), toWhere, edgeType,
	)
	return s.Execute(ctx, cypher, params)
}

// renamePrefixed rewrites a WHERE clause's bound-parameter names ($m0,
// $m1, ...) with a prefix so the from- and to- match clauses of a
// two-pattern query don't collide.
func renamePrefixed(where, prefix string) string {
	if where == "" {
		return where
	}
	return strings.ReplaceAll(where, "$m", "$"+prefix+"m")
}

func (s *Store) DeleteEdge(ctx context.Context, edgeType string, fromLabel string, from graph.Key, toLabel string, to graph.Key) error {
	fromWhere, fromParams := matchClause("a", from)
	toWhere, toParams := matchClause("b", to)
	params := map[string]any{}
	for k, v := range fromParams {
		params["from_"+k] = v
	}
	for k, v := range toParams {
		params["to_"+k] = v
	}
	fromWhere = renamePrefixed(fromWhere, "from_")
	toWhere = renamePrefixed(toWhere, "to_")

	cypher := fmt.Sprintf(
		"MATCH (a:%s)%s MATCH (b:%s)%s MATCH (a)-[r:%s]->(b) DELETE r",
		quoteLabel(fromLabel), fromWhere, quoteLabel(toLabel), toWhere, edgeType,
	)
	return s.Execute(ctx, cypher, params)
}

func (s *Store) ListNodes(ctx context.Context, label string, match graph.Key, limit int) ([]*graph.Node, error) {
	where, params := matchClause("n", match)
	cypher := fmt.Sprintf("MATCH (n:%s)%s RETURN n", quoteLabel(label), where)
	if limit > 0 {
		cypher += fmt.Sprintf(" LIMIT %d", limit)
	}
	rs, err := s.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]*graph.Node, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		n, err := rowToNode(row[0], label)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) Neighbors(ctx context.Context, edgeType string, fromLabel string, from graph.Key, toLabel string, direction string) ([]*graph.Node, error) {
	where, params := matchClause("a", from)
	pattern := "(a)-[:%s]->(b:%s)"
	if direction == "in" {
		pattern = "(a)<-[:%s]-(b:%s)"
	}
	cypher := fmt.Sprintf("MATCH (a:%s)%s MATCH "+pattern+" RETURN b", quoteLabel(fromLabel), where, edgeType, quoteLabel(toLabel))
	rs, err := s.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]*graph.Node, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		n, err := rowToNode(row[0], toLabel)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) Edges(ctx context.Context, edgeType string, label string, match graph.Key, direction string) ([]*graph.Edge, error) {
	where, params := matchClause("n", match)
	pattern := "(n)-[r:%s]->(b)"
	if direction == "in" {
		pattern = "(n)<-[r:%s]-(b)"
	}
	cypher := fmt.Sprintf("MATCH (n:%s)%s MATCH "+pattern+" RETURN r", quoteLabel(label), where, edgeType)
	rs, err := s.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]*graph.Edge, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rel, ok := row[0].(neo4j.Relationship)
		if !ok {
			return nil, fmt.Errorf("neo4jgraph: expected a relationship value, got %T", row[0])
		}
		out = append(out, &graph.Edge{
			Type:       edgeType,
			FromID:     rel.StartElementId,
			ToID:       rel.EndElementId,
			Properties: rel.Props,
		})
	}
	return out, nil
}

func (s *Store) Query(ctx context.Context, cypher string, params map[string]any) (*graph.RowSet, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("neo4jgraph: query failed: %w", err)
	}

	var rs graph.RowSet
	for result.Next(ctx) {
		rec := result.Record()
		if rs.Columns == nil {
			rs.Columns = rec.Keys
		}
		rs.Rows = append(rs.Rows, rec.Values)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("neo4jgraph: query iteration failed: %w", err)
	}
	return &rs, nil
}

func (s *Store) Execute(ctx context.Context, cypher string, params map[string]any) error {
	session := s.driver.NewSession(ctx, s.sessionConfig())
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, cypher, params)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4jgraph: execute failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func rowToNode(v any, fallbackLabel string) (*graph.Node, error) {
	node, ok := v.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("neo4jgraph: expected a node value, got %T", v)
	}
	labels := node.Labels
	if len(labels) == 0 {
		labels = []string{fallbackLabel}
	}
	return &graph.Node{
		ID:         node.ElementId,
		Labels:     labels,
		Properties: node.Props,
	}, nil
}

// IsTransient classifies driver errors that the retry/circuit-breaker
// layer should treat as transient: connectivity loss and service
// unavailability only — anything else (auth, constraint violations,
// malformed Cypher) is not worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var connErr *neo4j.ConnectivityError
	if errors.As(err, &connErr) {
		return true
	}
	return strings.Contains(err.Error(), "ServiceUnavailable") ||
		strings.Contains(err.Error(), "SessionExpired") ||
		strings.Contains(err.Error(), "connection refused")
}

var _ graph.Store = (*Store)(nil)
