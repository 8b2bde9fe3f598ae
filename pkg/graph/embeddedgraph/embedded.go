// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package embeddedgraph is the single-process graph.Store implementation:
// an in-memory node/edge index snapshotted to a bbolt file on every
// mutation, so a standalone agent can use the full memory core without a
// Neo4j deployment.
package embeddedgraph

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/kraklabs/agentmem/pkg/graph"
)

var snapshotBucket = []byte("snapshot")
var snapshotKey = []byte("state")

func init() {
	// Node/Edge Properties are map[string]any; gob must know the
	// concrete types that cross the interface{} boundary.
	gob.Register("")
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(bool(false))
	gob.Register([]string{})
	gob.Register([]any{})
}

type constraintSpec struct {
	Label    string
	Property string
	Unique   bool
}

type indexSpec struct {
	Label      string
	Properties []string
}

// snapshot is the gob-serializable state persisted to bbolt.
type snapshot struct {
	Nodes       map[string]*graph.Node
	Edges       []*graph.Edge
	Constraints []constraintSpec
	Indexes     []indexSpec
}

// Store is an in-memory graph.Store backed by a bbolt file for durability
// across process restarts. All operations hold mu for the duration of the
// in-memory mutation; the bbolt write happens while still holding the
// lock, which is acceptable at the embedded backend's expected scale
// (single agent, single project).
type Store struct {
	mu   sync.RWMutex
	db   *bolt.DB
	path string

	nodes       map[string]*graph.Node
	edges       []*graph.Edge
	constraints []constraintSpec
	indexes     []indexSpec

	closed bool
}

// Config configures the embedded store.
type Config struct {
	// DataDir is the directory holding the snapshot file. It is created
	// if absent.
	DataDir string
}

// Open creates or loads the embedded store at cfg.DataDir/graph.db.
func Open(cfg Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("embeddedgraph: DataDir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("embeddedgraph: create data dir: %w", err)
	}

	path := filepath.Join(cfg.DataDir, "graph.db")
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("embeddedgraph: open %s: %w", path, err)
	}

	s := &Store{
		db:    db,
		path:  path,
		nodes: make(map[string]*graph.Node),
	}

	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotBucket)
		if b == nil {
			return nil
		}
		data := b.Get(snapshotKey)
		if data == nil {
			return nil
		}
		var snap snapshot
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
			return fmt.Errorf("embeddedgraph: decode snapshot: %w", err)
		}
		if snap.Nodes != nil {
			s.nodes = snap.Nodes
		}
		s.edges = snap.Edges
		s.constraints = snap.Constraints
		s.indexes = snap.Indexes
		return nil
	})
}

// persist must be called with mu held.
func (s *Store) persist() error {
	var buf bytes.Buffer
	snap := snapshot{Nodes: s.nodes, Edges: s.edges, Constraints: s.constraints, Indexes: s.indexes}
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("embeddedgraph: encode snapshot: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(snapshotBucket)
		if err != nil {
			return err
		}
		return b.Put(snapshotKey, buf.Bytes())
	})
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("embeddedgraph: store is closed")
	}
	return nil
}

func hasLabel(n *graph.Node, label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func matches(n *graph.Node, label string, match graph.Key) bool {
	if !hasLabel(n, label) {
		return false
	}
	for k, v := range match {
		if n.Properties[k] != v {
			return false
		}
	}
	return true
}

// findLocked returns the first node matching (label, match). Caller must
// hold mu (read or write).
func (s *Store) findLocked(label string, match graph.Key) *graph.Node {
	for _, n := range s.nodes {
		if matches(n, label, match) {
			return n
		}
	}
	return nil
}

func cloneProps(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) EnsureConstraint(ctx context.Context, label, property string, unique bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.constraints {
		if c.Label == label && c.Property == property {
			return nil
		}
	}
	s.constraints = append(s.constraints, constraintSpec{Label: label, Property: property, Unique: unique})
	return s.persist()
}

func (s *Store) EnsureIndex(ctx context.Context, label string, properties []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes = append(s.indexes, indexSpec{Label: label, Properties: properties})
	return s.persist()
}

// checkUnique returns an error if creating a brand new node with props
// would violate a unique constraint already satisfied by a different
// node. Caller holds mu.
func (s *Store) checkUnique(label string, props map[string]any, excludeID string) error {
	for _, c := range s.constraints {
		if c.Label != label || !c.Unique {
			continue
		}
		val, ok := props[c.Property]
		if !ok {
			continue
		}
		for _, n := range s.nodes {
			if n.ID == excludeID || !hasLabel(n, label) {
				continue
			}
			if n.Properties[c.Property] == val {
				return fmt.Errorf("embeddedgraph: unique constraint violated on %s.%s=%v", label, c.Property, val)
			}
		}
	}
	return nil
}

func (s *Store) MergeNode(ctx context.Context, label string, match graph.Key, setProps map[string]any) (*graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findLocked(label, match); existing != nil {
		for k, v := range setProps {
			existing.Properties[k] = v
		}
		if err := s.persist(); err != nil {
			return nil, err
		}
		out := *existing
		out.Properties = cloneProps(existing.Properties)
		return &out, nil
	}

	props := cloneProps(match)
	for k, v := range setProps {
		props[k] = v
	}
	if err := s.checkUnique(label, props, ""); err != nil {
		return nil, err
	}

	n := &graph.Node{ID: uuid.NewString(), Labels: []string{label}, Properties: props}
	s.nodes[n.ID] = n
	if err := s.persist(); err != nil {
		return nil, err
	}
	out := *n
	out.Properties = cloneProps(n.Properties)
	return &out, nil
}

func (s *Store) GetNode(ctx context.Context, label string, match graph.Key) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.findLocked(label, match)
	if n == nil {
		return nil, nil
	}
	out := *n
	out.Properties = cloneProps(n.Properties)
	return &out, nil
}

func (s *Store) UpdateNode(ctx context.Context, label string, match graph.Key, setProps map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.findLocked(label, match)
	if n == nil {
		return fmt.Errorf("embeddedgraph: no %s node matching %v", label, match)
	}
	for k, v := range setProps {
		n.Properties[k] = v
	}
	return s.persist()
}

func (s *Store) DeleteNode(ctx context.Context, label string, match graph.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.findLocked(label, match)
	if n == nil {
		return nil
	}
	delete(s.nodes, n.ID)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.FromID != n.ID && e.ToID != n.ID {
			kept = append(kept, e)
		}
	}
	s.edges = kept
	return s.persist()
}

func (s *Store) CreateEdge(ctx context.Context, edgeType string, fromLabel string, from graph.Key, toLabel string, to graph.Key, props map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromNode := s.findLocked(fromLabel, from)
	if fromNode == nil {
		return fmt.Errorf("embeddedgraph: no %s node matching %v", fromLabel, from)
	}
	toNode := s.findLocked(toLabel, to)
	if toNode == nil {
		return fmt.Errorf("embeddedgraph: no %s node matching %v", toLabel, to)
	}

	for _, e := range s.edges {
		if e.Type == edgeType && e.FromID == fromNode.ID && e.ToID == toNode.ID {
			for k, v := range props {
				e.Properties[k] = v
			}
			return s.persist()
		}
	}

	s.edges = append(s.edges, &graph.Edge{
		Type:       edgeType,
		FromID:     fromNode.ID,
		ToID:       toNode.ID,
		Properties: cloneProps(props),
	})
	return s.persist()
}

func (s *Store) DeleteEdge(ctx context.Context, edgeType string, fromLabel string, from graph.Key, toLabel string, to graph.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromNode := s.findLocked(fromLabel, from)
	toNode := s.findLocked(toLabel, to)
	if fromNode == nil || toNode == nil {
		return nil
	}

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Type == edgeType && e.FromID == fromNode.ID && e.ToID == toNode.ID {
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	return s.persist()
}

func (s *Store) ListNodes(ctx context.Context, label string, match graph.Key, limit int) ([]*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*graph.Node
	for _, n := range s.nodes {
		if !matches(n, label, match) {
			continue
		}
		cp := *n
		cp.Properties = cloneProps(n.Properties)
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Neighbors(ctx context.Context, edgeType string, fromLabel string, from graph.Key, toLabel string, direction string) ([]*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromNode := s.findLocked(fromLabel, from)
	if fromNode == nil {
		return nil, nil
	}

	var out []*graph.Node
	for _, e := range s.edges {
		if e.Type != edgeType {
			continue
		}
		var otherID string
		switch direction {
		case "in":
			if e.ToID != fromNode.ID {
				continue
			}
			otherID = e.FromID
		default:
			if e.FromID != fromNode.ID {
				continue
			}
			otherID = e.ToID
		}
		if n, ok := s.nodes[otherID]; ok && hasLabel(n, toLabel) {
			cp := *n
			cp.Properties = cloneProps(n.Properties)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) Edges(ctx context.Context, edgeType string, label string, match graph.Key, direction string) ([]*graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.findLocked(label, match)
	if n == nil {
		return nil, nil
	}

	var out []*graph.Edge
	for _, e := range s.edges {
		if e.Type != edgeType {
			continue
		}
		var hit bool
		switch direction {
		case "in":
			hit = e.ToID == n.ID
		default:
			hit = e.FromID == n.ID
		}
		if !hit {
			continue
		}
		cp := *e
		cp.Properties = cloneProps(e.Properties)
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) Query(ctx context.Context, cypher string, params map[string]any) (*graph.RowSet, error) {
	return nil, graph.ErrUnsupportedQuery
}

func (s *Store) Execute(ctx context.Context, cypher string, params map[string]any) error {
	return graph.ErrUnsupportedQuery
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ graph.Store = (*Store)(nil)
