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
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"context"
	"testing"

	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/graph/embeddedgraph"
	"github.com/kraklabs/agentmem/pkg/model"
	"github.com/kraklabs/agentmem/pkg/schema"
)

// SetupTestGraph creates an in-memory embedded graph.Store for testing,
// with the schema already initialized (constraints, indexes, and seeded
// agent types). The store is closed automatically when the test finishes.
func SetupTestGraph(t *testing.T) graph.Store {
	t.Helper()

	store, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test graph store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := schema.NewManager(store, nil).InitializeSchema(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return store
}

// InsertTestMemory seeds a Memory node directly (bypassing memstore's
// derived fields), for tests that only need a node to exist in the graph
// rather than the full creation pipeline.
func InsertTestMemory(t *testing.T, g graph.Store, id, agentType, projectID, content string, qualityScore float64) {
	t.Helper()
	_, err := g.MergeNode(context.Background(), "Memory", graph.Key{"id": id}, map[string]any{
		"content":       content,
		"agent_type":    agentType,
		"project_id":    projectID,
		"quality_score": qualityScore,
		"created_at":    model.NowMillis(),
		"access_count":  0,
		"archived":      false,
	})
	if err != nil {
		t.Fatalf("insert test memory %s: %v", id, err)
	}
}

// InsertTestProject seeds a Project node.
func InsertTestProject(t *testing.T, g graph.Store, id string) {
	t.Helper()
	_, err := g.MergeNode(context.Background(), "Project", graph.Key{"id": id}, map[string]any{"id": id})
	if err != nil {
		t.Fatalf("insert test project %s: %v", id, err)
	}
}

// LinkTestMemories creates a RELATED_TO edge between two memories, for
// tests exercising the graph retrieval strategy or consolidation merges.
func LinkTestMemories(t *testing.T, g graph.Store, fromID, toID string) {
	t.Helper()
	if err := g.CreateEdge(context.Background(), "RELATED_TO", "Memory", graph.Key{"id": fromID}, "Memory", graph.Key{"id": toID}, nil); err != nil {
		t.Fatalf("link test memories %s -> %s: %v", fromID, toID, err)
	}
}

// QueryMemories lists every Memory node in the store, for assertions that
// only care about the final node count/shape rather than a specific filter.
func QueryMemories(t *testing.T, g graph.Store) []*graph.Node {
	t.Helper()
	nodes, err := g.ListNodes(context.Background(), "Memory", nil, 0)
	if err != nil {
		t.Fatalf("query memories: %v", err)
	}
	return nodes
}
