// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"context"
	"testing"
)

func TestSetupTestGraphSeedsAgentTypes(t *testing.T) {
	g := SetupTestGraph(t)
	types, err := g.ListNodes(context.Background(), "AgentType", nil, 0)
	if err != nil {
		t.Fatalf("list agent types: %v", err)
	}
	if len(types) == 0 {
		t.Fatalf("expected schema initialization to seed agent types")
	}
}

func TestInsertAndQueryTestMemory(t *testing.T) {
	g := SetupTestGraph(t)
	InsertTestProject(t, g, "proj-1")
	InsertTestMemory(t, g, "mem-1", "builder", "proj-1", "learned something", 0.8)
	InsertTestMemory(t, g, "mem-2", "builder", "proj-1", "learned something else", 0.9)
	LinkTestMemories(t, g, "mem-1", "mem-2")

	memories := QueryMemories(t, g)
	if len(memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(memories))
	}
}
