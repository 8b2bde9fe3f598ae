// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package codegraph

import (
	"context"
	"testing"

	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/graph/embeddedgraph"
)

func newTestManager(t *testing.T) (*Manager, graph.Store) {
	t.Helper()
	g, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return New(g, nil), g
}

func sampleIngestion() Ingestion {
	return Ingestion{
		Files: []File{
			{Path: "pkg/foo/foo.go", Hash: "h1", Language: "go"},
			{Path: "pkg/foo/bar.go", Hash: "h2", Language: "go"},
		},
		Classes: []Class{
			{ID: "class:Foo", Name: "Foo", File: "pkg/foo/foo.go"},
		},
		Functions: []Function{
			{ID: "func:Foo.Do", Name: "Do", Signature: "func (f *Foo) Do()", File: "pkg/foo/foo.go", ClassID: "class:Foo", StartLine: 10, EndLine: 20},
			{ID: "func:Helper", Name: "Helper", Signature: "func Helper()", File: "pkg/foo/bar.go", StartLine: 1, EndLine: 5},
		},
		Imports: []Import{
			{FromFile: "pkg/foo/foo.go", ToFile: "pkg/foo/bar.go", Symbol: "Helper"},
		},
		Relationships: []Relationship{
			{Type: "CALLS", From: "func:Foo.Do", To: "func:Helper"},
		},
	}
}

func TestIngestCreatesEntitiesAndEdges(t *testing.T) {
	m, g := newTestManager(t)
	ctx := context.Background()

	if err := m.Ingest(ctx, "proj-1", sampleIngestion()); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	fileNode, err := g.GetNode(ctx, "CodeFile", graph.Key{"path": "pkg/foo/foo.go"})
	if err != nil || fileNode == nil {
		t.Fatalf("expected file node, err=%v node=%v", err, fileNode)
	}

	fnNode, err := g.GetNode(ctx, "Function", graph.Key{"id": "func:Foo.Do"})
	if err != nil || fnNode == nil {
		t.Fatalf("expected function node, err=%v node=%v", err, fnNode)
	}

	classes, err := g.Neighbors(ctx, "METHOD_OF", "Function", graph.Key{"id": "func:Foo.Do"}, "Class", "out")
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(classes) != 1 || classes[0].Properties["name"] != "Foo" {
		t.Fatalf("expected Foo class as method owner, got %v", classes)
	}

	callees, err := g.Neighbors(ctx, "CALLS", "Function", graph.Key{"id": "func:Foo.Do"}, "Function", "out")
	if err != nil {
		t.Fatalf("neighbors calls: %v", err)
	}
	if len(callees) != 1 || callees[0].Properties["name"] != "Helper" {
		t.Fatalf("expected Helper as callee, got %v", callees)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	m, g := newTestManager(t)
	ctx := context.Background()
	in := sampleIngestion()

	if err := m.Ingest(ctx, "proj-1", in); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := m.Ingest(ctx, "proj-1", in); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	nodes, err := g.ListNodes(ctx, "Function", nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected re-ingestion to not duplicate functions, got %d", len(nodes))
	}

	callees, err := g.Neighbors(ctx, "CALLS", "Function", graph.Key{"id": "func:Foo.Do"}, "Function", "out")
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(callees) != 1 {
		t.Fatalf("expected re-ingestion to not duplicate CALLS edges, got %d", len(callees))
	}
}
