// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package docgraph

import (
	"context"
	"testing"

	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/graph/embeddedgraph"
)

const sample = `# Arenas

Use **arenas** for allocation. See ` + "`arenas.go`" + ` for details, or
` + "`arenas.go:42`" + ` for the exact line, or @arenas.go directly.

## Usage

` + "```go\nfunc Helper() {}\n```" + `
`

func TestParseExtractsHeadingsConceptsAndReferences(t *testing.T) {
	doc := Parse("docs/arenas.md", sample)

	if doc.Title != "Arenas" {
		t.Fatalf("expected title Arenas, got %q", doc.Title)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(doc.Sections), doc.Sections)
	}
	if doc.Sections[0].Title != "Arenas" || doc.Sections[0].Level != 1 {
		t.Fatalf("unexpected first section: %+v", doc.Sections[0])
	}
	if doc.Sections[1].Title != "Usage" || doc.Sections[1].ParentID != doc.Sections[0].ID {
		t.Fatalf("expected Usage to nest under Arenas, got %+v", doc.Sections[1])
	}
	if doc.Sections[0].ID != "docs/arenas.md#section-0" {
		t.Fatalf("expected deterministic section id, got %q", doc.Sections[0].ID)
	}

	wantConcepts := map[string]string{
		"heading:arenas":  "heading",
		"heading:usage":   "heading",
		"emphasis:arenas": "emphasis",
		"language:go":     "language",
	}
	got := map[string]string{}
	for _, c := range doc.Concepts {
		got[c.ID] = c.Category
	}
	for id, category := range wantConcepts {
		if got[id] != category {
			t.Fatalf("expected concept %s (%s), got concepts %+v", id, category, doc.Concepts)
		}
	}

	haveLine := false
	for _, r := range doc.References {
		if r.File == "arenas.go" && r.Line == 42 {
			haveLine = true
		}
	}
	if !haveLine {
		t.Fatalf("expected a line-numbered reference to arenas.go:42, got %+v", doc.References)
	}
}

func TestIngestLinksConceptAndReference(t *testing.T) {
	g, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	ctx := context.Background()

	if _, err := g.MergeNode(ctx, "CodeFile", graph.Key{"path": "internal/arenas.go"}, map[string]any{"language": "go"}); err != nil {
		t.Fatalf("seed code file: %v", err)
	}
	if _, err := g.MergeNode(ctx, "Function", graph.Key{"id": "func:Usage"}, map[string]any{"name": "Usage"}); err != nil {
		t.Fatalf("seed function: %v", err)
	}

	doc := Parse("docs/arenas.md", sample)
	if err := New(g, nil).Ingest(ctx, "proj-1", doc); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	docFile, err := g.GetNode(ctx, "DocFile", graph.Key{"path": "docs/arenas.md"})
	if err != nil || docFile == nil {
		t.Fatalf("expected DocFile node, got %v %v", docFile, err)
	}

	refs, err := g.Neighbors(ctx, "REFERENCES", "DocFile", graph.Key{"path": "docs/arenas.md"}, "CodeFile", "out")
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(refs) != 1 || refs[0].Properties["path"] != "internal/arenas.go" {
		t.Fatalf("expected DocFile to reference internal/arenas.go by path containment, got %v", refs)
	}

	concepts, err := g.Neighbors(ctx, "IMPLEMENTED_IN", "Concept", graph.Key{"id": "heading:usage"}, "Function", "out")
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(concepts) != 1 || concepts[0].Properties["name"] != "Usage" {
		t.Fatalf("expected heading:usage concept to link to the Usage function, got %v", concepts)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	g, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	ctx := context.Background()
	doc := Parse("docs/arenas.md", sample)
	m := New(g, nil)

	if err := m.Ingest(ctx, "proj-1", doc); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if err := m.Ingest(ctx, "proj-1", doc); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	sections, err := g.ListNodes(ctx, "Section", nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected re-ingestion to not duplicate sections, got %d", len(sections))
	}
}

func TestParseExtractsYAMLFrontMatter(t *testing.T) {
	text := "---\ntitle: Front Matter Doc\ntags:\n  - a\n  - b\n---\n# Body\n\ntext\n"
	doc := Parse("docs/fm.md", text)

	if doc.Metadata["title"] != "Front Matter Doc" {
		t.Fatalf("expected front matter title, got %+v", doc.Metadata)
	}
	if len(doc.Sections) != 1 || doc.Sections[0].Title != "Body" {
		t.Fatalf("expected front matter to be stripped from body, got %+v", doc.Sections)
	}
}
