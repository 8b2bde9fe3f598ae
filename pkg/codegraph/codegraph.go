// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codegraph ingests Blarify-shaped code-structure JSON (spec §6)
// into the shared property graph: files, classes, functions, imports, and
// their relationships, MERGEd so re-ingestion is idempotent (spec §8
// Testable Property 6). It never parses source itself — only the
// already-extracted structure.
package codegraph

import (
	"context"
	"log/slog"

	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

// File is one CodeFile entity.
type File struct {
	Path     string
	Hash     string
	Language string
}

// Class is one Class entity, defined in a file.
type Class struct {
	ID   string
	Name string
	File string
}

// Function is one Function entity.
type Function struct {
	ID        string
	Name      string
	Signature string
	File      string
	ClassID   string // empty when not a method
	StartLine int
	EndLine   int
}

// Import is a CodeFile -[:IMPORTS]-> CodeFile edge.
type Import struct {
	FromFile string
	ToFile   string
	Symbol   string
	Alias    string
}

// Relationship is a generic edge among already-declared entities: CALLS
// (function->function) or INHERITS (class->class).
type Relationship struct {
	Type string // "CALLS" or "INHERITS"
	From string // function or class id
	To   string
}

// Ingestion is the top-level Blarify ingestion payload (spec §6); unknown
// keys in the source JSON are ignored by the caller's decoder, not here.
type Ingestion struct {
	Files         []File
	Classes       []Class
	Functions     []Function
	Imports       []Import
	Relationships []Relationship
}

// Manager owns schema setup plus MERGE-based ingestion for the code
// subgraph, the "Code" specialization of the Base Graph Manager spec §4.5
// describes shared across code/doc/external-knowledge.
type Manager struct {
	graph graph.Store
	log   *slog.Logger
}

func New(g graph.Store, logger *slog.Logger) *Manager {
	return &Manager{graph: g, log: logging.OrDefault(logger)}
}

// InitializeSchema ensures the code subgraph's constraints/indexes exist;
// the global unique constraints are owned by pkg/schema, this is limited
// to anything code-specific beyond that (currently none — kept for
// symmetry with Doc/ExternalKnowledge managers and future expansion).
func (m *Manager) InitializeSchema(ctx context.Context) error {
	return nil
}

// Ingest MERGEs every file, class, function, import, and relationship,
// then links each CodeFile to projectID.
func (m *Manager) Ingest(ctx context.Context, projectID string, in Ingestion) error {
	if _, err := m.graph.MergeNode(ctx, "Project", graph.Key{"id": projectID}, map[string]any{"created_at": model.NowMillis()}); err != nil {
		return err
	}

	for _, f := range in.Files {
		if _, err := m.graph.MergeNode(ctx, "CodeFile", graph.Key{"path": f.Path}, map[string]any{
			"hash": f.Hash, "language": f.Language,
		}); err != nil {
			return err
		}
		if err := m.graph.CreateEdge(ctx, "BELONGS_TO_PROJECT", "CodeFile", graph.Key{"path": f.Path}, "Project", graph.Key{"id": projectID}, nil); err != nil {
			return err
		}
	}

	for _, c := range in.Classes {
		if _, err := m.graph.MergeNode(ctx, "Class", graph.Key{"id": c.ID}, map[string]any{"name": c.Name}); err != nil {
			return err
		}
		if c.File != "" {
			if err := m.graph.CreateEdge(ctx, "DEFINED_IN", "Class", graph.Key{"id": c.ID}, "CodeFile", graph.Key{"path": c.File}, nil); err != nil {
				return err
			}
		}
	}

	for _, fn := range in.Functions {
		if _, err := m.graph.MergeNode(ctx, "Function", graph.Key{"id": fn.ID}, map[string]any{
			"name": fn.Name, "signature": fn.Signature, "start_line": fn.StartLine, "end_line": fn.EndLine,
		}); err != nil {
			return err
		}
		if fn.File != "" {
			if err := m.graph.CreateEdge(ctx, "DEFINED_IN", "Function", graph.Key{"id": fn.ID}, "CodeFile", graph.Key{"path": fn.File}, nil); err != nil {
				return err
			}
		}
		if fn.ClassID != "" {
			if err := m.graph.CreateEdge(ctx, "METHOD_OF", "Function", graph.Key{"id": fn.ID}, "Class", graph.Key{"id": fn.ClassID}, nil); err != nil {
				return err
			}
		}
	}

	for _, imp := range in.Imports {
		if err := m.graph.CreateEdge(ctx, "IMPORTS", "CodeFile", graph.Key{"path": imp.FromFile}, "CodeFile", graph.Key{"path": imp.ToFile},
			map[string]any{"symbol": imp.Symbol, "alias": imp.Alias}); err != nil {
			return err
		}
	}

	for _, rel := range in.Relationships {
		switch rel.Type {
		case "CALLS":
			if err := m.graph.CreateEdge(ctx, "CALLS", "Function", graph.Key{"id": rel.From}, "Function", graph.Key{"id": rel.To}, nil); err != nil {
				return err
			}
		case "INHERITS":
			if err := m.graph.CreateEdge(ctx, "INHERITS", "Class", graph.Key{"id": rel.From}, "Class", graph.Key{"id": rel.To}, nil); err != nil {
				return err
			}
		}
	}

	m.log.Info("codegraph.ingest.done", "project_id", projectID, "files", len(in.Files), "classes", len(in.Classes), "functions", len(in.Functions))
	return nil
}
