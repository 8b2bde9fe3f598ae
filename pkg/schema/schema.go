// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schema is the idempotent schema manager (L1): constraints,
// indexes, and seed AgentType nodes, created once and verified on every
// subsequent startup.
package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kraklabs/agentmem/internal/logging"
	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

// uniqueConstraint pairs a label with the property that must be unique,
// per spec §3 Invariant 7.
type uniqueConstraint struct {
	label    string
	property string
}

var uniqueConstraints = []uniqueConstraint{
	{"AgentType", "id"},
	{"Project", "id"},
	{"Memory", "id"},
	{"Codebase", "unique_key"},
	{"Ingestion", "ingestion_id"},
	{"CodeFile", "path"},
	{"Class", "id"},
	{"Function", "id"},
	{"DocFile", "path"},
	{"Section", "id"},
	{"Concept", "id"},
	{"ExternalDoc", "url"},
	{"APIReference", "id"},
	{"CodeIndexMetadata", "project_root"},
}

type indexSpec struct {
	label      string
	properties []string
}

var indexes = []indexSpec{
	{"Memory", []string{"memory_type"}},
	{"Memory", []string{"created_at"}},
	{"AgentType", []string{"name"}},
	{"Project", []string{"path"}},
	{"CodeFile", []string{"language"}},
	{"Function", []string{"name"}},
	{"Class", []string{"name"}},
	{"Concept", []string{"category"}},
	{"DocFile", []string{"title"}},
	{"ExternalDoc", []string{"source"}},
	{"ExternalDoc", []string{"version"}},
	{"ExternalDoc", []string{"trust_score"}},
	{"ExternalDoc", []string{"fetched_at"}},
	{"APIReference", []string{"name"}},
}

// Manager owns schema initialization and verification against a
// graph.Store.
type Manager struct {
	store graph.Store
	log   *slog.Logger
}

func NewManager(store graph.Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, log: logging.OrDefault(logger)}
}

// InitializeSchema creates every constraint, index, and seed AgentType
// node. It is idempotent: re-running produces the same constraint/index
// set and seed count (Testable Property 5).
func (m *Manager) InitializeSchema(ctx context.Context) error {
	for _, c := range uniqueConstraints {
		if err := m.store.EnsureConstraint(ctx, c.label, c.property, true); err != nil {
			m.log.Debug("schema.constraint.duplicate", "label", c.label, "property", c.property, "error", err)
		}
	}
	for _, idx := range indexes {
		if err := m.store.EnsureIndex(ctx, idx.label, idx.properties); err != nil {
			m.log.Debug("schema.index.duplicate", "label", idx.label, "properties", idx.properties, "error", err)
		}
	}
	if err := m.seedAgentTypes(ctx); err != nil {
		return coreerrors.NewSchemaError(fmt.Sprintf("seed agent types: %v", err))
	}
	m.log.Info("schema.initialize.done", "constraints", len(uniqueConstraints), "indexes", len(indexes), "agent_types", len(model.KnownAgentTypes))
	return nil
}

func (m *Manager) seedAgentTypes(ctx context.Context) error {
	for _, at := range model.KnownAgentTypes {
		existing, err := m.store.GetNode(ctx, "AgentType", graph.Key{"id": string(at)})
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := m.store.MergeNode(ctx, "AgentType", graph.Key{"id": string(at)}, map[string]any{
			"name":       string(at),
			"created_at": model.NowMillis(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// Status is the schema_status() result: the entities actually observed.
type Status struct {
	AgentTypeCount int
	ProjectCount   int
	MemoryCount    int
}

// VerifySchema returns true iff every expected AgentType is present; the
// embedded/remote backends do not expose a constraint/index catalog
// through graph.Store, so verification here is the spec's weaker but
// always-available check: AgentType count >= 14 (spec §4.2).
func (m *Manager) VerifySchema(ctx context.Context) (bool, error) {
	nodes, err := m.store.ListNodes(ctx, "AgentType", graph.Key{}, 0)
	if err != nil {
		return false, err
	}
	return len(nodes) >= len(model.KnownAgentTypes), nil
}

// SchemaStatus reports node counts used for the health snapshot.
func (m *Manager) SchemaStatus(ctx context.Context) (Status, error) {
	agentTypes, err := m.store.ListNodes(ctx, "AgentType", graph.Key{}, 0)
	if err != nil {
		return Status{}, err
	}
	projects, err := m.store.ListNodes(ctx, "Project", graph.Key{}, 0)
	if err != nil {
		return Status{}, err
	}
	memories, err := m.store.ListNodes(ctx, "Memory", graph.Key{}, 0)
	if err != nil {
		return Status{}, err
	}
	return Status{
		AgentTypeCount: len(agentTypes),
		ProjectCount:   len(projects),
		MemoryCount:    len(memories),
	}, nil
}
