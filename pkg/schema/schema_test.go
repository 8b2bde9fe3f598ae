// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package schema

import (
	"context"
	"testing"

	"github.com/kraklabs/agentmem/pkg/graph/embeddedgraph"
	"github.com/kraklabs/agentmem/pkg/model"
)

func newTestStore(t *testing.T) *embeddedgraph.Store {
	t.Helper()
	s, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitializeSchemaSeedsAllAgentTypes(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, nil)
	ctx := context.Background()

	if err := mgr.InitializeSchema(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ok, err := mgr.VerifySchema(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected schema to verify after initialize")
	}

	status, err := mgr.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.AgentTypeCount != len(model.KnownAgentTypes) {
		t.Fatalf("expected %d agent types, got %d", len(model.KnownAgentTypes), status.AgentTypeCount)
	}
}

func TestInitializeSchemaIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, nil)
	ctx := context.Background()

	if err := mgr.InitializeSchema(ctx); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if err := mgr.InitializeSchema(ctx); err != nil {
		t.Fatalf("second initialize: %v", err)
	}

	status, err := mgr.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.AgentTypeCount != len(model.KnownAgentTypes) {
		t.Fatalf("re-running initialize must not duplicate seed nodes, got %d agent types", status.AgentTypeCount)
	}
}

func TestVerifySchemaFalseBeforeInitialize(t *testing.T) {
	store := newTestStore(t)
	mgr := NewManager(store, nil)

	ok, err := mgr.VerifySchema(context.Background())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verify to fail before initialize")
	}
}
