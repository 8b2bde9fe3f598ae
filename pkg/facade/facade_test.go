// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package facade

import (
	"context"
	"testing"

	"github.com/kraklabs/agentmem/pkg/consolidate"
	"github.com/kraklabs/agentmem/pkg/graph/embeddedgraph"
	"github.com/kraklabs/agentmem/pkg/memstore"
	"github.com/kraklabs/agentmem/pkg/model"
	"github.com/kraklabs/agentmem/pkg/retrieval"
	"github.com/kraklabs/agentmem/pkg/schema"
)

func newTestFacade(t *testing.T, agentType, projectID string) *Facade {
	t.Helper()
	g, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	if err := schema.NewManager(g, nil).InitializeSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	store := memstore.New(g, nil)
	return New(store, retrieval.New(g, nil), consolidate.New(g, nil), agentType, projectID, nil)
}

func TestNewWarnsButSucceedsOnUnknownAgentType(t *testing.T) {
	f := newTestFacade(t, "not-a-real-type", "proj-1")
	if f.agentInstanceID == "" {
		t.Fatalf("expected agent_instance_id to still be generated")
	}
}

func TestAgentInstanceIDFormat(t *testing.T) {
	f := newTestFacade(t, string(model.AgentBuilder), "proj-1")
	if len(f.AgentInstanceID()) <= len("builder_") {
		t.Fatalf("unexpected agent_instance_id: %s", f.AgentInstanceID())
	}
}

func TestRememberSetsQualityScoreFromConfidence(t *testing.T) {
	f := newTestFacade(t, string(model.AgentBuilder), "proj-1")
	ctx := context.Background()

	id, err := f.Remember(ctx, RememberInput{Content: "x", Confidence: 0.8})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	mems, err := f.Recall(ctx, RecallOptions{MinQuality: 0})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	var found *model.Memory
	for _, m := range mems {
		if m.ID == id {
			found = m
		}
	}
	if found == nil {
		t.Fatalf("expected remembered memory to be recallable")
	}
	want := 0.8 * 0.7
	if diff := found.QualityScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected quality_score %v, got %v", want, found.QualityScore)
	}
}

func TestRecallFiltersByTagIntersection(t *testing.T) {
	f := newTestFacade(t, string(model.AgentBuilder), "proj-1")
	ctx := context.Background()

	f.Remember(ctx, RememberInput{Content: "a", Confidence: 1.0, Tags: []string{"go"}})
	f.Remember(ctx, RememberInput{Content: "b", Confidence: 1.0, Tags: []string{"python"}})

	out, err := f.Recall(ctx, RecallOptions{MinQuality: 0, Tags: []string{"go"}})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(out) != 1 || out[0].Content != "a" {
		t.Fatalf("expected only tag-matching memory, got %+v", out)
	}
}

func TestRecallExcludesGlobalScopeWhenIncludeGlobalIsFalse(t *testing.T) {
	f := newTestFacade(t, string(model.AgentBuilder), "proj-1")
	ctx := context.Background()

	if _, err := f.Remember(ctx, RememberInput{Content: "global fact", Confidence: 1.0, GlobalScope: true}); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if _, err := f.Remember(ctx, RememberInput{Content: "project fact", Confidence: 1.0}); err != nil {
		t.Fatalf("remember: %v", err)
	}

	out, err := f.Recall(ctx, RecallOptions{MinQuality: 0, IncludeGlobal: false})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	for _, m := range out {
		if m.ProjectID == "" {
			t.Fatalf("expected no universal-scope memory with include_global=false, got %+v", m)
		}
	}
	if len(out) != 1 || out[0].Content != "project fact" {
		t.Fatalf("expected only the project-scoped memory, got %+v", out)
	}

	withGlobal, err := f.Recall(ctx, RecallOptions{MinQuality: 0, IncludeGlobal: true})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(withGlobal) != 2 {
		t.Fatalf("expected both memories with include_global=true, got %+v", withGlobal)
	}
}

func TestLearnFromOthersFiltersByQualityAndValidations(t *testing.T) {
	f := newTestFacade(t, string(model.AgentBuilder), "proj-1")
	ctx := context.Background()

	id, err := f.Remember(ctx, RememberInput{Content: "validated practice", Confidence: 1.0})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := f.ValidateMemory(ctx, id, 1.0, model.OutcomeSuccessful, ""); err != nil {
			t.Fatalf("validate %d: %v", i, err)
		}
	}

	_, err = f.Remember(ctx, RememberInput{Content: "unvalidated", Confidence: 1.0})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	out, err := f.LearnFromOthers(ctx, LearnFromOthersOptions{})
	if err != nil {
		t.Fatalf("learn_from_others: %v", err)
	}
	if len(out) != 1 || out[0].ID != id {
		t.Fatalf("expected only the validated memory, got %+v", out)
	}
}

func TestApplyMemoryAndGetStats(t *testing.T) {
	f := newTestFacade(t, string(model.AgentBuilder), "proj-1")
	ctx := context.Background()

	id, _ := f.Remember(ctx, RememberInput{Content: "x", Confidence: 0.9})
	ok, err := f.ApplyMemory(ctx, id, model.OutcomeSuccessful, nil)
	if err != nil || !ok {
		t.Fatalf("apply_memory: ok=%v err=%v", ok, err)
	}

	stats, err := f.GetStats(ctx)
	if err != nil {
		t.Fatalf("get_stats: %v", err)
	}
	if stats.TotalMemories != 1 {
		t.Fatalf("expected 1 memory in stats, got %d", stats.TotalMemories)
	}
}

func TestRunMaintenanceSucceedsAfterUsage(t *testing.T) {
	f := newTestFacade(t, string(model.AgentBuilder), "proj-1")
	ctx := context.Background()

	id, err := f.Remember(ctx, RememberInput{Content: "x", Confidence: 1.0, Tags: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	for i := 0; i < 12; i++ {
		if _, err := f.ApplyMemory(ctx, id, model.OutcomeSuccessful, nil); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	if err := f.RunMaintenance(ctx); err != nil {
		t.Fatalf("run_maintenance: %v", err)
	}
}
