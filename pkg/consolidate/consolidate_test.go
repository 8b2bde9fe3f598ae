// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package consolidate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/graph/embeddedgraph"
	"github.com/kraklabs/agentmem/pkg/model"
	"github.com/kraklabs/agentmem/pkg/schema"
)

func newTestEngine(t *testing.T) (*Engine, graph.Store) {
	t.Helper()
	g, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	require.NoError(t, schema.NewManager(g, nil).InitializeSchema(context.Background()))
	return New(g, nil), g
}

func seedMemory(t *testing.T, g graph.Store, id, projectID string, props map[string]any) {
	t.Helper()
	merged := map[string]any{"id": id, "project_id": projectID, "memory_type": string(model.MemoryDeclarative)}
	for k, v := range props {
		merged[k] = v
	}
	_, err := g.MergeNode(context.Background(), "Memory", graph.Key{"id": id}, merged)
	require.NoError(t, err)
}

func roundTo3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

func TestQualityScoreFormula(t *testing.T) {
	got := QualityScore(10, 10, 8, 12, 20)
	want := 0.3*0.1 + 0.3*0.8 + 0.2*1.0 + 0.2*1.0
	require.Equal(t, roundTo3(want), got)
}

func TestUpdateQualityScoresWritesToGraph(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	now := model.NowMillis()

	seedMemory(t, g, "m1", "p1", map[string]any{
		"created_at": now - 5*24*3600*1000,
		"importance": 8,
		"tags":       []string{"a", "b"},
	})

	count, err := e.UpdateQualityScores(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	node, err := g.GetNode(ctx, "Memory", graph.Key{"id": "m1"})
	require.NoError(t, err)
	require.Contains(t, node.Properties, "quality_score")
	require.Contains(t, node.Properties, "last_quality_update")
}

func TestPromoteLinksHighQualityMemoriesToGlobal(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()

	seedMemory(t, g, "m1", "p1", map[string]any{"quality_score": 0.9})
	seedMemory(t, g, "m2", "p1", map[string]any{"quality_score": 0.3})

	promoted, err := e.Promote(ctx, "p1", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, promoted)

	node, err := g.GetNode(ctx, "Memory", graph.Key{"id": "m1"})
	require.NoError(t, err)
	require.Equal(t, "p1", node.Properties["promoted_from"])

	globals, err := g.Neighbors(ctx, "SCOPED_TO", "Memory", graph.Key{"id": "m1"}, "Project", "out")
	require.NoError(t, err)
	require.Len(t, globals, 1)
	require.Equal(t, model.GlobalProjectID, globals[0].Properties["id"])
}

func TestPromoteIsIdempotent(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	seedMemory(t, g, "m1", "p1", map[string]any{"quality_score": 0.9})

	_, err := e.Promote(ctx, "p1", 0)
	require.NoError(t, err)
	promoted, err := e.Promote(ctx, "p1", 0)
	require.NoError(t, err)
	require.Empty(t, promoted)
}

func TestDecayArchivesStaleLowQualityMemories(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	now := model.NowMillis()

	seedMemory(t, g, "stale", "p1", map[string]any{
		"created_at":    now - 100*24*3600*1000,
		"access_count":  1,
		"quality_score": 0.2,
		"importance":    5,
	})
	seedMemory(t, g, "fresh", "p1", map[string]any{
		"created_at":    now,
		"access_count":  1,
		"quality_score": 0.2,
		"importance":    5,
	})

	candidates, err := e.Decay(ctx, 0, false)
	require.NoError(t, err)
	require.Equal(t, []string{"stale"}, candidates)

	node, err := g.GetNode(ctx, "Memory", graph.Key{"id": "stale"})
	require.NoError(t, err)
	require.EqualValues(t, 4, node.Properties["importance"])
	require.Equal(t, true, node.Properties["archived"])
}

func TestDecayDryRunDoesNotMutate(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	now := model.NowMillis()

	seedMemory(t, g, "stale", "p1", map[string]any{
		"created_at":    now - 100*24*3600*1000,
		"access_count":  1,
		"quality_score": 0.2,
		"importance":    5,
	})

	candidates, err := e.Decay(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	node, err := g.GetNode(ctx, "Memory", graph.Key{"id": "stale"})
	require.NoError(t, err)
	require.NotEqual(t, true, node.Properties["archived"])
}

func TestMergeFoldsTagsMetadataAndNeighborsIntoSurvivor(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()

	keepMeta, err := model.EncodeMetadata(map[string]any{"source": "keep"})
	require.NoError(t, err)
	mergeMeta, err := model.EncodeMetadata(map[string]any{"source": "merge", "extra": "yes"})
	require.NoError(t, err)

	seedMemory(t, g, "keep", "p1", map[string]any{
		"tags":     []string{"go", "arenas"},
		"metadata": string(keepMeta),
	})
	seedMemory(t, g, "merge", "p1", map[string]any{
		"tags":     []string{"arenas", "memory"},
		"metadata": string(mergeMeta),
	})
	seedMemory(t, g, "other", "p1", map[string]any{"tags": []string{}})

	require.NoError(t, g.CreateEdge(ctx, "RELATED_TO", "Memory", graph.Key{"id": "merge"}, "Memory", graph.Key{"id": "other"}, nil))

	require.NoError(t, e.Merge(ctx, "keep", "merge"))

	keep, err := g.GetNode(ctx, "Memory", graph.Key{"id": "keep"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"go", "arenas", "memory"}, asStringSlice(keep.Properties["tags"]))

	decoded, err := model.RawMetadata(asString(keep.Properties["metadata"])).Decode()
	require.NoError(t, err)
	require.Equal(t, "keep", decoded["source"])
	require.Equal(t, "yes", decoded["extra"])

	merged, err := g.GetNode(ctx, "Memory", graph.Key{"id": "merge"})
	require.NoError(t, err)
	require.Equal(t, "keep", merged.Properties["merged_into"])
	require.Equal(t, true, merged.Properties["archived"])

	neighbors, err := g.Neighbors(ctx, "RELATED_TO", "Memory", graph.Key{"id": "keep"}, "Memory", "out")
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	require.Equal(t, "other", neighbors[0].Properties["id"])
}

func TestDetectDuplicatesFindsSimilarPairOrderedByID(t *testing.T) {
	e, g := newTestEngine(t)
	ctx := context.Background()
	now := model.NowMillis()

	seedMemory(t, g, "b", "p1", map[string]any{
		"created_at": now,
		"tags":       []string{"go", "arenas", "memory"},
	})
	seedMemory(t, g, "a", "p1", map[string]any{
		"created_at": now + 100,
		"tags":       []string{"go", "arenas", "memory"},
	})
	seedMemory(t, g, "c", "p1", map[string]any{
		"created_at": now + 2*3600*1000,
		"tags":       []string{"go", "arenas", "memory"},
	})

	pairs, err := e.DetectDuplicates(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.Equal(t, "a", pairs[0].ID1)
	require.Equal(t, "b", pairs[0].ID2)
}
