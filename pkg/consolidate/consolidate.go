// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package consolidate implements the quality/lifecycle engine (spec §4.7):
// recomputing quality scores, promoting high-quality project memories to
// global scope, decaying stale ones, and flagging near-duplicate pairs.
package consolidate

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

const (
	defaultPromotionThreshold = 0.8
	defaultDecayThresholdDays = 90
	defaultDuplicateThreshold = 0.9
)

// Engine owns the consolidator's graph-wide sweeps.
type Engine struct {
	graph graph.Store
	log   *slog.Logger
}

func New(g graph.Store, logger *slog.Logger) *Engine {
	return &Engine{graph: g, log: logging.OrDefault(logger)}
}

// QualityScore computes the consolidator's blended quality metric (spec
// §4.7), distinct from memstore's usage/validation formulas: it folds in
// access recency, stated importance, tag richness, and relationship
// count rather than feedback history.
func QualityScore(accessCount int, ageDays float64, importance, tagCount, relatedCount int) float64 {
	if ageDays < 1 {
		ageDays = 1
	}
	if importance == 0 {
		importance = 5
	}
	access := math.Min(float64(accessCount)/ageDays/10.0, 1.0)
	imp := float64(importance) / 10.0
	tag := math.Min(float64(tagCount)/10.0, 1.0)
	rel := math.Min(float64(relatedCount)/10.0, 1.0)
	q := 0.3*access + 0.3*imp + 0.2*tag + 0.2*rel
	return math.Round(q*1000) / 1000
}

// UpdateQualityScores recomputes and writes quality_score and
// last_quality_update for every Memory node. relatedCounts are fetched
// concurrently per memory via an errgroup, matching the fan-out style of
// the retrieval engine's Hybrid strategy.
func (e *Engine) UpdateQualityScores(ctx context.Context) (int, error) {
	nodes, err := e.graph.ListNodes(ctx, "Memory", nil, 0)
	if err != nil {
		return 0, err
	}
	now := model.NowMillis()

	g, gctx := errgroup.WithContext(ctx)
	updated := make([]int32, len(nodes))
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			id := asString(n.Properties["id"])
			related, err := e.graph.Neighbors(gctx, "RELATED_TO", "Memory", graph.Key{"id": id}, "Memory", "out")
			if err != nil {
				return err
			}
			createdAt := asInt(n.Properties["created_at"])
			ageDays := float64(now-createdAt) / (1000 * 3600 * 24)
			accessCount := int(asInt(n.Properties["access_count"]))
			importance := int(asInt(n.Properties["importance"]))
			tags := asStringSlice(n.Properties["tags"])

			score := QualityScore(accessCount, ageDays, importance, len(tags), len(related))
			if err := e.graph.UpdateNode(gctx, "Memory", graph.Key{"id": id}, map[string]any{
				"quality_score":       score,
				"last_quality_update": now,
			}); err != nil {
				return err
			}
			updated[i] = 1
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for _, v := range updated {
		count += int(v)
	}
	e.log.Info("consolidate.update_quality_scores.done", "count", count)
	return count, nil
}

// Promote links every memory in projectID with quality_score >= threshold
// (default 0.8) that lacks a SCOPED_TO edge to Project{id="global"} to the
// global project, recording promoted_at/promoted_from. Returns the
// promoted memory ids.
func (e *Engine) Promote(ctx context.Context, projectID string, threshold float64) ([]string, error) {
	if threshold == 0 {
		threshold = defaultPromotionThreshold
	}
	if _, err := e.graph.MergeNode(ctx, "Project", graph.Key{"id": model.GlobalProjectID}, map[string]any{"created_at": model.NowMillis()}); err != nil {
		return nil, err
	}

	nodes, err := e.graph.ListNodes(ctx, "Memory", graph.Key{"project_id": projectID}, 0)
	if err != nil {
		return nil, err
	}

	now := model.NowMillis()
	var promoted []string
	for _, n := range nodes {
		score := asFloat(n.Properties["quality_score"])
		if score < threshold {
			continue
		}
		id := asString(n.Properties["id"])

		globalLinks, err := e.graph.Neighbors(ctx, "SCOPED_TO", "Memory", graph.Key{"id": id}, "Project", "out")
		if err != nil {
			return nil, err
		}
		alreadyGlobal := false
		for _, p := range globalLinks {
			if asString(p.Properties["id"]) == model.GlobalProjectID {
				alreadyGlobal = true
				break
			}
		}
		if alreadyGlobal {
			continue
		}

		if err := e.graph.CreateEdge(ctx, "SCOPED_TO", "Memory", graph.Key{"id": id}, "Project", graph.Key{"id": model.GlobalProjectID}, nil); err != nil {
			return nil, err
		}
		if err := e.graph.UpdateNode(ctx, "Memory", graph.Key{"id": id}, map[string]any{
			"promoted_at":   now,
			"promoted_from": projectID,
		}); err != nil {
			return nil, err
		}
		promoted = append(promoted, id)
	}

	e.log.Info("consolidate.promote.done", "project_id", projectID, "count", len(promoted))
	return promoted, nil
}

// Decay archives memories older than decayThresholdDays (default 90) with
// access_count < 5 and quality_score < 0.5 that are not already archived:
// importance is decremented (floor 1), the Archived flag is set, and
// decayed_at is stamped. dryRun returns the candidate ids without
// mutating anything.
func (e *Engine) Decay(ctx context.Context, decayThresholdDays int, dryRun bool) ([]string, error) {
	if decayThresholdDays == 0 {
		decayThresholdDays = defaultDecayThresholdDays
	}
	nodes, err := e.graph.ListNodes(ctx, "Memory", nil, 0)
	if err != nil {
		return nil, err
	}

	now := model.NowMillis()
	thresholdMillis := int64(decayThresholdDays) * 24 * 3600 * 1000
	var candidates []string

	for _, n := range nodes {
		if asBool(n.Properties["archived"]) {
			continue
		}
		createdAt := asInt(n.Properties["created_at"])
		if now-createdAt < thresholdMillis {
			continue
		}
		if int(asInt(n.Properties["access_count"])) >= 5 {
			continue
		}
		if asFloat(n.Properties["quality_score"]) >= 0.5 {
			continue
		}

		id := asString(n.Properties["id"])
		candidates = append(candidates, id)
		if dryRun {
			continue
		}

		importance := int(asInt(n.Properties["importance"]))
		if importance == 0 {
			importance = 5
		}
		if importance > 1 {
			importance--
		}
		if err := e.graph.UpdateNode(ctx, "Memory", graph.Key{"id": id}, map[string]any{
			"importance": importance,
			"archived":   true,
			"decayed_at": now,
		}); err != nil {
			return nil, err
		}
	}

	e.log.Info("consolidate.decay.done", "count", len(candidates), "dry_run", dryRun)
	return candidates, nil
}

// DuplicatePair is an ordered candidate pair (id1 < id2) flagged by
// DetectDuplicates.
type DuplicatePair struct {
	ID1 string
	ID2 string
}

// DetectDuplicates finds, within projectID, pairs of memories sharing
// memory_type, created within 1 hour of each other, with Jaccard tag
// similarity >= threshold (default 0.9). It does not merge anything; that
// is left to a caller-driven decision.
func (e *Engine) DetectDuplicates(ctx context.Context, projectID string, threshold float64) ([]DuplicatePair, error) {
	if threshold == 0 {
		threshold = defaultDuplicateThreshold
	}
	nodes, err := e.graph.ListNodes(ctx, "Memory", graph.Key{"project_id": projectID}, 0)
	if err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool {
		return asString(nodes[i].Properties["id"]) < asString(nodes[j].Properties["id"])
	})

	const oneHourMillis = 3600 * 1000
	var pairs []DuplicatePair
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			if asString(a.Properties["memory_type"]) != asString(b.Properties["memory_type"]) {
				continue
			}
			createdA := asInt(a.Properties["created_at"])
			createdB := asInt(b.Properties["created_at"])
			diff := createdA - createdB
			if diff < 0 {
				diff = -diff
			}
			if diff >= oneHourMillis {
				continue
			}
			if jaccard(asStringSlice(a.Properties["tags"]), asStringSlice(b.Properties["tags"])) < threshold {
				continue
			}
			id1, id2 := asString(a.Properties["id"]), asString(b.Properties["id"])
			if id1 > id2 {
				id1, id2 = id2, id1
			}
			pairs = append(pairs, DuplicatePair{ID1: id1, ID2: id2})
		}
	}

	e.log.Info("consolidate.detect_duplicates.done", "project_id", projectID, "pairs", len(pairs))
	return pairs, nil
}

// MergeDuplicates implements merge_duplicates(a, b, keep_first): when
// keepFirst is true, a survives and b is folded into it; otherwise b
// survives and a is folded into it. Calling it twice on the same pair is a
// no-op the second time, since the folded memory is already archived and
// GetNode still finds it.
func (e *Engine) MergeDuplicates(ctx context.Context, a, b string, keepFirst bool) error {
	if keepFirst {
		return e.Merge(ctx, a, b)
	}
	return e.Merge(ctx, b, a)
}

// Merge folds mergeID into keepID (spec §4.7 merge_duplicates): mergeID's
// tags not already on keepID are appended, mergeID's metadata keys are
// copied onto keepID without overwriting existing keys, every RELATED_TO
// neighbor of mergeID is re-linked to keepID, and mergeID itself is never
// deleted — it is stamped with merged_into/merged_at and archived=true so
// it remains inspectable. An already archived mergeID is left untouched.
func (e *Engine) Merge(ctx context.Context, keepID, mergeID string) error {
	keep, err := e.graph.GetNode(ctx, "Memory", graph.Key{"id": keepID})
	if err != nil {
		return err
	}
	merged, err := e.graph.GetNode(ctx, "Memory", graph.Key{"id": mergeID})
	if err != nil {
		return err
	}
	if asBool(merged.Properties["archived"]) {
		return nil
	}

	keepTags := asStringSlice(keep.Properties["tags"])
	seen := make(map[string]bool, len(keepTags))
	for _, tag := range keepTags {
		seen[tag] = true
	}
	for _, tag := range asStringSlice(merged.Properties["tags"]) {
		if !seen[tag] {
			keepTags = append(keepTags, tag)
			seen[tag] = true
		}
	}

	keepMeta, err := model.RawMetadata(asString(keep.Properties["metadata"])).Decode()
	if err != nil {
		return err
	}
	mergedMeta, err := model.RawMetadata(asString(merged.Properties["metadata"])).Decode()
	if err != nil {
		return err
	}
	for k, v := range mergedMeta {
		if _, exists := keepMeta[k]; !exists {
			keepMeta[k] = v
		}
	}
	encodedMeta, err := model.EncodeMetadata(keepMeta)
	if err != nil {
		return err
	}

	if err := e.graph.UpdateNode(ctx, "Memory", graph.Key{"id": keepID}, map[string]any{
		"tags":     keepTags,
		"metadata": string(encodedMeta),
	}); err != nil {
		return err
	}

	for _, direction := range []string{"out", "in"} {
		neighbors, err := e.graph.Neighbors(ctx, "RELATED_TO", "Memory", graph.Key{"id": mergeID}, "Memory", direction)
		if err != nil {
			return err
		}
		for _, n := range neighbors {
			neighborID := asString(n.Properties["id"])
			if neighborID == "" || neighborID == keepID {
				continue
			}
			var linkErr error
			if direction == "out" {
				linkErr = e.graph.CreateEdge(ctx, "RELATED_TO", "Memory", graph.Key{"id": keepID}, "Memory", graph.Key{"id": neighborID}, nil)
			} else {
				linkErr = e.graph.CreateEdge(ctx, "RELATED_TO", "Memory", graph.Key{"id": neighborID}, "Memory", graph.Key{"id": keepID}, nil)
			}
			if linkErr != nil {
				return linkErr
			}
		}
	}

	now := model.NowMillis()
	if err := e.graph.UpdateNode(ctx, "Memory", graph.Key{"id": mergeID}, map[string]any{
		"merged_into": keepID,
		"merged_at":   now,
		"archived":    true,
	}); err != nil {
		return err
	}

	e.log.Info("consolidate.merge.done", "keep_id", keepID, "merged_id", mergeID)
	return nil
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	inter := 0
	union := make(map[string]bool, len(a)+len(b))
	for _, v := range a {
		union[v] = true
	}
	for _, v := range b {
		union[v] = true
		if set[v] {
			inter++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
