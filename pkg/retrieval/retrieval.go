// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retrieval implements the multi-strategy retrieval engine (spec
// §4.6): Temporal, Similarity, and Graph strategies, each isolation-scoped,
// plus a Hybrid strategy that fans the three out concurrently and blends
// their scores by weight.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

// IsolationLevel controls how strictly a retrieval is scoped to the
// requesting agent instance.
type IsolationLevel string

const (
	IsolationProject   IsolationLevel = "PROJECT"
	IsolationAgentType IsolationLevel = "AGENT_TYPE"
	IsolationInstance  IsolationLevel = "INSTANCE"
)

// Context is the retrieval context of spec §4.6.
type Context struct {
	ProjectID        string
	AgentType        model.AgentType
	AgentInstanceID  string
	IsolationLevel   IsolationLevel
	IncludeGlobal    bool
	TimeWindowHours  int
	Since            int64
	MinImportance    int
	MemoryTypes      []model.MemoryType
}

// Validate enforces spec §4.6's context validation rules.
func (c Context) Validate() error {
	if c.ProjectID == "" || c.AgentType == "" {
		return coreerrors.NewInvalidArgument("project_id and agent_type are required")
	}
	if c.IsolationLevel == IsolationInstance && c.AgentInstanceID == "" {
		return coreerrors.NewInvalidArgument("agent_instance_id is required for INSTANCE isolation")
	}
	if c.MinImportance != 0 && (c.MinImportance < 1 || c.MinImportance > 10) {
		return coreerrors.NewInvalidArgument("min_importance must be in [1,10]")
	}
	return nil
}

// Result is the shared result shape of spec §4.6.
type Result struct {
	MemoryID   string
	Content    string
	MemoryType model.MemoryType
	CreatedAt  int64
	Importance int
	Tags       []string
	Metadata   model.RawMetadata
	Score      float64
}

// Engine implements the four retrieval strategies against a graph.Store.
type Engine struct {
	graph graph.Store
	log   *slog.Logger
}

func New(g graph.Store, logger *slog.Logger) *Engine {
	return &Engine{graph: g, log: logging.OrDefault(logger)}
}

// isolationMatch applies the universal isolation predicate of spec §4.6
// to one candidate memory's denormalized scope fields.
func isolationMatch(rc Context, projectID string, scopeType model.ScopeType, agentType model.AgentType, agentInstanceID string) bool {
	projectOK := projectID == rc.ProjectID || (rc.IncludeGlobal && projectID == model.GlobalProjectID)
	if !projectOK {
		return false
	}
	if rc.IsolationLevel == IsolationAgentType || rc.IsolationLevel == IsolationInstance {
		if agentType != rc.AgentType {
			return false
		}
	}
	if rc.IsolationLevel == IsolationInstance {
		if agentInstanceID != rc.AgentInstanceID {
			return false
		}
	}
	return true
}

// candidate is an in-flight memory node plus its decoded filter fields.
type candidate struct {
	node            *graph.Node
	projectID       string
	scopeType       model.ScopeType
	agentType       model.AgentType
	agentInstanceID string
	createdAt       int64
	importance      int
	tags            []string
}

func (e *Engine) scanCandidates(ctx context.Context, rc Context) ([]candidate, error) {
	nodes, err := e.graph.ListNodes(ctx, "Memory", nil, 0)
	if err != nil {
		return nil, err
	}
	now := model.NowMillis()
	var out []candidate
	for _, n := range nodes {
		c := candidate{
			node:            n,
			projectID:       asString(n.Properties["project_id"]),
			scopeType:       model.ScopeType(asString(n.Properties["scope_type"])),
			agentType:       model.AgentType(asString(n.Properties["agent_type"])),
			agentInstanceID: asString(n.Properties["agent_instance_id"]),
			createdAt:       asInt(n.Properties["created_at"]),
			importance:      int(asInt(n.Properties["importance"])),
			tags:            asStringSlice(n.Properties["tags"]),
		}
		if !isolationMatch(rc, c.projectID, c.scopeType, c.agentType, c.agentInstanceID) {
			continue
		}
		if rc.TimeWindowHours > 0 && c.createdAt < now-int64(rc.TimeWindowHours)*3600*1000 {
			continue
		}
		if rc.Since > 0 && c.createdAt < rc.Since {
			continue
		}
		if rc.MinImportance > 0 && c.importance < rc.MinImportance {
			continue
		}
		if len(rc.MemoryTypes) > 0 {
			mt := model.MemoryType(asString(n.Properties["memory_type"]))
			matched := false
			for _, want := range rc.MemoryTypes {
				if mt == want {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func toResult(c candidate, score float64) Result {
	return Result{
		MemoryID:   asString(c.node.Properties["id"]),
		Content:    asString(c.node.Properties["content"]),
		MemoryType: model.MemoryType(asString(c.node.Properties["memory_type"])),
		CreatedAt:  c.createdAt,
		Importance: c.importance,
		Tags:       c.tags,
		Metadata:   model.RawMetadata(asString(c.node.Properties["metadata"])),
		Score:      score,
	}
}

// Temporal sorts isolation-matched candidates by created_at desc and
// scores positionally: 1.0 - i/n.
func (e *Engine) Temporal(ctx context.Context, rc Context, limit int) ([]Result, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	cands, err := e.scanCandidates(ctx, rc)
	if err != nil {
		return nil, err
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].createdAt > cands[j].createdAt })
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	n := len(cands)
	out := make([]Result, 0, n)
	for i, c := range cands {
		score := 1.0
		if n > 0 {
			score = 1.0 - float64(i)/float64(n)
		}
		out = append(out, toResult(c, score))
	}
	return out, nil
}

// Similarity requires queryTags; matches memories whose tag set intersects
// queryTags, scored by |intersection| / max_matches.
func (e *Engine) Similarity(ctx context.Context, rc Context, queryTags []string, limit int) ([]Result, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if len(queryTags) == 0 {
		return nil, coreerrors.NewInvalidArgument("query_tags is required for similarity retrieval")
	}
	cands, err := e.scanCandidates(ctx, rc)
	if err != nil {
		return nil, err
	}

	query := make(map[string]bool, len(queryTags))
	for _, t := range queryTags {
		query[t] = true
	}

	type scored struct {
		c     candidate
		count int
	}
	var matched []scored
	maxCount := 0
	for _, c := range cands {
		count := 0
		for _, t := range c.tags {
			if query[t] {
				count++
			}
		}
		if count == 0 {
			continue
		}
		if count > maxCount {
			maxCount = count
		}
		matched = append(matched, scored{c: c, count: count})
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].count != matched[j].count {
			return matched[i].count > matched[j].count
		}
		return matched[i].c.importance > matched[j].c.importance
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]Result, 0, len(matched))
	for _, m := range matched {
		score := 0.0
		if maxCount > 0 {
			score = float64(m.count) / float64(maxCount)
		}
		out = append(out, toResult(m.c, score))
	}
	return out, nil
}

// Graph requires startMemoryID; traverses RELATED_TO at depths 1-2,
// excluding the start node, scored by 1.0 - distance/max_distance.
func (e *Engine) Graph(ctx context.Context, rc Context, startMemoryID string, limit int) ([]Result, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if startMemoryID == "" {
		return nil, coreerrors.NewInvalidArgument("start_memory_id is required for graph retrieval")
	}

	const maxDistance = 2
	distances := map[string]int{}
	frontier := []graph.Key{{"id": startMemoryID}}
	distances[startMemoryID] = 0

	for depth := 1; depth <= maxDistance; depth++ {
		var next []graph.Key
		for _, key := range frontier {
			var neighbors []*graph.Node
			for _, direction := range []string{"out", "in"} {
				found, err := e.graph.Neighbors(ctx, "RELATED_TO", "Memory", key, "Memory", direction)
				if err != nil {
					return nil, err
				}
				neighbors = append(neighbors, found...)
			}
			for _, n := range neighbors {
				id := asString(n.Properties["id"])
				if _, seen := distances[id]; seen {
					continue
				}
				distances[id] = depth
				next = append(next, graph.Key{"id": id})
			}
		}
		frontier = next
	}
	delete(distances, startMemoryID)

	allMemories, err := e.scanCandidates(ctx, rc)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]candidate, len(allMemories))
	for _, c := range allMemories {
		byID[asString(c.node.Properties["id"])] = c
	}

	type scored struct {
		c        candidate
		distance int
	}
	var matched []scored
	for id, dist := range distances {
		c, ok := byID[id]
		if !ok {
			continue
		}
		matched = append(matched, scored{c: c, distance: dist})
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].distance != matched[j].distance {
			return matched[i].distance < matched[j].distance
		}
		return matched[i].c.importance > matched[j].c.importance
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]Result, 0, len(matched))
	for _, m := range matched {
		out = append(out, toResult(m.c, 1.0-float64(m.distance)/float64(maxDistance)))
	}
	return out, nil
}

// HybridWeights are the per-strategy weights for Hybrid retrieval; they
// must sum to 1.0 +/- 0.01.
type HybridWeights struct {
	Temporal   float64
	Similarity float64
	Graph      float64
}

// DefaultHybridWeights matches spec §4.6's defaults.
var DefaultHybridWeights = HybridWeights{Temporal: 0.4, Similarity: 0.4, Graph: 0.2}

func (w HybridWeights) Validate() error {
	sum := w.Temporal + w.Similarity + w.Graph
	if math.Abs(sum-1.0) > 0.01 {
		return coreerrors.NewInvalidArgument(fmt.Sprintf("hybrid weights must sum to 1.0 +/- 0.01, got %.3f", sum))
	}
	return nil
}

// Hybrid runs Temporal, Similarity, and Graph concurrently; each may fail
// independently without failing the whole call (the failure is logged and
// that strategy contributes zero). Combined score is the weighted sum of
// per-strategy scores; memories absent from a strategy contribute 0 there.
func (e *Engine) Hybrid(ctx context.Context, rc Context, queryTags []string, startMemoryID string, weights HybridWeights, limit int) ([]Result, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if weights == (HybridWeights{}) {
		weights = DefaultHybridWeights
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	fanoutLimit := limit * 2
	if fanoutLimit <= 0 {
		fanoutLimit = 20
	}

	var temporal, similarity, graphResults []Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := e.Temporal(gctx, rc, fanoutLimit)
		if err != nil {
			e.log.Warn("retrieval.hybrid.temporal_failed", "error", err)
			return nil
		}
		temporal = res
		return nil
	})
	if len(queryTags) > 0 {
		g.Go(func() error {
			res, err := e.Similarity(gctx, rc, queryTags, fanoutLimit)
			if err != nil {
				e.log.Warn("retrieval.hybrid.similarity_failed", "error", err)
				return nil
			}
			similarity = res
			return nil
		})
	}
	if startMemoryID != "" {
		g.Go(func() error {
			res, err := e.Graph(gctx, rc, startMemoryID, fanoutLimit)
			if err != nil {
				e.log.Warn("retrieval.hybrid.graph_failed", "error", err)
				return nil
			}
			graphResults = res
			return nil
		})
	}
	_ = g.Wait()

	combined := map[string]*Result{}
	apply := func(results []Result, weight float64) {
		for _, r := range results {
			r := r
			if existing, ok := combined[r.MemoryID]; ok {
				existing.Score += r.Score * weight
			} else {
				scored := r
				scored.Score = r.Score * weight
				combined[r.MemoryID] = &scored
			}
		}
	}
	apply(temporal, weights.Temporal)
	apply(similarity, weights.Similarity)
	apply(graphResults, weights.Graph)

	out := make([]Result, 0, len(combined))
	for _, r := range combined {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
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
