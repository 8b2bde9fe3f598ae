// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package facade is the Agent Memory Facade (spec §4.8): the single
// entry point an agent process uses to remember, recall, and validate
// memories, hiding the memory store, retrieval engine, and consolidator
// behind a small verb-shaped API.
package facade

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/kraklabs/agentmem/internal/config"
	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/pkg/consolidate"
	"github.com/kraklabs/agentmem/pkg/memstore"
	"github.com/kraklabs/agentmem/pkg/model"
	"github.com/kraklabs/agentmem/pkg/retrieval"
)

// Facade is the Agent Memory Facade: agent_type and project_id are fixed
// for its lifetime; agent_instance_id is generated once per process.
type Facade struct {
	store       *memstore.Store
	retrieval   *retrieval.Engine
	consolidate *consolidate.Engine

	agentType       model.AgentType
	agentInstanceID string
	projectID       string
	log             *slog.Logger
}

// New constructs a Facade. An unknown agentTypeName is a warning, not a
// failure, per spec §4.8 — forward-compatibility with agent types
// introduced outside this release. projectID, if empty, is resolved by
// the caller's config.Load priority chain (explicit -> env -> cwd leaf ->
// "default") before reaching here.
func New(store *memstore.Store, retrievalEngine *retrieval.Engine, consolidateEngine *consolidate.Engine, agentTypeName, projectID string, logger *slog.Logger) *Facade {
	log := logging.OrDefault(logger)
	agentType, known := model.ParseAgentType(agentTypeName)
	if !known {
		log.Warn("facade.unknown_agent_type", "agent_type", agentTypeName)
	}
	if projectID == "" {
		projectID = config.DefaultProjectID
	}
	return &Facade{
		store:           store,
		retrieval:       retrievalEngine,
		consolidate:     consolidateEngine,
		agentType:       agentType,
		agentInstanceID: fmt.Sprintf("%s_%s", agentTypeName, randomHex(4)),
		projectID:       projectID,
		log:             log,
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// AgentInstanceID returns the ephemeral id generated for this process.
func (f *Facade) AgentInstanceID() string { return f.agentInstanceID }

// RememberInput carries remember()'s caller-supplied fields.
type RememberInput struct {
	Content     string
	Category    string
	MemoryType  model.MemoryType
	Tags        []string
	Confidence  float64
	Metadata    map[string]any
	GlobalScope bool
}

// Remember implements remember() (spec §4.8): initial quality_score =
// confidence * 0.7.
func (f *Facade) Remember(ctx context.Context, in RememberInput) (string, error) {
	projectID := f.projectID
	if in.GlobalScope {
		projectID = ""
	}
	return f.store.CreateMemory(ctx, memstore.CreateInput{
		Content:      in.Content,
		AgentType:    f.agentType,
		Category:     in.Category,
		MemoryType:   in.MemoryType,
		ProjectID:    projectID,
		Metadata:     in.Metadata,
		Tags:         in.Tags,
		Confidence:   in.Confidence,
		QualityScore: model.Clamp01(in.Confidence * 0.7),
	})
}

// RecallOptions carries recall()'s caller-supplied filters. MinQuality is
// the quality_score floor: 0 applies no floor, and a negative value selects
// the default of 0.6.
type RecallOptions struct {
	Category      string
	Tags          []string
	MinQuality    float64
	IncludeGlobal bool
	Limit         int
}

// Recall implements recall(): filters via the store, then post-filters by
// tag intersection when tags are supplied.
func (f *Facade) Recall(ctx context.Context, opts RecallOptions) ([]*model.Memory, error) {
	minQuality := opts.MinQuality
	if minQuality < 0 {
		minQuality = 0.6
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	memories, err := f.store.GetMemoriesByAgentType(ctx, memstore.ListFilter{
		AgentType:        f.agentType,
		ProjectID:        f.projectID,
		Category:         opts.Category,
		MinQuality:       minQuality,
		Limit:            limit * 2,
		ExcludeUniversal: !opts.IncludeGlobal,
	})
	if err != nil {
		return nil, err
	}

	if len(opts.Tags) == 0 {
		if len(memories) > limit {
			memories = memories[:limit]
		}
		return memories, nil
	}

	wanted := make(map[string]bool, len(opts.Tags))
	for _, t := range opts.Tags {
		wanted[t] = true
	}
	out := make([]*model.Memory, 0, len(memories))
	for _, m := range memories {
		for _, tag := range m.Tags {
			if wanted[tag] {
				out = append(out, m)
				break
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LearnFromOthersOptions carries learn_from_others()'s filters.
type LearnFromOthersOptions struct {
	Topic          string
	Category       string
	MinQuality     float64
	MinValidations int
	Limit          int
}

// LearnFromOthers implements learn_from_others(): when Topic is given it
// searches then filters by quality/validation count; otherwise it queries
// high-quality memories of the same agent type directly.
func (f *Facade) LearnFromOthers(ctx context.Context, opts LearnFromOthersOptions) ([]*model.Memory, error) {
	minQuality := opts.MinQuality
	if minQuality == 0 {
		minQuality = 0.75
	}
	minValidations := opts.MinValidations
	if minValidations == 0 {
		minValidations = 2
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	var candidates []*model.Memory
	if opts.Topic != "" {
		found, err := f.store.SearchMemories(ctx, opts.Topic, f.agentType, f.projectID, limit*3)
		if err != nil {
			return nil, err
		}
		candidates = found
	} else {
		found, err := f.store.GetMemoriesByAgentType(ctx, memstore.ListFilter{
			AgentType:  f.agentType,
			Category:   opts.Category,
			MinQuality: minQuality,
			Limit:      limit * 3,
		})
		if err != nil {
			return nil, err
		}
		candidates = found
	}

	out := make([]*model.Memory, 0, len(candidates))
	for _, m := range candidates {
		if m.QualityScore < minQuality {
			continue
		}
		if m.ValidationCount < minValidations {
			continue
		}
		out = append(out, m)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ApplyMemory records a usage outcome; pass-through to the store.
func (f *Facade) ApplyMemory(ctx context.Context, memoryID string, outcome model.Outcome, feedbackScore *float64) (bool, error) {
	return f.store.RecordUsage(ctx, memoryID, f.agentInstanceID, outcome, feedbackScore)
}

// ValidateMemory records a validation; pass-through to the store.
func (f *Facade) ValidateMemory(ctx context.Context, memoryID string, feedbackScore float64, outcome model.Outcome, notes string) error {
	return f.store.ValidateMemory(ctx, memoryID, f.agentInstanceID, feedbackScore, outcome, notes)
}

// Search runs a plain content/tag search scoped to this facade's agent
// type and project.
func (f *Facade) Search(ctx context.Context, query string, limit int) ([]*model.Memory, error) {
	return f.store.SearchMemories(ctx, query, f.agentType, f.projectID, limit)
}

// Stats is the result shape of get_stats().
type Stats struct {
	TotalMemories    int
	AverageQuality   float64
	ByMemoryType     map[model.MemoryType]int
	ValidatedCount   int
}

// GetStats summarizes this facade's agent-type memories.
func (f *Facade) GetStats(ctx context.Context) (*Stats, error) {
	memories, err := f.store.GetMemoriesByAgentType(ctx, memstore.ListFilter{AgentType: f.agentType, Limit: 100000})
	if err != nil {
		return nil, err
	}
	stats := &Stats{ByMemoryType: map[model.MemoryType]int{}}
	var qualitySum float64
	for _, m := range memories {
		stats.TotalMemories++
		qualitySum += m.QualityScore
		stats.ByMemoryType[m.MemoryType]++
		if m.ValidationCount > 0 {
			stats.ValidatedCount++
		}
	}
	if stats.TotalMemories > 0 {
		stats.AverageQuality = qualitySum / float64(stats.TotalMemories)
	}
	return stats, nil
}

// GetBestPractices returns the highest-quality, most-validated memories
// for this facade's agent type — the curated subset worth surfacing
// proactively rather than on explicit recall.
func (f *Facade) GetBestPractices(ctx context.Context, limit int) ([]*model.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	return f.LearnFromOthers(ctx, LearnFromOthersOptions{MinQuality: 0.8, MinValidations: 3, Limit: limit})
}

// Retrieve runs the Hybrid retrieval strategy scoped to this facade's
// project and agent type, for callers that need the richer
// temporal/similarity/graph blend rather than recall()'s simple filter.
func (f *Facade) Retrieve(ctx context.Context, queryTags []string, startMemoryID string, limit int) ([]retrieval.Result, error) {
	rc := retrieval.Context{
		ProjectID:      f.projectID,
		AgentType:      f.agentType,
		IsolationLevel: retrieval.IsolationAgentType,
		IncludeGlobal:  true,
	}
	return f.retrieval.Hybrid(ctx, rc, queryTags, startMemoryID, retrieval.DefaultHybridWeights, limit)
}

// MergeDuplicates folds one memory into another per merge_duplicates(a, b,
// keep_first) (spec §4.7): the loser is archived and stamped with
// merged_into/merged_at, never deleted.
func (f *Facade) MergeDuplicates(ctx context.Context, a, b string, keepFirst bool) error {
	return f.consolidate.MergeDuplicates(ctx, a, b, keepFirst)
}

// RunMaintenance recomputes quality scores for every memory in the graph,
// promotes this facade's project's qualifying memories to global scope,
// and decays stale memories of any project. It is
// intended to be run exclusively per project (spec §5's concurrency note)
// — callers must serialize invocations themselves.
func (f *Facade) RunMaintenance(ctx context.Context) error {
	if _, err := f.consolidate.UpdateQualityScores(ctx); err != nil {
		return err
	}
	if _, err := f.consolidate.Promote(ctx, f.projectID, 0); err != nil {
		return err
	}
	if _, err := f.consolidate.Decay(ctx, 0, false); err != nil {
		return err
	}
	return nil
}
