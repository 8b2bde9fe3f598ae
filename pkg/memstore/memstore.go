// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memstore is the Memory Store (L2): CRUD over Memory nodes,
// usage/validation recording, and the derived-stat recomputation that
// spec.md §4.3 assigns to this layer.
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

// Store is the Memory Store, backed by any graph.Store implementation.
type Store struct {
	graph graph.Store
	log   *slog.Logger
}

func New(g graph.Store, logger *slog.Logger) *Store {
	return &Store{graph: g, log: logging.OrDefault(logger)}
}

// CreateInput carries the caller-supplied fields of create_memory.
type CreateInput struct {
	Content      string
	AgentType    model.AgentType
	Category     string
	MemoryType   model.MemoryType
	ProjectID    string // empty means universal scope
	Metadata     map[string]any
	Tags         []string
	QualityScore float64
	Confidence   float64
	Importance   int
}

// CreateMemory implements create_memory (spec §4.3): requires the
// AgentType to already exist, links HAS_MEMORY, and creates exactly one
// SCOPED_TO edge — to Project(ProjectID) when given, else to AgentType
// with scope_type=universal.
func (s *Store) CreateMemory(ctx context.Context, in CreateInput) (string, error) {
	agentTypeNode, err := s.graph.GetNode(ctx, "AgentType", graph.Key{"id": string(in.AgentType)})
	if err != nil {
		return "", err
	}
	if agentTypeNode == nil {
		return "", coreerrors.NewUnknownAgentType(string(in.AgentType))
	}
	if in.MemoryType != "" && !in.MemoryType.Valid() {
		return "", coreerrors.NewInvalidArgument(fmt.Sprintf("invalid memory_type %q", in.MemoryType))
	}

	metaRaw, err := model.EncodeMetadata(in.Metadata)
	if err != nil {
		return "", coreerrors.NewInvalidArgument(err.Error())
	}

	id := uuid.NewString()
	now := model.NowMillis()

	props := map[string]any{
		"id":                id,
		"content":           in.Content,
		"agent_type":        string(in.AgentType),
		"category":          in.Category,
		"memory_type":       string(in.MemoryType),
		"quality_score":     model.Clamp01(in.QualityScore),
		"confidence":        model.Clamp01(in.Confidence),
		"importance":        model.ClampImportance(in.Importance),
		"validation_count":  0,
		"application_count": 0,
		"success_rate":      0.0,
		"tags":              in.Tags,
		"metadata":          string(metaRaw),
		"created_at":        now,
		"last_validated":    now,
		"accessed_at":       now,
		"last_used":         int64(0),
		"access_count":      0,
		"project_id":        in.ProjectID,
	}
	if in.ProjectID != "" {
		props["scope_type"] = string(model.ScopeProjectSpecific)
	} else {
		props["scope_type"] = string(model.ScopeUniversal)
	}

	if _, err := s.graph.MergeNode(ctx, "Memory", graph.Key{"id": id}, props); err != nil {
		return "", err
	}

	if err := s.graph.CreateEdge(ctx, "HAS_MEMORY", "AgentType", graph.Key{"id": string(in.AgentType)}, "Memory", graph.Key{"id": id},
		map[string]any{"created_at": now, "shared": in.ProjectID == ""}); err != nil {
		return "", err
	}

	if in.ProjectID != "" {
		if _, err := s.graph.MergeNode(ctx, "Project", graph.Key{"id": in.ProjectID}, map[string]any{"created_at": now}); err != nil {
			return "", err
		}
		if err := s.graph.CreateEdge(ctx, "SCOPED_TO", "Memory", graph.Key{"id": id}, "Project", graph.Key{"id": in.ProjectID},
			map[string]any{"scope_type": string(model.ScopeProjectSpecific)}); err != nil {
			return "", err
		}
	} else {
		if err := s.graph.CreateEdge(ctx, "SCOPED_TO", "Memory", graph.Key{"id": id}, "AgentType", graph.Key{"id": string(in.AgentType)},
			map[string]any{"scope_type": string(model.ScopeUniversal)}); err != nil {
			return "", err
		}
	}

	s.log.Info("memstore.create.done", "memory_id", id, "agent_type", in.AgentType)
	return id, nil
}

func nodeToMemory(n *graph.Node) *model.Memory {
	p := n.Properties
	m := &model.Memory{
		ID:         asString(p["id"]),
		Content:    asString(p["content"]),
		AgentType:  model.AgentType(asString(p["agent_type"])),
		Category:   asString(p["category"]),
		MemoryType: model.MemoryType(asString(p["memory_type"])),

		QualityScore: asFloat(p["quality_score"]),
		Confidence:   asFloat(p["confidence"]),
		Importance:   int(asInt(p["importance"])),

		ValidationCount:  int(asInt(p["validation_count"])),
		ApplicationCount: int(asInt(p["application_count"])),
		SuccessRate:      asFloat(p["success_rate"]),

		Tags:     asStringSlice(p["tags"]),
		Metadata: model.RawMetadata(asString(p["metadata"])),

		CreatedAt:     asInt(p["created_at"]),
		LastValidated: asInt(p["last_validated"]),
		AccessedAt:    asInt(p["accessed_at"]),
		LastUsed:      asInt(p["last_used"]),

		ExpiresAt: asInt(p["expires_at"]),
		ParentID:  asString(p["parent_id"]),

		ProjectID: asString(p["project_id"]),
		ScopeType: model.ScopeType(asString(p["scope_type"])),

		PromotedAt:        asInt(p["promoted_at"]),
		PromotedFrom:      asString(p["promoted_from"]),
		DecayedAt:         asInt(p["decayed_at"]),
		Archived:          asBool(p["archived"]),
		MergedInto:        asString(p["merged_into"]),
		MergedAt:          asInt(p["merged_at"]),
		LastQualityUpdate: asInt(p["last_quality_update"]),
		AccessCount:       int(asInt(p["access_count"])),
	}
	return m
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
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

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, asString(e))
		}
		return out
	default:
		return nil
	}
}

// GetMemory returns the memory plus its agent type and scope, or nil if
// absent.
func (s *Store) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	n, err := s.graph.GetNode(ctx, "Memory", graph.Key{"id": id})
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	return nodeToMemory(n), nil
}

// UpdateFields is the partial-update payload for update_memory; a nil
// pointer field is left untouched.
type UpdateFields struct {
	Content      *string
	Category     *string
	MemoryType   *model.MemoryType
	QualityScore *float64
	Confidence   *float64
	Importance   *int
	Tags         *[]string
	Metadata     *map[string]any
	ExpiresAt    *int64
}

// UpdateMemory applies a partial update; last_validated is bumped on any
// update (spec §4.3).
func (s *Store) UpdateMemory(ctx context.Context, id string, fields UpdateFields) error {
	props := map[string]any{"last_validated": model.NowMillis()}

	if fields.Content != nil {
		props["content"] = *fields.Content
	}
	if fields.Category != nil {
		props["category"] = *fields.Category
	}
	if fields.MemoryType != nil {
		if !fields.MemoryType.Valid() {
			return coreerrors.NewInvalidArgument(fmt.Sprintf("invalid memory_type %q", *fields.MemoryType))
		}
		props["memory_type"] = string(*fields.MemoryType)
	}
	if fields.QualityScore != nil {
		props["quality_score"] = model.Clamp01(*fields.QualityScore)
	}
	if fields.Confidence != nil {
		props["confidence"] = model.Clamp01(*fields.Confidence)
	}
	if fields.Importance != nil {
		props["importance"] = model.ClampImportance(*fields.Importance)
	}
	if fields.Tags != nil {
		props["tags"] = *fields.Tags
	}
	if fields.Metadata != nil {
		raw, err := model.EncodeMetadata(*fields.Metadata)
		if err != nil {
			return coreerrors.NewInvalidArgument(err.Error())
		}
		props["metadata"] = string(raw)
	}
	if fields.ExpiresAt != nil {
		props["expires_at"] = *fields.ExpiresAt
	}

	return s.graph.UpdateNode(ctx, "Memory", graph.Key{"id": id}, props)
}

// DeleteMemory detach-deletes the memory. Idempotent: deleting an absent
// id is not an error.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	return s.graph.DeleteNode(ctx, "Memory", graph.Key{"id": id})
}

// ListFilter selects memories by agent type plus optional project/category.
type ListFilter struct {
	AgentType  model.AgentType
	ProjectID  string // empty means no project filter
	Category   string
	MinQuality float64
	Limit      int

	// ExcludeUniversal drops universal-scope memories (ProjectID == "")
	// from the result even when ProjectID is set. Used when a caller
	// passes include_global=false, per spec.md's round-trip law that a
	// memory remembered with global_scope=true must not be visible when
	// include_global is false.
	ExcludeUniversal bool
}

// GetMemoriesByAgentType filters by scope (project or universal) and
// sorts by quality_score desc, created_at desc.
func (s *Store) GetMemoriesByAgentType(ctx context.Context, f ListFilter) ([]*model.Memory, error) {
	match := graph.Key{"agent_type": string(f.AgentType)}
	if f.Category != "" {
		match["category"] = f.Category
	}

	nodes, err := s.graph.ListNodes(ctx, "Memory", match, 0)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Memory, 0, len(nodes))
	for _, n := range nodes {
		m := nodeToMemory(n)
		if m.QualityScore < f.MinQuality {
			continue
		}
		if f.ProjectID != "" {
			if m.ProjectID != f.ProjectID && m.ProjectID != "" {
				continue
			}
			if m.ProjectID == "" && f.ExcludeUniversal {
				continue
			}
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SearchMemories matches content or any tag containing query
// (case-sensitive), sorted by quality_score desc. A non-empty projectID
// keeps that project's memories plus universal ones.
func (s *Store) SearchMemories(ctx context.Context, query string, agentType model.AgentType, projectID string, limit int) ([]*model.Memory, error) {
	match := graph.Key{}
	if agentType != "" {
		match["agent_type"] = string(agentType)
	}
	nodes, err := s.graph.ListNodes(ctx, "Memory", match, 0)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Memory, 0)
	for _, n := range nodes {
		m := nodeToMemory(n)
		if projectID != "" && m.ProjectID != projectID && m.ProjectID != "" {
			continue
		}
		matched := strings.Contains(m.Content, query)
		if !matched {
			for _, tag := range m.Tags {
				if strings.Contains(tag, query) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].QualityScore > out[j].QualityScore })

	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecordUsage implements spec §4.3's record_usage: MERGEs the
// AgentInstance, creates a USED edge, increments application_count,
// updates last_used, recomputes success_rate, and blends quality_score
// toward feedbackScore when present. Returns false (no error) for an
// unknown memory id.
func (s *Store) RecordUsage(ctx context.Context, memoryID, agentInstanceID string, outcome model.Outcome, feedbackScore *float64) (bool, error) {
	if !outcome.Valid() {
		return false, coreerrors.NewInvalidArgument(fmt.Sprintf("invalid outcome %q", outcome))
	}
	if feedbackScore != nil && (*feedbackScore < 0 || *feedbackScore > 1) {
		return false, coreerrors.NewInvalidArgument("feedback_score must be in [0,1]")
	}

	mem, err := s.GetMemory(ctx, memoryID)
	if err != nil {
		return false, err
	}
	if mem == nil {
		return false, nil
	}

	now := model.NowMillis()
	if _, err := s.graph.MergeNode(ctx, "AgentInstance", graph.Key{"id": agentInstanceID}, nil); err != nil {
		return false, err
	}

	edgeProps := map[string]any{"used_at": now, "outcome": string(outcome)}
	if feedbackScore != nil {
		edgeProps["feedback_score"] = *feedbackScore
	}
	if err := s.graph.CreateEdge(ctx, "USED", "AgentInstance", graph.Key{"id": agentInstanceID}, "Memory", graph.Key{"id": memoryID}, edgeProps); err != nil {
		return false, err
	}

	// CreateEdge merges repeated USED edges from one instance, so the rate
	// is carried forward from application_count rather than edge counts.
	successes := mem.SuccessRate * float64(mem.ApplicationCount)
	if outcome == model.OutcomeSuccessful {
		successes++
	}
	successRate := successes / float64(mem.ApplicationCount+1)

	updateProps := map[string]any{
		"application_count": int(mem.ApplicationCount) + 1,
		"last_used":         now,
		"success_rate":      successRate,
	}
	if feedbackScore != nil {
		updateProps["quality_score"] = model.Clamp01(0.9*mem.QualityScore + 0.1*(*feedbackScore))
	}
	if err := s.graph.UpdateNode(ctx, "Memory", graph.Key{"id": memoryID}, updateProps); err != nil {
		return false, err
	}
	return true, nil
}

// ValidateMemory implements spec §4.3's validate_memory: MERGEs the
// instance, creates a VALIDATED edge, increments validation_count,
// updates last_validated, and recomputes quality_score as
// 0.3*confidence + 0.7*avg(VALIDATED.feedback_score).
func (s *Store) ValidateMemory(ctx context.Context, memoryID, agentInstanceID string, feedbackScore float64, outcome model.Outcome, notes string) error {
	if !outcome.Valid() {
		return coreerrors.NewInvalidArgument(fmt.Sprintf("invalid outcome %q", outcome))
	}
	if feedbackScore < 0 || feedbackScore > 1 {
		return coreerrors.NewInvalidArgument("feedback_score must be in [0,1]")
	}

	mem, err := s.GetMemory(ctx, memoryID)
	if err != nil {
		return err
	}
	if mem == nil {
		return coreerrors.NewNotFound(fmt.Sprintf("memory %s not found", memoryID))
	}

	now := model.NowMillis()
	if _, err := s.graph.MergeNode(ctx, "AgentInstance", graph.Key{"id": agentInstanceID}, nil); err != nil {
		return err
	}

	edgeProps := map[string]any{"validated_at": now, "outcome": string(outcome), "feedback_score": feedbackScore}
	if notes != "" {
		edgeProps["notes"] = notes
	}
	if err := s.graph.CreateEdge(ctx, "VALIDATED", "AgentInstance", graph.Key{"id": agentInstanceID}, "Memory", graph.Key{"id": memoryID}, edgeProps); err != nil {
		return err
	}

	validatedEdges, err := s.graph.Edges(ctx, "VALIDATED", "Memory", graph.Key{"id": memoryID}, "in")
	if err != nil {
		return err
	}
	var sum float64
	for _, e := range validatedEdges {
		sum += asFloat(e.Properties["feedback_score"])
	}
	avg := 0.0
	if len(validatedEdges) > 0 {
		avg = sum / float64(len(validatedEdges))
	}

	return s.graph.UpdateNode(ctx, "Memory", graph.Key{"id": memoryID}, map[string]any{
		"validation_count": mem.ValidationCount + 1,
		"last_validated":   now,
		"quality_score":    model.Clamp01(0.3*mem.Confidence + 0.7*avg),
	})
}
