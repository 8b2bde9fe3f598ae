// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the entities, relationships, and invariants of the
// agent memory graph shared by every layer of the core: the schema manager,
// the memory store, the identity/ingestion tracker, the code/doc/external
// knowledge graphs, retrieval, and consolidation.
//
// Timestamps are epoch milliseconds end to end (NowMillis/MillisToTime are
// the only conversion points); metadata is carried as an opaque JSON string
// at the graph boundary and only decoded to a typed value where a caller
// inspects it (the consolidator's merge).
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// NowMillis returns the current time as epoch milliseconds, the single
// timestamp representation used across every node and edge in the graph.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// MillisToTime converts an epoch-millisecond timestamp to a time.Value.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// AgentType is one of the fourteen seeded, closed-set roles a memory can
// belong to.
type AgentType string

// The closed set of agent types seeded by the schema manager.
const (
	AgentArchitect              AgentType = "architect"
	AgentBuilder                AgentType = "builder"
	AgentReviewer               AgentType = "reviewer"
	AgentTester                 AgentType = "tester"
	AgentOptimizer              AgentType = "optimizer"
	AgentSecurity               AgentType = "security"
	AgentDatabase               AgentType = "database"
	AgentAPIDesigner            AgentType = "api-designer"
	AgentIntegration            AgentType = "integration"
	AgentAnalyzer               AgentType = "analyzer"
	AgentCleanup                AgentType = "cleanup"
	AgentPreCommitDiagnostic    AgentType = "pre-commit-diagnostic"
	AgentCIDiagnostic           AgentType = "ci-diagnostic"
	AgentFixAgent               AgentType = "fix-agent"
)

// KnownAgentTypes lists the closed set in seed order.
var KnownAgentTypes = []AgentType{
	AgentArchitect, AgentBuilder, AgentReviewer, AgentTester, AgentOptimizer,
	AgentSecurity, AgentDatabase, AgentAPIDesigner, AgentIntegration,
	AgentAnalyzer, AgentCleanup, AgentPreCommitDiagnostic, AgentCIDiagnostic,
	AgentFixAgent,
}

// ParseAgentType accepts any of the known names and warns (via the ok flag)
// rather than erroring on an unknown name, so the core stays forward
// compatible with agent types introduced outside this release.
func ParseAgentType(name string) (agentType AgentType, known bool) {
	at := AgentType(name)
	for _, k := range KnownAgentTypes {
		if k == at {
			return at, true
		}
	}
	return at, false
}

// MemoryType classifies the nature of a memory's content.
type MemoryType string

const (
	MemoryProcedural  MemoryType = "procedural"
	MemoryDeclarative MemoryType = "declarative"
	MemoryEpisodic    MemoryType = "episodic"
	MemoryShortTerm   MemoryType = "short_term"
	MemoryProspective MemoryType = "prospective"
	MemoryAntiPattern MemoryType = "anti_pattern"
)

func (mt MemoryType) Valid() bool {
	switch mt {
	case MemoryProcedural, MemoryDeclarative, MemoryEpisodic, MemoryShortTerm, MemoryProspective, MemoryAntiPattern:
		return true
	}
	return false
}

// Outcome is the result of a memory being used or validated.
type Outcome string

const (
	OutcomeSuccessful Outcome = "successful"
	OutcomeFailed     Outcome = "failed"
	OutcomePartial    Outcome = "partial"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccessful, OutcomeFailed, OutcomePartial:
		return true
	}
	return false
}

// ScopeType distinguishes a memory scoped to a single project from one
// scoped universally to an agent type.
type ScopeType string

const (
	ScopeProjectSpecific ScopeType = "project_specific"
	ScopeUniversal       ScopeType = "universal"
)

// GlobalProjectID is the literal project id representing universal scope
// for promotion edges (spec.md §9: universal SCOPED_TO targets an
// AgentType; promotion targets Project{id="global"}).
const GlobalProjectID = "global"

// RawMetadata is an opaque JSON blob as carried at the graph layer. It is
// never interpolated into a query string; it round-trips as a parameter.
type RawMetadata string

// Decode parses the metadata into a typed map for facade-level consumers.
// An empty RawMetadata decodes to an empty, non-nil map.
func (r RawMetadata) Decode() (map[string]any, error) {
	if r == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(r), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

// EncodeMetadata serializes a typed metadata map to its opaque graph-layer
// representation.
func EncodeMetadata(m map[string]any) (RawMetadata, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return RawMetadata(b), nil
}

// Memory is the central entity of the graph (spec.md §3).
type Memory struct {
	ID         string
	Content    string
	AgentType  AgentType
	Category   string
	MemoryType MemoryType

	QualityScore float64
	Confidence   float64
	Importance   int // 1-10, defaults to 5 when unset

	ValidationCount   int
	ApplicationCount  int
	SuccessRate       float64

	Tags     []string
	Metadata RawMetadata

	CreatedAt      int64
	LastValidated  int64
	AccessedAt     int64
	LastUsed       int64

	ExpiresAt int64 // 0 means unset
	ParentID  string

	// ProjectID and ScopeType describe the memory's single SCOPED_TO edge;
	// ProjectID is empty for a universal memory (scoped to AgentType).
	ProjectID string
	ScopeType ScopeType

	// Lifecycle / consolidation fields, zero-valued until touched.
	PromotedAt      int64
	PromotedFrom    string
	DecayedAt       int64
	Archived        bool
	MergedInto      string
	MergedAt        int64
	LastQualityUpdate int64

	// AccessCount feeds the consolidator's access_score; it is distinct
	// from ApplicationCount, which only counts recorded usages.
	AccessCount int
}

// Clamp01 clamps a float into [0,1], the range required for quality_score,
// confidence, success_rate, and feedback_score (invariant 3).
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampImportance clamps importance into [1,10] (invariant 3); 0 is treated
// as "unset" and mapped to the default of 5.
func ClampImportance(v int) int {
	if v == 0 {
		return 5
	}
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// Project represents either a real repository-scoped project or the
// literal "global" project used for universal visibility via promotion.
type Project struct {
	ID        string
	Path      string
	CreatedAt int64
}

// AgentInstance is created lazily the first time an instance records usage
// or validation of a memory.
type AgentInstance struct {
	ID string
}

// Codebase identifies a tracked repository by its stable unique_key.
type Codebase struct {
	UniqueKey      string
	RemoteURL      string
	Branch         string
	CommitSHA      string
	IngestionCount int
	CreatedAt      int64
	UpdatedAt      int64
}

// Ingestion is one tracked ingestion of a Codebase, forming a linear
// supersession chain ordered by IngestionCounter.
type Ingestion struct {
	IngestionID      string
	Timestamp        int64
	CommitSHA        string
	IngestionCounter int
}

// HasMemoryEdge models AgentType -[:HAS_MEMORY]-> Memory.
type HasMemoryEdge struct {
	CreatedAt int64
	Shared    bool
}

// ScopedToEdge models Memory -[:SCOPED_TO]-> Project|AgentType.
type ScopedToEdge struct {
	ScopeType ScopeType
}

// UsageEdge models AgentInstance -[:USED]-> Memory or -[:VALIDATED]-> Memory.
type UsageEdge struct {
	At            int64
	Outcome       Outcome
	FeedbackScore *float64
	Notes         string
}
