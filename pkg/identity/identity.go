// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity is the Identity & Ingestion Tracker (L3): computes a
// stable unique_key for a codebase from its normalized remote URL and
// branch, and tracks successive ingestions as a monotonic, supersession-
// linked chain, following the same deterministic-ID philosophy as the
// code-graph's GenerateFileID/GenerateFunctionID.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

var userinfoPattern = regexp.MustCompile(`^(https?://)[^@/]+@(.+)$`)

// NormalizeURL strips embedded user:pass@ credentials from an HTTPS URL
// and appends a trailing .git if absent. SSH URLs (git@host:org/repo) are
// left as-is except for the same .git normalization (spec §4.4).
func NormalizeURL(remoteURL string) string {
	url := remoteURL
	if m := userinfoPattern.FindStringSubmatch(url); m != nil {
		url = m[1] + m[2]
	}
	if !strings.HasSuffix(url, ".git") {
		url += ".git"
	}
	return url
}

// UniqueKey computes SHA-256(normalized_url ++ "#" ++ branch) hex-encoded
// (spec §3 Invariant 6).
func UniqueKey(remoteURL, branch string) string {
	normalized := NormalizeURL(remoteURL)
	sum := sha256.Sum256([]byte(normalized + "#" + branch))
	return hex.EncodeToString(sum[:])
}

var commitSHAPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)
var uniqueKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Identity is the input to Track: the repository's remote, branch, and
// the commit currently being ingested.
type Identity struct {
	RemoteURL string
	Branch    string
	CommitSHA string
}

// Validate checks every field is non-empty and that CommitSHA/derived
// UniqueKey match their expected hex patterns (spec §4.4).
func (id Identity) Validate() error {
	if id.RemoteURL == "" || id.Branch == "" || id.CommitSHA == "" {
		return coreerrors.NewInvalidArgument("remote_url, branch, and commit_sha are all required")
	}
	if !commitSHAPattern.MatchString(id.CommitSHA) {
		return coreerrors.NewInvalidArgument("commit_sha must be 40 lowercase hex characters")
	}
	key := UniqueKey(id.RemoteURL, id.Branch)
	if !uniqueKeyPattern.MatchString(key) {
		return coreerrors.NewInvalidArgument("derived unique_key is malformed")
	}
	return nil
}

// Status is the result of a Track call.
type Status string

const (
	StatusNew    Status = "NEW"
	StatusUpdate Status = "UPDATE"
)

// TrackResult is what Track returns on success.
type TrackResult struct {
	Status           Status
	IngestionID      string
	IngestionCounter int
	Previous         string // previous Ingestion id, "" when Status == NEW
}

// Tracker implements the identity/ingestion algorithm of spec §4.4 atop
// any graph.Store.
type Tracker struct {
	graph graph.Store
	log   *slog.Logger
}

func New(g graph.Store, logger *slog.Logger) *Tracker {
	return &Tracker{graph: g, log: logging.OrDefault(logger)}
}

// Track implements track(identity, metadata): look up the Codebase by
// unique_key; if absent, create it at counter 1; if present, append the
// next Ingestion and link it into the supersession chain. Both branches
// are a single logical write; errors are wrapped as IngestionError so
// callers never see a raw graph error from this layer.
func (t *Tracker) Track(ctx context.Context, id Identity) (*TrackResult, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	result, err := t.track(ctx, id)
	if err != nil {
		return nil, coreerrors.NewIngestionError("track codebase identity", err)
	}
	return result, nil
}

func (t *Tracker) track(ctx context.Context, id Identity) (*TrackResult, error) {
	normalizedURL := NormalizeURL(id.RemoteURL)
	uniqueKey := UniqueKey(id.RemoteURL, id.Branch)
	now := model.NowMillis()

	existing, err := t.graph.GetNode(ctx, "Codebase", graph.Key{"unique_key": uniqueKey})
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if _, err := t.graph.MergeNode(ctx, "Codebase", graph.Key{"unique_key": uniqueKey}, map[string]any{
			"remote_url":      normalizedURL,
			"branch":          id.Branch,
			"commit_sha":      id.CommitSHA,
			"ingestion_count": 1,
			"created_at":      now,
			"updated_at":      now,
		}); err != nil {
			return nil, err
		}

		ingestionID := uuid.NewString()
		if _, err := t.graph.MergeNode(ctx, "Ingestion", graph.Key{"ingestion_id": ingestionID}, map[string]any{
			"timestamp":         now,
			"commit_sha":        id.CommitSHA,
			"ingestion_counter": 1,
		}); err != nil {
			return nil, err
		}
		if err := t.graph.CreateEdge(ctx, "INGESTION_OF", "Ingestion", graph.Key{"ingestion_id": ingestionID}, "Codebase", graph.Key{"unique_key": uniqueKey}, nil); err != nil {
			return nil, err
		}

		t.log.Info("identity.track.new", "unique_key", uniqueKey, "ingestion_id", ingestionID)
		return &TrackResult{Status: StatusNew, IngestionID: ingestionID, IngestionCounter: 1}, nil
	}

	previous, err := t.latestIngestion(ctx, uniqueKey)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, fmt.Errorf("identity: codebase %s has no ingestion history", uniqueKey)
	}

	prevCounter := int(asInt(previous.Properties["ingestion_counter"]))
	nextCounter := prevCounter + 1
	newCount := int(asInt(existing.Properties["ingestion_count"])) + 1

	if err := t.graph.UpdateNode(ctx, "Codebase", graph.Key{"unique_key": uniqueKey}, map[string]any{
		"commit_sha":      id.CommitSHA,
		"updated_at":      now,
		"ingestion_count": newCount,
	}); err != nil {
		return nil, err
	}

	newIngestionID := uuid.NewString()
	if _, err := t.graph.MergeNode(ctx, "Ingestion", graph.Key{"ingestion_id": newIngestionID}, map[string]any{
		"timestamp":         now,
		"commit_sha":        id.CommitSHA,
		"ingestion_counter": nextCounter,
	}); err != nil {
		return nil, err
	}
	if err := t.graph.CreateEdge(ctx, "INGESTION_OF", "Ingestion", graph.Key{"ingestion_id": newIngestionID}, "Codebase", graph.Key{"unique_key": uniqueKey}, nil); err != nil {
		return nil, err
	}
	previousID := asString(previous.Properties["ingestion_id"])
	if err := t.graph.CreateEdge(ctx, "SUPERSEDED_BY", "Ingestion", graph.Key{"ingestion_id": previousID}, "Ingestion", graph.Key{"ingestion_id": newIngestionID}, nil); err != nil {
		return nil, err
	}

	t.log.Info("identity.track.update", "unique_key", uniqueKey, "ingestion_id", newIngestionID, "previous", previousID)
	return &TrackResult{
		Status:           StatusUpdate,
		IngestionID:      newIngestionID,
		IngestionCounter: nextCounter,
		Previous:         previousID,
	}, nil
}

// latestIngestion returns the Ingestion with the highest counter linked
// to the given codebase.
func (t *Tracker) latestIngestion(ctx context.Context, uniqueKey string) (*graph.Node, error) {
	ingestions, err := t.graph.Neighbors(ctx, "INGESTION_OF", "Codebase", graph.Key{"unique_key": uniqueKey}, "Ingestion", "in")
	if err != nil {
		return nil, err
	}
	var latest *graph.Node
	var latestCounter int64 = -1
	for _, n := range ingestions {
		c := asInt(n.Properties["ingestion_counter"])
		if c > latestCounter {
			latestCounter = c
			latest = n
		}
	}
	return latest, nil
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

func asString(v any) string {
	s, _ := v.(string)
	return s
}
