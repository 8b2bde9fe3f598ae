// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extknowledge fetches external documentation over HTTP, caches it
// on disk keyed by SHA-256(url) with a TTL, and mirrors it into the shared
// graph as ExternalDoc nodes carrying a trust_score (spec §4.5).
package extknowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

// CacheEntry mirrors the on-disk JSON blob schema from spec §7:
// {url, title, content, source, version, trust_score, metadata, fetched_at, ttl_hours}.
type CacheEntry struct {
	URL         string         `json:"url"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Source      string         `json:"source"`
	Version     string         `json:"version"`
	TrustScore  float64        `json:"trust_score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	FetchedAt   int64          `json:"fetched_at"`
	TTLHours    int            `json:"ttl_hours"`
}

func (e CacheEntry) expired(now int64) bool {
	ttlMillis := int64(e.TTLHours) * 3600 * 1000
	return now-e.FetchedAt > ttlMillis
}

// cacheKey returns the SHA-256(url) hex filename for the cache entry.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Fetcher is the subset of *http.Client the manager needs; satisfied by
// http.DefaultClient in production and a stub in tests.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Manager fetches external documents with disk caching and mirrors
// non-expired entries into the graph.
type Manager struct {
	graph    graph.Store
	client   Fetcher
	cacheDir string
	log      *slog.Logger
}

// Config controls cache location and the HTTP client used to fetch.
type Config struct {
	CacheDir string
	Client   Fetcher
}

func New(g graph.Store, cfg Config, logger *slog.Logger) (*Manager, error) {
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("extknowledge: cache dir is required")
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("extknowledge: create cache dir: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{graph: g, client: client, cacheDir: cfg.CacheDir, log: logging.OrDefault(logger)}, nil
}

func (m *Manager) cachePath(url string) string {
	return filepath.Join(m.cacheDir, cacheKey(url)+".json")
}

// readCache returns the cached entry for url, or nil if absent or expired.
func (m *Manager) readCache(url string, now int64) (*CacheEntry, error) {
	data, err := os.ReadFile(m.cachePath(url))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	if entry.expired(now) {
		return nil, nil
	}
	return &entry, nil
}

func (m *Manager) writeCache(entry CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(m.cachePath(entry.URL), data, 0o644)
}

// FetchOptions configures one Fetch call.
type FetchOptions struct {
	Source     string
	Version    string
	TrustScore float64
	TTLHours   int
}

// Fetch returns the document at url, serving from disk cache when a
// non-expired entry exists; otherwise it performs an HTTP GET, persists
// the result to disk and the graph, and returns it. A cache hit does not
// touch the network at all (spec §4.5).
func (m *Manager) Fetch(ctx context.Context, url string, opts FetchOptions) (*CacheEntry, error) {
	now := model.NowMillis()

	if cached, err := m.readCache(url, now); err != nil {
		return nil, err
	} else if cached != nil {
		m.log.Debug("extknowledge.fetch.cache_hit", "url", url)
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("extknowledge: build request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extknowledge: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("extknowledge: fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("extknowledge: read body: %w", err)
	}

	ttl := opts.TTLHours
	if ttl <= 0 {
		ttl = 24 * 7
	}
	entry := CacheEntry{
		URL:        url,
		Content:    string(body),
		Source:     opts.Source,
		Version:    opts.Version,
		TrustScore: opts.TrustScore,
		FetchedAt:  now,
		TTLHours:   ttl,
	}

	if err := m.writeCache(entry); err != nil {
		return nil, err
	}
	if err := m.mirrorToGraph(ctx, entry); err != nil {
		return nil, err
	}

	m.log.Info("extknowledge.fetch.done", "url", url, "bytes", len(body))
	return &entry, nil
}

func (m *Manager) mirrorToGraph(ctx context.Context, entry CacheEntry) error {
	_, err := m.graph.MergeNode(ctx, "ExternalDoc", graph.Key{"url": entry.URL}, map[string]any{
		"title":       entry.Title,
		"source":      entry.Source,
		"version":     entry.Version,
		"trust_score": entry.TrustScore,
		"fetched_at":  entry.FetchedAt,
		"ttl_hours":   entry.TTLHours,
	})
	return err
}

// LinkTo records that an ExternalDoc explains or documents a code entity.
func (m *Manager) LinkTo(ctx context.Context, url, edgeType, label string, key graph.Key) error {
	return m.graph.CreateEdge(ctx, edgeType, "ExternalDoc", graph.Key{"url": url}, label, key, nil)
}

// CleanupExpiredDocs deletes graph ExternalDoc nodes whose TTL has
// elapsed (spec §4.5's cleanup_expired_docs). It does not touch the disk
// cache, which self-expires on next read.
func (m *Manager) CleanupExpiredDocs(ctx context.Context) (int, error) {
	docs, err := m.graph.ListNodes(ctx, "ExternalDoc", nil, 0)
	if err != nil {
		return 0, err
	}
	now := model.NowMillis()
	deleted := 0
	for _, d := range docs {
		fetchedAt, _ := d.Properties["fetched_at"].(int64)
		ttlHours, _ := d.Properties["ttl_hours"].(int64)
		if ttlHours == 0 {
			if f, ok := d.Properties["ttl_hours"].(int); ok {
				ttlHours = int64(f)
			}
		}
		ttlMillis := ttlHours * 3600 * 1000
		if now-fetchedAt > ttlMillis {
			url, _ := d.Properties["url"].(string)
			if err := m.graph.DeleteNode(ctx, "ExternalDoc", graph.Key{"url": url}); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	m.log.Info("extknowledge.cleanup.done", "deleted", deleted)
	return deleted, nil
}
