// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extknowledge

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/graph/embeddedgraph"
)

type stubFetcher struct {
	calls int
	body  string
}

func (s *stubFetcher) Do(req *http.Request) (*http.Response, error) {
	s.calls++
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}

func newTestManager(t *testing.T, fetcher Fetcher) (*Manager, graph.Store) {
	t.Helper()
	g, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("open graph: %v", err)
	}
	t.Cleanup(func() { g.Close() })

	m, err := New(g, Config{CacheDir: t.TempDir(), Client: fetcher}, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, g
}

func TestFetchMissesThenHitsCache(t *testing.T) {
	fetcher := &stubFetcher{body: "hello docs"}
	m, _ := newTestManager(t, fetcher)
	ctx := context.Background()

	entry, err := m.Fetch(ctx, "https://docs.test/page", FetchOptions{Source: "official", TrustScore: 0.9, TTLHours: 24})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if entry.Content != "hello docs" {
		t.Fatalf("unexpected content: %s", entry.Content)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 http call, got %d", fetcher.calls)
	}

	entry2, err := m.Fetch(ctx, "https://docs.test/page", FetchOptions{Source: "official", TrustScore: 0.9, TTLHours: 24})
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if entry2.Content != "hello docs" {
		t.Fatalf("unexpected cached content: %s", entry2.Content)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected cache hit to avoid a second http call, got %d calls", fetcher.calls)
	}
}

func TestFetchMirrorsToGraphWithTrustScore(t *testing.T) {
	fetcher := &stubFetcher{body: "content"}
	m, g := newTestManager(t, fetcher)
	ctx := context.Background()

	if _, err := m.Fetch(ctx, "https://docs.test/api", FetchOptions{Source: "official", TrustScore: 0.75, TTLHours: 24}); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	node, err := g.GetNode(ctx, "ExternalDoc", graph.Key{"url": "https://docs.test/api"})
	if err != nil {
		t.Fatalf("get node: %v", err)
	}
	if node == nil {
		t.Fatalf("expected ExternalDoc node to exist")
	}
	if ts, _ := node.Properties["trust_score"].(float64); ts != 0.75 {
		t.Fatalf("expected trust_score 0.75, got %v", node.Properties["trust_score"])
	}
}

func TestCleanupExpiredDocsRemovesStaleEntries(t *testing.T) {
	fetcher := &stubFetcher{body: "content"}
	m, g := newTestManager(t, fetcher)
	ctx := context.Background()

	if _, err := g.MergeNode(ctx, "ExternalDoc", graph.Key{"url": "https://stale.test"}, map[string]any{
		"fetched_at": int64(0),
		"ttl_hours":  int64(1),
	}); err != nil {
		t.Fatalf("seed stale doc: %v", err)
	}
	if _, err := m.Fetch(ctx, "https://fresh.test", FetchOptions{TTLHours: 24}); err != nil {
		t.Fatalf("fetch fresh doc: %v", err)
	}

	deleted, err := m.CleanupExpiredDocs(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted doc, got %d", deleted)
	}

	remaining, err := g.ListNodes(ctx, "ExternalDoc", nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining doc, got %d", len(remaining))
	}
}
