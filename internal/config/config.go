// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the agent memory core's configuration from
// environment variables into a single explicit Config value (spec.md §9
// "Singleton configuration" design note): no process-global config, no
// package-level mutable state, constructed once at startup and threaded
// through the call graph. The one sanctioned exception is the credential
// update path, modeled by Store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Backend selects which graph.Backend implementation to use.
type Backend string

const (
	BackendAuto     Backend = ""
	BackendEmbedded Backend = "embedded"
	BackendRemote   Backend = "remote"
)

// Config is the fully-resolved, immutable configuration for one process.
type Config struct {
	GraphBackend Backend

	GraphURI      string
	GraphUser     string
	GraphPassword string
	GraphBoltPort int
	GraphHTTPPort int

	GraphHeapSize      string
	GraphPageCacheSize string
	GraphStartupTimeoutSeconds int

	ProjectID string

	// EmbeddedDataDir is where the embedded backend persists its snapshot.
	// Defaults to ~/.agentmem/data/<project_id>.
	EmbeddedDataDir string

	// KnowledgeCacheDir is where external-knowledge fetches are cached on
	// disk, keyed by SHA-256(url). Defaults to ~/.agentmem/knowledge_cache/.
	KnowledgeCacheDir string
}

// Load reads environment variables into a Config value, applying the
// defaults from spec.md §6. It never mutates process-global state.
//
// envFile, if non-empty, is loaded into the process environment first via
// godotenv (a development convenience only; production deployments are
// expected to set real environment variables).
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// Best effort: a missing .env.local is not an error.
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{
		GraphBackend:  Backend(os.Getenv("GRAPH_BACKEND")),
		GraphURI:      getenvDefault("GRAPH_URI", "bolt://localhost:7687"),
		GraphUser:     getenvDefault("GRAPH_USER", "neo4j"),
		GraphPassword: os.Getenv("GRAPH_PASSWORD"),

		GraphBoltPort: getenvIntDefault("GRAPH_BOLT_PORT", 7687),
		GraphHTTPPort: getenvIntDefault("GRAPH_HTTP_PORT", 7474),

		GraphHeapSize:      getenvDefault("GRAPH_HEAP_SIZE", "2G"),
		GraphPageCacheSize: getenvDefault("GRAPH_PAGE_CACHE_SIZE", "1G"),
		GraphStartupTimeoutSeconds: getenvIntDefault("GRAPH_STARTUP_TIMEOUT", 30),

		ProjectID: os.Getenv("AMPLIHACK_PROJECT_ID"),
	}

	if cfg.GraphBackend != BackendAuto && cfg.GraphBackend != BackendEmbedded && cfg.GraphBackend != BackendRemote {
		return nil, fmt.Errorf("invalid GRAPH_BACKEND %q: must be %q or %q", cfg.GraphBackend, BackendEmbedded, BackendRemote)
	}

	if cfg.GraphBackend == BackendRemote && cfg.GraphPassword == "" {
		return nil, fmt.Errorf("GRAPH_PASSWORD is required when GRAPH_BACKEND=remote")
	}

	if cfg.ProjectID == "" {
		cfg.ProjectID = deriveProjectIDFromCWD()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	cfg.EmbeddedDataDir = filepath.Join(home, ".agentmem", "data", cfg.ProjectID)
	cfg.KnowledgeCacheDir = filepath.Join(home, ".agentmem", "knowledge_cache")

	return cfg, nil
}

// DefaultProjectID is the final fallback in the project-id resolution
// priority (spec.md §4.8) when no explicit id, environment override, or
// usable working directory is available.
const DefaultProjectID = "default"

// deriveProjectIDFromCWD uses the leaf directory name of the current
// working directory, falling back to DefaultProjectID, matching the
// facade's project-id resolution priority (spec.md §4.8) minus the
// explicit and environment-variable overrides, which Load already
// applied above.
func deriveProjectIDFromCWD() string {
	wd, err := os.Getwd()
	if err != nil || wd == "" || wd == "/" {
		return DefaultProjectID
	}
	leaf := filepath.Base(wd)
	if leaf == "" || leaf == "." {
		return DefaultProjectID
	}
	return leaf
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Store holds the single mutable Config reference for a process, guarded
// by a lock. It exists only for the "update detected credentials" path
// (spec.md §9): everywhere else, a *Config is passed explicitly and never
// swapped underneath its holder.
type Store struct {
	mu  sync.RWMutex
	cur *Config
}

// NewStore wraps an initial Config.
func NewStore(initial *Config) *Store {
	return &Store{cur: initial}
}

// Current returns the active Config.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// WithCredentials installs a new Config value with updated graph
// credentials, leaving every other field as in the current Config. It
// never mutates the previous Config in place.
func (s *Store) WithCredentials(user, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.cur
	next.GraphUser = user
	next.GraphPassword = password
	s.cur = &next
}
