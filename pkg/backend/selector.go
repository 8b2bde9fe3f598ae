// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the Auto-Backend Selector (spec §4.10):
// resolving which graph.Store implementation to construct, in priority
// order, with a human-readable failure when nothing is viable.
package backend

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	"github.com/kraklabs/agentmem/internal/config"
	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/graph/embeddedgraph"
	"github.com/kraklabs/agentmem/pkg/graph/neo4jgraph"
)

// Decision records which backend was selected and why, for logging and
// diagnostics.
type Decision struct {
	Backend config.Backend
	Reason  string
}

// remoteReachable reports whether a TCP connection to host:port succeeds
// within a short timeout — used to probe for an already-running Neo4j
// instance before committing to the remote backend.
func remoteReachable(uri string) bool {
	host, port, err := hostPortFromBoltURI(uri)
	if err != nil {
		return false
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func hostPortFromBoltURI(uri string) (string, string, error) {
	const prefix = "bolt://"
	trimmed := uri
	if len(uri) > len(prefix) && uri[:len(prefix)] == prefix {
		trimmed = uri[len(prefix):]
	}
	host, port, err := net.SplitHostPort(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("backend: malformed bolt uri %q: %w", uri, err)
	}
	return host, port, nil
}

// containerRuntimeAvailable reports whether a Docker (or compatible)
// daemon is reachable, the same check the teacher's `start` command
// performs before bringing up the Neo4j container.
func containerRuntimeAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// Select resolves a backend in the priority order of spec §4.10: env
// override, then remote-if-reachable, then embedded (always available,
// since it is a pure Go library with no external dependency), then
// remote-if-container-runtime-available. Embedded being unconditionally
// available means the last step only matters when GRAPH_BACKEND=remote
// was forced but nothing is reachable yet and a daemon could still be
// started — Open still performs the real connectivity check.
func Select(cfg *config.Config) Decision {
	switch cfg.GraphBackend {
	case config.BackendEmbedded:
		return Decision{Backend: config.BackendEmbedded, Reason: "GRAPH_BACKEND=embedded"}
	case config.BackendRemote:
		return Decision{Backend: config.BackendRemote, Reason: "GRAPH_BACKEND=remote"}
	}

	if remoteReachable(cfg.GraphURI) {
		return Decision{Backend: config.BackendRemote, Reason: "remote graph service reachable at " + cfg.GraphURI}
	}

	// The embedded library (bbolt) is always available to a Go binary
	// that imports it, so this branch is effectively unconditional; it is
	// still named explicitly to mirror spec §4.10's priority chain.
	return Decision{Backend: config.BackendEmbedded, Reason: "embedded library available, no remote service reachable"}
}

// Open constructs the graph.Store selected by Select, falling through to
// the container-runtime-available and failure legs of spec §4.10 if the
// chosen backend turns out not to actually work.
func Open(ctx context.Context, cfg *config.Config) (graph.Store, Decision, error) {
	decision := Select(cfg)

	switch decision.Backend {
	case config.BackendEmbedded:
		store, err := embeddedgraph.Open(embeddedgraph.Config{DataDir: cfg.EmbeddedDataDir})
		if err != nil {
			return nil, decision, coreerrors.NewSchemaError("failed to open embedded graph store: " + err.Error())
		}
		return store, decision, nil

	case config.BackendRemote:
		store, err := neo4jgraph.Open(ctx, neo4jgraph.Config{
			URI: cfg.GraphURI, User: cfg.GraphUser, Password: cfg.GraphPassword,
		})
		if err == nil {
			return store, decision, nil
		}
		if containerRuntimeAvailable() {
			return nil, decision, fmt.Errorf(
				"agentmem: remote graph service at %s is not reachable, but a container runtime is available — "+
					"start it with `docker compose up -d neo4j` and retry: %w", cfg.GraphURI, err)
		}
		return nil, decision, fmt.Errorf(
			"agentmem: no graph backend is available — remote service at %s is unreachable (%v) and no container "+
				"runtime was found; install Docker and run `docker compose up -d neo4j`, or set GRAPH_BACKEND=embedded "+
				"to use the bundled embedded store", cfg.GraphURI, err)
	}

	return nil, decision, fmt.Errorf("agentmem: unknown backend %q", decision.Backend)
}
