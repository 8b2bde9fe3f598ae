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

// Package main implements agentmemd, the Agent Memory Core CLI: a thin
// cobra front-end over pkg/facade, pkg/backend, and pkg/metrics for
// agents and operators that would rather shell out than import the Go
// packages directly.
//
// # File Index
//
//   - main.go    - entry point, rootCmd, global flags, shared facade wiring
//   - remember.go - `agentmemd remember`
//   - recall.go   - `agentmemd recall`, `agentmemd search`, `agentmemd learn`
//   - validate.go - `agentmemd validate`, `agentmemd apply`
//   - maintain.go - `agentmemd maintain`, `agentmemd stats`
//   - status.go   - `agentmemd status`, `agentmemd init`
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/agentmem/internal/config"
	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/internal/ui"
	"github.com/kraklabs/agentmem/pkg/backend"
	"github.com/kraklabs/agentmem/pkg/consolidate"
	"github.com/kraklabs/agentmem/pkg/facade"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/memstore"
	"github.com/kraklabs/agentmem/pkg/retrieval"
	"github.com/kraklabs/agentmem/pkg/schema"
)

var (
	// Global flags
	agentType string
	projectID string
	envFile   string
	jsonOut   bool
	noColor   bool

	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "agentmemd",
	Short:         "Agent Memory Core - persistent cross-session memory for coding agents",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `agentmemd is the CLI front-end for the Agent Memory Core: a graph-structured
store that lets coding agents remember, recall, and consolidate what they
have learned across sessions and across agent instances.

Run without a subcommand to print the version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("agentmemd version %s (commit %s, built %s)\n", version, commit, date)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&agentType, "agent-type", "builder", "Agent type (builder, reviewer, tester, architect, optimizer, ...)")
	rootCmd.PersistentFlags().StringVar(&projectID, "project", "", "Project id (default: resolved from AMPLIHACK_PROJECT_ID or cwd)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file to load before resolving configuration")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		rememberCmd,
		recallCmd,
		searchCmd,
		learnCmd,
		validateCmd,
		applyCmd,
		maintainCmd,
		mergeCmd,
		statsCmd,
		statusCmd,
		initCmd,
		projectsCmd,
	)
}

func main() {
	ui.InitColors(noColor)
	if err := rootCmd.Execute(); err != nil {
		coreerrors.FatalError(asUserError(err), jsonOut)
	}
}

// asUserError wraps a bare error from a command's RunE in the CLI's
// UserError shape so every failure path goes through FatalError's single
// formatting/exit-code logic, even for errors that originated deep in a
// pkg/* call rather than from flag validation.
func asUserError(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(*coreerrors.UserError); ok {
		return ue
	}
	return coreerrors.NewInternalError("command failed", err.Error(), "re-run with --json for machine-readable detail", err)
}

// openFacade wires config -> backend -> schema -> memstore/retrieval/
// consolidate -> facade for one CLI invocation. It returns the graph.Store
// so callers can Close it when done.
func openFacade(ctx context.Context) (*facade.Facade, graph.Store, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, coreerrors.NewConfigError("invalid configuration", err.Error(), "check GRAPH_BACKEND, GRAPH_URI and related environment variables", err)
	}
	if projectID != "" {
		cfg.ProjectID = projectID
	}

	log := logging.Default()

	store, decision, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, nil, coreerrors.NewDatabaseError("failed to open graph backend", err.Error(), "see the error detail for remediation steps", err)
	}
	log.Info("agentmemd.backend_selected", "backend", decision.Backend, "reason", decision.Reason)

	if err := schema.NewManager(store, log).InitializeSchema(ctx); err != nil {
		store.Close()
		return nil, nil, coreerrors.NewSchemaError("failed to initialize schema: " + err.Error())
	}

	mem := memstore.New(store, log)
	retrievalEngine := retrieval.New(store, log)
	consolidateEngine := consolidate.New(store, log)

	f := facade.New(mem, retrievalEngine, consolidateEngine, agentType, cfg.ProjectID, log)
	return f, store, nil
}
