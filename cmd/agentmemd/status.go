// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/agentmem/internal/bootstrap"
	"github.com/kraklabs/agentmem/internal/config"
	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/internal/output"
	"github.com/kraklabs/agentmem/internal/ui"
	"github.com/kraklabs/agentmem/pkg/backend"
	"github.com/kraklabs/agentmem/pkg/metrics"
	"github.com/kraklabs/agentmem/pkg/schema"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check backend connectivity and report node counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := config.Load(envFile)
		if err != nil {
			return coreerrors.NewConfigError("invalid configuration", err.Error(), "check GRAPH_BACKEND and related environment variables", err)
		}
		if projectID != "" {
			cfg.ProjectID = projectID
		}

		store, decision, err := backend.Open(ctx, cfg)
		if err != nil {
			return coreerrors.NewDatabaseError("failed to open graph backend", err.Error(), "see the error detail for remediation steps", err)
		}
		defer store.Close()

		report := metrics.NewHealthMonitor(store, version).CheckHealth(ctx)

		if jsonOut {
			return output.JSONTo(cmd.OutOrStdout(), map[string]any{
				"backend":  decision.Backend,
				"reason":   decision.Reason,
				"project":  cfg.ProjectID,
				"health":   report,
			})
		}

		ui.Header("Agent Memory Core Status")
		fmt.Printf("%s %s (%s)\n", ui.Label("Backend:"), decision.Backend, decision.Reason)
		fmt.Printf("%s %s\n", ui.Label("Project:"), cfg.ProjectID)
		if report.Neo4jAvailable {
			ui.Success(fmt.Sprintf("Reachable in %.1fms", report.ResponseTimeMS))
		} else {
			ui.Error("Backend unreachable")
		}
		fmt.Printf("%s %d\n", ui.Label("Memories:"), report.TotalMemories)
		fmt.Printf("%s %d\n", ui.Label("Projects:"), report.TotalProjects)
		fmt.Printf("%s %d\n", ui.Label("Agent types:"), report.TotalAgents)
		for _, issue := range report.Issues {
			ui.Warning(issue)
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the graph schema (constraints, indexes, seeded agent types)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := config.Load(envFile)
		if err != nil {
			return coreerrors.NewConfigError("invalid configuration", err.Error(), "check GRAPH_BACKEND and related environment variables", err)
		}
		if projectID != "" {
			cfg.ProjectID = projectID
		}

		log := logging.Default()
		store, decision, err := backend.Open(ctx, cfg)
		if err != nil {
			return coreerrors.NewDatabaseError("failed to open graph backend", err.Error(), "see the error detail for remediation steps", err)
		}
		defer store.Close()

		if err := schema.NewManager(store, log).InitializeSchema(ctx); err != nil {
			return coreerrors.NewSchemaError("failed to initialize schema: " + err.Error())
		}

		if jsonOut {
			return output.JSON(map[string]string{"backend": string(decision.Backend), "status": "initialized"})
		}
		ui.Success(fmt.Sprintf("Schema initialized on %s backend", decision.Backend))
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects with local embedded-backend data",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := bootstrap.DefaultDataDir()
		if err != nil {
			return coreerrors.NewInternalError("failed to resolve data directory", err.Error(), "", err)
		}
		projects, err := bootstrap.ListProjects(dataDir)
		if err != nil {
			return coreerrors.NewInternalError("failed to list projects", err.Error(), "", err)
		}

		if jsonOut {
			return output.JSON(map[string]any{"data_dir": dataDir, "projects": projects})
		}
		if len(projects) == 0 {
			ui.Info("No local projects found under " + dataDir)
			return nil
		}
		ui.Header("Local Projects")
		for _, p := range projects {
			fmt.Println(p)
		}
		return nil
	},
}
