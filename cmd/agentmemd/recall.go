// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/agentmem/internal/output"
	"github.com/kraklabs/agentmem/internal/ui"
	"github.com/kraklabs/agentmem/pkg/facade"
	"github.com/kraklabs/agentmem/pkg/model"
)

var (
	recallCategory string
	recallTags     []string
	recallMinQual  float64
	recallGlobal   bool
	recallLimit    int
)

var recallCmd = &cobra.Command{
	Use:   "recall",
	Short: "Recall memories for this agent type, optionally filtered by tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		memories, err := f.Recall(ctx, facade.RecallOptions{
			Category:      recallCategory,
			Tags:          recallTags,
			MinQuality:    recallMinQual,
			IncludeGlobal: recallGlobal,
			Limit:         recallLimit,
		})
		if err != nil {
			return err
		}
		return printMemories(memories)
	},
}

var (
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search memories by content and tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		memories, err := f.Search(ctx, args[0], searchLimit)
		if err != nil {
			return err
		}
		return printMemories(memories)
	},
}

var (
	learnTopic          string
	learnCategory       string
	learnMinQual        float64
	learnMinValidations int
	learnLimit          int
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Learn high-quality, validated memories from other agent instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		memories, err := f.LearnFromOthers(ctx, facade.LearnFromOthersOptions{
			Topic:          learnTopic,
			Category:       learnCategory,
			MinQuality:     learnMinQual,
			MinValidations: learnMinValidations,
			Limit:          learnLimit,
		})
		if err != nil {
			return err
		}
		return printMemories(memories)
	},
}

func init() {
	recallCmd.Flags().StringVar(&recallCategory, "category", "", "Filter by category")
	recallCmd.Flags().StringSliceVar(&recallTags, "tags", nil, "Only memories matching at least one of these tags")
	recallCmd.Flags().Float64Var(&recallMinQual, "min-quality", 0.6, "Minimum quality_score")
	recallCmd.Flags().BoolVar(&recallGlobal, "include-global", true, "Include cross-project memories")
	recallCmd.Flags().IntVar(&recallLimit, "limit", 20, "Maximum results")

	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results")

	learnCmd.Flags().StringVar(&learnTopic, "topic", "", "Search term; omit to browse by quality instead")
	learnCmd.Flags().StringVar(&learnCategory, "category", "", "Filter by category")
	learnCmd.Flags().Float64Var(&learnMinQual, "min-quality", 0, "Minimum quality_score (default 0.75)")
	learnCmd.Flags().IntVar(&learnMinValidations, "min-validations", 0, "Minimum validation_count (default 2)")
	learnCmd.Flags().IntVar(&learnLimit, "limit", 10, "Maximum results")
}

func printMemories(memories []*model.Memory) error {
	if jsonOut {
		return output.JSON(memories)
	}
	if len(memories) == 0 {
		ui.Info("No memories found")
		return nil
	}
	for _, m := range memories {
		fmt.Printf("%s  %s  %s\n", ui.Label(m.ID), ui.DimText(fmt.Sprintf("q=%.2f", m.QualityScore)), m.Content)
	}
	return nil
}
