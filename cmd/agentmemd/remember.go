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
	rememberCategory    string
	rememberMemoryType  string
	rememberTags        []string
	rememberConfidence  float64
	rememberGlobalScope bool
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a new memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := f.Remember(ctx, facade.RememberInput{
			Content:     args[0],
			Category:    rememberCategory,
			MemoryType:  model.MemoryType(rememberMemoryType),
			Tags:        rememberTags,
			Confidence:  rememberConfidence,
			GlobalScope: rememberGlobalScope,
		})
		if err != nil {
			return err
		}

		if jsonOut {
			return output.JSON(map[string]string{"memory_id": id})
		}
		ui.Success(fmt.Sprintf("Remembered %s", id))
		return nil
	},
}

func init() {
	rememberCmd.Flags().StringVar(&rememberCategory, "category", "", "Free-form category label")
	rememberCmd.Flags().StringVar(&rememberMemoryType, "type", string(model.MemoryDeclarative), "Memory type (procedural, declarative, episodic, short_term, prospective, anti_pattern)")
	rememberCmd.Flags().StringSliceVar(&rememberTags, "tags", nil, "Comma-separated tags")
	rememberCmd.Flags().Float64Var(&rememberConfidence, "confidence", 0.8, "Confidence in [0,1]; seeds quality_score = confidence * 0.7")
	rememberCmd.Flags().BoolVar(&rememberGlobalScope, "global", false, "Store as a global (cross-project) memory")
}
