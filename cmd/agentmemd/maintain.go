// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kraklabs/agentmem/internal/output"
	"github.com/kraklabs/agentmem/internal/ui"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run quality-score refresh, promotion, and decay for this project",
	Long: `maintain recomputes quality_score for every memory in the graph, promotes
this project's memories above the promotion threshold to global scope, and
decays memories of any project that are old, rarely accessed, and low quality.

Callers are expected to serialize invocations per project; this command
does not itself guard against concurrent runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := f.RunMaintenance(ctx); err != nil {
			return err
		}
		if jsonOut {
			return output.JSON(map[string]string{"status": "ok"})
		}
		ui.Success("Maintenance complete")
		return nil
	},
}

var mergeKeepSecond bool

var mergeCmd = &cobra.Command{
	Use:   "merge <memory-id-a> <memory-id-b>",
	Short: "Fold one of two duplicate memories into the other",
	Long: `merge archives one of the two given memories into the other: tags and
metadata are combined onto the survivor, RELATED_TO edges are re-pointed, and
the loser is marked merged_into/merged_at rather than deleted.

By default b is folded into a; pass --keep-second to keep b and fold a into it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		keepFirst := !mergeKeepSecond
		if err := f.MergeDuplicates(ctx, args[0], args[1], keepFirst); err != nil {
			return err
		}
		kept, merged := args[0], args[1]
		if !keepFirst {
			kept, merged = args[1], args[0]
		}
		if jsonOut {
			return output.JSON(map[string]string{"status": "ok", "kept": kept, "merged": merged})
		}
		ui.Success(fmt.Sprintf("Merged %s into %s", merged, kept))
		return nil
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeKeepSecond, "keep-second", false, "Keep the second memory id and fold the first into it")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize this agent type's memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := f.GetStats(ctx)
		if err != nil {
			return err
		}
		if jsonOut {
			return output.JSON(stats)
		}

		ui.Header("Memory Stats")
		fmt.Printf("%s %d\n", ui.Label("Total memories:"), stats.TotalMemories)
		fmt.Printf("%s %.3f\n", ui.Label("Average quality:"), stats.AverageQuality)
		fmt.Printf("%s %d\n", ui.Label("Validated:"), stats.ValidatedCount)
		if len(stats.ByMemoryType) > 0 {
			ui.SubHeader("By type:")
			for t, n := range stats.ByMemoryType {
				fmt.Printf("  %-14s %d\n", t, n)
			}
		}
		return nil
	},
}
