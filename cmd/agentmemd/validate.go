// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"github.com/spf13/cobra"

	coreerrors "github.com/kraklabs/agentmem/internal/errors"
	"github.com/kraklabs/agentmem/internal/output"
	"github.com/kraklabs/agentmem/internal/ui"
	"github.com/kraklabs/agentmem/pkg/model"
)

var (
	validateFeedback float64
	validateOutcome  string
	validateNotes    string
)

var validateCmd = &cobra.Command{
	Use:   "validate <memory-id>",
	Short: "Record a validation outcome for a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome := model.Outcome(validateOutcome)
		if !outcome.Valid() {
			return coreerrors.NewInputError("invalid --outcome", validateOutcome, "use one of: successful, failed, partial")
		}

		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := f.ValidateMemory(ctx, args[0], validateFeedback, outcome, validateNotes); err != nil {
			return err
		}
		if jsonOut {
			return output.JSON(map[string]string{"memory_id": args[0], "status": "validated"})
		}
		ui.Success("Validated " + args[0])
		return nil
	},
}

var (
	applyOutcome  string
	applyFeedback float64
	applyHasScore bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <memory-id>",
	Short: "Record that a memory was applied, with its usage outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome := model.Outcome(applyOutcome)
		if !outcome.Valid() {
			return coreerrors.NewInputError("invalid --outcome", applyOutcome, "use one of: successful, failed, partial")
		}

		ctx := cmd.Context()
		f, store, err := openFacade(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		var score *float64
		if applyHasScore {
			score = &applyFeedback
		}
		applied, err := f.ApplyMemory(ctx, args[0], outcome, score)
		if err != nil {
			return err
		}
		if jsonOut {
			return output.JSON(map[string]any{"memory_id": args[0], "applied": applied})
		}
		if applied {
			ui.Success("Applied " + args[0])
		} else {
			ui.Warning("Memory not found: " + args[0])
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Float64Var(&validateFeedback, "feedback-score", 1.0, "Feedback score in [0,1]")
	validateCmd.Flags().StringVar(&validateOutcome, "outcome", string(model.OutcomeSuccessful), "Outcome: successful, failed, partial")
	validateCmd.Flags().StringVar(&validateNotes, "notes", "", "Free-form validation notes")

	applyCmd.Flags().StringVar(&applyOutcome, "outcome", string(model.OutcomeSuccessful), "Outcome: successful, failed, partial")
	applyCmd.Flags().Float64Var(&applyFeedback, "feedback-score", 0, "Optional feedback score in [0,1]")
	applyCmd.Flags().BoolVar(&applyHasScore, "with-feedback-score", false, "Set to include --feedback-score in the recorded usage")
}
