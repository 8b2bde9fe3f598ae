// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"io"
	"os"
	"strings"
	"testing"
)

// runCapture executes rootCmd with the given args, capturing whatever it
// writes to the real os.Stdout — the command paths here (fmt.Printf, the
// ui helpers, output.JSON) write there directly, and status --json's
// cmd.OutOrStdout falls back to os.Stdout since no writer is set.
func runCapture(t *testing.T, args ...string) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = orig
	out, _ := io.ReadAll(r)

	if execErr != nil {
		t.Fatalf("execute %v: %v", args, execErr)
	}
	return string(out)
}

func TestRememberThenRecallRoundTrips(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "embedded")
	t.Setenv("AMPLIHACK_PROJECT_ID", "cli-test")
	t.Setenv("HOME", t.TempDir())

	runCapture(t, "remember", "always run tests before committing", "--tags", "testing,discipline", "--confidence", "1.0")
	out := runCapture(t, "recall", "--tags", "testing", "--min-quality", "0")
	if !strings.Contains(out, "always run tests before committing") {
		t.Fatalf("expected recall to surface the remembered content, got: %s", out)
	}
}

func TestStatusReportsEmbeddedBackend(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "embedded")
	t.Setenv("AMPLIHACK_PROJECT_ID", "cli-test-status")
	t.Setenv("HOME", t.TempDir())

	out := runCapture(t, "status")
	if !strings.Contains(out, "embedded") {
		t.Fatalf("expected status to report the embedded backend, got: %s", out)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "embedded")
	t.Setenv("AMPLIHACK_PROJECT_ID", "cli-test-init")
	t.Setenv("HOME", t.TempDir())

	for i := 0; i < 2; i++ {
		runCapture(t, "init")
	}
}
