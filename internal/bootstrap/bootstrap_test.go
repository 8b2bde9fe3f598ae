// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListProjectsReturnsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"proj-a", "proj-b"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "not-a-project.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	projects, err := ListProjects(dir)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %v", projects)
	}
}

func TestListProjectsReturnsEmptyForMissingDir(t *testing.T) {
	projects, err := ListProjects(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
	if projects != nil {
		t.Fatalf("expected nil projects, got %v", projects)
	}
}
