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

package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
)

// ListProjects returns the project ids discovered under dataDir — the
// leaf directory names of ~/.agentmem/data, each one an embedded
// backend's snapshot for one project (config.Config.EmbeddedDataDir with
// its trailing project id segment stripped). Used by the CLI's project
// discovery command; the remote backend has no equivalent concept since
// Neo4j already multiplexes projects within one graph.
func ListProjects(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bootstrap: read data dir %s: %w", dataDir, err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	return projects, nil
}

// DefaultDataDir returns ~/.agentmem/data, the parent of every project's
// embedded snapshot directory (config.Config.EmbeddedDataDir).
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("bootstrap: get home dir: %w", err)
	}
	return filepath.Join(home, ".agentmem", "data"), nil
}
