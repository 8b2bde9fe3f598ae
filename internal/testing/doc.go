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

// Package testing provides shared test helpers for agent memory core
// integration tests.
//
// # Quick Start
//
// Use SetupTestGraph to create an in-memory embedded graph.Store with
// schema already initialized:
//
//	func TestMyFeature(t *testing.T) {
//	    g := testing.SetupTestGraph(t)
//
//	    testing.InsertTestMemory(t, g, "mem-1", "builder", "proj-1", "learned something", 0.8)
//
//	    memories := testing.QueryMemories(t, g)
//	    require.Len(t, memories, 1)
//	}
//
// # Seeding Test Data
//
//   - InsertTestMemory: add a Memory node directly
//   - InsertTestProject: add a Project node
//   - LinkTestMemories: create a RELATED_TO edge between two memories
//
// # Querying Test Data
//
//   - QueryMemories: list every Memory node currently in the store
package testing
