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

// Package bootstrap discovers embedded-backend projects on disk.
//
// Project initialization itself is handled by pkg/backend.Open (which
// picks and opens a graph.Store) together with pkg/schema (which
// initializes constraints, indexes, and seeded agent types) — this
// package only answers "what projects already have embedded data on
// this machine", for the CLI's discovery command.
//
//	dataDir, _ := bootstrap.DefaultDataDir()
//	projects, _ := bootstrap.ListProjects(dataDir)
package bootstrap
