// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package state provides atomic persistence of resume dates for incremental
// downloads.
//
// A single JSON file (~/.issue-downloader.json by default) holds one entry
// per download configuration. The entry key is a SHA256 hash of the save
// directory, API URL, organization, repository list, and inclusion flags,
// so changing any of them starts a fresh download. Writes are atomic, using
// a write-to-temp-and-rename pattern, and every file carries a checksum
// and schema version that are verified on load.
//
// Example usage:
//
//	params := state.Params{SaveDir: "issues", URL: "https://api.github.com/", Org: "kubernetes"}
//	since, err := state.LoadResume(state.DefaultStateFile(), params)
//	// ... download issues updated since *since ...
//	err = state.SaveResume(state.DefaultStateFile(), params, time.Now())
package state
