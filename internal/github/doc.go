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

// Package github downloads issues and pull requests through GitHub's GraphQL
// search API.
//
// A search returns at most one page of issues per request, and each issue at
// most one page of labels and comments. The Engine follows search pages and,
// for every issue whose labels or comments continue past the inline page,
// re-runs the search pinned to that single issue with a larger nested page
// size. This keeps every request below GitHub's node limit, which is the
// product of the page sizes at every nesting level.
//
// GitHub returns at most 1000 results for a search. SearchAll works around
// this by starting a new search from the creation date of the last issue
// retrieved; the overlapping issue is removed by Dedupe.
//
// Basic usage:
//
//	exec, err := github.NewHTTPExecutor("https://api.github.com", token)
//	if err != nil {
//	    // Handle error
//	}
//	d := github.NewDownloader(exec, github.Options{})
//	issues, err := d.Download(ctx, github.DownloadRequest{
//	    Repos: []string{"golang/go"},
//	})
package github
