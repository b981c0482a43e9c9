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

package github

import (
	"context"
	"fmt"

	dlerrors "github.com/vikahl/issue-downloader/internal/errors"
)

// Engine runs searches through an Executor and resolves every issue's
// nested collections. Requests are issued strictly one at a time. An Engine
// must not be used by concurrent callers.
type Engine struct {
	exec Executor
	opts Options
}

// NewEngine creates an engine. Zero options select the defaults.
func NewEngine(exec Executor, opts Options) *Engine {
	return &Engine{
		exec: exec,
		opts: opts.withDefaults(),
	}
}

// Sweep follows the pages of one search until the last page and returns the
// resolved issues together with the match count reported on the first page.
// Any failed request aborts the sweep and no issues are returned.
func (e *Engine) Sweep(ctx context.Context, search SearchFilter, labels, comments NestedFilter) ([]IssueRecord, int, error) {
	var issues []IssueRecord
	total := -1
	filter := search

	for {
		e.opts.Observer.OnRequest(RequestSearch)
		page, err := e.exec.Execute(ctx, BuildQuery(filter, labels, comments))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch search page: %w", err)
		}

		// Later pages may report a stale count.
		if total < 0 {
			total = int(page.IssueCount)
		}

		anchor := filter.After
		for _, edge := range page.Edges {
			if edge.Node.ID == "" {
				return nil, 0, &dlerrors.ProtocolError{Reason: fmt.Sprintf("search edge %q has no issue id", edge.Cursor)}
			}
			rec, err := e.resolveIssue(ctx, filter, anchor, edge.Node, labels, comments)
			if err != nil {
				return nil, 0, err
			}
			issues = append(issues, rec)
			e.opts.Observer.OnIssue(rec)
			anchor = string(edge.Cursor)
		}

		e.opts.Logger.Debugf("Fetched %d issues (%d of %d in this search)", len(page.Edges), len(issues), total)

		if !page.PageInfo.HasNextPage {
			break
		}
		cursor := page.PageInfo.Cursor()
		if cursor == "" || cursor == filter.After {
			return nil, 0, &dlerrors.ProtocolError{Reason: "search reports another page without advancing the cursor"}
		}
		filter = filter.WithAfter(cursor)
	}

	return issues, total, nil
}
