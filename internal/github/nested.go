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

// collection describes one nested connection of an issue.
type collection[T any] struct {
	kind RequestKind
	// page extracts the connection from an issue node.
	page func(IssueNode) Connection[T]
	// query builds a document requesting the connection with the given
	// filter while the search is pinned to a single issue.
	query func(pinned SearchFilter, nested NestedFilter) string
}

// resolveNested returns every node of a nested connection of node. The first
// page is the one returned inline. Further pages are fetched by re-running
// the search pinned to this single issue, so that only one issue's nested
// pages count against the per-request node limit.
func resolveNested[T any](ctx context.Context, e *Engine, c collection[T], node IssueNode, pinned SearchFilter, inline NestedFilter) ([]T, error) {
	conn := c.page(node)
	items := conn.Nodes()
	filter := inline

	for conn.PageInfo.HasNextPage {
		cursor := conn.PageInfo.Cursor()
		if cursor == "" || cursor == filter.After {
			return nil, &dlerrors.ProtocolError{
				Reason: fmt.Sprintf("%s of issue %s report another page without advancing the cursor", c.kind, node.ID),
			}
		}
		filter = filter.WithPageSize(e.opts.OverflowPageSize).WithAfter(cursor)

		e.opts.Logger.Debugf("Fetching more %s for %s#%d after %s", c.kind, node.Repository.NameWithOwner, node.Number, cursor)
		e.opts.Observer.OnRequest(c.kind)
		result, err := e.exec.Execute(ctx, c.query(pinned, filter))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s of %s#%d: %w", c.kind, node.Repository.NameWithOwner, node.Number, err)
		}

		next, err := e.pinnedNode(result, node)
		if err != nil {
			return nil, err
		}
		conn = c.page(next)
		items = append(items, conn.Nodes()...)
	}

	return items, nil
}

// pinnedNode returns the issue of a single-issue re-query. Only the first
// edge is read, and it must be the issue being resolved.
func (e *Engine) pinnedNode(result *SearchResult, want IssueNode) (IssueNode, error) {
	if len(result.Edges) == 0 {
		return IssueNode{}, &dlerrors.ProtocolError{
			Reason: fmt.Sprintf("single issue query for %s returned no issue", want.ID),
		}
	}
	if len(result.Edges) > 1 {
		e.opts.Logger.Debugf("Single issue query for %s returned %d issues, using the first", want.ID, len(result.Edges))
	}
	got := result.Edges[0].Node
	if got.ID != want.ID {
		return IssueNode{}, &dlerrors.ProtocolError{
			Reason: fmt.Sprintf("single issue query for %s returned issue %s", want.ID, got.ID),
		}
	}
	return got, nil
}

// resolveIssue fetches the remaining labels and comments of node and converts
// it to a record. anchor is the cursor of the edge preceding node in its
// search page.
func (e *Engine) resolveIssue(ctx context.Context, search SearchFilter, anchor string, node IssueNode, labels, comments NestedFilter) (IssueRecord, error) {
	pinned := search.WithPageSize(1).WithAfter(anchor)

	labelNodes, err := resolveNested(ctx, e, collection[LabelNode]{
		kind: RequestLabels,
		page: func(n IssueNode) Connection[LabelNode] { return n.Labels },
		query: func(s SearchFilter, f NestedFilter) string {
			return BuildQuery(s, f, comments)
		},
	}, node, pinned, labels)
	if err != nil {
		return IssueRecord{}, err
	}

	commentNodes, err := resolveNested(ctx, e, collection[CommentNode]{
		kind: RequestComments,
		page: func(n IssueNode) Connection[CommentNode] { return n.Comments },
		query: func(s SearchFilter, f NestedFilter) string {
			return BuildQuery(s, labels, f)
		},
	}, node, pinned, comments)
	if err != nil {
		return IssueRecord{}, err
	}

	return toRecord(node, labelNodes, commentNodes), nil
}
