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
	"time"
)

// DownloadRequest describes which issues to download.
type DownloadRequest struct {
	Type IssueType
	// Since limits the download to issues updated on or after this date.
	Since *time.Time
	// Org limits the download to repositories owned by this user or
	// organization. Ignored when Repos is set.
	Org   string
	Repos []string

	IncludeClosed   bool
	IncludeArchived bool
}

// Query returns the search expression for the request.
func (r DownloadRequest) Query() SearchQuery {
	q := SearchQuery{
		Type:            r.Type,
		UpdatedSince:    r.Since,
		Repos:           append([]string(nil), r.Repos...),
		IncludeClosed:   r.IncludeClosed,
		IncludeArchived: r.IncludeArchived,
	}
	if q.Type == "" {
		q.Type = IssueTypeIssue
	}
	if len(q.Repos) == 0 {
		q.User = r.Org
	}
	return q
}

// Validate checks that the request names something to search.
func (r DownloadRequest) Validate() error {
	if r.Org == "" && len(r.Repos) == 0 {
		return fmt.Errorf("either an organization or at least one repository is required")
	}
	if r.Org != "" && len(r.Repos) > 0 {
		return fmt.Errorf("organization and repositories are mutually exclusive")
	}
	switch r.Type {
	case "", IssueTypeIssue, IssueTypePR:
	default:
		return fmt.Errorf("unknown issue type %q", r.Type)
	}
	return nil
}

// Downloader downloads and deduplicates every issue matching a request.
type Downloader struct {
	engine *Engine
}

// NewDownloader creates a downloader sending its queries through exec.
func NewDownloader(exec Executor, opts Options) *Downloader {
	return &Downloader{engine: NewEngine(exec, opts)}
}

// Download returns every issue matching req, without duplicates, ordered by
// repository and number.
func (d *Downloader) Download(ctx context.Context, req DownloadRequest) ([]IssueRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	opts := d.engine.opts
	search := SearchFilter{PageSize: opts.SearchPageSize, Query: req.Query()}
	nested := NestedFilter{PageSize: opts.NestedPageSize}

	opts.Logger.Infof("Searching: %s", search.Query)
	issues, err := d.engine.SearchAll(ctx, search, nested, nested)
	if err != nil {
		return nil, err
	}

	unique := Dedupe(issues)
	if dups := len(issues) - len(unique); dups > 0 {
		opts.Logger.Debugf("Removed %d duplicate issues", dups)
	}
	SortRecords(unique)
	return unique, nil
}

// SearchAll runs search and, while the search matches more issues than a
// single search returns, runs further searches starting from the creation
// date of the last issue retrieved. The search must sort by creation date
// ascending. The pivot issue of every further search is returned again, so
// the result contains duplicates; see Dedupe.
func (e *Engine) SearchAll(ctx context.Context, search SearchFilter, labels, comments NestedFilter) ([]IssueRecord, error) {
	issues, total, err := e.Sweep(ctx, search, labels, comments)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(issues))
	sweep := 1
	added := markSeen(seen, issues)
	e.opts.Observer.OnSweep(SweepStats{
		Sweep:      sweep,
		Query:      search.Query.String(),
		TotalCount: total,
		Retrieved:  len(issues),
		Cumulative: len(issues),
		New:        added,
	})

	ceiling := e.opts.Ceiling
	// A search that exactly exhausts a multiple of the ceiling is
	// indistinguishable from a truncated one, so it is searched again.
	for total > ceiling && len(issues)%ceiling == 0 {
		if len(issues) == 0 {
			e.opts.Logger.Infof("Search matched %d issues but returned none, stopping", total)
			break
		}

		pivot := issues[len(issues)-1]
		next := search.WithAfter("").WithCreatedSince(pivot.CreatedAt)
		e.opts.Logger.Infof("Search matched %d issues, more than the %d returned by one search; searching again from %s",
			total, ceiling, pivot.CreatedAt.Format(searchDateLayout))

		batch, t, err := e.Sweep(ctx, next, labels, comments)
		if err != nil {
			return nil, err
		}
		total = t
		issues = append(issues, batch...)

		sweep++
		added := markSeen(seen, batch)
		e.opts.Observer.OnSweep(SweepStats{
			Sweep:      sweep,
			Query:      next.Query.String(),
			TotalCount: total,
			Retrieved:  len(batch),
			Cumulative: len(issues),
			New:        added,
		})

		if added == 0 {
			e.opts.Logger.Infof("Search from %s returned no new issues, stopping", pivot.CreatedAt.Format(searchDateLayout))
			break
		}
	}

	return issues, nil
}

func markSeen(seen map[string]struct{}, issues []IssueRecord) int {
	added := 0
	for _, rec := range issues {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		added++
	}
	return added
}
