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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"
)

// IssueType selects whether a search returns issues or pull requests.
type IssueType string

const (
	IssueTypeIssue IssueType = "ISSUE"
	IssueTypePR    IssueType = "PR"
)

// ParseIssueType parses a user supplied issue type such as "issue" or "pr".
func ParseIssueType(s string) (IssueType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ISSUE", "ISSUES":
		return IssueTypeIssue, nil
	case "PR", "PRS", "PULL-REQUEST", "PULL_REQUEST":
		return IssueTypePR, nil
	}
	return "", fmt.Errorf("unknown issue type %q, expected issue or pr", s)
}

func (t IssueType) qualifier() string {
	if t == IssueTypePR {
		return "is:pr"
	}
	return "is:issue"
}

func (t IssueType) typeCondition() string {
	if t == IssueTypePR {
		return "... on PullRequest"
	}
	return "... on Issue"
}

// searchDateLayout is the date format accepted by GitHub's search qualifiers.
const searchDateLayout = "2006-01-02"

// SearchQuery is the search expression placed in the query argument of a
// search. It always sorts by creation date ascending, which the result
// ceiling workaround depends on.
type SearchQuery struct {
	Type IssueType

	// UpdatedSince limits results to items updated on or after this date.
	UpdatedSince *time.Time
	// CreatedSince limits results to items created on or after this date.
	CreatedSince *time.Time

	Repos []string
	User  string

	IncludeClosed   bool
	IncludeArchived bool
}

// String renders the query in GitHub's search grammar.
func (q SearchQuery) String() string {
	parts := []string{q.Type.qualifier(), "sort:created-asc"}

	if q.UpdatedSince != nil {
		parts = append(parts, "updated:>="+q.UpdatedSince.Format(searchDateLayout))
	}
	if q.CreatedSince != nil {
		parts = append(parts, "created:>="+q.CreatedSince.Format(searchDateLayout))
	}
	for _, r := range q.Repos {
		parts = append(parts, "repo:"+r)
	}
	if q.User != "" {
		parts = append(parts, "user:"+q.User)
	}
	if !q.IncludeClosed {
		parts = append(parts, "is:open")
	}
	if !q.IncludeArchived {
		parts = append(parts, "archived:false")
	}

	return strings.Join(parts, " ")
}

// SearchFilter holds the arguments of the top level search field. Values are
// never modified in place; the With* methods return adjusted copies.
type SearchFilter struct {
	PageSize int
	After    string
	Query    SearchQuery
}

// String renders the filter as GraphQL field arguments.
func (f SearchFilter) String() string {
	parts := []string{fmt.Sprintf("first:%d", f.PageSize)}
	if f.After != "" {
		parts = append(parts, "after:"+quote(f.After))
	}
	// Pull requests are found through the ISSUE search type with is:pr.
	parts = append(parts, "type:"+string(githubv4.SearchTypeIssue))
	parts = append(parts, "query:"+quote(f.Query.String()))
	return strings.Join(parts, " ")
}

// WithAfter returns a copy of f that resumes after cursor.
func (f SearchFilter) WithAfter(cursor string) SearchFilter {
	f.After = cursor
	return f
}

// WithPageSize returns a copy of f requesting n items per page.
func (f SearchFilter) WithPageSize(n int) SearchFilter {
	f.PageSize = n
	return f
}

// WithCreatedSince returns a copy of f whose query only matches items created
// on or after date.
func (f SearchFilter) WithCreatedSince(date time.Time) SearchFilter {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	f.Query.CreatedSince = &d
	f.Query.Repos = append([]string(nil), f.Query.Repos...)
	return f
}

// NestedFilter holds the arguments of a nested connection (labels or
// comments) of one issue.
type NestedFilter struct {
	PageSize int
	After    string
}

// String renders the filter as GraphQL field arguments.
func (f NestedFilter) String() string {
	if f.After == "" {
		return fmt.Sprintf("first:%d", f.PageSize)
	}
	return fmt.Sprintf("first:%d after:%s", f.PageSize, quote(f.After))
}

// WithAfter returns a copy of f that resumes after cursor.
func (f NestedFilter) WithAfter(cursor string) NestedFilter {
	f.After = cursor
	return f
}

// WithPageSize returns a copy of f requesting n items per page.
func (f NestedFilter) WithPageSize(n int) NestedFilter {
	f.PageSize = n
	return f
}

// quote renders s as a GraphQL string literal. GraphQL string escapes are a
// subset of JSON's, so the JSON encoding is a valid literal.
func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshalling a string cannot fail.
		panic(err)
	}
	return string(b)
}

// Repository identifies the repository an issue belongs to.
type Repository struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Owner         string     `json:"owner"`
	NameWithOwner string     `json:"name_with_owner"`
	IsArchived    bool       `json:"is_archived"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
}

// Reaction is an emoji reaction left by a user.
type Reaction struct {
	Content string `json:"content"`
	User    string `json:"user"`
}

// Label is a label attached to an issue.
type Label struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (l Label) String() string {
	if l.Description != "" {
		return fmt.Sprintf("%s (%s)", l.Name, l.Description)
	}
	return l.Name
}

// Comment is a comment on an issue together with its first page of reactions.
type Comment struct {
	ID        string     `json:"id"`
	Body      string     `json:"body"`
	Author    string     `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
	Reactions []Reaction `json:"reactions,omitempty"`
}

// IssueRecord is a fully resolved issue: every label and comment page has
// been fetched. Two records describe the same issue iff their ID is equal.
type IssueRecord struct {
	ID          string     `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Body        string     `json:"body"`
	Author      string     `json:"author"`
	Repository  Repository `json:"repository"`
	State       string     `json:"state"`
	StateReason string     `json:"state_reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	Assignees   []string   `json:"assignees,omitempty"`
	Labels      []Label    `json:"labels,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
	Reactions   []Reaction `json:"reactions,omitempty"`
}

// RequestKind tells observers what a request was issued for.
type RequestKind string

const (
	RequestSearch   RequestKind = "search"
	RequestLabels   RequestKind = "labels"
	RequestComments RequestKind = "comments"
)
