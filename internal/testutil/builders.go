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

package testutil

import (
	"fmt"
	"time"
)

// Issue is an issue or pull request held by a FakeSearch.
type Issue struct {
	ID          string
	Repo        string // owner/name
	Number      int
	Title       string
	Body        string
	Author      string // empty renders a null author
	State       string
	StateReason string
	PullRequest bool
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
	Labels      []string
	Comments    []string
	Reactions   []string
	Assignees   []string
}

// IssueBuilder provides a fluent API for creating test issues
type IssueBuilder struct {
	issue Issue
}

// NewIssueBuilder creates a new issue builder with defaults
func NewIssueBuilder(repo string, number int) *IssueBuilder {
	created := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, number)
	return &IssueBuilder{issue: Issue{
		ID:        fmt.Sprintf("I_%s_%d", repo, number),
		Repo:      repo,
		Number:    number,
		Title:     fmt.Sprintf("Issue %d", number),
		Body:      fmt.Sprintf("This is the body of issue %d", number),
		Author:    fmt.Sprintf("user%d", number),
		State:     "OPEN",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
	}}
}

// WithTitle sets the issue title
func (b *IssueBuilder) WithTitle(title string) *IssueBuilder {
	b.issue.Title = title
	return b
}

// WithBody sets the issue body
func (b *IssueBuilder) WithBody(body string) *IssueBuilder {
	b.issue.Body = body
	return b
}

// WithAuthor sets the issue author; an empty login simulates a deleted account
func (b *IssueBuilder) WithAuthor(author string) *IssueBuilder {
	b.issue.Author = author
	return b
}

// WithCreatedAt sets the creation time
func (b *IssueBuilder) WithCreatedAt(t time.Time) *IssueBuilder {
	b.issue.CreatedAt = t
	if b.issue.UpdatedAt.Before(t) {
		b.issue.UpdatedAt = t
	}
	return b
}

// WithUpdatedAt sets the last update time
func (b *IssueBuilder) WithUpdatedAt(t time.Time) *IssueBuilder {
	b.issue.UpdatedAt = t
	return b
}

// Closed marks the issue closed with the given reason
func (b *IssueBuilder) Closed(reason string) *IssueBuilder {
	closed := b.issue.UpdatedAt
	b.issue.State = "CLOSED"
	b.issue.StateReason = reason
	b.issue.ClosedAt = &closed
	return b
}

// AsPullRequest turns the issue into a pull request
func (b *IssueBuilder) AsPullRequest() *IssueBuilder {
	b.issue.PullRequest = true
	return b
}

// InArchivedRepo marks the issue's repository as archived
func (b *IssueBuilder) InArchivedRepo() *IssueBuilder {
	b.issue.Archived = true
	return b
}

// WithLabels adds labels named label-1..label-n
func (b *IssueBuilder) WithLabels(n int) *IssueBuilder {
	for i := 1; i <= n; i++ {
		b.issue.Labels = append(b.issue.Labels, fmt.Sprintf("label-%d", i))
	}
	return b
}

// WithLabelNames adds labels with the given names
func (b *IssueBuilder) WithLabelNames(names ...string) *IssueBuilder {
	b.issue.Labels = append(b.issue.Labels, names...)
	return b
}

// WithComments adds n comments
func (b *IssueBuilder) WithComments(n int) *IssueBuilder {
	for i := 1; i <= n; i++ {
		b.issue.Comments = append(b.issue.Comments, fmt.Sprintf("Comment %d on issue %d", i, b.issue.Number))
	}
	return b
}

// WithReactions adds reactions with the given contents, e.g. THUMBS_UP
func (b *IssueBuilder) WithReactions(contents ...string) *IssueBuilder {
	b.issue.Reactions = append(b.issue.Reactions, contents...)
	return b
}

// WithAssignees adds assignee logins
func (b *IssueBuilder) WithAssignees(logins ...string) *IssueBuilder {
	b.issue.Assignees = append(b.issue.Assignees, logins...)
	return b
}

// Build returns the issue
func (b *IssueBuilder) Build() *Issue {
	issue := b.issue
	return &issue
}

// GenerateIssues creates count open issues in repo numbered from 1, each
// created one day after the previous one starting at start.
func GenerateIssues(repo string, count int, start time.Time) []*Issue {
	issues := make([]*Issue, 0, count)
	for i := 0; i < count; i++ {
		created := start.AddDate(0, 0, i)
		issues = append(issues, NewIssueBuilder(repo, i+1).
			WithCreatedAt(created).
			WithUpdatedAt(created.Add(time.Hour)).
			Build())
	}
	return issues
}
