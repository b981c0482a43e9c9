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

package github_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dlerrors "github.com/vikahl/issue-downloader/internal/errors"
	"github.com/vikahl/issue-downloader/internal/github"
	"github.com/vikahl/issue-downloader/internal/testutil"
)

type recorder struct {
	requests map[github.RequestKind]int
	issues   int
	sweeps   []github.SweepStats
}

func newRecorder() *recorder {
	return &recorder{requests: make(map[github.RequestKind]int)}
}

func (r *recorder) OnRequest(kind github.RequestKind) { r.requests[kind]++ }
func (r *recorder) OnIssue(github.IssueRecord)        { r.issues++ }
func (r *recorder) OnSweep(s github.SweepStats)       { r.sweeps = append(r.sweeps, s) }

var start = time.Date(2015, 1, 1, 12, 0, 0, 0, time.UTC)

func download(t *testing.T, exec github.Executor, opts github.Options, repos ...string) ([]github.IssueRecord, error) {
	t.Helper()
	d := github.NewDownloader(exec, opts)
	return d.Download(context.Background(), github.DownloadRequest{Repos: repos})
}

func TestNestedLabelsResolveCompletely(t *testing.T) {
	issue := testutil.NewIssueBuilder("acme/widgets", 1).WithLabels(23).Build()
	fake := testutil.NewFakeSearch(issue)

	issues, err := download(t, fake, github.Options{}, "acme/widgets")
	require.NoError(t, err)
	require.Len(t, issues, 1)

	names := make(map[string]bool)
	for _, l := range issues[0].Labels {
		names[l.Name] = true
	}
	assert.Len(t, issues[0].Labels, 23)
	assert.Len(t, names, 23)

	// The inline page and one overflow page, nothing after the last page.
	require.Equal(t, 2, fake.RequestCount())

	search, err := testutil.SearchArguments(fake.Queries[1])
	require.NoError(t, err)
	assert.Equal(t, 1, search["first"])
	assert.NotContains(t, search, "after")

	labels, err := testutil.NestedArguments(fake.Queries[1], "labels")
	require.NoError(t, err)
	assert.Equal(t, 100, labels["first"])
	assert.Equal(t, testutil.Cursor("label", 9), labels["after"])

	comments, err := testutil.NestedArguments(fake.Queries[1], "comments")
	require.NoError(t, err)
	assert.Equal(t, 10, comments["first"])
}

func TestNestedOverflowAnchorsOnPrecedingCursor(t *testing.T) {
	issues := testutil.GenerateIssues("acme/widgets", 3, start)
	issues[1].Labels = testutil.NewIssueBuilder("acme/widgets", 2).WithLabels(12).Build().Labels
	issues[2].Comments = testutil.NewIssueBuilder("acme/widgets", 3).WithComments(25).Build().Comments
	fake := testutil.NewFakeSearch(issues...)
	rec := newRecorder()

	got, err := download(t, fake, github.Options{SearchPageSize: 2, Observer: rec}, "acme/widgets")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Len(t, got[1].Labels, 12)
	assert.Len(t, got[2].Comments, 25)

	// page 1, labels of issue 2, page 2, comments of issue 3
	require.Len(t, fake.Queries, 4)
	assert.Equal(t, 2, rec.requests[github.RequestSearch])
	assert.Equal(t, 1, rec.requests[github.RequestLabels])
	assert.Equal(t, 1, rec.requests[github.RequestComments])

	// Second edge of page 1: anchored on the first edge.
	pinned, err := testutil.SearchArguments(fake.Queries[1])
	require.NoError(t, err)
	assert.Equal(t, 1, pinned["first"])
	assert.Equal(t, testutil.Cursor("search", 0), pinned["after"])

	// First edge of page 2: anchored on the cursor the page started after.
	pinned, err = testutil.SearchArguments(fake.Queries[3])
	require.NoError(t, err)
	assert.Equal(t, 1, pinned["first"])
	assert.Equal(t, testutil.Cursor("search", 1), pinned["after"])

	comments, err := testutil.NestedArguments(fake.Queries[3], "comments")
	require.NoError(t, err)
	assert.Equal(t, testutil.Cursor("comment", 9), comments["after"])
}

func TestCommentsSpanningSeveralOverflowPages(t *testing.T) {
	issue := testutil.NewIssueBuilder("acme/widgets", 7).WithComments(215).Build()
	fake := testutil.NewFakeSearch(issue)

	got, err := download(t, fake, github.Options{}, "acme/widgets")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Comments, 215)
	// 10 inline, then 100, 100 and 5
	assert.Equal(t, 4, fake.RequestCount())
	assert.Equal(t, "Comment 215 on issue 7", got[0].Comments[214].Body)
}

func labelConn(hasNext bool, names ...string) github.Connection[github.LabelNode] {
	c := github.Connection[github.LabelNode]{PageInfo: github.PageInfo{HasNextPage: githubv4.Boolean(hasNext)}}
	for _, n := range names {
		c.Edges = append(c.Edges, github.Edge[github.LabelNode]{
			Cursor: githubv4.String("c-" + n),
			Node:   github.LabelNode{ID: githubv4.String("L-" + n), Name: githubv4.String(n)},
		})
	}
	if len(names) > 0 {
		c.PageInfo.EndCursor = githubv4.NewString(githubv4.String("c-" + names[len(names)-1]))
	}
	return c
}

func issueNode(id string, number int, labels github.Connection[github.LabelNode]) github.IssueNode {
	return github.IssueNode{
		ID:         githubv4.String(id),
		Number:     githubv4.Int(number),
		Title:      githubv4.String("Issue " + id),
		State:      "OPEN",
		CreatedAt:  githubv4.DateTime{Time: start},
		UpdatedAt:  githubv4.DateTime{Time: start},
		Repository: github.RepositoryNode{Name: "one", NameWithOwner: "acme/one", Owner: github.Actor{Login: "acme"}},
		Labels:     labels,
	}
}

func page(count int, hasNext bool, end string, nodes ...github.IssueNode) *github.SearchResult {
	r := &github.SearchResult{IssueCount: githubv4.Int(count), PageInfo: github.PageInfo{HasNextPage: githubv4.Boolean(hasNext)}}
	if end != "" {
		r.PageInfo.EndCursor = githubv4.NewString(githubv4.String(end))
	}
	for i, n := range nodes {
		r.Edges = append(r.Edges, github.Edge[github.IssueNode]{Cursor: githubv4.String(fmt.Sprintf("s%d", i)), Node: n})
	}
	return r
}

func TestPinnedQueryReadsOnlyFirstEdge(t *testing.T) {
	exec := github.NewMockExecutor(github.WithResults(
		page(1, false, "s0", issueNode("A", 1, labelConn(true, "a", "b"))),
		page(1, true, "s1",
			issueNode("A", 1, labelConn(false, "c")),
			issueNode("B", 2, labelConn(false, "x", "y", "z")),
		),
	))

	got, err := download(t, exec, github.Options{}, "acme/one")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].ID)

	var names []string
	for _, l := range got[0].Labels {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, 2, exec.CallCount)
}

func TestPinnedQueryContractViolations(t *testing.T) {
	tests := []struct {
		name    string
		requery *github.SearchResult
	}{
		{"different issue", page(1, false, "s0", issueNode("B", 2, labelConn(false, "x")))},
		{"no issue", page(0, false, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := github.NewMockExecutor(github.WithResults(
				page(1, false, "s0", issueNode("A", 1, labelConn(true, "a"))),
				tt.requery,
			))

			got, err := download(t, exec, github.Options{}, "acme/one")
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, dlerrors.IsProtocol(err), "got %v", err)
		})
	}
}

func TestSweepTotalCountFromFirstPage(t *testing.T) {
	exec := github.NewMockExecutor(github.WithResults(
		page(5, true, "s0", issueNode("A", 1, labelConn(false))),
		page(99, false, "s0", issueNode("B", 2, labelConn(false))),
	))
	engine := github.NewEngine(exec, github.Options{})

	issues, total, err := engine.Sweep(context.Background(),
		github.SearchFilter{PageSize: 1, Query: github.SearchQuery{Type: github.IssueTypeIssue}},
		github.NestedFilter{PageSize: 10}, github.NestedFilter{PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	assert.Equal(t, 5, total)

	args, err := testutil.SearchArguments(exec.Queries[1])
	require.NoError(t, err)
	assert.Equal(t, "s0", args["after"])
}

func TestSweepRejectsStuckCursor(t *testing.T) {
	exec := github.NewMockExecutor(github.WithResults(
		page(2, true, "", issueNode("A", 1, labelConn(false))),
	))

	got, err := download(t, exec, github.Options{}, "acme/one")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, dlerrors.IsProtocol(err))
}

func TestSearchCapWorkaround(t *testing.T) {
	fake := testutil.NewFakeSearch(testutil.GenerateIssues("acme/widgets", 2500, start)...)
	rec := newRecorder()

	got, err := download(t, fake, github.Options{Observer: rec}, "acme/widgets")
	require.NoError(t, err)

	require.Len(t, rec.sweeps, 3)
	assert.Equal(t, 2500, rec.sweeps[0].TotalCount)
	assert.Equal(t, 1000, rec.sweeps[0].Retrieved)
	assert.Equal(t, 1501, rec.sweeps[1].TotalCount)
	assert.Equal(t, 1000, rec.sweeps[1].Retrieved)
	assert.Equal(t, 999, rec.sweeps[1].New)
	assert.Equal(t, 502, rec.sweeps[2].TotalCount)
	assert.Equal(t, 502, rec.sweeps[2].Retrieved)
	assert.Equal(t, 2502, rec.sweeps[2].Cumulative)

	// Each further sweep starts at the creation date of the last issue so far.
	assert.Contains(t, rec.sweeps[1].Query, "created:>="+start.AddDate(0, 0, 999).Format("2006-01-02"))
	assert.Contains(t, rec.sweeps[2].Query, "created:>="+start.AddDate(0, 0, 1998).Format("2006-01-02"))

	// Two overlapping issues were removed.
	require.Len(t, got, 2500)
	assert.Equal(t, 2502, rec.issues)
	for i, issue := range got {
		require.Equal(t, i+1, issue.Number)
	}

	// 10 + 10 + 6 search pages and no nested queries.
	assert.Equal(t, 26, rec.requests[github.RequestSearch])
	assert.Equal(t, 26, fake.RequestCount())
}

func TestNoExtraSweepBelowCeiling(t *testing.T) {
	fake := testutil.NewFakeSearch(testutil.GenerateIssues("acme/widgets", 150, start)...)
	rec := newRecorder()

	got, err := download(t, fake, github.Options{Observer: rec}, "acme/widgets")
	require.NoError(t, err)
	assert.Len(t, got, 150)
	assert.Len(t, rec.sweeps, 1)
	assert.Equal(t, 2, fake.RequestCount())
	for _, q := range fake.Queries {
		assert.NotContains(t, q, "created:>=")
	}
}

func TestCeilingWorkaroundWithSmallCeiling(t *testing.T) {
	fake := testutil.NewFakeSearch(testutil.GenerateIssues("acme/widgets", 20, start)...)
	fake.Ceiling = 10
	rec := newRecorder()

	got, err := download(t, fake, github.Options{Ceiling: 10, SearchPageSize: 5, Observer: rec}, "acme/widgets")
	require.NoError(t, err)
	assert.Len(t, got, 20)

	// 10 of 20, then 10 of 11 from issue 10, then 2 of 2 from issue 19.
	require.Len(t, rec.sweeps, 3)
	assert.Equal(t, []int{20, 11, 2}, []int{rec.sweeps[0].TotalCount, rec.sweeps[1].TotalCount, rec.sweeps[2].TotalCount})
	assert.Equal(t, 2, rec.sweeps[2].Retrieved)
	assert.Equal(t, 1, rec.sweeps[2].New)
	assert.Equal(t, 22, rec.sweeps[2].Cumulative)
}

func TestExactCeilingSearchesAgain(t *testing.T) {
	// A search reporting more matches than it returns, whose retrieved count
	// is a multiple of the ceiling, is searched again even when the next
	// search only repeats the last issue.
	exec := github.NewMockExecutor(
		github.WithResults(
			page(3, false, "s1", issueNode("A", 1, labelConn(false)), issueNode("B", 2, labelConn(false))),
			page(1, false, "s0", issueNode("B", 2, labelConn(false))),
		),
	)
	rec := newRecorder()

	got, err := download(t, exec, github.Options{Ceiling: 2, Observer: rec}, "acme/one")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, rec.sweeps, 2)
	assert.Equal(t, 0, rec.sweeps[1].New)
	assert.Equal(t, 2, exec.CallCount)
}

func TestSweepStopsWhenNarrowingCannotAdvance(t *testing.T) {
	// All issues were created on the same day, so narrowing by date returns
	// the same issues again.
	issues := testutil.GenerateIssues("acme/widgets", 30, start)
	for _, issue := range issues {
		issue.CreatedAt = start
	}
	fake := testutil.NewFakeSearch(issues...)
	fake.Ceiling = 10
	rec := newRecorder()

	got, err := download(t, fake, github.Options{Ceiling: 10, SearchPageSize: 10, Observer: rec}, "acme/widgets")
	require.NoError(t, err)
	assert.Len(t, got, 10)
	require.Len(t, rec.sweeps, 2)
	assert.Equal(t, 0, rec.sweeps[1].New)
}

func TestFailurePropagation(t *testing.T) {
	t.Run("executor error mid sweep", func(t *testing.T) {
		fake := testutil.NewFakeSearch(testutil.GenerateIssues("acme/widgets", 250, start)...)
		calls := 0
		exec := github.NewMockExecutor(github.WithHandler(func(query string) (*github.SearchResult, error) {
			calls++
			if calls == 3 {
				return nil, &dlerrors.TransportError{StatusCode: http.StatusBadGateway, Body: "Bad Gateway"}
			}
			return fake.Execute(context.Background(), query)
		}))

		got, err := download(t, exec, github.Options{}, "acme/widgets")
		require.Error(t, err)
		assert.Nil(t, got)
		assert.True(t, dlerrors.IsTransport(err))
	})

	tests := []struct {
		name   string
		server func(t *testing.T) *testutil.MockServer
		check  func(error) bool
	}{
		{"http 500", func(t *testing.T) *testutil.MockServer { return testutil.NewErrorServer(t, http.StatusInternalServerError) }, dlerrors.IsTransport},
		{"errors array", func(t *testing.T) *testutil.MockServer {
			return testutil.NewGraphQLErrorServer(t, "Something went wrong", "INTERNAL")
		}, dlerrors.IsAPI},
		{"undecodable body", func(t *testing.T) *testutil.MockServer { return testutil.NewRawServer(t, `{"data": {"search": `) }, dlerrors.IsProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := tt.server(t)
			exec, err := github.NewHTTPExecutor(server.URL, "token")
			require.NoError(t, err)

			got, err := download(t, exec, github.Options{}, "acme/widgets")
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, tt.check(err), "got %v", err)
			assert.Equal(t, 1, server.RequestCount())
		})
	}
}

func TestDownloadOverHTTP(t *testing.T) {
	issues := []*testutil.Issue{
		testutil.NewIssueBuilder("acme/one", 2).WithLabels(15).WithComments(12).WithReactions("HEART", "ROCKET").Build(),
		testutil.NewIssueBuilder("acme/one", 1).WithBody("line one\r\nline two").WithAuthor("").Build(),
		testutil.NewIssueBuilder("acme/two", 3).Closed("COMPLETED").Build(),
		testutil.NewIssueBuilder("other/repo", 4).Build(),
		testutil.NewIssueBuilder("acme/old", 5).InArchivedRepo().Build(),
		testutil.NewIssueBuilder("acme/one", 6).AsPullRequest().Build(),
	}
	fake := testutil.NewFakeSearch(issues...)
	server := testutil.NewSearchServer(t, fake, "secret")

	exec, err := github.NewHTTPExecutor(server.URL, "secret")
	require.NoError(t, err)
	d := github.NewDownloader(exec, github.Options{})

	got, err := d.Download(context.Background(), github.DownloadRequest{
		Org:           "acme",
		IncludeClosed: true,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "acme/one", got[0].Repository.NameWithOwner)
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, "line one\nline two", got[0].Body)
	assert.Equal(t, "", got[0].Author)

	assert.Equal(t, 2, got[1].Number)
	assert.Len(t, got[1].Labels, 15)
	assert.Len(t, got[1].Comments, 12)
	assert.Equal(t, []github.Reaction{{Content: "❤️", User: "reactor"}, {Content: "🚀", User: "reactor"}}, got[1].Reactions)
	assert.Equal(t, "https://github.com/acme/one/issues/2", got[1].URL)

	assert.Equal(t, "acme/two", got[2].Repository.NameWithOwner)
	assert.Equal(t, "CLOSED", got[2].State)
	assert.Equal(t, "COMPLETED", got[2].StateReason)
	require.NotNil(t, got[2].ClosedAt)

	// one page, one labels overflow, one comments overflow
	assert.Equal(t, 3, server.RequestCount())
}

func TestDownloadPullRequests(t *testing.T) {
	fake := testutil.NewFakeSearch(
		testutil.NewIssueBuilder("acme/one", 1).Build(),
		testutil.NewIssueBuilder("acme/one", 2).AsPullRequest().WithComments(11).Build(),
	)

	d := github.NewDownloader(fake, github.Options{})
	got, err := d.Download(context.Background(), github.DownloadRequest{Type: github.IssueTypePR, Repos: []string{"acme/one"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Number)
	assert.Len(t, got[0].Comments, 11)
	for _, q := range fake.Queries {
		assert.True(t, strings.Contains(q, "... on PullRequest"))
		assert.NotContains(t, q, "stateReason")
	}
}

func TestDownloadRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     github.DownloadRequest
		wantErr bool
	}{
		{"org", github.DownloadRequest{Org: "acme"}, false},
		{"repos", github.DownloadRequest{Repos: []string{"acme/one"}}, false},
		{"nothing", github.DownloadRequest{}, true},
		{"both", github.DownloadRequest{Org: "acme", Repos: []string{"acme/one"}}, true},
		{"bad type", github.DownloadRequest{Org: "acme", Type: "DISCUSSION"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() = %v", err)
		})
	}
}

func TestDownloadCanceled(t *testing.T) {
	exec := github.NewMockExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := github.NewDownloader(exec, github.Options{})
	_, err := d.Download(ctx, github.DownloadRequest{Org: "acme"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSweepRejectsEdgeWithoutIssue(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null node", `{"data":{"search":{"issueCount":1,"pageInfo":{"hasNextPage":false,"endCursor":"a"},"edges":[{"cursor":"a","node":null}]}}}`},
		{"empty node", `{"data":{"search":{"issueCount":1,"pageInfo":{"hasNextPage":false,"endCursor":"b"},"edges":[{"cursor":"b","node":{}}]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewRawServer(t, tt.body)
			exec, err := github.NewHTTPExecutor(server.URL, "token")
			require.NoError(t, err)

			got, err := download(t, exec, github.Options{}, "acme/one")
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, dlerrors.IsProtocol(err), "got %v", err)
		})
	}
}

func TestMockExecutorFailures(t *testing.T) {
	tests := []struct {
		name     string
		opt      github.MockExecutorOption
		sentinel error
		check    func(error) bool
	}{
		{"auth failure", github.WithAuthFailure(), dlerrors.ErrInvalidToken, dlerrors.IsTransport},
		{"network failure", github.WithNetworkFailure(), dlerrors.ErrNetworkFailure, dlerrors.IsTransport},
		{"scripted error", github.WithError(&dlerrors.ProtocolError{Reason: "truncated"}), nil, dlerrors.IsProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := github.NewMockExecutor(tt.opt)

			got, err := download(t, exec, github.Options{}, "acme/one")
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, tt.check(err), "got %v", err)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Equal(t, 1, exec.CallCount)
		})
	}
}
