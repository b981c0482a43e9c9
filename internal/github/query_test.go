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
	"strings"
	"testing"
	"time"

	"github.com/graphql-go/graphql/language/parser"
	"github.com/vikahl/issue-downloader/internal/github"
	"github.com/vikahl/issue-downloader/internal/testutil"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSearchQueryString(t *testing.T) {
	tests := []struct {
		name  string
		query github.SearchQuery
		want  string
	}{
		{
			name:  "defaults",
			query: github.SearchQuery{Type: github.IssueTypeIssue},
			want:  "is:issue sort:created-asc is:open archived:false",
		},
		{
			name: "org with date",
			query: github.SearchQuery{
				Type:         github.IssueTypeIssue,
				UpdatedSince: date("2023-04-05"),
				User:         "acme",
			},
			want: "is:issue sort:created-asc updated:>=2023-04-05 user:acme is:open archived:false",
		},
		{
			name: "pull requests in repos including closed and archived",
			query: github.SearchQuery{
				Type:            github.IssueTypePR,
				Repos:           []string{"acme/one", "acme/two"},
				IncludeClosed:   true,
				IncludeArchived: true,
			},
			want: "is:pr sort:created-asc repo:acme/one repo:acme/two",
		},
		{
			name: "narrowed by creation",
			query: github.SearchQuery{
				Type:         github.IssueTypeIssue,
				UpdatedSince: date("2023-01-01"),
				CreatedSince: date("2023-06-30"),
				Repos:        []string{"acme/one"},
			},
			want: "is:issue sort:created-asc updated:>=2023-01-01 created:>=2023-06-30 repo:acme/one is:open archived:false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearchFilterString(t *testing.T) {
	f := github.SearchFilter{PageSize: 100, Query: github.SearchQuery{Type: github.IssueTypeIssue, User: "acme"}}

	want := `first:100 type:ISSUE query:"is:issue sort:created-asc user:acme is:open archived:false"`
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	want = `first:1 after:"Y3Vyc29yOjU=" type:ISSUE query:"is:issue sort:created-asc user:acme is:open archived:false"`
	if got := f.WithPageSize(1).WithAfter("Y3Vyc29yOjU=").String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNestedFilterString(t *testing.T) {
	f := github.NestedFilter{PageSize: 10}
	if got := f.String(); got != "first:10" {
		t.Errorf("String() = %q", got)
	}
	if got := f.WithPageSize(100).WithAfter("abc").String(); got != `first:100 after:"abc"` {
		t.Errorf("String() = %q", got)
	}
}

func TestFilterDerivationDoesNotMutate(t *testing.T) {
	repos := []string{"acme/one"}
	orig := github.SearchFilter{PageSize: 100, After: "c1", Query: github.SearchQuery{Repos: repos}}

	derived := orig.WithAfter("c2").WithPageSize(1).WithCreatedSince(time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC))
	derived.Query.Repos[0] = "acme/changed"

	if orig.After != "c1" || orig.PageSize != 100 || orig.Query.CreatedSince != nil {
		t.Errorf("original filter modified: %+v", orig)
	}
	if repos[0] != "acme/one" {
		t.Errorf("original repos modified: %v", repos)
	}
	if got := derived.Query.CreatedSince.Format("2006-01-02"); got != "2024-03-04" {
		t.Errorf("CreatedSince = %s", got)
	}
}

func TestBuildQueryIsValidGraphQL(t *testing.T) {
	for _, typ := range []github.IssueType{github.IssueTypeIssue, github.IssueTypePR} {
		t.Run(string(typ), func(t *testing.T) {
			search := github.SearchFilter{PageSize: 100, After: `we"ird\cursor`, Query: github.SearchQuery{Type: typ, User: "acme"}}
			doc := github.BuildQuery(search, github.NestedFilter{PageSize: 10}, github.NestedFilter{PageSize: 10, After: "Y29tbWVudDo5"})

			if _, err := parser.Parse(parser.ParseParams{Source: doc}); err != nil {
				t.Fatalf("generated document does not parse: %v\n%s", err, doc)
			}

			args, err := testutil.SearchArguments(doc)
			if err != nil {
				t.Fatalf("SearchArguments() error = %v", err)
			}
			if args["after"] != `we"ird\cursor` {
				t.Errorf("after = %q", args["after"])
			}
			if args["first"] != 100 || args["type"] != "ISSUE" {
				t.Errorf("search args = %v", args)
			}
			if args["query"] != search.Query.String() {
				t.Errorf("query = %q, want %q", args["query"], search.Query.String())
			}

			comments, err := testutil.NestedArguments(doc, "comments")
			if err != nil {
				t.Fatalf("NestedArguments() error = %v", err)
			}
			if comments["after"] != "Y29tbWVudDo5" || comments["first"] != 10 {
				t.Errorf("comments args = %v", comments)
			}

			hasStateReason := strings.Contains(doc, "stateReason")
			if hasStateReason != (typ == github.IssueTypeIssue) {
				t.Errorf("stateReason selected = %v for %s", hasStateReason, typ)
			}
		})
	}
}

func TestBuildQueryDeterministic(t *testing.T) {
	newSearch := func() github.SearchFilter {
		return github.SearchFilter{PageSize: 50, Query: github.SearchQuery{Type: github.IssueTypeIssue, Repos: []string{"acme/one"}}}
	}
	nested := github.NestedFilter{PageSize: 10}

	a := github.BuildQuery(newSearch(), nested, nested)
	b := github.BuildQuery(newSearch(), nested, nested)
	if a != b {
		t.Error("equal filters rendered different documents")
	}

	c := github.BuildQuery(newSearch().WithAfter("Y3Vyc29yOjQ5"), nested, nested)
	if c == a {
		t.Error("cursor did not change the document")
	}
	if !strings.Contains(c, `after:"Y3Vyc29yOjQ5"`) {
		t.Errorf("document does not contain the quoted cursor:\n%s", c)
	}
	if strings.Contains(a, "after:") {
		t.Error("document without cursor contains an after argument")
	}
}

func TestBuildQueryDistinguishesCollections(t *testing.T) {
	search := github.SearchFilter{PageSize: 1, Query: github.SearchQuery{Type: github.IssueTypeIssue}}
	inline := github.NestedFilter{PageSize: 10}
	overflow := github.NestedFilter{PageSize: 100, After: "x"}

	labelsDoc := github.BuildQuery(search, overflow, inline)
	commentsDoc := github.BuildQuery(search, inline, overflow)
	if labelsDoc == commentsDoc {
		t.Fatal("label and comment overflow documents are identical")
	}

	labels, err := testutil.NestedArguments(labelsDoc, "labels")
	if err != nil {
		t.Fatal(err)
	}
	if labels["first"] != 100 || labels["after"] != "x" {
		t.Errorf("labels args = %v", labels)
	}
}

func TestParseIssueType(t *testing.T) {
	tests := []struct {
		in      string
		want    github.IssueType
		wantErr bool
	}{
		{"issue", github.IssueTypeIssue, false},
		{"ISSUE", github.IssueTypeIssue, false},
		{"", github.IssueTypeIssue, false},
		{"pr", github.IssueTypePR, false},
		{"PR", github.IssueTypePR, false},
		{"pull-request", github.IssueTypePR, false},
		{"discussion", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := github.ParseIssueType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIssueType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseIssueType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
