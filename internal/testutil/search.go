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
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/vikahl/issue-downloader/internal/github"
)

// DefaultCeiling is the number of results after which FakeSearch stops
// returning more for one search, like GitHub does.
const DefaultCeiling = 1000

// FakeSearch answers search queries over a fixed set of issues. Queries are
// parsed with a GraphQL parser, so every document a test sends through it
// is also checked for syntax. Search arguments, the query expression and
// nested connection arguments are honoured.
type FakeSearch struct {
	mu sync.Mutex

	issues  []*Issue
	Ceiling int
	Viewer  string

	// Queries holds every query received, in order.
	Queries []string
}

// NewFakeSearch creates a fake search over issues.
func NewFakeSearch(issues ...*Issue) *FakeSearch {
	return &FakeSearch{
		issues:  issues,
		Ceiling: DefaultCeiling,
		Viewer:  "octocat",
	}
}

// RequestCount returns the number of queries answered so far.
func (f *FakeSearch) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Queries)
}

// Respond answers query and returns the value of the response's data field.
func (f *FakeSearch) Respond(query string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, query)

	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	if len(doc.Definitions) != 1 {
		return nil, fmt.Errorf("expected one operation, got %d", len(doc.Definitions))
	}
	op, ok := doc.Definitions[0].(*ast.OperationDefinition)
	if !ok {
		return nil, fmt.Errorf("expected an operation definition")
	}

	data := make(map[string]interface{})
	for _, sel := range op.SelectionSet.Selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			return nil, fmt.Errorf("unexpected top level selection")
		}
		switch field.Name.Value {
		case "search":
			search, err := f.search(field)
			if err != nil {
				return nil, err
			}
			data["search"] = search
		case "viewer":
			data["viewer"] = map[string]interface{}{"login": f.Viewer}
		case "rateLimit":
			data["rateLimit"] = map[string]interface{}{
				"limit":     5000,
				"remaining": 4999,
				"resetAt":   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
			}
		default:
			return nil, fmt.Errorf("unsupported field %q", field.Name.Value)
		}
	}
	return data, nil
}

// Execute implements github.Executor.
func (f *FakeSearch) Execute(_ context.Context, query string) (*github.SearchResult, error) {
	data, err := f.Respond(query)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(data["search"])
	if err != nil {
		return nil, err
	}
	var result github.SearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (f *FakeSearch) search(field *ast.Field) (map[string]interface{}, error) {
	args, err := arguments(field)
	if err != nil {
		return nil, err
	}
	first, _ := args["first"].(int)
	if first <= 0 {
		return nil, fmt.Errorf("search requires first")
	}
	if args["type"] != "ISSUE" {
		return nil, fmt.Errorf("unsupported search type %v", args["type"])
	}
	expr, _ := args["query"].(string)
	matches, err := f.match(expr)
	if err != nil {
		return nil, err
	}

	limit := len(matches)
	if f.Ceiling > 0 && limit > f.Ceiling {
		limit = f.Ceiling
	}
	start, err := offset("search", args["after"])
	if err != nil {
		return nil, err
	}
	end := start + first
	if end > limit {
		end = limit
	}

	node := findField(field.SelectionSet, "edges", "node")
	labelArgs, err := arguments(findField(node.SelectionSet, "labels"))
	if err != nil {
		return nil, err
	}
	commentArgs, err := arguments(findField(node.SelectionSet, "comments"))
	if err != nil {
		return nil, err
	}

	edges := []interface{}{}
	for i := start; i < end; i++ {
		n, err := issueNode(matches[i], labelArgs, commentArgs)
		if err != nil {
			return nil, err
		}
		edges = append(edges, map[string]interface{}{
			"cursor": cursor("search", i),
			"node":   n,
		})
	}

	return map[string]interface{}{
		"issueCount": len(matches),
		"pageInfo":   pageInfo("search", start, end, limit),
		"edges":      edges,
	}, nil
}

// match returns the issues matching a search expression sorted by creation.
func (f *FakeSearch) match(expr string) ([]*Issue, error) {
	var (
		pr           bool
		openOnly     bool
		skipArchived bool
		user         string
		repos        []string
		updated      *time.Time
		created      *time.Time
	)
	for _, tok := range strings.Fields(expr) {
		key, value, _ := strings.Cut(tok, ":")
		switch key {
		case "is":
			switch value {
			case "issue":
			case "pr":
				pr = true
			case "open":
				openOnly = true
			default:
				return nil, fmt.Errorf("unsupported qualifier %q", tok)
			}
		case "sort":
			if value != "created-asc" {
				return nil, fmt.Errorf("unsupported sort %q", value)
			}
		case "archived":
			skipArchived = value == "false"
		case "repo":
			repos = append(repos, value)
		case "user":
			user = value
		case "updated", "created":
			d, err := time.Parse("2006-01-02", strings.TrimPrefix(value, ">="))
			if err != nil {
				return nil, fmt.Errorf("bad date in %q: %w", tok, err)
			}
			if key == "updated" {
				updated = &d
			} else {
				created = &d
			}
		default:
			return nil, fmt.Errorf("unsupported qualifier %q", tok)
		}
	}

	var matches []*Issue
	for _, issue := range f.issues {
		switch {
		case issue.PullRequest != pr:
		case openOnly && issue.State != "OPEN":
		case skipArchived && issue.Archived:
		case user != "" && !strings.HasPrefix(issue.Repo, user+"/"):
		case len(repos) > 0 && !contains(repos, issue.Repo):
		case updated != nil && issue.UpdatedAt.Before(*updated):
		case created != nil && issue.CreatedAt.Before(*created):
		default:
			matches = append(matches, issue)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func issueNode(issue *Issue, labelArgs, commentArgs map[string]interface{}) (map[string]interface{}, error) {
	owner, name, _ := strings.Cut(issue.Repo, "/")

	labels, err := nestedPage("label", len(issue.Labels), labelArgs, func(i int) interface{} {
		return map[string]interface{}{
			"id":          fmt.Sprintf("%s_L%d", issue.ID, i),
			"name":        issue.Labels[i],
			"description": nil,
		}
	})
	if err != nil {
		return nil, err
	}
	comments, err := nestedPage("comment", len(issue.Comments), commentArgs, func(i int) interface{} {
		return map[string]interface{}{
			"id":        fmt.Sprintf("%s_C%d", issue.ID, i),
			"body":      issue.Comments[i],
			"createdAt": issue.CreatedAt.Add(time.Duration(i+1) * time.Minute).Format(time.RFC3339),
			"author":    map[string]interface{}{"login": "commenter"},
			"reactions": map[string]interface{}{"edges": []interface{}{}},
		}
	})
	if err != nil {
		return nil, err
	}

	node := map[string]interface{}{
		"id":        issue.ID,
		"number":    issue.Number,
		"title":     issue.Title,
		"url":       fmt.Sprintf("https://github.com/%s/issues/%d", issue.Repo, issue.Number),
		"body":      issue.Body,
		"state":     issue.State,
		"createdAt": issue.CreatedAt.Format(time.RFC3339),
		"updatedAt": issue.UpdatedAt.Format(time.RFC3339),
		"closedAt":  nil,
		"author":    nil,
		"repository": map[string]interface{}{
			"id":            "R_" + issue.Repo,
			"name":          name,
			"nameWithOwner": issue.Repo,
			"isArchived":    issue.Archived,
			"archivedAt":    nil,
			"owner":         map[string]interface{}{"login": owner},
		},
		"reactions": edgesOf(issue.Reactions, 10, func(s string) interface{} {
			return map[string]interface{}{"content": s, "user": map[string]interface{}{"login": "reactor"}}
		}),
		"assignees": edgesOf(issue.Assignees, 10, func(s string) interface{} {
			return map[string]interface{}{"id": "U_" + s, "login": s}
		}),
		"labels":   labels,
		"comments": comments,
	}
	if issue.Author != "" {
		node["author"] = map[string]interface{}{"login": issue.Author}
	}
	if issue.ClosedAt != nil {
		node["closedAt"] = issue.ClosedAt.Format(time.RFC3339)
	}
	if !issue.PullRequest {
		node["stateReason"] = nil
		if issue.StateReason != "" {
			node["stateReason"] = issue.StateReason
		}
	}
	return node, nil
}

func nestedPage(kind string, total int, args map[string]interface{}, item func(int) interface{}) (map[string]interface{}, error) {
	first, _ := args["first"].(int)
	if first <= 0 {
		return nil, fmt.Errorf("%s connection requires first", kind)
	}
	start, err := offset(kind, args["after"])
	if err != nil {
		return nil, err
	}
	end := start + first
	if end > total {
		end = total
	}
	edges := []interface{}{}
	for i := start; i < end; i++ {
		edges = append(edges, map[string]interface{}{"cursor": cursor(kind, i), "node": item(i)})
	}
	return map[string]interface{}{
		"pageInfo": pageInfo(kind, start, end, total),
		"edges":    edges,
	}, nil
}

func edgesOf(items []string, limit int, node func(string) interface{}) map[string]interface{} {
	edges := []interface{}{}
	for i, s := range items {
		if i == limit {
			break
		}
		edges = append(edges, map[string]interface{}{"node": node(s)})
	}
	return map[string]interface{}{"edges": edges}
}

func pageInfo(kind string, start, end, limit int) map[string]interface{} {
	info := map[string]interface{}{
		"hasNextPage": end < limit,
		"endCursor":   nil,
	}
	if end > start {
		info["endCursor"] = cursor(kind, end-1)
	}
	return info
}

// Cursor returns the cursor FakeSearch uses for position i of a connection
// of the given kind ("search", "label" or "comment").
func Cursor(kind string, i int) string {
	return cursor(kind, i)
}

func cursor(kind string, i int) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%d", kind, i)))
}

// offset returns the position after the cursor value v.
func offset(kind string, v interface{}) (int, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("after must be a string, got %T", v)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("bad cursor %q: %w", s, err)
	}
	k, idx, ok := strings.Cut(string(raw), ":")
	if !ok || k != kind {
		return 0, fmt.Errorf("cursor %q is not a %s cursor", s, kind)
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return 0, fmt.Errorf("bad cursor %q: %w", s, err)
	}
	return n + 1, nil
}

// arguments returns the literal arguments of field.
func arguments(field *ast.Field) (map[string]interface{}, error) {
	if field == nil {
		return nil, fmt.Errorf("field not selected")
	}
	args := make(map[string]interface{}, len(field.Arguments))
	for _, arg := range field.Arguments {
		switch v := arg.Value.(type) {
		case *ast.IntValue:
			n, err := strconv.Atoi(v.Value)
			if err != nil {
				return nil, err
			}
			args[arg.Name.Value] = n
		case *ast.StringValue:
			args[arg.Name.Value] = v.Value
		case *ast.EnumValue:
			args[arg.Name.Value] = v.Value
		default:
			return nil, fmt.Errorf("argument %s of %s is not a literal", arg.Name.Value, field.Name.Value)
		}
	}
	return args, nil
}

// findField follows a path of field names through a selection set, looking
// inside inline fragments.
func findField(set *ast.SelectionSet, path ...string) *ast.Field {
	if set == nil || len(path) == 0 {
		return nil
	}
	for _, sel := range set.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			if s.Name.Value != path[0] {
				continue
			}
			if len(path) == 1 {
				return s
			}
			if f := findField(s.SelectionSet, path[1:]...); f != nil {
				return f
			}
		case *ast.InlineFragment:
			if f := findField(s.SelectionSet, path...); f != nil {
				return f
			}
		}
	}
	return nil
}

// SearchArguments parses a query document and returns the literal arguments
// of its search field.
func SearchArguments(query string) (map[string]interface{}, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return nil, err
	}
	op, ok := doc.Definitions[0].(*ast.OperationDefinition)
	if !ok {
		return nil, fmt.Errorf("expected an operation definition")
	}
	return arguments(findField(op.SelectionSet, "search"))
}

// NestedArguments parses a query document and returns the literal arguments
// of the named connection ("labels" or "comments") of the searched issues.
func NestedArguments(query, connection string) (map[string]interface{}, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return nil, err
	}
	op, ok := doc.Definitions[0].(*ast.OperationDefinition)
	if !ok {
		return nil, fmt.Errorf("expected an operation definition")
	}
	return arguments(findField(op.SelectionSet, "search", "edges", "node", connection))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
