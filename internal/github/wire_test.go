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
	"testing"
	"time"

	"github.com/shurcooL/githubv4"
)

const issueJSON = `{
  "id": "I_1",
  "number": 42,
  "title": "Crash on start",
  "url": "https://github.com/acme/one/issues/42",
  "body": "first\r\nsecond",
  "state": "CLOSED",
  "stateReason": "NOT_PLANNED",
  "createdAt": "2023-05-01T10:00:00Z",
  "updatedAt": "2023-05-02T10:00:00Z",
  "closedAt": "2023-05-03T10:00:00Z",
  "author": null,
  "repository": {
    "id": "R_1", "name": "one", "nameWithOwner": "acme/one",
    "isArchived": true, "archivedAt": "2024-01-01T00:00:00Z",
    "owner": {"login": "acme"}
  },
  "reactions": {"edges": [
    {"node": {"content": "THUMBS_UP", "user": {"login": "alice"}}},
    {"node": {"content": "EYES", "user": null}},
    {"node": {"content": "SHRUG", "user": {"login": "bob"}}}
  ]},
  "assignees": {"edges": [{"node": {"id": "U_1", "login": "carol"}}]},
  "labels": {"pageInfo": {"hasNextPage": false, "endCursor": null}, "edges": []},
  "comments": {"pageInfo": {"hasNextPage": false, "endCursor": null}, "edges": []}
}`

func TestToRecord(t *testing.T) {
	var node IssueNode
	if err := json.Unmarshal([]byte(issueJSON), &node); err != nil {
		t.Fatalf("decode: %v", err)
	}

	desc := githubv4.String("Something is broken")
	labels := []LabelNode{{ID: "L_1", Name: "bug", Description: &desc}, {ID: "L_2", Name: "triage"}}
	comments := []CommentNode{{
		ID:        "C_1",
		Body:      "me too\r\n",
		CreatedAt: githubv4.DateTime{Time: time.Date(2023, 5, 1, 11, 0, 0, 0, time.UTC)},
		Reactions: Connection[ReactionNode]{Edges: []Edge[ReactionNode]{
			{Node: ReactionNode{Content: githubv4.ReactionContentHooray, User: &Actor{Login: "dave"}}},
		}},
	}}

	rec := toRecord(node, labels, comments)

	if rec.ID != "I_1" || rec.Number != 42 || rec.Title != "Crash on start" {
		t.Errorf("scalar fields = %+v", rec)
	}
	if rec.Body != "first\nsecond" {
		t.Errorf("Body = %q", rec.Body)
	}
	if rec.Author != "" {
		t.Errorf("Author = %q, want empty for a deleted account", rec.Author)
	}
	if rec.URL != "https://github.com/acme/one/issues/42" {
		t.Errorf("URL = %q", rec.URL)
	}
	if rec.StateReason != "NOT_PLANNED" || rec.State != "CLOSED" {
		t.Errorf("state = %q/%q", rec.State, rec.StateReason)
	}
	if rec.ClosedAt == nil || !rec.ClosedAt.Equal(time.Date(2023, 5, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("ClosedAt = %v", rec.ClosedAt)
	}
	if !rec.Repository.IsArchived || rec.Repository.ArchivedAt == nil || rec.Repository.Owner != "acme" {
		t.Errorf("Repository = %+v", rec.Repository)
	}

	wantReactions := []Reaction{{"👍", "alice"}, {"👀", ""}, {"SHRUG", "bob"}}
	if len(rec.Reactions) != len(wantReactions) {
		t.Fatalf("Reactions = %v", rec.Reactions)
	}
	for i, r := range wantReactions {
		if rec.Reactions[i] != r {
			t.Errorf("Reactions[%d] = %v, want %v", i, rec.Reactions[i], r)
		}
	}

	if len(rec.Assignees) != 1 || rec.Assignees[0] != "carol" {
		t.Errorf("Assignees = %v", rec.Assignees)
	}
	if len(rec.Labels) != 2 || rec.Labels[0].String() != "bug (Something is broken)" || rec.Labels[1].String() != "triage" {
		t.Errorf("Labels = %v", rec.Labels)
	}
	if len(rec.Comments) != 1 || rec.Comments[0].Body != "me too\n" || rec.Comments[0].Author != "" {
		t.Errorf("Comments = %+v", rec.Comments)
	}
	if got := rec.Comments[0].Reactions; len(got) != 1 || got[0].Content != "🎉" || got[0].User != "dave" {
		t.Errorf("comment reactions = %v", got)
	}
}

func TestPageInfoCursor(t *testing.T) {
	if got := (PageInfo{}).Cursor(); got != "" {
		t.Errorf("Cursor() = %q", got)
	}
	end := githubv4.String("abc")
	if got := (PageInfo{EndCursor: &end}).Cursor(); got != "abc" {
		t.Errorf("Cursor() = %q", got)
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"plain":       `"plain"`,
		`a "b" c`:     `"a \"b\" c"`,
		`back\slash`:  `"back\\slash"`,
		"line\nbreak": `"line\nbreak"`,
	}
	for in, want := range tests {
		if got := quote(in); got != want {
			t.Errorf("quote(%q) = %s, want %s", in, got, want)
		}
	}
}
