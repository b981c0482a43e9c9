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
	"strings"
	"time"

	"github.com/shurcooL/githubv4"
)

// The types in this file mirror the JSON shape of a search response. They are
// converted to IssueRecord values as soon as an issue is fully resolved and
// are not used outside this package's engine.

// PageInfo carries the pagination markers of a connection.
type PageInfo struct {
	HasNextPage githubv4.Boolean `json:"hasNextPage"`
	EndCursor   *githubv4.String `json:"endCursor"`
}

// Cursor returns the end cursor, or "" when the connection is empty.
func (p PageInfo) Cursor() string {
	if p.EndCursor == nil {
		return ""
	}
	return string(*p.EndCursor)
}

// Edge is one element of a connection.
type Edge[T any] struct {
	Cursor githubv4.String `json:"cursor"`
	Node   T               `json:"node"`
}

// Connection is a page of a GraphQL connection.
type Connection[T any] struct {
	PageInfo PageInfo  `json:"pageInfo"`
	Edges    []Edge[T] `json:"edges"`
}

// Nodes returns the nodes of the connection in order.
func (c Connection[T]) Nodes() []T {
	nodes := make([]T, 0, len(c.Edges))
	for _, e := range c.Edges {
		nodes = append(nodes, e.Node)
	}
	return nodes
}

// SearchResult is the data.search object of a response.
type SearchResult struct {
	IssueCount githubv4.Int      `json:"issueCount"`
	PageInfo   PageInfo          `json:"pageInfo"`
	Edges      []Edge[IssueNode] `json:"edges"`
}

// Actor is the author of an issue, comment or reaction. It is null for
// deleted accounts.
type Actor struct {
	Login githubv4.String `json:"login"`
}

// UserNode is an assignee.
type UserNode struct {
	ID    githubv4.String `json:"id"`
	Login githubv4.String `json:"login"`
}

// ReactionNode is a single reaction.
type ReactionNode struct {
	Content githubv4.ReactionContent `json:"content"`
	User    *Actor                   `json:"user"`
}

// LabelNode is a label attached to an issue.
type LabelNode struct {
	ID          githubv4.String  `json:"id"`
	Name        githubv4.String  `json:"name"`
	Description *githubv4.String `json:"description"`
}

// CommentNode is a comment with its first page of reactions.
type CommentNode struct {
	ID        githubv4.String          `json:"id"`
	Body      githubv4.String          `json:"body"`
	CreatedAt githubv4.DateTime        `json:"createdAt"`
	Author    *Actor                   `json:"author"`
	Reactions Connection[ReactionNode] `json:"reactions"`
}

// RepositoryNode is the repository an issue belongs to.
type RepositoryNode struct {
	ID            githubv4.String    `json:"id"`
	Name          githubv4.String    `json:"name"`
	NameWithOwner githubv4.String    `json:"nameWithOwner"`
	IsArchived    githubv4.Boolean   `json:"isArchived"`
	ArchivedAt    *githubv4.DateTime `json:"archivedAt"`
	Owner         Actor              `json:"owner"`
}

// IssueNode is an issue or pull request as returned by the search.
type IssueNode struct {
	ID          githubv4.String            `json:"id"`
	Number      githubv4.Int               `json:"number"`
	Title       githubv4.String            `json:"title"`
	URL         githubv4.URI               `json:"url"`
	Body        githubv4.String            `json:"body"`
	State       githubv4.String            `json:"state"`
	StateReason *githubv4.IssueStateReason `json:"stateReason"`
	CreatedAt   githubv4.DateTime          `json:"createdAt"`
	UpdatedAt   githubv4.DateTime          `json:"updatedAt"`
	ClosedAt    *githubv4.DateTime         `json:"closedAt"`
	Author      *Actor                     `json:"author"`
	Repository  RepositoryNode             `json:"repository"`
	Reactions   Connection[ReactionNode]   `json:"reactions"`
	Assignees   Connection[UserNode]       `json:"assignees"`
	Labels      Connection[LabelNode]      `json:"labels"`
	Comments    Connection[CommentNode]    `json:"comments"`
}

var reactionEmoji = map[githubv4.ReactionContent]string{
	githubv4.ReactionContentThumbsUp:   "👍",
	githubv4.ReactionContentThumbsDown: "👎",
	githubv4.ReactionContentLaugh:      "😀",
	githubv4.ReactionContentHooray:     "🎉",
	githubv4.ReactionContentConfused:   "😕",
	githubv4.ReactionContentHeart:      "❤️",
	githubv4.ReactionContentRocket:     "🚀",
	githubv4.ReactionContentEyes:       "👀",
}

// Emoji returns the emoji for a reaction content, or the content itself when
// it is not a known reaction.
func Emoji(content githubv4.ReactionContent) string {
	if e, ok := reactionEmoji[content]; ok {
		return e
	}
	return string(content)
}

func login(a *Actor) string {
	if a == nil {
		return ""
	}
	return string(a.Login)
}

func normaliseBody(s githubv4.String) string {
	return strings.ReplaceAll(string(s), "\r\n", "\n")
}

func optionalTime(t *githubv4.DateTime) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

func toReactions(c Connection[ReactionNode]) []Reaction {
	var out []Reaction
	for _, n := range c.Nodes() {
		out = append(out, Reaction{Content: Emoji(n.Content), User: login(n.User)})
	}
	return out
}

func toLabels(nodes []LabelNode) []Label {
	var out []Label
	for _, n := range nodes {
		l := Label{ID: string(n.ID), Name: string(n.Name)}
		if n.Description != nil {
			l.Description = string(*n.Description)
		}
		out = append(out, l)
	}
	return out
}

func toComments(nodes []CommentNode) []Comment {
	var out []Comment
	for _, n := range nodes {
		out = append(out, Comment{
			ID:        string(n.ID),
			Body:      normaliseBody(n.Body),
			Author:    login(n.Author),
			CreatedAt: n.CreatedAt.Time,
			Reactions: toReactions(n.Reactions),
		})
	}
	return out
}

// toRecord merges the scalar fields of node with fully resolved labels and
// comments.
func toRecord(node IssueNode, labels []LabelNode, comments []CommentNode) IssueRecord {
	rec := IssueRecord{
		ID:     string(node.ID),
		Number: int(node.Number),
		Title:  string(node.Title),
		Body:   normaliseBody(node.Body),
		Author: login(node.Author),
		Repository: Repository{
			ID:            string(node.Repository.ID),
			Name:          string(node.Repository.Name),
			Owner:         string(node.Repository.Owner.Login),
			NameWithOwner: string(node.Repository.NameWithOwner),
			IsArchived:    bool(node.Repository.IsArchived),
			ArchivedAt:    optionalTime(node.Repository.ArchivedAt),
		},
		State:     string(node.State),
		CreatedAt: node.CreatedAt.Time,
		UpdatedAt: node.UpdatedAt.Time,
		ClosedAt:  optionalTime(node.ClosedAt),
		Labels:    toLabels(labels),
		Comments:  toComments(comments),
		Reactions: toReactions(node.Reactions),
	}
	if node.URL.URL != nil {
		rec.URL = node.URL.String()
	}
	if node.StateReason != nil {
		rec.StateReason = string(*node.StateReason)
	}
	for _, a := range node.Assignees.Nodes() {
		rec.Assignees = append(rec.Assignees, string(a.Login))
	}
	return rec
}
