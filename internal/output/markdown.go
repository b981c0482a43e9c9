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

package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/vikahl/issue-downloader/internal/github"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// ReactionGroup is every user who reacted with the same emoji.
type ReactionGroup struct {
	Emoji string
	Users []string
}

func (g ReactionGroup) String() string {
	return fmt.Sprintf("%s (%s)", g.Emoji, strings.Join(g.Users, ", "))
}

// GroupReactions groups reactions by emoji in order of first appearance.
func GroupReactions(reactions []github.Reaction) []ReactionGroup {
	var groups []ReactionGroup
	index := make(map[string]int)
	for _, r := range reactions {
		i, ok := index[r.Content]
		if !ok {
			i = len(groups)
			index[r.Content] = i
			groups = append(groups, ReactionGroup{Emoji: r.Content})
		}
		groups[i].Users = append(groups[i].Users, r.User)
	}
	return groups
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// RenderMarkdown renders an issue, its metadata, and its comments as a
// Markdown document.
func RenderMarkdown(rec github.IssueRecord) string {
	var b strings.Builder
	block := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\n\n")
	}

	block("# %s", rec.Title)
	block("[%s#%d](%s)", rec.Repository.NameWithOwner, rec.Number, rec.URL)

	if rec.Repository.IsArchived {
		if rec.Repository.ArchivedAt != nil {
			block("Repository was archived at %s", formatTime(*rec.Repository.ArchivedAt))
		} else {
			block("Repository is archived")
		}
	}

	switch {
	case rec.State == "MERGED" && rec.ClosedAt != nil:
		block("Merged at %s", formatTime(*rec.ClosedAt))
	case rec.ClosedAt != nil && rec.StateReason != "":
		block("Closed at %s (%s)", formatTime(*rec.ClosedAt), rec.StateReason)
	case rec.ClosedAt != nil:
		block("Closed at %s", formatTime(*rec.ClosedAt))
	}

	author := rec.Author
	if author == "" {
		author = "ghost"
	}
	if rec.UpdatedAt.Equal(rec.CreatedAt) {
		block("%s created at %s", author, formatTime(rec.CreatedAt))
	} else {
		block("%s created at %s. Updated at %s", author, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	}

	if len(rec.Assignees) > 0 {
		block("Assigned to %s", strings.Join(rec.Assignees, ", "))
	}

	if len(rec.Labels) > 0 {
		b.WriteString("Labels:\n\n")
		for _, l := range rec.Labels {
			fmt.Fprintf(&b, "- %s\n", l)
		}
		b.WriteString("\n")
	}

	if groups := GroupReactions(rec.Reactions); len(groups) > 0 {
		b.WriteString("Reactions:\n\n")
		writeReactions(&b, groups)
	}

	b.WriteString("---\n\n")
	if rec.Body != "" {
		block("%s", strings.TrimRight(rec.Body, "\n"))
	}
	b.WriteString("---\n")

	if len(rec.Comments) == 0 {
		return b.String()
	}

	b.WriteString("\n## Comments\n")
	for _, c := range rec.Comments {
		commenter := c.Author
		if commenter == "" {
			commenter = "ghost"
		}
		fmt.Fprintf(&b, "\n### %s (on %s)\n\n", commenter, formatTime(c.CreatedAt))
		if c.Body != "" {
			block("%s", strings.TrimRight(c.Body, "\n"))
		}
		if groups := GroupReactions(c.Reactions); len(groups) > 0 {
			writeReactions(&b, groups)
		}
		b.WriteString("---\n")
	}

	return b.String()
}

func writeReactions(b *strings.Builder, groups []ReactionGroup) {
	for _, g := range groups {
		b.WriteString(g.String())
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
