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

import "fmt"

// Page sizes of the fixed attachments. Reactions and assignees are never
// paginated beyond their first page.
const (
	reactionsPageSize = 10
	assigneesPageSize = 10
)

const searchDocument = `query {
  search(%[1]s) {
    issueCount
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      cursor
      node {
        %[2]s {
          id
          number
          title
          url
          body
          state%[3]s
          createdAt
          updatedAt
          closedAt
          author {
            login
          }
          repository {
            id
            name
            nameWithOwner
            isArchived
            archivedAt
            owner {
              login
            }
          }
          reactions(first: %[6]d) {
            edges {
              node {
                content
                user {
                  login
                }
              }
            }
          }
          assignees(first: %[7]d) {
            edges {
              node {
                id
                login
              }
            }
          }
          labels(%[4]s) {
            pageInfo {
              hasNextPage
              endCursor
            }
            edges {
              node {
                id
                name
                description
              }
            }
          }
          comments(%[5]s) {
            pageInfo {
              hasNextPage
              endCursor
            }
            edges {
              node {
                id
                body
                createdAt
                author {
                  login
                }
                reactions(first: %[6]d) {
                  edges {
                    node {
                      content
                      user {
                        login
                      }
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}
`

// BuildQuery renders the search document for the given filters. Filters are
// written into the document as literal arguments rather than variables.
// BuildQuery is pure: equal filters always produce identical documents.
func BuildQuery(search SearchFilter, labels, comments NestedFilter) string {
	var stateReason string
	if search.Query.Type != IssueTypePR {
		// Pull requests have no stateReason field.
		stateReason = "\n          stateReason"
	}
	return fmt.Sprintf(searchDocument,
		search.String(),
		search.Query.Type.typeCondition(),
		stateReason,
		labels.String(),
		comments.String(),
		reactionsPageSize,
		assigneesPageSize,
	)
}
