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
	"cmp"
	"slices"
)

// Dedupe returns issues with every ID kept once. Records are equal iff their
// IDs are equal, so which duplicate survives is unspecified.
func Dedupe(issues []IssueRecord) []IssueRecord {
	byID := make(map[string]int, len(issues))
	unique := make([]IssueRecord, 0, len(issues))
	for _, rec := range issues {
		if i, ok := byID[rec.ID]; ok {
			unique[i] = rec
			continue
		}
		byID[rec.ID] = len(unique)
		unique = append(unique, rec)
	}
	return unique
}

// SortRecords orders issues by repository and number.
func SortRecords(issues []IssueRecord) {
	slices.SortFunc(issues, func(a, b IssueRecord) int {
		if c := cmp.Compare(a.Repository.NameWithOwner, b.Repository.NameWithOwner); c != 0 {
			return c
		}
		return cmp.Compare(a.Number, b.Number)
	})
}
