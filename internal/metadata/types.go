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

// Package metadata types define the structures used for tracking and
// persisting information about download runs.
package metadata

import (
	"time"
)

// RunMetadata represents the complete metadata record for a single download
// run. It captures what was requested, how many requests it took, and what
// came back.
type RunMetadata struct {
	ToolVersion   string     `json:"tool_version"`
	MethodVersion string     `json:"method_version"`
	RunID         string     `json:"run_id"`
	Parameters    RunParams  `json:"parameters"`
	Results       RunResults `json:"results"`
	Incremental   bool       `json:"incremental"`
	PreviousRun   *RunRef    `json:"previous_run,omitempty"`
}

// RunParams captures the input parameters used for a download run.
type RunParams struct {
	URL             string     `json:"url"`
	Organization    string     `json:"organization,omitempty"`
	Repositories    []string   `json:"repositories,omitempty"`
	Type            string     `json:"type"`
	Since           *time.Time `json:"since,omitempty"`
	IncludeArchived bool       `json:"include_archived"`
	IncludeClosed   bool       `json:"include_closed"`
	Formats         []string   `json:"formats"`
	SaveDir         string     `json:"save_dir"`
}

// RunResults contains the statistics of a completed run. APICalls is keyed
// by request kind (search, labels, comments).
type RunResults struct {
	TotalIssues   int            `json:"total_issues"`
	Retrieved     int            `json:"retrieved"`
	Duplicates    int            `json:"duplicates"`
	Sweeps        int            `json:"sweeps"`
	APICalls      map[string]int `json:"api_calls"`
	TotalAPICalls int            `json:"total_api_calls"`
	OldestIssue   time.Time      `json:"oldest_issue_date"`
	NewestIssue   time.Time      `json:"newest_issue_update"`
	Duration      string         `json:"run_duration"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// RunRef links an incremental run to the run it resumed from.
type RunRef struct {
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`
}
