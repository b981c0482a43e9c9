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

package state

import (
	"time"
)

// CurrentVersion is the current state schema version.
// Increment this when making breaking changes to the ResumeState structure.
const CurrentVersion = 1

// DateLayout is the layout of resume dates stored in the state file.
const DateLayout = "2006-01-02"

// ResumeState is the persistent resume store shared by every download
// configuration on the machine. Entries are keyed by Key, so runs with
// different save directories, endpoints, or filters never overwrite each
// other's progress.
type ResumeState struct {
	// Version indicates the schema version of this state file.
	Version int `json:"version"`

	// Checksum is the SHA256 hash of the state content (excluding this field).
	// Used to detect corruption or tampering.
	Checksum string `json:"checksum"`

	// Entries maps a run key to the date the run last completed.
	Entries map[string]Entry `json:"entries"`
}

// Entry records the date a run may resume from.
type Entry struct {
	// Date is the day the last successful run started, in DateLayout.
	Date string `json:"date"`

	// UpdatedAt records when the entry was written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Params are the run parameters that identify a resumable download.
type Params struct {
	SaveDir         string
	URL             string
	Org             string
	Repos           []string
	IncludeArchived bool
	IncludeClosed   bool
}
