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

// Package events announces download activity to other systems.
package events

import (
	"context"
	"time"
)

// Subject suffixes, appended to the configured prefix.
const (
	SubjectRunCompleted = "run.completed"
	SubjectIssueSaved   = "issue.saved"
)

// Subject joins a prefix and a subject suffix. An empty prefix yields the
// suffix alone.
func Subject(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "." + suffix
}

// RunCompleted is published once after a download has been saved.
type RunCompleted struct {
	RunID       string     `json:"run_id"`
	Org         string     `json:"org,omitempty"`
	Repos       []string   `json:"repos,omitempty"`
	Since       *time.Time `json:"since,omitempty"`
	Issues      int        `json:"issues"`
	Retrieved   int        `json:"retrieved"`
	Sweeps      int        `json:"sweeps"`
	APICalls    int        `json:"api_calls"`
	SaveDir     string     `json:"save_dir"`
	CompletedAt time.Time  `json:"completed_at"`
}

// IssueSaved is published for every issue written to the save directory.
type IssueSaved struct {
	RunID      string    `json:"run_id"`
	ID         string    `json:"id"`
	Repository string    `json:"repository"`
	Number     int       `json:"number"`
	UpdatedAt  time.Time `json:"updated_at"`
	Files      []string  `json:"files"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close() error
}
