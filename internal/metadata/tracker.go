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

// Package metadata provides functionality for tracking and persisting metadata
// about download runs. It records the number of API requests per request
// kind, the number of search sweeps, and how many issues were retrieved and
// how many of those were unique.
//
// Metadata is saved as JSON files in a hidden directory inside the save
// directory, allowing external tools to analyze download history.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/vikahl/issue-downloader/internal/github"
)

const (
	// MethodVersion represents the current retrieval strategy version
	MethodVersion = "graphql-search-sweeps-v1"

	// DirName is the directory inside the save directory holding metadata files.
	DirName = ".issue-downloader"

	runIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	runIDLength   = 12
)

// Tracker collects statistics during a download run and generates metadata.
// It implements github.Observer; pass it in github.Options to have the
// engine report every request, issue, and sweep. Create a new tracker at
// the start of each run.
type Tracker struct {
	runID     string
	startTime time.Time
	apiCalls  map[github.RequestKind]int
	sweeps    int
	stats     IssueStats
	seen      map[string]bool
}

// IssueStats holds statistical information about issues retrieved during a run.
type IssueStats struct {
	Retrieved   int       // Issues returned by all sweeps, duplicates included
	Unique      int       // Distinct issue ids
	OldestIssue time.Time // Earliest issue creation date
	NewestIssue time.Time // Latest issue update date
}

// New creates a new metadata tracker with a fresh run id and initializes it
// with the current time.
func New() *Tracker {
	return &Tracker{
		runID:     newRunID(),
		startTime: time.Now(),
		apiCalls:  make(map[github.RequestKind]int),
		seen:      make(map[string]bool),
	}
}

func newRunID() string {
	id, err := nanoid.Generate(runIDAlphabet, runIDLength)
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return "run-" + id
}

// RunID returns the identifier of the tracked run.
func (t *Tracker) RunID() string {
	return t.runID
}

// OnRequest records that an API call of the given kind was made.
func (t *Tracker) OnRequest(kind github.RequestKind) {
	t.apiCalls[kind]++
}

// OnIssue updates the running statistics with a retrieved issue.
func (t *Tracker) OnIssue(rec github.IssueRecord) {
	t.stats.Retrieved++
	if !t.seen[rec.ID] {
		t.seen[rec.ID] = true
		t.stats.Unique++
	}

	if t.stats.OldestIssue.IsZero() || rec.CreatedAt.Before(t.stats.OldestIssue) {
		t.stats.OldestIssue = rec.CreatedAt
	}
	if rec.UpdatedAt.After(t.stats.NewestIssue) {
		t.stats.NewestIssue = rec.UpdatedAt
	}
}

// OnSweep records a completed search sweep.
func (t *Tracker) OnSweep(github.SweepStats) {
	t.sweeps++
}

// APICalls returns the total number of API calls recorded.
func (t *Tracker) APICalls() int {
	total := 0
	for _, n := range t.apiCalls {
		total += n
	}
	return total
}

// Stats returns the issue statistics collected so far.
func (t *Tracker) Stats() IssueStats {
	return t.stats
}

// GenerateMetadata creates a RunMetadata instance capturing the complete
// run statistics. Call this at the end of a successful run.
func (t *Tracker) GenerateMetadata(toolVersion string, params RunParams, previous *RunRef) *RunMetadata {
	completedAt := time.Now()

	calls := make(map[string]int, len(t.apiCalls))
	for kind, n := range t.apiCalls {
		calls[string(kind)] = n
	}

	return &RunMetadata{
		ToolVersion:   toolVersion,
		MethodVersion: MethodVersion,
		RunID:         t.runID,
		Parameters:    params,
		Results: RunResults{
			TotalIssues:   t.stats.Unique,
			Retrieved:     t.stats.Retrieved,
			Duplicates:    t.stats.Retrieved - t.stats.Unique,
			Sweeps:        t.sweeps,
			APICalls:      calls,
			TotalAPICalls: t.APICalls(),
			OldestIssue:   t.stats.OldestIssue,
			NewestIssue:   t.stats.NewestIssue,
			Duration:      completedAt.Sub(t.startTime).String(),
			StartedAt:     t.startTime,
			CompletedAt:   completedAt,
		},
		Incremental: params.Since != nil,
		PreviousRun: previous,
	}
}

// Dir returns the metadata directory inside saveDir.
func Dir(saveDir string) string {
	return filepath.Join(saveDir, DirName)
}

// SaveMetadata persists a RunMetadata record to a JSON file in the specified
// directory. The file is written atomically using a temporary file and rename
// to prevent corruption.
//
// The metadata file will be named: fetch-metadata-{timestamp}.json
func SaveMetadata(metadata *RunMetadata, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create metadata directory: %w", err)
	}

	filename := fmt.Sprintf("fetch-metadata-%d.json", metadata.Results.StartedAt.Unix())
	path := filepath.Join(dir, filename)

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}

	if err := WriteMetadataToWriter(metadata, file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return "", fmt.Errorf("failed to close metadata file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return "", fmt.Errorf("failed to save metadata file: %w", err)
	}

	return path, nil
}

// LoadLatestMetadata finds and loads the most recent metadata file in dir
// whose run targeted the same organization and repositories. Runs are
// ordered by their start time.
//
// Returns nil if no matching metadata exists, or an error if loading fails.
func LoadLatestMetadata(dir, org string, repos []string) (*RunMetadata, error) {
	pattern := filepath.Join(dir, "fetch-metadata-*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}

	var latest *RunMetadata
	for _, file := range files {
		md, err := readMetadata(file)
		if err != nil {
			return nil, err
		}
		if md.Parameters.Organization != org || !slices.Equal(md.Parameters.Repositories, repos) {
			continue
		}
		if latest == nil || md.Results.StartedAt.After(latest.Results.StartedAt) {
			latest = md
		}
	}

	return latest, nil
}

func readMetadata(path string) (*RunMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer file.Close()

	var metadata RunMetadata
	if err := json.NewDecoder(file).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return &metadata, nil
}

// WriteMetadataToWriter serializes metadata to JSON and writes it to the
// provided io.Writer. The output is formatted with indentation for readability.
func WriteMetadataToWriter(metadata *RunMetadata, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}
