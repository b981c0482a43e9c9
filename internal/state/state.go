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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultStateFile returns the standard location of the resume store:
// ~/.issue-downloader.json
func DefaultStateFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home directory is not accessible
		homeDir = "."
	}
	return filepath.Join(homeDir, ".issue-downloader.json")
}

// Key hashes the run parameters into the key used in the resume store.
func Key(p Params) string {
	raw := fmt.Sprintf("%s:%s:%s:%s:%t:%t",
		p.SaveDir, p.URL, p.Org, strings.Join(p.Repos, ","), p.IncludeArchived, p.IncludeClosed)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// LoadResume returns the date a previous run with the same parameters
// completed. A missing state file or key yields a nil date.
func LoadResume(stateFile string, p Params) (*time.Time, error) {
	state, err := LoadState(stateFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	entry, ok := state.Entries[Key(p)]
	if !ok {
		return nil, nil
	}
	date, err := time.Parse(DateLayout, entry.Date)
	if err != nil {
		return nil, fmt.Errorf("resume entry has invalid date %q: %w", entry.Date, err)
	}
	return &date, nil
}

// SaveResume records date for the run parameters, keeping the entries of
// other runs.
func SaveResume(stateFile string, p Params, date time.Time) error {
	state, err := LoadState(stateFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		state = &ResumeState{}
	}
	if state.Entries == nil {
		state.Entries = make(map[string]Entry)
	}

	state.Entries[Key(p)] = Entry{
		Date:      date.Format(DateLayout),
		UpdatedAt: time.Now().UTC(),
	}
	return SaveState(state, stateFile)
}

// SaveState atomically saves the resume state to disk with integrity validation.
// It uses a write-to-temp-and-rename pattern to ensure atomicity.
// The checksum is calculated and stored to detect corruption.
func SaveState(state *ResumeState, stateFile string) error {
	state.Version = CurrentVersion

	checksum, err := calculateChecksum(state)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}
	state.Checksum = checksum

	stateDir := filepath.Dir(stateFile)
	if mkdirErr := os.MkdirAll(stateDir, 0o755); mkdirErr != nil {
		return fmt.Errorf("failed to create state directory: %w", mkdirErr)
	}

	tempFile := stateFile + ".tmp"

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if writeErr := os.WriteFile(tempFile, data, 0o600); writeErr != nil {
		return fmt.Errorf("failed to write temporary state file: %w", writeErr)
	}

	// Sync to ensure data is flushed to disk
	file, err := os.Open(tempFile)
	if err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to open temp file for sync: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempFile, stateFile); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// LoadState reads and validates the resume state from disk.
// It verifies the checksum and version compatibility. A missing file
// yields an error matching os.ErrNotExist.
func LoadState(stateFile string) (*ResumeState, error) {
	data, err := os.ReadFile(stateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", stateFile, err)
	}

	var state ResumeState
	if unmarshalErr := json.Unmarshal(data, &state); unmarshalErr != nil {
		return nil, fmt.Errorf("state file is corrupted (invalid JSON): %w", unmarshalErr)
	}

	if state.Version != CurrentVersion {
		return nil, fmt.Errorf("state file version (%d) is incompatible with current version (%d)",
			state.Version, CurrentVersion)
	}

	savedChecksum := state.Checksum
	calculatedChecksum, err := calculateChecksum(&state)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum for validation: %w", err)
	}
	if savedChecksum != calculatedChecksum {
		return nil, fmt.Errorf("state file is corrupted (checksum mismatch)")
	}

	return &state, nil
}

// calculateChecksum computes the SHA256 hash of the state content.
// The checksum field itself is excluded from the calculation.
func calculateChecksum(state *ResumeState) (string, error) {
	stateCopy := *state
	stateCopy.Checksum = ""

	// Map keys marshal in sorted order, so the hash is stable.
	data, err := json.Marshal(stateCopy)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
