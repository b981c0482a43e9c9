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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vikahl/issue-downloader/internal/github"
)

// File formats a Saver can render.
const (
	FormatMarkdown = "MD"
	FormatJSON     = "JSON"
)

// IssueKey returns the slash-separated key of an issue file:
// <owner>/<repo>/<number>.<ext>
func IssueKey(rec github.IssueRecord, ext string) string {
	owner, name := rec.Repository.Owner, rec.Repository.Name
	if owner == "" || name == "" {
		owner, name, _ = strings.Cut(rec.Repository.NameWithOwner, "/")
	}
	return path.Join(owner, name, strconv.Itoa(rec.Number)+"."+ext)
}

// Saver renders issues in the selected formats and stores every rendered
// file in each sink.
type Saver struct {
	markdown bool
	json     bool
	sinks    []Sink
}

// NewSaver creates a Saver for the given formats. An empty format list
// selects every format.
func NewSaver(formats []string, sinks ...Sink) (*Saver, error) {
	s := &Saver{sinks: sinks}
	if len(formats) == 0 {
		formats = []string{FormatMarkdown, FormatJSON}
	}
	for _, f := range formats {
		switch strings.ToUpper(f) {
		case FormatMarkdown:
			s.markdown = true
		case FormatJSON:
			s.json = true
		default:
			return nil, fmt.Errorf("unknown format %q", f)
		}
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("at least one sink is required")
	}
	return s, nil
}

// Save renders one issue and puts it to every sink. It returns the keys
// that were written.
func (s *Saver) Save(ctx context.Context, rec github.IssueRecord) ([]string, error) {
	type file struct {
		key  string
		data []byte
	}
	var files []file

	if s.markdown {
		files = append(files, file{IssueKey(rec, "md"), []byte(RenderMarkdown(rec))})
	}
	if s.json {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode issue %s: %w", rec.ID, err)
		}
		files = append(files, file{IssueKey(rec, "json"), append(data, '\n')})
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		for _, sink := range s.sinks {
			if err := sink.Put(ctx, f.key, f.data); err != nil {
				return nil, fmt.Errorf("failed to save %s: %w", f.key, err)
			}
		}
		keys = append(keys, f.key)
	}
	return keys, nil
}

// SaveAll saves every issue in order, stopping at the first failure.
// onSaved, if non-nil, is called after each issue is stored.
func (s *Saver) SaveAll(ctx context.Context, recs []github.IssueRecord, onSaved func(github.IssueRecord, []string)) error {
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		keys, err := s.Save(ctx, rec)
		if err != nil {
			return err
		}
		if onSaved != nil {
			onSaved(rec, keys)
		}
	}
	return nil
}

// DirSink stores files below a root directory on disk.
type DirSink struct {
	Root string
}

// Put writes data to Root/key, creating directories as needed.
func (d DirSink) Put(_ context.Context, key string, data []byte) error {
	target := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
