package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vikahl/issue-downloader/internal/github"
)

func numbered(n int) github.IssueRecord {
	rec := sampleRecord()
	rec.ID = fmt.Sprintf("I_%d", n)
	rec.Number = n
	return rec
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)

	if writer == nil {
		t.Fatal("NewWriter returned nil")
	}
	if writer.output != &buf {
		t.Error("Writer output doesn't match provided buffer")
	}
	if writer.encoder == nil {
		t.Error("Writer encoder is nil")
	}
	if writer.count != 0 {
		t.Errorf("Initial count should be 0, got %d", writer.count)
	}
}

func TestWriter_Write(t *testing.T) {
	tests := []struct {
		name    string
		records []github.IssueRecord
	}{
		{
			name:    "single record",
			records: []github.IssueRecord{numbered(1)},
		},
		{
			name:    "multiple records",
			records: []github.IssueRecord{numbered(1), numbered(2), numbered(3)},
		},
		{
			name:    "empty records",
			records: []github.IssueRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writer := NewWriter(&buf)

			for _, record := range tt.records {
				if err := writer.Write(record); err != nil {
					t.Fatalf("Write failed: %v", err)
				}
			}

			if writer.Count() != len(tt.records) {
				t.Errorf("Count mismatch: got %d, want %d", writer.Count(), len(tt.records))
			}

			output := strings.TrimSpace(buf.String())
			if output == "" && len(tt.records) == 0 {
				return
			}

			lines := strings.Split(output, "\n")
			if len(lines) != len(tt.records) {
				t.Fatalf("Line count mismatch: got %d, want %d", len(lines), len(tt.records))
			}

			for i, line := range lines {
				var got github.IssueRecord
				if err := json.Unmarshal([]byte(line), &got); err != nil {
					t.Fatalf("Failed to parse JSON at line %d: %v", i, err)
				}
				if got.ID != tt.records[i].ID || got.Number != tt.records[i].Number {
					t.Errorf("Line %d = %s #%d, want %s #%d", i, got.ID, got.Number, tt.records[i].ID, tt.records[i].Number)
				}
				if len(got.Comments) != 1 || got.Comments[0].Body != "Fixed in #43" {
					t.Errorf("Line %d lost its comments: %+v", i, got.Comments)
				}
			}
		})
	}
}

func TestWriter_SnakeCaseFields(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).Write(sampleRecord()); err != nil {
		t.Fatal(err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"created_at", "updated_at", "closed_at", "state_reason", "repository"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("field %s missing from %s", field, buf.String())
		}
	}
	repo := raw["repository"].(map[string]interface{})
	if repo["name_with_owner"] != "acme/widgets" {
		t.Errorf("repository.name_with_owner = %v", repo["name_with_owner"])
	}
}

func TestWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)

	numGoroutines := 10
	recordsPerGoroutine := 50
	totalRecords := numGoroutines * recordsPerGoroutine

	errCh := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			for j := 0; j < recordsPerGoroutine; j++ {
				if err := writer.Write(numbered(goroutineID*recordsPerGoroutine + j)); err != nil {
					errCh <- err
					return
				}
			}
			errCh <- nil
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("Concurrent write failed: %v", err)
		}
	}

	if writer.Count() != totalRecords {
		t.Errorf("Count mismatch: got %d, want %d", writer.Count(), totalRecords)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != totalRecords {
		t.Errorf("Line count mismatch: got %d, want %d", len(lines), totalRecords)
	}

	for i, line := range lines {
		var record github.IssueRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Errorf("Invalid JSON at line %d: %v", i, err)
		}
	}
}

func TestNewFileWriter(t *testing.T) {
	tmpDir := t.TempDir()
	filename := filepath.Join(tmpDir, "exports", "issues.ndjson")

	writer, err := NewFileWriter(filename)
	if err != nil {
		t.Fatalf("NewFileWriter failed: %v", err)
	}
	defer writer.Close()

	testRecords := []github.IssueRecord{numbered(1), numbered(2)}
	for _, record := range testRecords {
		if err := writer.Write(record); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != len(testRecords) {
		t.Fatalf("Line count mismatch: got %d, want %d", len(lines), len(testRecords))
	}

	for i, line := range lines {
		var record github.IssueRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("Failed to parse JSON at line %d: %v", i, err)
		}
		if record.Number != testRecords[i].Number {
			t.Errorf("Number mismatch at line %d: got %d, want %d", i, record.Number, testRecords[i].Number)
		}
	}
}

func TestNewFileWriter_Error(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileWriter(filepath.Join(blocker, "test.ndjson"))
	if err == nil {
		t.Error("Expected error when parent is a file, got nil")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, fmt.Errorf("broken pipe")
}

func TestWriter_WriteError(t *testing.T) {
	writer := NewWriter(failingWriter{})

	err := writer.Write(numbered(1))
	if err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("Write() error = %v, want broken pipe", err)
	}
	if writer.Count() != 0 {
		t.Errorf("Count = %d after failed write, want 0", writer.Count())
	}
}
