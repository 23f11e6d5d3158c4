package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/masmgr/commitsync/internal/ingest"
	"github.com/masmgr/commitsync/internal/record"
)

func sampleRecordReport() *RecordReport {
	return &RecordReport{
		RepoPath:    "/test/repo",
		Ref:         "HEAD",
		Marker:      strings.Repeat("a", 40),
		GeneratedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Records: []record.CommitRecord{
			{
				RecordID:    "rec-1",
				CommitHash:  strings.Repeat("1", 40),
				AuthorName:  record.Optional("Alice"),
				AuthorEmail: record.Optional("alice@example.com"),
				Message:     record.Optional("Add parser\n\nLonger body"),
				AuthoredAt:  1700000000,
			},
			{
				RecordID:   "rec-2",
				CommitHash: strings.Repeat("2", 40),
				AuthoredAt: 1700000060,
			},
			{
				RecordID:   "rec-3",
				CommitHash: strings.Repeat("3", 40),
				AuthorName: record.Optional("Bob|Builder"),
				Message:    record.Optional("Fix *bold* subject"),
				AuthoredAt: 1700000120,
			},
		},
		Skipped: []record.SkippedCommit{
			{CommitHash: strings.Repeat("f", 40), Reason: "object not found"},
		},
	}
}

func sampleIngestReport() *IngestReport {
	return &IngestReport{
		GeneratedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Results: []*ingest.Result{
			{Repo: "alpha", Marker: strings.Repeat("1", 40), Extracted: 3, Inserted: 3},
			{Repo: "beta", Marker: strings.Repeat("2", 40), Extracted: 2, Inserted: 1, Duplicates: 1, MarkerReset: true},
		},
		Failures: []ingest.Failure{
			{Target: ingest.Target{Name: "gamma", Path: "/repos/gamma"}, Err: errors.New("repository does not exist")},
		},
	}
}

func writeToTemp(t *testing.T, name string, write func(OutputOptions) error, opts OutputOptions) string {
	t.Helper()
	opts.OutputPath = filepath.Join(t.TempDir(), name)
	if err := write(opts); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := os.ReadFile(opts.OutputPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	return string(data)
}

func TestJSONRecordWriter_Write(t *testing.T) {
	report := sampleRecordReport()
	data := writeToTemp(t, "records.json", func(o OutputOptions) error {
		return (&JSONRecordWriter{}).Write(report, o)
	}, OutputOptions{Format: FormatJSON})

	var got JSONRecordReport
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if got.RepoPath != "/test/repo" || got.TotalRecords != 3 || len(got.Records) != 3 {
		t.Fatalf("unexpected report: %+v", got)
	}
	if got.Records[1].AuthorName != nil || got.Records[1].Message != nil {
		t.Errorf("absent fields should stay absent: %+v", got.Records[1])
	}
	if len(got.Skipped) != 1 {
		t.Errorf("Skipped = %+v", got.Skipped)
	}
	if strings.Contains(data, `"author_name": null`) {
		t.Errorf("absent fields should be omitted, got %s", data)
	}
}

func TestJSONRecordWriter_EmptyRecordsIsArray(t *testing.T) {
	report := &RecordReport{RepoPath: "/test/repo"}
	data := writeToTemp(t, "empty.json", func(o OutputOptions) error {
		return (&JSONRecordWriter{}).Write(report, o)
	}, OutputOptions{})

	if !strings.Contains(data, `"records": []`) {
		t.Fatalf("expected an empty records array, got %s", data)
	}
}

func TestCSVRecordWriter_Write(t *testing.T) {
	data := writeToTemp(t, "records.csv", func(o OutputOptions) error {
		return (&CSVRecordWriter{}).Write(sampleRecordReport(), o)
	}, OutputOptions{Top: 2})

	rows, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 3 { // header + 2 records
		t.Fatalf("expected 3 rows with Top=2, got %d", len(rows))
	}
	if rows[0][0] != "RecordID" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "Alice" || rows[1][4] != "1700000000" || rows[1][5] != "Add parser\n\nLonger body" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][2] != "" || rows[2][5] != "" {
		t.Errorf("absent fields should be empty cells, got %v", rows[2])
	}
}

func TestMarkdownRecordWriter_Write(t *testing.T) {
	data := writeToTemp(t, "records.md", func(o OutputOptions) error {
		return (&MarkdownRecordWriter{}).Write(sampleRecordReport(), o)
	}, OutputOptions{})

	for _, want := range []string{
		"# Commit Records",
		"**Total Records:** 3",
		"| 1 | `11111111` | 2023-11-14T22:13:20 | Alice | Add parser |",
		"| 2 | `22222222` | 2023-11-14T22:14:20 | - |  |",
		"Bob\\|Builder",
		"Fix \\*bold\\* subject",
		"## Skipped Commits",
	} {
		if !strings.Contains(data, want) {
			t.Errorf("markdown output missing %q:\n%s", want, data)
		}
	}
}

func TestCIRecordWriter_Write(t *testing.T) {
	data := writeToTemp(t, "records.ndjson", func(o OutputOptions) error {
		return (&CIRecordWriter{}).Write(sampleRecordReport(), o)
	}, OutputOptions{Top: 1})

	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) != 3 { // summary + 1 record + 1 skipped
		t.Fatalf("expected 3 lines, got %d: %s", len(lines), data)
	}

	var summary CIRecordSummary
	if err := json.Unmarshal([]byte(lines[0]), &summary); err != nil {
		t.Fatalf("Failed to parse summary: %v", err)
	}
	if summary.Type != "summary" || summary.TotalRecords != 3 || summary.SkippedCount != 1 {
		t.Errorf("summary = %+v", summary)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("Failed to parse entry: %v", err)
	}
	if entry["type"] != "record" || entry["commit_hash"] != strings.Repeat("1", 40) {
		t.Errorf("entry = %v", entry)
	}

	var skipped map[string]interface{}
	if err := json.Unmarshal([]byte(lines[2]), &skipped); err != nil {
		t.Fatalf("Failed to parse skipped entry: %v", err)
	}
	if skipped["type"] != "skipped" || skipped["reason"] != "object not found" {
		t.Errorf("skipped = %v", skipped)
	}
}

func TestConsoleRecordWriter_Write(t *testing.T) {
	data := writeToTemp(t, "records.txt", func(o OutputOptions) error {
		return (&ConsoleRecordWriter{}).Write(sampleRecordReport(), o)
	}, OutputOptions{})

	for _, want := range []string{"Repository: /test/repo", "Total records: 3", "11111111", "Add parser", "Skipped commits: 1"} {
		if !strings.Contains(data, want) {
			t.Errorf("console output missing %q:\n%s", want, data)
		}
	}
}

func TestConsoleRecordWriter_NoRecords(t *testing.T) {
	data := writeToTemp(t, "empty.txt", func(o OutputOptions) error {
		return (&ConsoleRecordWriter{}).Write(&RecordReport{RepoPath: "/r"}, o)
	}, OutputOptions{})

	if !strings.Contains(data, "No new commits.") || !strings.Contains(data, "beginning of history") {
		t.Fatalf("unexpected output:\n%s", data)
	}
}

func TestJSONIngestWriter_Write(t *testing.T) {
	data := writeToTemp(t, "ingest.json", func(o OutputOptions) error {
		return (&JSONIngestWriter{}).Write(sampleIngestReport(), o)
	}, OutputOptions{})

	var got JSONIngestReport
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if got.Repositories != 2 || got.Extracted != 5 || got.Inserted != 4 {
		t.Errorf("totals = %+v", got)
	}
	if len(got.Failures) != 1 || got.Failures[0].Repo != "gamma" || got.Failures[0].Error != "repository does not exist" {
		t.Errorf("failures = %+v", got.Failures)
	}
}

func TestCIIngestWriter_Write(t *testing.T) {
	data := writeToTemp(t, "ingest.ndjson", func(o OutputOptions) error {
		return (&CIIngestWriter{}).Write(sampleIngestReport(), o)
	}, OutputOptions{})

	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) != 4 { // summary + 2 repos + 1 failure
		t.Fatalf("expected 4 lines, got %d: %s", len(lines), data)
	}

	var summary CIIngestSummary
	if err := json.Unmarshal([]byte(lines[0]), &summary); err != nil {
		t.Fatalf("Failed to parse summary: %v", err)
	}
	if summary.Repositories != 2 || summary.Failed != 1 || summary.Inserted != 4 {
		t.Errorf("summary = %+v", summary)
	}

	var reset CIRepoEntry
	if err := json.Unmarshal([]byte(lines[2]), &reset); err != nil {
		t.Fatalf("Failed to parse entry: %v", err)
	}
	if reset.Repo != "beta" || !reset.Reset || reset.Duplicates != 1 {
		t.Errorf("entry = %+v", reset)
	}

	var failure CIRepoEntry
	if err := json.Unmarshal([]byte(lines[3]), &failure); err != nil {
		t.Fatalf("Failed to parse failure: %v", err)
	}
	if failure.Type != "failure" || failure.Repo != "gamma" || failure.Error == "" {
		t.Errorf("failure = %+v", failure)
	}
}

func TestConsoleIngestWriter_Write(t *testing.T) {
	report := sampleIngestReport()
	report.DryRun = true
	data := writeToTemp(t, "ingest.txt", func(o OutputOptions) error {
		return (&ConsoleIngestWriter{}).Write(report, o)
	}, OutputOptions{})

	for _, want := range []string{"Ingestion Results (dry run)", "Repositories: 2, Failed: 1", "alpha", "(reset)", "FAILED gamma"} {
		if !strings.Contains(data, want) {
			t.Errorf("console output missing %q:\n%s", want, data)
		}
	}
}
