package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/masmgr/commitsync/internal/record"
)

// CIRecordWriter writes record reports as NDJSON (one JSON object per line) for CI pipelines.
type CIRecordWriter struct{}

// CIRecordSummary is the first line of CI record output.
type CIRecordSummary struct {
	Type         string `json:"type"`
	Repo         string `json:"repo"`
	Marker       string `json:"marker,omitempty"`
	TotalRecords int    `json:"totalRecords"`
	SkippedCount int    `json:"skippedCount"`
}

// CIRecordEntry is a single record line in CI output.
type CIRecordEntry struct {
	Type string `json:"type"`
	record.CommitRecord
}

// CISkippedEntry is a single skipped commit line in CI output.
type CISkippedEntry struct {
	Type string `json:"type"`
	record.SkippedCommit
}

// Write outputs the record report as NDJSON.
func (w *CIRecordWriter) Write(report *RecordReport, options OutputOptions) error {
	records := limitTop(report.Records, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	summary := CIRecordSummary{
		Type:         "summary",
		Repo:         report.RepoPath,
		Marker:       report.Marker,
		TotalRecords: len(report.Records),
		SkippedCount: len(report.Skipped),
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	for _, r := range records {
		if err := writeNDJSONLine(out, CIRecordEntry{Type: "record", CommitRecord: r}); err != nil {
			return err
		}
	}
	for _, s := range report.Skipped {
		if err := writeNDJSONLine(out, CISkippedEntry{Type: "skipped", SkippedCommit: s}); err != nil {
			return err
		}
	}

	return nil
}

// CIIngestWriter writes ingestion reports as NDJSON.
type CIIngestWriter struct{}

// CIIngestSummary is the first line of CI ingestion output.
type CIIngestSummary struct {
	Type         string `json:"type"`
	Repositories int    `json:"repositories"`
	Failed       int    `json:"failed"`
	Extracted    int    `json:"extracted"`
	Inserted     int    `json:"inserted"`
	Skipped      int    `json:"skipped"`
}

// CIRepoEntry is one repository line in CI ingestion output.
type CIRepoEntry struct {
	Type       string `json:"type"`
	Repo       string `json:"repo"`
	Marker     string `json:"marker,omitempty"`
	Extracted  int    `json:"extracted"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Reset      bool   `json:"markerReset,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Write outputs the ingestion report as NDJSON.
func (w *CIIngestWriter) Write(report *IngestReport, options OutputOptions) error {
	results := limitTop(report.Results, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	extracted, inserted, skipped := report.Totals()
	summary := CIIngestSummary{
		Type:         "summary",
		Repositories: len(report.Results),
		Failed:       len(report.Failures),
		Extracted:    extracted,
		Inserted:     inserted,
		Skipped:      skipped,
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	for _, r := range results {
		entry := CIRepoEntry{
			Type:       "repo",
			Repo:       r.Repo,
			Marker:     r.Marker,
			Extracted:  r.Extracted,
			Inserted:   r.Inserted,
			Duplicates: r.Duplicates,
			Skipped:    len(r.Skipped),
			Reset:      r.MarkerReset,
		}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}
	}
	for _, f := range report.Failures {
		entry := CIRepoEntry{Type: "failure", Repo: f.Target.Name, Error: f.Err.Error()}
		if err := writeNDJSONLine(out, entry); err != nil {
			return err
		}
	}

	return nil
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
