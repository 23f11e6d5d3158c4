package output

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/masmgr/commitsync/internal/ingest"
	"github.com/masmgr/commitsync/internal/record"
)

// JSONRecordWriter writes record reports as JSON.
type JSONRecordWriter struct{}

// JSONRecordReport is the JSON output structure for a record report.
type JSONRecordReport struct {
	RepoPath     string                 `json:"repo"`
	Ref          string                 `json:"ref,omitempty"`
	Marker       string                 `json:"marker,omitempty"`
	GeneratedAt  string                 `json:"generatedAt"`
	TotalRecords int                    `json:"totalRecords"`
	Records      []record.CommitRecord  `json:"records"`
	Skipped      []record.SkippedCommit `json:"skipped,omitempty"`
}

// Write outputs the record report as JSON.
func (w *JSONRecordWriter) Write(report *RecordReport, options OutputOptions) error {
	records := limitTop(report.Records, options.Top)
	if records == nil {
		records = []record.CommitRecord{}
	}

	jsonReport := JSONRecordReport{
		RepoPath:     report.RepoPath,
		Ref:          report.Ref,
		Marker:       report.Marker,
		GeneratedAt:  report.GeneratedAt.Format(time.RFC3339),
		TotalRecords: len(report.Records),
		Records:      records,
		Skipped:      report.Skipped,
	}

	return writeJSON(jsonReport, options.OutputPath)
}

// JSONIngestWriter writes ingestion reports as JSON.
type JSONIngestWriter struct{}

// JSONIngestReport is the JSON output structure for an ingestion report.
type JSONIngestReport struct {
	GeneratedAt  string           `json:"generatedAt"`
	DryRun       bool             `json:"dryRun,omitempty"`
	Repositories int              `json:"repositories"`
	Extracted    int              `json:"extracted"`
	Inserted     int              `json:"inserted"`
	Skipped      int              `json:"skipped"`
	Results      []*ingest.Result `json:"results"`
	Failures     []JSONFailure    `json:"failures,omitempty"`
}

// JSONFailure is a repository whose ingestion failed.
type JSONFailure struct {
	Repo  string `json:"repo"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Write outputs the ingestion report as JSON.
func (w *JSONIngestWriter) Write(report *IngestReport, options OutputOptions) error {
	results := limitTop(report.Results, options.Top)
	if results == nil {
		results = []*ingest.Result{}
	}

	extracted, inserted, skipped := report.Totals()
	jsonReport := JSONIngestReport{
		GeneratedAt:  report.GeneratedAt.Format(time.RFC3339),
		DryRun:       report.DryRun,
		Repositories: len(report.Results),
		Extracted:    extracted,
		Inserted:     inserted,
		Skipped:      skipped,
		Results:      results,
		Failures:     jsonFailures(report.Failures),
	}

	return writeJSON(jsonReport, options.OutputPath)
}

func jsonFailures(failures []ingest.Failure) []JSONFailure {
	if len(failures) == 0 {
		return nil
	}
	out := make([]JSONFailure, len(failures))
	for i, f := range failures {
		out[i] = JSONFailure{Repo: f.Target.Name, Path: f.Target.Path, Error: f.Err.Error()}
	}
	return out
}

func writeJSON(data interface{}, outputPath string) error {
	encoder := json.NewEncoder(os.Stdout)
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		encoder = json.NewEncoder(file)
	}

	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
