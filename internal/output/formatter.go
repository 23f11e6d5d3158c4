package output

import (
	"time"

	"github.com/masmgr/commitsync/internal/ingest"
	"github.com/masmgr/commitsync/internal/record"
)

// Compile-time interface conformance checks.
var (
	_ RecordReportWriter = (*ConsoleRecordWriter)(nil)
	_ RecordReportWriter = (*JSONRecordWriter)(nil)
	_ RecordReportWriter = (*CSVRecordWriter)(nil)
	_ RecordReportWriter = (*MarkdownRecordWriter)(nil)
	_ RecordReportWriter = (*CIRecordWriter)(nil)

	_ IngestReportWriter = (*ConsoleIngestWriter)(nil)
	_ IngestReportWriter = (*JSONIngestWriter)(nil)
	_ IngestReportWriter = (*CIIngestWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	Top        int // Maximum number of records listed; <= 0 lists all
	OutputPath string
}

// RecordReport holds commit records of one repository, oldest first.
type RecordReport struct {
	RepoPath    string
	Ref         string
	Marker      string // Exclusive lower bound of the listed range, if any
	GeneratedAt time.Time
	Records     []record.CommitRecord
	Skipped     []record.SkippedCommit
}

// IngestReport holds the outcome of an ingestion run over one or more repositories.
type IngestReport struct {
	GeneratedAt time.Time
	DryRun      bool
	Results     []*ingest.Result
	Failures    []ingest.Failure
}

// Totals sums the per-repository counters of the report.
func (r *IngestReport) Totals() (extracted, inserted, skipped int) {
	for _, res := range r.Results {
		extracted += res.Extracted
		inserted += res.Inserted
		skipped += len(res.Skipped)
	}
	return extracted, inserted, skipped
}

// RecordReportWriter writes record reports.
type RecordReportWriter interface {
	Write(report *RecordReport, options OutputOptions) error
}

// IngestReportWriter writes ingestion reports.
type IngestReportWriter interface {
	Write(report *IngestReport, options OutputOptions) error
}

// NewRecordReportWriter creates a record report writer for the specified format.
func NewRecordReportWriter(format OutputFormat) RecordReportWriter {
	switch format {
	case FormatJSON:
		return &JSONRecordWriter{}
	case FormatCSV:
		return &CSVRecordWriter{}
	case FormatMarkdown:
		return &MarkdownRecordWriter{}
	case FormatCI:
		return &CIRecordWriter{}
	default:
		return &ConsoleRecordWriter{}
	}
}

// NewIngestReportWriter creates an ingestion report writer for the specified format.
// Formats without a tabular ingestion layout fall back to the console writer.
func NewIngestReportWriter(format OutputFormat) IngestReportWriter {
	switch format {
	case FormatJSON:
		return &JSONIngestWriter{}
	case FormatCI:
		return &CIIngestWriter{}
	default:
		return &ConsoleIngestWriter{}
	}
}
