package output

import (
	"fmt"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/masmgr/commitsync/internal/record"
)

// ConsoleRecordWriter writes record reports to the console.
type ConsoleRecordWriter struct{}

// Write outputs the record report to the console.
func (w *ConsoleRecordWriter) Write(report *RecordReport, options OutputOptions) error {
	records := limitTop(report.Records, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	color.New(color.FgGreen).Fprintln(out, "Commit Records")
	fmt.Fprintf(out, "Repository: %s\n", report.RepoPath)
	if report.Ref != "" {
		fmt.Fprintf(out, "Ref: %s\n", report.Ref)
	}
	if report.Marker != "" {
		fmt.Fprintf(out, "Since: %s\n", report.Marker)
	} else {
		fmt.Fprintln(out, "Since: beginning of history")
	}
	fmt.Fprintf(out, "Total records: %d\n\n", len(report.Records))

	if len(report.Records) == 0 {
		fmt.Fprintln(out, "No new commits.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tCommit\tAuthored\tAuthor\tSubject")
		for i, r := range records {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
				i+1,
				record.ShortHash(r.CommitHash),
				authoredAt(r.AuthoredAt),
				orDash(r.AuthorName),
				truncateMessage(r.Subject(), 60),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintln(out)
		color.New(color.FgYellow).Fprintf(out, "Skipped commits: %d\n", len(report.Skipped))
		for _, s := range report.Skipped {
			fmt.Fprintf(out, "  %s  %s\n", record.ShortHash(s.CommitHash), s.Reason)
		}
	}

	return nil
}

// ConsoleIngestWriter writes ingestion reports to the console.
type ConsoleIngestWriter struct{}

// Write outputs the ingestion report to the console.
func (w *ConsoleIngestWriter) Write(report *IngestReport, options OutputOptions) error {
	results := limitTop(report.Results, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	title := "Ingestion Results"
	if report.DryRun {
		title += " (dry run)"
	}
	color.New(color.FgGreen).Fprintln(out, title)
	extracted, inserted, skipped := report.Totals()
	fmt.Fprintf(out, "Repositories: %d, Failed: %d\n", len(report.Results), len(report.Failures))
	fmt.Fprintf(out, "Extracted: %d, Inserted: %d, Skipped: %d\n\n", extracted, inserted, skipped)

	if len(results) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Repository\tExtracted\tInserted\tDuplicates\tSkipped\tMarker\tTook")
		for _, r := range results {
			marker := record.ShortHash(r.Marker)
			if r.MarkerReset {
				marker = color.YellowString("%s (reset)", marker)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
				r.Repo,
				r.Extracted,
				r.Inserted,
				r.Duplicates,
				len(r.Skipped),
				marker,
				r.Duration.Round(time.Millisecond),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(out)
		red := color.New(color.FgRed)
		for _, f := range report.Failures {
			red.Fprintf(out, "FAILED %s: %v\n", f.Target.Name, f.Err)
		}
	}

	return nil
}

func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}
	if maxLen <= 0 {
		return ""
	}
	suffix := "..."
	if maxLen < len(suffix) {
		suffix = ""
	}
	// Cut on a rune boundary.
	cut := maxLen - len(suffix)
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + suffix
}
