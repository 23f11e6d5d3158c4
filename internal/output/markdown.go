package output

import (
	"fmt"
	"strings"

	"github.com/masmgr/commitsync/internal/record"
)

// MarkdownRecordWriter writes record reports as Markdown.
type MarkdownRecordWriter struct{}

// Write outputs the record report as Markdown.
func (w *MarkdownRecordWriter) Write(report *RecordReport, options OutputOptions) error {
	records := limitTop(report.Records, options.Top)

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	fmt.Fprintln(out, "# Commit Records")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "**Repository:** %s\n\n", report.RepoPath)
	if report.Ref != "" {
		fmt.Fprintf(out, "**Ref:** `%s`\n\n", report.Ref)
	}
	if report.Marker != "" {
		fmt.Fprintf(out, "**Since:** `%s`\n\n", report.Marker)
	}
	fmt.Fprintf(out, "**Total Records:** %d\n\n", len(report.Records))

	if len(records) > 0 {
		fmt.Fprintln(out, "| # | Commit | Authored | Author | Subject |")
		fmt.Fprintln(out, "|---|--------|----------|--------|---------|")
		for i, r := range records {
			fmt.Fprintf(out, "| %d | `%s` | %s | %s | %s |\n",
				i+1, record.ShortHash(r.CommitHash), authoredAt(r.AuthoredAt),
				escapeMarkdown(orDash(r.AuthorName)), escapeMarkdown(r.Subject()))
		}
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "## Skipped Commits")
		fmt.Fprintln(out)
		for _, s := range report.Skipped {
			fmt.Fprintf(out, "- `%s`: %s\n", s.CommitHash, escapeMarkdown(s.Reason))
		}
	}

	return nil
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
