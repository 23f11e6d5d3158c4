package output

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/masmgr/commitsync/internal/record"
)

// CSVRecordWriter writes record reports as CSV, one row per record.
// Absent optional fields are written as empty cells.
type CSVRecordWriter struct{}

// Write outputs the record report as CSV.
func (w *CSVRecordWriter) Write(report *RecordReport, options OutputOptions) error {
	records := limitTop(report.Records, options.Top)

	writer, file, err := createCSVWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	headers := []string{"RecordID", "CommitHash", "AuthorName", "AuthorEmail", "AuthoredAt", "Message"}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.RecordID,
			r.CommitHash,
			record.Value(r.AuthorName),
			record.Value(r.AuthorEmail),
			strconv.FormatInt(r.AuthoredAt, 10),
			record.Value(r.Message),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func createCSVWriter(outputPath string) (*csv.Writer, *os.File, error) {
	out, file, err := openOutputWriter(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(out), file, nil
}
