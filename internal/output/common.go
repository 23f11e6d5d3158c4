package output

import (
	"io"
	"os"
	"time"
)

const reportDateTimeLayout = "2006-01-02T15:04:05"

func limitTop[T any](items []T, top int) []T {
	if top <= 0 || top >= len(items) {
		return items
	}
	return items[:top]
}

// authoredAt renders a record timestamp in UTC.
func authoredAt(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(reportDateTimeLayout)
}

// orDash renders absent optional values as "-".
func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func openOutputWriter(outputPath string) (io.Writer, *os.File, error) {
	if outputPath == "" {
		return os.Stdout, nil, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}
