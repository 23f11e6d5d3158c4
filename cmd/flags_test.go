package cmd

import (
	"path/filepath"
	"testing"

	"github.com/masmgr/commitsync/internal/output"
)

func TestGetOutputFormat(t *testing.T) {
	tests := []struct {
		input string
		want  output.OutputFormat
	}{
		{input: "json", want: output.FormatJSON},
		{input: "JSON", want: output.FormatJSON},
		{input: "csv", want: output.FormatCSV},
		{input: "markdown", want: output.FormatMarkdown},
		{input: "md", want: output.FormatMarkdown},
		{input: "ci", want: output.FormatCI},
		{input: "ndjson", want: output.FormatCI},
		{input: "unknown", want: output.FormatConsole},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := getOutputFormat(tt.input); got != tt.want {
				t.Fatalf("getOutputFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRepoName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "service-a")

	tests := []struct {
		name     string
		flag     string
		repoPath string
		want     string
	}{
		{name: "ExplicitName", flag: "apps/web", repoPath: dir, want: "apps/web"},
		{name: "TrimmedName", flag: "  api  ", repoPath: dir, want: "api"},
		{name: "DirectoryName", repoPath: dir, want: "service-a"},
		{name: "TrailingSeparator", repoPath: dir + string(filepath.Separator), want: "service-a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repoName(tt.flag, tt.repoPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("repoName(%q, %q) = %q, want %q", tt.flag, tt.repoPath, got, tt.want)
			}
		})
	}
}

func TestCommandAliases(t *testing.T) {
	app := App()
	app.Setup()

	tests := []struct {
		alias string
		want  string
	}{
		{alias: "x", want: "extract"},
		{alias: "i", want: "ingest"},
		{alias: "hist", want: "history"},
		{alias: "m", want: "marker"},
		{alias: "h", want: "help"},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			cmd := app.Command(tt.alias)
			if cmd == nil || cmd.Name != tt.want {
				t.Fatalf("Command(%q) does not resolve to %q", tt.alias, tt.want)
			}
		})
	}
}
